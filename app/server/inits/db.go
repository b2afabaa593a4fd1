package inits

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gramflow/app/server/models"
)

func DB(conn string, adminEmails []string) (db *gorm.DB, err error) {
	// 打开连接； sqlite:// 开头的走本地库，其余按 Postgres 处理
	dialector := postgres.Open(conn)
	if path, ok := strings.CutPrefix(conn, "sqlite://"); ok {
		dialector = sqlite.Open(path)
	}

	if db, err = gorm.Open(dialector, &gorm.Config{}); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 迁移
	if err = mig(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 初始化启动数据
	if err = initData(db, adminEmails); err != nil {
		return nil, fmt.Errorf("failed to init data into database: %w", err)
	}

	// 返回
	return db, nil
}

func mig(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.VerificationToken{},
		&models.PasswordResetToken{},
		&models.TwoFactorToken{},
		&models.TwoFactorConfirmation{},
	)
}

// initData 为白名单邮箱准备初始管理员账户。
// 不设初始密码，首次登录走 OAuth 或密码重置流程。
func initData(db *gorm.DB, adminEmails []string) (err error) {
	for _, email := range adminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}

		// 查询现有记录数量
		var counter int64
		if err = db.Model(&models.User{}).Where("email = ?", email).Count(&counter).Error; err != nil {
			return fmt.Errorf("failed to get user count: %w", err)
		} else if counter > 0 {
			continue
		}

		// 插入记录
		now := time.Now()
		if err = db.Create(&models.User{
			Email:         email,
			Name:          "Admin",
			Role:          models.UserRoleAdmin,
			EmailVerified: &now,
		}).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
	}

	// 已有数据或全部导入成功
	return nil
}
