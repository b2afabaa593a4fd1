package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleStandard UserRole = "STANDARD"
	UserRoleAdmin    UserRole = "ADMIN"
)

type User struct {
	gorm.Model

	// 基础信息
	Email     string `gorm:"column:email;uniqueIndex"` // 邮箱，全局唯一
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
	Name      string `gorm:"column:name"`  // 显示名称
	Image     string `gorm:"column:image"` // 头像地址

	// 登录与授权认证相关
	Password           string     `gorm:"column:password"`                            // 密码，使用 argon2id 储存；纯 OAuth 账户为空
	Role               UserRole   `gorm:"column:role;default:STANDARD"`               // 角色：管理员可以管理其他用户的角色与订阅
	EmailVerified      *time.Time `gorm:"column:email_verified"`                      // 邮箱验证时间，未验证时为空，未验证的账户不能登录
	IsTwoFactorEnabled bool       `gorm:"column:is_two_factor_enabled;default:false"` // 是否启用两步验证

	// OAuth 关联，首次 OAuth 登录时写入
	OAuthProvider  string `gorm:"column:oauth_provider"`
	OAuthAccountID string `gorm:"column:oauth_account_id;index"`
}
