package tokens

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"gramflow/app/server/constants"
	"gramflow/app/server/models"
)

// 兑换失败的几种情况需要区分开，前端据此引导用户重新申请链接
var (
	ErrTokenMissing  = errors.New("token missing")
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrUserNotFound  = errors.New("user not found")
	ErrCodeInvalid   = errors.New("two factor code invalid")
	ErrCodeExpired   = errors.New("two factor code expired")
)

// Service 一次性令牌的签发与兑换：邮箱验证、密码重置、两步验证
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// IssueVerification 为账户签发邮箱验证令牌； email 与账户当前邮箱不一致时表示换绑。
// 同一邮箱同一时刻最多只有一枚有效令牌，旧令牌在签发时一并清除。
func (s *Service) IssueVerification(ctx context.Context, user *models.User, email string) (*models.VerificationToken, error) {
	token := &models.VerificationToken{
		UserID:  user.ID,
		Email:   email,
		Token:   uuid.NewString(),
		Expires: time.Now().Add(constants.VerificationTokenDuration),
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 清除同邮箱的旧令牌
		if err := tx.Where("email = ?", email).Delete(&models.VerificationToken{}).Error; err != nil {
			return fmt.Errorf("delete superseded tokens: %w", err)
		}

		return tx.Create(token).Error
	}); err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	return token, nil
}

// IssuePasswordReset 为账户签发密码重置令牌，规则与验证令牌一致
func (s *Service) IssuePasswordReset(ctx context.Context, user *models.User) (*models.PasswordResetToken, error) {
	token := &models.PasswordResetToken{
		UserID:  user.ID,
		Email:   user.Email,
		Token:   uuid.NewString(),
		Expires: time.Now().Add(constants.PasswordResetTokenDuration),
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", user.Email).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("delete superseded tokens: %w", err)
		}

		return tx.Create(token).Error
	}); err != nil {
		return nil, fmt.Errorf("issue password reset token: %w", err)
	}

	return token, nil
}

// IssueTwoFactor 签发两步验证用的六位数字验证码
func (s *Service) IssueTwoFactor(ctx context.Context, email string) (*models.TwoFactorToken, error) {
	code, err := sixDigitCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	token := &models.TwoFactorToken{
		Email:   email,
		Token:   code,
		Expires: time.Now().Add(constants.TwoFactorTokenDuration),
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).Delete(&models.TwoFactorToken{}).Error; err != nil {
			return fmt.Errorf("delete superseded tokens: %w", err)
		}

		return tx.Create(token).Error
	}); err != nil {
		return nil, fmt.Errorf("issue two factor token: %w", err)
	}

	return token, nil
}

// RedeemVerification 兑换邮箱验证令牌：打上验证时间戳，换绑场景下同时切换账户邮箱。
// 过期令牌只拒绝不删除；删除是条件删除，恰好删掉一行才算兑换成功，并发重复兑换只有一个赢家。
func (s *Service) RedeemVerification(ctx context.Context, value string) (*models.User, error) {
	if value == "" {
		return nil, ErrTokenMissing
	}

	var token models.VerificationToken
	if err := s.db.WithContext(ctx).First(&token, "token = ?", value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("query verification token: %w", err)
	}

	if time.Now().After(token.Expires) {
		return nil, ErrTokenExpired
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", token.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	// 先抢占令牌，再应用变更
	res := s.db.WithContext(ctx).Where("token = ?", value).Delete(&models.VerificationToken{})
	if res.Error != nil {
		return nil, fmt.Errorf("delete verification token: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return nil, ErrTokenNotFound
	}

	now := time.Now()
	updates := map[string]interface{}{
		"email_verified": &now,
	}
	if token.Email != user.Email {
		updates["email"] = token.Email
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	user.EmailVerified = &now
	if email, ok := updates["email"]; ok {
		user.Email = email.(string)
	}

	return &user, nil
}

// RedeemPasswordReset 兑换密码重置令牌并写入新密码
func (s *Service) RedeemPasswordReset(ctx context.Context, value string, newPassword string) (*models.User, error) {
	if value == "" {
		return nil, ErrTokenMissing
	}

	var token models.PasswordResetToken
	if err := s.db.WithContext(ctx).First(&token, "token = ?", value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("query password reset token: %w", err)
	}

	if time.Now().After(token.Expires) {
		return nil, ErrTokenExpired
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", token.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	passwordHash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	res := s.db.WithContext(ctx).Where("token = ?", value).Delete(&models.PasswordResetToken{})
	if res.Error != nil {
		return nil, fmt.Errorf("delete password reset token: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return nil, ErrTokenNotFound
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("password", passwordHash).Error; err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	return &user, nil
}

// RedeemTwoFactor 核销两步验证码
func (s *Service) RedeemTwoFactor(ctx context.Context, email string, code string) error {
	var token models.TwoFactorToken
	if err := s.db.WithContext(ctx).First(&token, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeInvalid
		}
		return fmt.Errorf("query two factor token: %w", err)
	}

	if token.Token != code {
		return ErrCodeInvalid
	}

	if time.Now().After(token.Expires) {
		return ErrCodeExpired
	}

	res := s.db.WithContext(ctx).Where("id = ?", token.ID).Delete(&models.TwoFactorToken{})
	if res.Error != nil {
		return fmt.Errorf("delete two factor token: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return ErrCodeInvalid
	}

	return nil
}

// CreateTwoFactorConfirmation 记录两步验证已通过，登录成立时消耗
func (s *Service) CreateTwoFactorConfirmation(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.TwoFactorConfirmation{}).Error; err != nil {
			return err
		}

		return tx.Create(&models.TwoFactorConfirmation{UserID: userID}).Error
	}); err != nil {
		return fmt.Errorf("create two factor confirmation: %w", err)
	}

	return nil
}

// ConsumeTwoFactorConfirmation 消耗一次性通过凭据，返回是否确实存在
func (s *Service) ConsumeTwoFactorConfirmation(ctx context.Context, userID uint) (bool, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.TwoFactorConfirmation{})
	if res.Error != nil {
		return false, fmt.Errorf("delete two factor confirmation: %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900_000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()+100_000), nil
}
