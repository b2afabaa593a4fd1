package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"gorm.io/gorm"

	"gramflow/app/server/models"
	"gramflow/app/server/tokens"
)

// Status 身份解析结果
type Status int

const (
	StatusAuthenticated Status = iota
	StatusUnverified
	StatusTwoFactorRequired
	StatusNotFound
	StatusInvalidCredentials
)

// Result 解析结果；Unverified / TwoFactorRequired 时附带新签发的令牌，
// 邮件发送由调用方通过外部投递组件完成
type Result struct {
	Status            Status
	User              *models.User
	VerificationToken *models.VerificationToken
	TwoFactorToken    *models.TwoFactorToken
}

// OAuthAssertion 外部身份提供方的断言，OAuth 身份视作已完成邮箱验证
type OAuthAssertion struct {
	Provider  string
	AccountID string
	Email     string
	Name      string
	Picture   string
}

// Resolver 把邮箱密码对或 OAuth 断言解析为账户身份。
// 管理员白名单通过配置注入，只会向上提升角色，从不自动降级。
type Resolver struct {
	db          *gorm.DB
	tokens      *tokens.Service
	adminEmails map[string]struct{}
}

func NewResolver(db *gorm.DB, tokenSvc *tokens.Service, adminEmails []string) *Resolver {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		allow[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}

	return &Resolver{
		db:          db,
		tokens:      tokenSvc,
		adminEmails: allow,
	}
}

// IsAdminEmail 白名单判定，大小写不敏感
func (r *Resolver) IsAdminEmail(email string) bool {
	_, ok := r.adminEmails[strings.ToLower(email)]
	return ok
}

// ResolvePassword 密码路径。twoFactorCode 仅在账户启用两步验证后的第二阶段填写。
func (r *Resolver) ResolvePassword(ctx context.Context, email string, password string, twoFactorCode string) (*Result, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{Status: StatusNotFound}, nil
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	// 纯 OAuth 账户没有密码哈希，直接按凭据错误处理，不和空值做比较
	if user.Password == "" {
		return &Result{Status: StatusInvalidCredentials}, nil
	}

	// 未验证的账户不能建立会话，改为补发验证令牌
	if user.EmailVerified == nil {
		token, err := r.tokens.IssueVerification(ctx, &user, user.Email)
		if err != nil {
			return nil, fmt.Errorf("issue verification token: %w", err)
		}

		return &Result{Status: StatusUnverified, User: &user, VerificationToken: token}, nil
	}

	// 校验密码
	if match, _, err := argon2id.CheckHash(password, user.Password); err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	} else if !match {
		return &Result{Status: StatusInvalidCredentials}, nil
	}

	// 两步验证：验证码核销产生一次性通过凭据，登录成立时消耗掉
	if user.IsTwoFactorEnabled {
		if twoFactorCode != "" {
			// 核销验证码出错时向上返回，调用方映射为具体提示
			if err := r.tokens.RedeemTwoFactor(ctx, user.Email, twoFactorCode); err != nil {
				return nil, err
			}

			if err := r.tokens.CreateTwoFactorConfirmation(ctx, user.ID); err != nil {
				return nil, err
			}
		}

		consumed, err := r.tokens.ConsumeTwoFactorConfirmation(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("consume two factor confirmation: %w", err)
		}

		if !consumed {
			token, err := r.tokens.IssueTwoFactor(ctx, user.Email)
			if err != nil {
				return nil, fmt.Errorf("issue two factor token: %w", err)
			}

			return &Result{Status: StatusTwoFactorRequired, User: &user, TwoFactorToken: token}, nil
		}
	}

	// 白名单提升
	if err := r.PromoteIfListed(ctx, &user); err != nil {
		return nil, err
	}

	return &Result{Status: StatusAuthenticated, User: &user}, nil
}

// ResolveOAuth OAuth 路径：按断言邮箱查找或创建账户
func (r *Resolver) ResolveOAuth(ctx context.Context, assertion *OAuthAssertion) (*Result, error) {
	email := strings.ToLower(strings.TrimSpace(assertion.Email))
	if email == "" {
		return &Result{Status: StatusInvalidCredentials}, nil
	}

	var user models.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("query user: %w", err)
		}

		user = newUserFromAssertion(email, assertion)
		if r.IsAdminEmail(email) {
			user.Role = models.UserRoleAdmin
		}

		if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}

		return &Result{Status: StatusAuthenticated, User: &user}, nil
	}

	// 首次关联时补全 OAuth 信息
	if user.OAuthProvider == "" {
		updates := map[string]interface{}{
			"oauth_provider":   assertion.Provider,
			"oauth_account_id": assertion.AccountID,
		}
		if user.Image == "" && assertion.Picture != "" {
			updates["image"] = assertion.Picture
		}

		if err := r.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("link oauth account: %w", err)
		}

		user.OAuthProvider = assertion.Provider
		user.OAuthAccountID = assertion.AccountID
		if img, ok := updates["image"]; ok {
			user.Image = img.(string)
		}
	}

	if err := r.PromoteIfListed(ctx, &user); err != nil {
		return nil, err
	}

	return &Result{Status: StatusAuthenticated, User: &user}, nil
}

// PromoteIfListed 命中白名单则持久化提升为 ADMIN，供会话刷新复用
func (r *Resolver) PromoteIfListed(ctx context.Context, user *models.User) error {
	if user.Role == models.UserRoleAdmin || !r.IsAdminEmail(user.Email) {
		return nil
	}

	if err := r.db.WithContext(ctx).Model(user).Update("role", models.UserRoleAdmin).Error; err != nil {
		return fmt.Errorf("promote user: %w", err)
	}

	user.Role = models.UserRoleAdmin
	return nil
}

func newUserFromAssertion(email string, assertion *OAuthAssertion) models.User {
	first, last := splitDisplayName(assertion.Name)
	now := time.Now()

	return models.User{
		Email:          email,
		FirstName:      first,
		LastName:       last,
		Name:           assertion.Name,
		Image:          assertion.Picture,
		Role:           models.UserRoleStandard,
		EmailVerified:  &now, // OAuth 身份视作已验证
		OAuthProvider:  assertion.Provider,
		OAuthAccountID: assertion.AccountID,
	}
}

// splitDisplayName 按第一个空白拆分显示名称：首段为名，剩余为姓
func splitDisplayName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}

	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}

	return parts[0], strings.TrimSpace(parts[1])
}
