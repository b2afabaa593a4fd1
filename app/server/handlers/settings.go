package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gramflow/app/server/middlewares"
	"gramflow/app/server/models"
)

type settingsRequest struct {
	Name               *string `json:"name"`
	FirstName          *string `json:"firstName"`
	LastName           *string `json:"lastName"`
	Image              *string `json:"image"`
	Email              *string `json:"email"`
	Password           *string `json:"password"`    // 当前密码，改密码时必填
	NewPassword        *string `json:"newPassword"` // 新密码
	IsTwoFactorEnabled *bool   `json:"isTwoFactorEnabled"`
}

// SettingsUpdate 编辑本人资料。换邮箱走验证令牌流程，令牌兑换前旧邮箱继续生效。
func (a *App) SettingsUpdate(c echo.Context) error {
	claims := middlewares.RefreshedClaims(c)
	if claims == nil {
		return a.er(c, http.StatusUnauthorized)
	}

	id, err := claims.UserID()
	if err != nil {
		a.l.Error("failed to resolve subject", zap.Error(err))
		return a.er(c, http.StatusUnauthorized)
	}

	rctx := c.Request().Context()

	// 从数据库中获得当前账户
	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.er(c, http.StatusNotFound)
		}
		a.l.Error("failed to get user", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 绑定请求体
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.fail(c, http.StatusBadRequest, "Invalid fields!")
	}

	// 纯 OAuth 账户的邮箱、密码、两步验证都由身份提供方管理
	isOAuth := user.OAuthProvider != "" && user.Password == ""
	if isOAuth {
		req.Email = nil
		req.Password = nil
		req.NewPassword = nil
		req.IsTwoFactorEnabled = nil
	}

	// 换绑邮箱：只签发验证令牌，真正的切换发生在兑换时
	if req.Email != nil {
		newEmail := strings.TrimSpace(*req.Email)
		if !isValidEmail(newEmail) {
			return a.fail(c, http.StatusBadRequest, "Invalid fields!")
		}

		if newEmail != user.Email {
			var other models.User
			if err := a.db.WithContext(rctx).First(&other, "email = ?", newEmail).Error; err == nil {
				return a.fail(c, http.StatusConflict, "Email already in use!")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				a.l.Error("failed to query user", zap.Error(err))
				return a.fail(c, http.StatusInternalServerError, "Something went wrong!")
			}

			token, err := a.tokens.IssueVerification(rctx, &user, newEmail)
			if err != nil {
				a.l.Error("failed to issue verification token", zap.Error(err))
				return a.fail(c, http.StatusInternalServerError, "Something went wrong!")
			}

			if err := a.mail.SendVerification(rctx, token.Email, a.verificationLink(token.Token)); err != nil {
				a.l.Error("failed to send verification mail", zap.Error(err))
				return a.fail(c, http.StatusInternalServerError, "Something went wrong!")
			}

			return a.ok(c, "Verification email sent!")
		}
	}

	updates := map[string]interface{}{}

	// 改密码要先核对当前密码
	if req.Password != nil && req.NewPassword != nil {
		if match, _, err := argon2id.CheckHash(*req.Password, user.Password); err != nil {
			a.l.Error("failed to check password", zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong!")
		} else if !match {
			return a.fail(c, http.StatusUnauthorized, "Incorrect password!")
		}

		if len(*req.NewPassword) < 6 {
			return a.fail(c, http.StatusBadRequest, "Invalid fields!")
		}

		passwordHash, err := argon2id.CreateHash(*req.NewPassword, argon2id.DefaultParams)
		if err != nil {
			a.l.Error("failed to hash password", zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong!")
		}
		updates["password"] = passwordHash
	}

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.IsTwoFactorEnabled != nil {
		updates["is_two_factor_enabled"] = *req.IsTwoFactorEnabled
	}

	if len(updates) > 0 {
		if err := a.db.WithContext(rctx).Model(&user).Updates(updates).Error; err != nil {
			a.l.Error("failed to update user", zap.Uint("id", user.ID), zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong!")
		}

		a.refresher.Invalidate(rctx, user.ID)
	}

	return a.ok(c, "Settings Updated!")
}
