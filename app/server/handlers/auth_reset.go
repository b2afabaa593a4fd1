package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gramflow/app/server/models"
)

type resetRequest struct {
	Email string `json:"email" form:"email"`
}

// AuthReset 申请密码重置邮件
func (a *App) AuthReset(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.fail(c, http.StatusBadRequest, "Invalid email!")
	}

	req.Email = strings.TrimSpace(req.Email)
	if !isValidEmail(req.Email) {
		return a.fail(c, http.StatusBadRequest, "Invalid email!")
	}

	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "email = ?", req.Email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.fail(c, http.StatusNotFound, "Email not found!")
		}
		a.l.Error("failed to query user", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong")
	}

	// 签发重置令牌并投递
	token, err := a.tokens.IssuePasswordReset(rctx, &user)
	if err != nil {
		a.l.Error("failed to issue password reset token", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong")
	}

	if err := a.mail.SendPasswordReset(rctx, token.Email, a.resetLink(token.Token)); err != nil {
		a.l.Error("failed to send password reset mail", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong")
	}

	return a.ok(c, "Reset email sent!")
}
