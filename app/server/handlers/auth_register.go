package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gramflow/app/server/models"
)

type registerRequest struct {
	Email     string `json:"email" form:"email"`
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Password  string `json:"password" form:"password"`
}

func (a *App) AuthRegister(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.fail(c, http.StatusBadRequest, "Invalid fields...")
	}

	req.Email = strings.TrimSpace(req.Email)
	if !isValidEmail(req.Email) || len(req.Password) < 6 || req.FirstName == "" || req.LastName == "" {
		return a.fail(c, http.StatusBadRequest, "Invalid fields...")
	}

	// 邮箱查重
	var existing models.User
	if err := a.db.WithContext(rctx).First(&existing, "email = ?", req.Email).Error; err == nil {
		return a.fail(c, http.StatusConflict, "Email already in use...")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		a.l.Error("failed to query user", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong...")
	}

	// 处理密码
	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		a.l.Error("failed to hash password", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong...")
	}

	// 创建账户，邮箱验证完成之前不能登录
	user := models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Name:      req.FirstName + " " + req.LastName,
		Password:  passwordHash,
		Role:      models.UserRoleStandard,
	}

	if err := a.db.WithContext(rctx).Create(&user).Error; err != nil {
		a.l.Error("failed to create user", zap.String("email", req.Email), zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong...")
	}

	// 签发验证令牌并投递
	token, err := a.tokens.IssueVerification(rctx, &user, user.Email)
	if err != nil {
		a.l.Error("failed to issue verification token", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong...")
	}

	if err := a.mail.SendVerification(rctx, token.Email, a.verificationLink(token.Token)); err != nil {
		a.l.Error("failed to send verification mail", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong...")
	}

	return a.ok(c, "Confirmation Email Sent...")
}
