package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gramflow/app/server/tokens"
)

type newPasswordRequest struct {
	Password string `json:"password" form:"password"`
	Token    string `json:"token" form:"token"`
}

// AuthNewPassword 用重置令牌写入新密码
func (a *App) AuthNewPassword(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req newPasswordRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.fail(c, http.StatusBadRequest, "Invalid Fields")
	}

	if req.Token == "" {
		req.Token = c.QueryParam("token")
	}

	// 缺令牌和令牌无效是两种不同的情况，分开提示
	if req.Token == "" {
		return a.fail(c, http.StatusBadRequest, "Missing Token!")
	}

	if len(req.Password) < 6 {
		return a.fail(c, http.StatusBadRequest, "Invalid Fields")
	}

	user, err := a.tokens.RedeemPasswordReset(rctx, req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrTokenNotFound):
			return a.fail(c, http.StatusBadRequest, "Invalid Token")
		case errors.Is(err, tokens.ErrTokenExpired):
			return a.fail(c, http.StatusBadRequest, "The Token is Expired")
		case errors.Is(err, tokens.ErrUserNotFound):
			return a.fail(c, http.StatusBadRequest, "the user doesn't exist")
		default:
			a.l.Error("failed to redeem password reset token", zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong")
		}
	}

	a.refresher.Invalidate(rctx, user.ID)

	return a.ok(c, "You've successfully changed your password")
}
