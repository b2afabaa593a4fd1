package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gramflow/app/server/tokens"
)

// AuthNewVerification 兑换邮箱验证令牌
func (a *App) AuthNewVerification(c echo.Context) error {
	rctx := c.Request().Context()

	value := c.QueryParam("token")
	if value == "" {
		return a.fail(c, http.StatusBadRequest, "Missing token!")
	}

	user, err := a.tokens.RedeemVerification(rctx, value)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrTokenNotFound):
			return a.fail(c, http.StatusBadRequest, "Token does not exist!")
		case errors.Is(err, tokens.ErrTokenExpired):
			return a.fail(c, http.StatusBadRequest, "Token has expired!")
		case errors.Is(err, tokens.ErrUserNotFound):
			return a.fail(c, http.StatusBadRequest, "Email does not exist!")
		default:
			a.l.Error("failed to redeem verification token", zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong")
		}
	}

	a.refresher.Invalidate(rctx, user.ID)

	return a.ok(c, "Email verified!")
}
