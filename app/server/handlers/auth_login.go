package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gramflow/app/server/constants"
	"gramflow/app/server/identity"
	"gramflow/app/server/jwt"
	"gramflow/app/server/middlewares"
	"gramflow/app/server/tokens"
)

type loginRequest struct {
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	Code        string `json:"code" form:"code"` // 两步验证第二阶段的验证码
	CallbackURL string `json:"callbackUrl" form:"callbackUrl"`
}

func (a *App) AuthLogin(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.fail(c, http.StatusBadRequest, "Invalid fields")
	}

	if !isValidEmail(req.Email) || req.Password == "" {
		return a.fail(c, http.StatusBadRequest, "Invalid fields")
	}

	// 解析身份
	res, err := a.resolver.ResolvePassword(rctx, req.Email, req.Password, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrCodeInvalid):
			return a.fail(c, http.StatusUnauthorized, "Invalid code!")
		case errors.Is(err, tokens.ErrCodeExpired):
			return a.fail(c, http.StatusUnauthorized, "Code expired!")
		default:
			a.l.Error("failed to resolve identity", zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong")
		}
	}

	switch res.Status {
	case identity.StatusNotFound:
		return a.fail(c, http.StatusUnauthorized, "Email does not exist")

	case identity.StatusInvalidCredentials:
		return a.fail(c, http.StatusUnauthorized, "Invalid credentials")

	case identity.StatusUnverified:
		// 补发的验证令牌交给邮件组件投递
		if err := a.mail.SendVerification(rctx, res.VerificationToken.Email, a.verificationLink(res.VerificationToken.Token)); err != nil {
			a.l.Error("failed to send verification mail", zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong")
		}
		return a.ok(c, "Confirmation email sent")

	case identity.StatusTwoFactorRequired:
		if err := a.mail.SendTwoFactorCode(rctx, res.User.Email, res.TwoFactorToken.Token); err != nil {
			a.l.Error("failed to send two factor mail", zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong")
		}
		return c.JSON(http.StatusOK, &FormResponse{TwoFactor: true})

	case identity.StatusAuthenticated:
		// 签出会话并带用户回到原始去向
		expires := time.Now().Add(constants.SessionTokenDuration)
		signed, err := a.jwt.Sign(jwt.ClaimsFromUser(res.User, expires))
		if err != nil {
			a.l.Error("failed to sign session token", zap.Error(err))
			return a.fail(c, http.StatusInternalServerError, "Something went wrong")
		}

		middlewares.SetSessionCookie(c, signed, expires)
		return c.Redirect(http.StatusFound, callbackTarget(req.CallbackURL))

	default:
		return a.fail(c, http.StatusInternalServerError, "Something went wrong")
	}
}

// callbackTarget 只接受站内路径，其余一律回默认页面
func callbackTarget(callbackURL string) string {
	if strings.HasPrefix(callbackURL, "/") && !strings.HasPrefix(callbackURL, "//") {
		return callbackURL
	}

	return constants.DefaultLoginRedirect
}

func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
