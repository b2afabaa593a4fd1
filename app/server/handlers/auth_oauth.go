package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gramflow/app/server/constants"
	"gramflow/app/server/identity"
	"gramflow/app/server/jwt"
	"gramflow/app/server/middlewares"
	"gramflow/app/server/oauth"
)

const oauthStateCookieName = "gramflow_oauth_state"

// OAuthLogin 发起授权码流程
func (a *App) OAuthLogin(c echo.Context) error {
	state := uuid.NewString()

	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/api/auth/oauth",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, a.oauth.AuthCodeURL(state))
}

// OAuthCallback 校验 state、换取令牌、拉取身份断言并建立会话
func (a *App) OAuthCallback(c echo.Context) error {
	rctx := c.Request().Context()

	// 校验 state
	stateCookie, err := c.Cookie(oauthStateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.QueryParam("state") {
		return a.fail(c, http.StatusBadRequest, "Invalid state token")
	}

	code := c.QueryParam("code")
	if code == "" {
		return a.fail(c, http.StatusBadRequest, "Missing code")
	}

	// 换取令牌
	token, err := a.oauth.Exchange(rctx, code)
	if err != nil {
		a.l.Error("failed to exchange oauth code", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong")
	}

	// 拉取身份断言
	profile, err := oauth.FetchGoogleProfile(rctx, a.oauth, token)
	if err != nil {
		a.l.Error("failed to fetch oauth profile", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong")
	}

	res, err := a.resolver.ResolveOAuth(rctx, &identity.OAuthAssertion{
		Provider:  "google",
		AccountID: profile.ID,
		Email:     profile.Email,
		Name:      profile.Name,
		Picture:   profile.Picture,
	})
	if err != nil {
		a.l.Error("failed to resolve oauth identity", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong")
	}
	if res.Status != identity.StatusAuthenticated {
		return a.fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	// 签出会话
	expires := time.Now().Add(constants.SessionTokenDuration)
	signed, err := a.jwt.Sign(jwt.ClaimsFromUser(res.User, expires))
	if err != nil {
		a.l.Error("failed to sign session token", zap.Error(err))
		return a.fail(c, http.StatusInternalServerError, "Something went wrong")
	}

	middlewares.SetSessionCookie(c, signed, expires)
	return c.Redirect(http.StatusFound, constants.DefaultLoginRedirect)
}
