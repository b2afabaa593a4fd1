package middlewares

import (
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"gramflow/app/server/constants"
	"gramflow/app/server/jwt"
)

const (
	// echo-jwt 解析结果所在的 context 键
	TokenContextKey = "session_token"
	// 路由守卫刷新后的声明所在的 context 键
	ClaimsContextKey = "session_claims"
)

// Session 从 cookie 或 Authorization 头提取并校验会话令牌。
// 缺失或无效都不在这里拦截，放行与否由路由守卫统一裁决。
func Session(j *jwt.JWT) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:    TokenContextKey,
		SigningKey:    j.Key(),
		SigningMethod: echojwt.AlgorithmHS256,
		TokenLookup:   "cookie:" + constants.SessionCookieName + ",header:Authorization:Bearer ",
		NewClaimsFunc: func(c echo.Context) jwtlib.Claims {
			return new(jwt.SessionClaims)
		},
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
	})
}

// SessionClaims 取出请求携带的会话声明，没有有效会话时为 nil
func SessionClaims(c echo.Context) *jwt.SessionClaims {
	token, ok := c.Get(TokenContextKey).(*jwtlib.Token)
	if !ok || token == nil {
		return nil
	}

	claims, ok := token.Claims.(*jwt.SessionClaims)
	if !ok {
		return nil
	}

	return claims
}

// RefreshedClaims 取出路由守卫刷新后的声明，优先于原始令牌内容
func RefreshedClaims(c echo.Context) *jwt.SessionClaims {
	if claims, ok := c.Get(ClaimsContextKey).(*jwt.SessionClaims); ok {
		return claims
	}

	return SessionClaims(c)
}

func SetSessionCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
