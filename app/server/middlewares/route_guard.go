package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gramflow/app/server/constants"
	"gramflow/app/server/jwt"
	"gramflow/app/server/models"
	"gramflow/app/server/session"
)

// RouteGuard 每个请求只评估一次的路径守卫：
//  1. 认证接口前缀无条件放行
//  2. 已登录用户访问认证页面时带回默认页面
//  3. 未登录访问认证页面放行
//  4. 未登录访问非公开路径时重定向到登录页，附上原始路径作为回调参数
//  5. 管理员路径要求 ADMIN 角色，否则去未授权页面
//  6. 其余放行
//
// 登录状态下顺带做会话刷新：重读账户、应用白名单提升，声明有变化时轮换 cookie。
func RouteGuard(l *zap.Logger, j *jwt.JWT, refresher *session.Refresher) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			// 静态资源不做判定
			if isStaticAsset(path) {
				return next(c)
			}

			// 认证接口无条件放行
			if path == constants.APIAuthPrefix || strings.HasPrefix(path, constants.APIAuthPrefix+"/") {
				return next(c)
			}

			claims := SessionClaims(c)

			// 已登录用户不再访问认证页面
			if isAuthPath(path) {
				if claims != nil {
					return c.Redirect(http.StatusFound, constants.DefaultLoginRedirect)
				}
				return next(c)
			}

			// 未登录且不在公开名单里，带上回调地址去登录页
			if claims == nil {
				if isPublicPath(path) {
					return next(c)
				}
				return c.Redirect(http.StatusFound, constants.LoginPath+"?callbackUrl="+url.QueryEscape(path))
			}

			// 刷新会话
			if fresh, didChange, err := refresher.Refresh(c.Request().Context(), claims); err != nil {
				l.Error("failed to refresh session", zap.Error(err))
			} else {
				claims = fresh
				if didChange {
					if signed, err := j.Sign(fresh); err != nil {
						l.Error("failed to re-sign session", zap.Error(err))
					} else {
						SetSessionCookie(c, signed, fresh.ExpiresAt.Time)
					}
				}
			}
			c.Set(ClaimsContextKey, claims)

			// 管理员路径要求 ADMIN 角色
			if isAdminPath(path) && claims.Role != models.UserRoleAdmin {
				return c.Redirect(http.StatusFound, constants.UnauthorizedPath)
			}

			return next(c)
		}
	}
}

func isStaticAsset(path string) bool {
	return strings.HasPrefix(path, "/assets/") || strings.HasPrefix(path, "/favicon")
}

func isAuthPath(path string) bool {
	for _, p := range constants.AuthPaths {
		if path == p {
			return true
		}
	}
	return false
}

func isPublicPath(path string) bool {
	for _, p := range constants.PublicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// isAdminPath 按路径段匹配，/admin-xxx 这类相似前缀不会误判
func isAdminPath(path string) bool {
	for _, p := range constants.AdminPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
