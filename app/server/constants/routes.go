package constants

// 路由守卫使用的路径分类
const (
	APIAuthPrefix        = "/api/auth" // 认证接口前缀，无条件放行
	LoginPath            = "/auth/login"
	DefaultLoginRedirect = "/settings" // 登录后的默认去向
	UnauthorizedPath     = "/unauthorized"
)

// 认证页面：已登录用户访问会被带回默认页面，未登录用户放行
var AuthPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/error",
	"/auth/reset",
	"/auth/new-password",
	"/auth/new-verification",
}

// 无需会话即可访问的路径（精确匹配）
var PublicPaths = []string{
	"/",
	"/unauthorized",
	"/api/healthcheck",
}

// 管理员路径：按路径段匹配，避免 /admin-xxx 这类前缀误伤
var AdminPaths = []string{
	"/admin",
	"/api/admin",
}
