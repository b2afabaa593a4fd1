package handlers

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"gramflow/app/server/config"
	"gramflow/app/server/identity"
	"gramflow/app/server/jwt"
	"gramflow/app/server/mailer"
	"gramflow/app/server/session"
	"gramflow/app/server/tokens"
)

type App struct {
	l         *zap.Logger        // 日志
	db        *gorm.DB           // 数据库
	jwt       *jwt.JWT           // 会话令牌签发
	resolver  *identity.Resolver // 身份解析
	tokens    *tokens.Service    // 一次性令牌
	mail      mailer.Mailer      // 邮件投递（外部协作方）
	refresher *session.Refresher // 会话刷新与账户缓存
	oauth     *oauth2.Config     // OAuth 授权码流程配置
	cfg       *config.Config
}

func NewApp(
	l *zap.Logger,
	db *gorm.DB,
	j *jwt.JWT,
	resolver *identity.Resolver,
	tokenSvc *tokens.Service,
	mail mailer.Mailer,
	refresher *session.Refresher,
	oauthCfg *oauth2.Config,
	cfg *config.Config,
) *App {
	return &App{
		l:         l,
		db:        db,
		jwt:       j,
		resolver:  resolver,
		tokens:    tokenSvc,
		mail:      mail,
		refresher: refresher,
		oauth:     oauthCfg,
		cfg:       cfg,
	}
}

// RegisterRoutes 绑定全部路由
func (a *App) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/healthcheck", a.HealthCheck)

	auth := e.Group("/api/auth")
	auth.POST("/login", a.AuthLogin)
	auth.POST("/register", a.AuthRegister)
	auth.POST("/reset", a.AuthReset)
	auth.POST("/new-password", a.AuthNewPassword)
	auth.GET("/new-verification", a.AuthNewVerification)
	auth.POST("/logout", a.AuthLogout)
	auth.GET("/oauth/login", a.OAuthLogin)
	auth.GET("/oauth/callback", a.OAuthCallback)

	e.GET("/api/session", a.SessionInfo)
	e.PATCH("/api/settings", a.SettingsUpdate)

	admin := e.Group("/api/admin")
	admin.GET("/users", a.UserList)
	admin.PATCH("/users/:id/role", a.UserRoleUpdate)
}

// 邮件里的链接都指向对外访问地址
func (a *App) verificationLink(token string) string {
	return a.cfg.System.PublicOrigin + "/auth/new-verification?token=" + token
}

func (a *App) resetLink(token string) string {
	return a.cfg.System.PublicOrigin + "/auth/new-password?token=" + token
}
