package main

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"gramflow/app/server/handlers"
	"gramflow/app/server/identity"
	"gramflow/app/server/inits"
	"gramflow/app/server/jwt"
	"gramflow/app/server/mailer"
	"gramflow/app/server/middlewares"
	"gramflow/app/server/oauth"
	"gramflow/app/server/session"
	"gramflow/app/server/tokens"
)

func main() {
	// 初始化配置
	cfg, err := inits.Config()
	if err != nil {
		log.Fatal(fmt.Errorf("error loading config: %w", err))
	}

	// 初始化日志
	l, err := inits.Logger(!cfg.System.IsProd)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing logger: %w", err))
	}

	// 切换日志系统
	l.Debug("logger initialized")

	// 初始化数据库连接
	db, err := inits.DB(cfg.System.DBConnectionString, cfg.Security.AdminEmails)
	if err != nil {
		l.Fatal("error initializing DB connection", zap.Error(err))
	}

	// 初始化 redis 连接
	rdb, err := inits.Redis(cfg.System.RedisConnectionString)
	if err != nil {
		l.Fatal("error initializing Redis connection", zap.Error(err))
	}

	// 初始化 JWT
	j, err := jwt.New(cfg.Security.SignatureSecretKey)
	if err != nil {
		l.Fatal("error initializing JWT", zap.Error(err))
	}

	// 准备核心组件
	tokenSvc := tokens.NewService(db)
	resolver := identity.NewResolver(db, tokenSvc, cfg.Security.AdminEmails)
	refresher := session.NewRefresher(l, db, rdb, resolver)
	mail := mailer.NewLogMailer(l)
	oauthCfg := oauth.GoogleConfig(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, cfg.System.PublicOrigin)

	// 准备 handler app
	handlerApp := handlers.NewApp(l, db, j, resolver, tokenSvc, mail, refresher, oauthCfg, cfg)

	// 准备 echo 服务
	e := echo.New()
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l.Info("request",
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
			)

			return nil
		},
	}))
	e.Use(middleware.Recover())

	// 会话提取与路由守卫
	e.Use(middlewares.Session(j))
	e.Use(middlewares.RouteGuard(l, j, refresher))

	// 绑定 echo 服务
	handlerApp.RegisterRoutes(e)

	// 启动 echo 服务
	if err := e.Start(cfg.System.Listen); err != nil {
		l.Fatal("shutting down the server", zap.Error(err))
	}
}
