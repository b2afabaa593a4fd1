package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Mailer 外部邮件投递组件的接口，真实投递不在本服务内实现
type Mailer interface {
	SendVerification(ctx context.Context, email string, link string) error
	SendPasswordReset(ctx context.Context, email string, link string) error
	SendTwoFactorCode(ctx context.Context, email string, code string) error
}

// LogMailer 把邮件内容写进日志的实现，用于开发环境与测试
type LogMailer struct {
	l *zap.Logger
}

func NewLogMailer(l *zap.Logger) *LogMailer {
	return &LogMailer{l: l}
}

func (m *LogMailer) SendVerification(_ context.Context, email string, link string) error {
	m.l.Info("verification mail",
		zap.String("email", email),
		zap.String("link", link),
	)

	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email string, link string) error {
	m.l.Info("password reset mail",
		zap.String("email", email),
		zap.String("link", link),
	)

	return nil
}

func (m *LogMailer) SendTwoFactorCode(_ context.Context, email string, code string) error {
	m.l.Info("two factor mail",
		zap.String("email", email),
		zap.String("code", code),
	)

	return nil
}
