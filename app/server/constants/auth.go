package constants

import "time"

// 会话
const (
	SessionCookieName    = "gramflow_session"
	SessionTokenDuration = 24 * time.Hour
)

// 一次性令牌的有效窗口
const (
	VerificationTokenDuration  = 1 * time.Hour
	PasswordResetTokenDuration = 1 * time.Hour
	TwoFactorTokenDuration     = 5 * time.Minute
)
