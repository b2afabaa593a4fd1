package models

import (
	"time"

	"gorm.io/gorm"
)

type VerificationToken struct {
	gorm.Model

	UserID  uint      `gorm:"column:user_id;index"`     // 目标账户
	Email   string    `gorm:"column:email;index"`       // 绑定的邮箱；与账户当前邮箱不一致时表示换绑流程
	Token   string    `gorm:"column:token;uniqueIndex"` // 不透明高熵令牌值
	Expires time.Time `gorm:"column:expires"`           // 过期时间，兑换时按墙钟比较
}
