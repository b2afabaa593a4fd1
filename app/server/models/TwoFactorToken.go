package models

import (
	"time"

	"gorm.io/gorm"
)

type TwoFactorToken struct {
	gorm.Model

	Email   string    `gorm:"column:email;index"`       // 绑定的邮箱
	Token   string    `gorm:"column:token;uniqueIndex"` // 六位数字验证码
	Expires time.Time `gorm:"column:expires"`
}
