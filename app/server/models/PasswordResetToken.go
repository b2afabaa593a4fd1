package models

import (
	"time"

	"gorm.io/gorm"
)

type PasswordResetToken struct {
	gorm.Model

	UserID  uint      `gorm:"column:user_id;index"`
	Email   string    `gorm:"column:email;index"`
	Token   string    `gorm:"column:token;uniqueIndex"`
	Expires time.Time `gorm:"column:expires"`
}
