package models

import "gorm.io/gorm"

// TwoFactorConfirmation 两步验证通过后的一次性凭据，登录成立时被消耗
type TwoFactorConfirmation struct {
	gorm.Model

	UserID uint `gorm:"column:user_id;index"`
}
