package constants

import "time"

const (
	CacheKeyUserInfo = "gramflow:user:info:%d"
)

const (
	CacheExpireUserInfo = 1 * time.Hour
)
