package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gramflow/app/server/constants"
	"gramflow/app/server/identity"
	"gramflow/app/server/jwt"
	"gramflow/app/server/models"
)

// Refresher 会话刷新：每个请求重新读取账户并重新判定角色，
// 白名单提升无需重新登录即可在下一次刷新生效
type Refresher struct {
	l        *zap.Logger
	db       *gorm.DB
	rdb      *redis.Client // 可为空，此时直接走数据库
	resolver *identity.Resolver
}

func NewRefresher(l *zap.Logger, db *gorm.DB, rdb *redis.Client, resolver *identity.Resolver) *Refresher {
	return &Refresher{
		l:        l,
		db:       db,
		rdb:      rdb,
		resolver: resolver,
	}
}

// Refresh 依据声明主体重读账户并产出最新声明。
// 账户已不存在时原样返回旧声明（视作暂态有效），依赖活体账户的调用方需要自行再确认。
func (r *Refresher) Refresh(ctx context.Context, claims *jwt.SessionClaims) (*jwt.SessionClaims, bool, error) {
	id, err := claims.UserID()
	if err != nil {
		return claims, false, fmt.Errorf("resolve subject: %w", err)
	}

	user, err := r.lookupUser(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		// 账户不存在，原样返回
		return claims, false, nil
	}

	// 刷新时发现待提升的管理员角色，先落库再写进声明
	if user.Role != models.UserRoleAdmin && r.resolver.IsAdminEmail(user.Email) {
		if err := r.resolver.PromoteIfListed(ctx, user); err != nil {
			return nil, false, err
		}
		r.invalidate(ctx, id)
	}

	expires := time.Now().Add(constants.SessionTokenDuration)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	fresh := jwt.ClaimsFromUser(user, expires)
	return fresh, changed(claims, fresh), nil
}

// Invalidate 账户记录变更后清除缓存
func (r *Refresher) Invalidate(ctx context.Context, id uint) {
	r.invalidate(ctx, id)
}

func (r *Refresher) invalidate(ctx context.Context, id uint) {
	if r.rdb == nil {
		return
	}

	r.rdb.Del(ctx, fmt.Sprintf(constants.CacheKeyUserInfo, id))
}

// lookupUser 旁路缓存读取账户：缓存出错一律回落到数据库；账户不存在时返回 (nil, nil)
func (r *Refresher) lookupUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User

	if r.rdb != nil {
		// 查询缓存
		cacheKey := fmt.Sprintf(constants.CacheKeyUserInfo, id)
		if cacheBytes, err := r.rdb.Get(ctx, cacheKey).Bytes(); err != nil {
			if !errors.Is(err, redis.Nil) {
				r.l.Error("failed to query cache for user info", zap.Uint("id", id), zap.Error(err))
			}
		} else if err = json.Unmarshal(cacheBytes, &user); err != nil {
			r.l.Error("failed to unmarshal user info", zap.Uint("id", id), zap.ByteString("cacheBytes", cacheBytes), zap.Error(err))
			// 可能是无效的缓存，清理掉
			r.rdb.Del(ctx, cacheKey)
		} else {
			return &user, nil
		}
	}

	// 查询数据库
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	// 格式化并加入缓存，方便下一次查询
	if r.rdb != nil {
		if cacheBytes, err := json.Marshal(&user); err != nil {
			r.l.Error("failed to marshal user info", zap.Uint("id", id), zap.Error(err))
		} else {
			r.rdb.Set(ctx, fmt.Sprintf(constants.CacheKeyUserInfo, id), cacheBytes, constants.CacheExpireUserInfo)
		}
	}

	return &user, nil
}

func changed(old, fresh *jwt.SessionClaims) bool {
	if old.Name != fresh.Name ||
		old.FirstName != fresh.FirstName ||
		old.LastName != fresh.LastName ||
		old.Email != fresh.Email ||
		old.Role != fresh.Role ||
		old.Image != fresh.Image {
		return true
	}

	return !equalTime(old.EmailVerified, fresh.EmailVerified)
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}
