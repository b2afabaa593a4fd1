package session

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gramflow/app/server/identity"
	"gramflow/app/server/jwt"
	"gramflow/app/server/models"
	"gramflow/app/server/tokens"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.VerificationToken{},
		&models.PasswordResetToken{},
		&models.TwoFactorToken{},
		&models.TwoFactorConfirmation{},
	))

	return db
}

func newTestRefresher(t *testing.T, db *gorm.DB, adminEmails ...string) *Refresher {
	t.Helper()

	resolver := identity.NewResolver(db, tokens.NewService(db), adminEmails)
	return NewRefresher(zap.NewNop(), db, nil, resolver)
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	now := time.Now()
	user := &models.User{
		Email:         email,
		Name:          "Test User",
		Role:          models.UserRoleStandard,
		EmailVerified: &now,
	}
	require.NoError(t, db.Create(user).Error)

	return user
}

func TestRefreshPicksUpAccountChanges(t *testing.T) {
	db := newTestDB(t)
	r := newTestRefresher(t, db)
	ctx := context.Background()
	user := createUser(t, db, "a@x.com")

	claims := jwt.ClaimsFromUser(user, time.Now().Add(time.Hour))

	// 账户未变时声明不变
	fresh, didChange, err := r.Refresh(ctx, claims)
	require.NoError(t, err)
	assert.False(t, didChange)
	assert.Equal(t, claims.Email, fresh.Email)

	// 改名后刷新应产出新声明
	require.NoError(t, db.Model(user).Update("name", "Renamed User").Error)

	fresh, didChange, err = r.Refresh(ctx, claims)
	require.NoError(t, err)
	assert.True(t, didChange)
	assert.Equal(t, "Renamed User", fresh.Name)
	// 过期时间沿用旧声明，刷新不续期
	assert.Equal(t, claims.ExpiresAt.Time.Unix(), fresh.ExpiresAt.Time.Unix())
}

func TestRefreshPromotesListedAdmin(t *testing.T) {
	db := newTestDB(t)
	r := newTestRefresher(t, db, "a@x.com")
	ctx := context.Background()
	user := createUser(t, db, "a@x.com")

	claims := jwt.ClaimsFromUser(user, time.Now().Add(time.Hour))

	fresh, didChange, err := r.Refresh(ctx, claims)
	require.NoError(t, err)
	assert.True(t, didChange)
	assert.Equal(t, models.UserRoleAdmin, fresh.Role)

	// 提升已持久化，不只是写进声明
	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.UserRoleAdmin, stored.Role)
}

func TestRefreshMissingAccountKeepsClaims(t *testing.T) {
	db := newTestDB(t)
	r := newTestRefresher(t, db)
	ctx := context.Background()

	user := &models.User{Email: "gone@x.com", Role: models.UserRoleStandard}
	user.ID = 404
	claims := jwt.ClaimsFromUser(user, time.Now().Add(time.Hour))

	fresh, didChange, err := r.Refresh(ctx, claims)
	require.NoError(t, err)
	assert.False(t, didChange)
	assert.Same(t, claims, fresh)
}

func TestRefreshBadSubject(t *testing.T) {
	db := newTestDB(t)
	r := newTestRefresher(t, db)

	claims := &jwt.SessionClaims{}
	claims.Subject = "not-a-number"

	_, _, err := r.Refresh(context.Background(), claims)
	require.Error(t, err)
}
