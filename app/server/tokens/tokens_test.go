package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gramflow/app/server/models"
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

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email: email,
		Name:  "Test User",
		Role:  models.UserRoleStandard,
	}
	require.NoError(t, db.Create(user).Error)

	return user
}

func TestIssueVerificationSupersedesPrior(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createUser(t, db, "a@x.com")

	first, err := svc.IssueVerification(ctx, user, user.Email)
	require.NoError(t, err)
	second, err := svc.IssueVerification(ctx, user, user.Email)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	// 同一邮箱只剩一枚有效令牌
	var count int64
	require.NoError(t, db.Model(&models.VerificationToken{}).Where("email = ?", user.Email).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// 被顶掉的旧令牌不能再兑换
	_, err = svc.RedeemVerification(ctx, first.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedeemVerification(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createUser(t, db, "a@x.com")

	token, err := svc.IssueVerification(ctx, user, user.Email)
	require.NoError(t, err)

	redeemed, err := svc.RedeemVerification(ctx, token.Token)
	require.NoError(t, err)
	require.NotNil(t, redeemed.EmailVerified)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.NotNil(t, stored.EmailVerified)
}

func TestRedeemVerificationSingleUse(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createUser(t, db, "a@x.com")

	token, err := svc.IssueVerification(ctx, user, user.Email)
	require.NoError(t, err)

	_, err = svc.RedeemVerification(ctx, token.Token)
	require.NoError(t, err)

	// 第二次兑换必须失败
	_, err = svc.RedeemVerification(ctx, token.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedeemVerificationExpired(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createUser(t, db, "a@x.com")

	expired := &models.VerificationToken{
		UserID:  user.ID,
		Email:   user.Email,
		Token:   uuid.NewString(),
		Expires: time.Now().Add(-time.Second),
	}
	require.NoError(t, db.Create(expired).Error)

	_, err := svc.RedeemVerification(ctx, expired.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// 令牌只拒绝不删除，账户保持未验证
	var count int64
	require.NoError(t, db.Model(&models.VerificationToken{}).Where("token = ?", expired.Token).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Nil(t, stored.EmailVerified)
}

func TestRedeemVerificationAdoptsNewEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createUser(t, db, "old@x.com")

	token, err := svc.IssueVerification(ctx, user, "new@x.com")
	require.NoError(t, err)

	redeemed, err := svc.RedeemVerification(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", redeemed.Email)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, "new@x.com", stored.Email)
}

func TestRedeemVerificationMissingAndUnknown(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.RedeemVerification(ctx, "")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = svc.RedeemVerification(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedeemPasswordReset(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createUser(t, db, "a@x.com")

	token, err := svc.IssuePasswordReset(ctx, user)
	require.NoError(t, err)

	_, err = svc.RedeemPasswordReset(ctx, token.Token, "new-secret")
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	match, _, err := argon2id.CheckHash("new-secret", stored.Password)
	require.NoError(t, err)
	assert.True(t, match)

	// 单次使用
	_, err = svc.RedeemPasswordReset(ctx, token.Token, "another")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedeemPasswordResetErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createUser(t, db, "a@x.com")

	_, err := svc.RedeemPasswordReset(ctx, "", "new-secret")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = svc.RedeemPasswordReset(ctx, uuid.NewString(), "new-secret")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	expired := &models.PasswordResetToken{
		UserID:  user.ID,
		Email:   user.Email,
		Token:   uuid.NewString(),
		Expires: time.Now().Add(-time.Second),
	}
	require.NoError(t, db.Create(expired).Error)

	_, err = svc.RedeemPasswordReset(ctx, expired.Token, "new-secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRedeemTwoFactor(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	token, err := svc.IssueTwoFactor(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, token.Token, 6)

	assert.ErrorIs(t, svc.RedeemTwoFactor(ctx, "a@x.com", "000000"), ErrCodeInvalid)
	require.NoError(t, svc.RedeemTwoFactor(ctx, "a@x.com", token.Token))

	// 核销后验证码失效
	assert.ErrorIs(t, svc.RedeemTwoFactor(ctx, "a@x.com", token.Token), ErrCodeInvalid)
}

func TestTwoFactorConfirmation(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	consumed, err := svc.ConsumeTwoFactorConfirmation(ctx, 7)
	require.NoError(t, err)
	assert.False(t, consumed)

	require.NoError(t, svc.CreateTwoFactorConfirmation(ctx, 7))

	consumed, err = svc.ConsumeTwoFactorConfirmation(ctx, 7)
	require.NoError(t, err)
	assert.True(t, consumed)

	// 一次性凭据，第二次消费为空
	consumed, err = svc.ConsumeTwoFactorConfirmation(ctx, 7)
	require.NoError(t, err)
	assert.False(t, consumed)
}
