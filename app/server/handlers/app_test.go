package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gramflow/app/server/config"
	"gramflow/app/server/constants"
	"gramflow/app/server/identity"
	"gramflow/app/server/jwt"
	"gramflow/app/server/middlewares"
	"gramflow/app/server/models"
	"gramflow/app/server/oauth"
	"gramflow/app/server/session"
	"gramflow/app/server/tokens"
)

// recordMailer 把投递内容记下来供断言
type recordMailer struct {
	verifications []string
	resets        []string
	codes         []string
}

func (m *recordMailer) SendVerification(_ context.Context, _ string, link string) error {
	m.verifications = append(m.verifications, link)
	return nil
}

func (m *recordMailer) SendPasswordReset(_ context.Context, _ string, link string) error {
	m.resets = append(m.resets, link)
	return nil
}

func (m *recordMailer) SendTwoFactorCode(_ context.Context, _ string, code string) error {
	m.codes = append(m.codes, code)
	return nil
}

type testEnv struct {
	app  *App
	e    *echo.Echo
	db   *gorm.DB
	j    *jwt.JWT
	mail *recordMailer
}

func newTestEnv(t *testing.T, adminEmails ...string) *testEnv {
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

	j, err := jwt.New("test-secret")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.System.PublicOrigin = "http://localhost:3000"
	cfg.Security.AdminEmails = adminEmails

	tokenSvc := tokens.NewService(db)
	resolver := identity.NewResolver(db, tokenSvc, adminEmails)
	refresher := session.NewRefresher(zap.NewNop(), db, nil, resolver)
	mail := &recordMailer{}
	oauthCfg := oauth.GoogleConfig("client-id", "client-secret", cfg.System.PublicOrigin)

	app := NewApp(zap.NewNop(), db, j, resolver, tokenSvc, mail, refresher, oauthCfg, cfg)

	e := echo.New()
	e.Use(middlewares.Session(j))
	app.RegisterRoutes(e)

	return &testEnv{app: app, e: e, db: db, j: j, mail: mail}
}

func (env *testEnv) createUser(t *testing.T, email string, password string) *models.User {
	t.Helper()

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)

	now := time.Now()
	user := &models.User{
		Email:         email,
		FirstName:     "Test",
		LastName:      "User",
		Name:          "Test User",
		Password:      hash,
		Role:          models.UserRoleStandard,
		EmailVerified: &now,
	}
	require.NoError(t, env.db.Create(user).Error)

	return user
}

func (env *testEnv) sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()

	signed, err := env.j.Sign(jwt.ClaimsFromUser(user, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	return &http.Cookie{Name: constants.SessionCookieName, Value: signed}
}

func (env *testEnv) do(t *testing.T, method string, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	return rec
}

func decodeForm(t *testing.T, rec *httptest.ResponseRecorder) *FormResponse {
	t.Helper()

	var res FormResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	return &res
}
