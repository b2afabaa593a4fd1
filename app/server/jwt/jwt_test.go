package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gramflow/app/server/models"
)

func testUser() *models.User {
	now := time.Now()
	user := &models.User{
		Email:         "a@x.com",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Name:          "Ada Lovelace",
		Role:          models.UserRoleStandard,
		Image:         "https://cdn.example.com/ada.png",
		EmailVerified: &now,
	}
	user.ID = 42

	return user
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	j, err := New("secret")
	require.NoError(t, err)
	require.NotNil(t, j)
}

func TestSignAndParse(t *testing.T) {
	j, err := New("secret")
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour)
	signed, err := j.Sign(ClaimsFromUser(testUser(), expires))
	require.NoError(t, err)

	claims, err := j.Parse(signed)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "Ada Lovelace", claims.Name)
	assert.Equal(t, "Ada", claims.FirstName)
	assert.Equal(t, "Lovelace", claims.LastName)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, models.UserRoleStandard, claims.Role)
	require.NotNil(t, claims.EmailVerified)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestParseRejectsWrongKey(t *testing.T) {
	j1, err := New("secret-one")
	require.NoError(t, err)
	j2, err := New("secret-two")
	require.NoError(t, err)

	signed, err := j1.Sign(ClaimsFromUser(testUser(), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = j2.Parse(signed)
	require.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	j, err := New("secret")
	require.NoError(t, err)

	signed, err := j.Sign(ClaimsFromUser(testUser(), time.Now().Add(-time.Minute)))
	require.NoError(t, err)

	_, err = j.Parse(signed)
	require.Error(t, err)
}

func TestParseRejectsEmpty(t *testing.T) {
	j, err := New("secret")
	require.NoError(t, err)

	_, err = j.Parse("")
	require.Error(t, err)
}
