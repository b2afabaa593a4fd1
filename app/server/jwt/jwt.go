package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gramflow/app/server/models"
)

type JWT struct {
	key []byte
}

// SessionClaims 会话声明：由身份解析结果一次性产出，之后原样透传，不在中途修改
type SessionClaims struct {
	jwt.RegisteredClaims

	Name          string          `json:"name,omitempty"`
	FirstName     string          `json:"firstName,omitempty"`
	LastName      string          `json:"lastName,omitempty"`
	Email         string          `json:"email,omitempty"`
	Role          models.UserRole `json:"role,omitempty"`
	Image         string          `json:"image,omitempty"`
	EmailVerified *time.Time      `json:"emailVerified,omitempty"`
}

func New(key string) (*JWT, error) {
	if len(key) == 0 {
		return nil, errors.New("key is empty")
	}

	return &JWT{key: []byte(key)}, nil
}

// ClaimsFromUser 从账户记录派生会话声明
func ClaimsFromUser(user *models.User, expires time.Time) *SessionClaims {
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Name:          user.Name,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		Role:          user.Role,
		Image:         user.Image,
		EmailVerified: user.EmailVerified,
	}
}

// UserID 解出声明主体对应的账户 ID
func (sc *SessionClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(sc.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", sc.Subject, err)
	}

	return uint(id), nil
}

func (j *JWT) Sign(claims *SessionClaims) (string, error) {
	// 创建令牌
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// 签名并返回
	return token.SignedString(j.key)
}

func (j *JWT) Parse(tokenString string) (*SessionClaims, error) {
	// 检查是否有效
	if len(tokenString) == 0 {
		return nil, errors.New("token string is empty")
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse jwt failed: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// Key 返回签名密钥，交给 echo-jwt 中间件做会话提取
func (j *JWT) Key() []byte {
	return j.key
}
