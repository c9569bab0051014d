// Package jwt выпускает и проверяет токены доступа с идентификатором
// аккаунта и ролью.
package jwt

import (
	"time"
)

// Maker выпускает и разбирает токены доступа.
type Maker interface {
	GenerateToken(accountID, role string) (string, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// MakerImpl подписывает токены HS256 общим секретом.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	issuer    string
}

// NewJWTMaker создаёт Maker с секретом и временем жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		issuer:    "exam-subscriptions",
	}
}
