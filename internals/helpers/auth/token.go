package helper

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims binds an access token to exactly one lab session.
type SessionClaims struct {
	SessionID int64 `json:"sid"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 access tokens with a fixed lifetime.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

func (t *TokenIssuer) Issue(userCode string, sessionID int64) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("JWT_SECRET belum diset")
	}
	now := t.now().UTC()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userCode,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates signature and expiry and returns the embedded claims.
// Without a secret every token is rejected.
func (t *TokenIssuer) Parse(raw string) (*SessionClaims, error) {
	if len(t.secret) == 0 {
		return nil, ErrInvalidToken
	}
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
