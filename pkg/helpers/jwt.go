package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

// JWTManager handles generation and validation of JWT tokens
type JWTManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	now func() time.Time
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// Claims carries the subject plus the account token version it was minted for.
type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
	Version   int    `json:"ver"`
	jwt.RegisteredClaims
}

// SetClock replaces the time source used for issuing and validating tokens.
func (m *JWTManager) SetClock(now func() time.Time) { m.now = now }

func (m *JWTManager) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func (m *JWTManager) generate(userID string, version int, typ string, ttl time.Duration, secret []byte) (string, *Claims, error) {
	now := m.clock()
	claims := &Claims{
		UserID:    userID,
		TokenType: typ,
		Version:   version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(secret)
	if err != nil {
		return "", nil, err
	}
	return s, claims, nil
}

func (m *JWTManager) GenerateAccessToken(userID string, version int) (string, time.Time, error) {
	s, claims, err := m.generate(userID, version, TokenTypeAccess, m.AccessTTL, m.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, claims.ExpiresAt.Time, nil
}

// GenerateRefreshToken returns the signed token and its claims; the jti is what gets blacklisted.
func (m *JWTManager) GenerateRefreshToken(userID string, version int) (string, *Claims, error) {
	return m.generate(userID, version, TokenTypeRefresh, m.RefreshTTL, m.RefreshSecret)
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	return m.parseToken(tokenStr, m.AccessSecret, TokenTypeAccess)
}

func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return m.parseToken(tokenStr, m.RefreshSecret, TokenTypeRefresh)
}

func (m *JWTManager) parseToken(tokenStr string, secret []byte, typ string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock),
	)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != typ {
		return nil, ErrWrongTokenType
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, errors.New("token is missing identity claims")
	}
	return claims, nil
}
