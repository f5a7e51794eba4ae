package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("invalid token type")
	ErrTokenRevoked   = errors.New("token revoked")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID       uint   `json:"user_id"`
	TokenType    string `json:"token_type"`
	TokenVersion int    `json:"token_version"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh token pair issued on login or refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Tokens issues and validates JWT token pairs
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokens creates a token service with the given secret and expiry minutes
func NewTokens(secret string, accessMinutes, refreshMinutes int) *Tokens {
	return &Tokens{
		secret:     []byte(secret),
		accessTTL:  time.Duration(accessMinutes) * time.Minute,
		refreshTTL: time.Duration(refreshMinutes) * time.Minute,
	}
}

func (t *Tokens) generate(userID uint, tokenType string, tokenVersion int, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:       userID,
		TokenType:    tokenType,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "urlalias",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// GeneratePair creates a new access/refresh token pair for a user.
// Both tokens carry the user's current token version; bumping the version
// invalidates every pair issued before the bump.
func (t *Tokens) GeneratePair(userID uint, tokenVersion int) (TokenPair, error) {
	access, err := t.generate(userID, TokenTypeAccess, tokenVersion, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.generate(userID, TokenTypeRefresh, tokenVersion, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Validate parses a token, checks the signature and expiry, and verifies
// it is of the expected type
func (t *Tokens) Validate(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != expectedType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
