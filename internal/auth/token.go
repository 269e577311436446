package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens issues and validates session tokens for marketplace users.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// Claims carries the authenticated user identity inside a session token.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// NewTokens builds a Tokens helper around the shared signing secret.
func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Generate creates a signed HS256 token for the given user.
func (t *Tokens) Generate(userID int) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Validate parses the token, checks its signature and expiry, and returns the
// authenticated user id.
func (t *Tokens) Validate(tokenString string) (int, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return 0, jwt.ErrSignatureInvalid
	}
	return claims.UserID, nil
}
