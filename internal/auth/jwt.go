package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind tells access and refresh tokens apart. They are signed with
// different secrets already; the claim makes the intent explicit and lets
// ParseToken reject a token presented in the wrong slot.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

const issuer = "vidstream"

var ErrWrongKind = errors.New("wrong token kind")

// Claims is the payload of both token kinds.
//
// Access tokens carry UserName and Email so the frontend can show who is
// signed in without another round trip. Refresh tokens carry only the
// user id plus a random jti (RegisteredClaims.ID): two refresh tokens
// issued in the same second must still differ, otherwise rotation could
// hand back a token equal to the one it replaced.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name,omitempty"`
	Email    string    `json:"email,omitempty"`
	Kind     TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// GenerateToken signs claims with HS256. Expiry, issue time, issuer and
// jti are filled in here.
func GenerateToken(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, algorithm, expiry and kind, and returns
// the claims.
//
// The key callback rejects anything that isn't HMAC before the signature
// is checked, which blocks the "alg: none" and RSA-public-key-as-HMAC
// tricks.
func ParseToken(tokenString, secret string, kind TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}
