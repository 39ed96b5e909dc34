package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier checks unified tokens locally as HS256 JWTs whose subject is
// the LINE user ID. It is used when the website shares its signing secret
// instead of exposing the verify-token endpoint.
type JWTVerifier struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// Claims represents the claims of a unified token.
type Claims struct {
	LineUserID string `json:"line_user_id"`
	jwt.RegisteredClaims
}

// NewJWTVerifier creates a verifier with the given secret.
// tokenDuration is only used by Issue.
func NewJWTVerifier(secretKey string, tokenDuration time.Duration) *JWTVerifier {
	return &JWTVerifier{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Issue creates a unified token for lineUserID.
func (v *JWTVerifier) Issue(lineUserID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		LineUserID: lineUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   lineUserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(v.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(v.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Verify parses token and checks that it was issued for lineUserID.
func (v *JWTVerifier) Verify(_ context.Context, lineUserID, token string) error {
	if lineUserID == "" || token == "" {
		return ErrMissingCredentials
	}

	parsed, err := jwt.ParseWithClaims(
		token,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secretKey, nil
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return ErrInvalidToken
	}
	if claims.Subject != lineUserID {
		return fmt.Errorf("%w: token was issued for another user", ErrInvalidToken)
	}

	return nil
}
