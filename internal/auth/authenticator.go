// Package auth verifies the (line user id, unified token) pairs the bot
// sends on behalf of a linked website user.
package auth

import (
	"context"
	"errors"
)

var (
	ErrMissingCredentials  = errors.New("line_user_id and unified_token are required")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrVerifierUnavailable = errors.New("token verifier unavailable")
)

// TokenVerifier defines the interface for token verification implementations.
// Swapping the remote verify-token service for a local JWT check does not
// change the middleware or service code.
type TokenVerifier interface {
	// Verify returns nil if token is valid for lineUserID.
	// It returns an error wrapping ErrInvalidToken when the service rejects the
	// pair and ErrVerifierUnavailable when no answer could be obtained.
	Verify(ctx context.Context, lineUserID, token string) error
}

// VerifierFunc adapts a function to TokenVerifier.
type VerifierFunc func(ctx context.Context, lineUserID, token string) error

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, lineUserID, token string) error {
	return f(ctx, lineUserID, token)
}
