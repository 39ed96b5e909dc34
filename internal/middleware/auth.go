package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripmate/internal/auth"
	"github.com/mmynk/tripmate/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated website user ID.
	UserIDKey contextKey = "user_id"
	// LineUserIDKey is the context key for the verified LINE user ID.
	LineUserIDKey contextKey = "line_user_id"
)

// LineUserIDHeader carries the LINE user ID; the unified token travels as
// "Authorization: Bearer <token>".
const LineUserIDHeader = "X-Line-User-Id"

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetLineUserID extracts the LINE user ID from the context.
// Returns empty string if not found.
func GetLineUserID(ctx context.Context) string {
	lineUserID, _ := ctx.Value(LineUserIDKey).(string)
	return lineUserID
}

// WithUser returns a context carrying an authenticated user.
func WithUser(ctx context.Context, lineUserID, userID string) context.Context {
	ctx = context.WithValue(ctx, LineUserIDKey, lineUserID)
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserResolver maps a verified LINE user to a website user, creating it on
// first contact. storage.UserStore satisfies it.
type UserResolver interface {
	GetOrCreateUserByLineID(ctx context.Context, lineUserID string) (*models.User, error)
}

// BodyCredentials can be embedded in request messages so that callers that
// cannot set headers may send their credentials in the body instead.
type BodyCredentials struct {
	LineUserID   string `json:"line_user_id,omitempty"`
	UnifiedToken string `json:"unified_token,omitempty"`
}

// Credentials returns the body credentials.
func (c BodyCredentials) Credentials() (lineUserID, token string) {
	return c.LineUserID, c.UnifiedToken
}

type credentialCarrier interface {
	Credentials() (lineUserID, token string)
}

// credentials reads the LINE user ID and token from headers, falling back
// to the message body for whichever is missing.
func credentials(header http.Header, msg any) (lineUserID, token string) {
	lineUserID = strings.TrimSpace(header.Get(LineUserIDHeader))
	if h := header.Get("Authorization"); h != "" {
		if parts := strings.SplitN(h, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
	}

	if c, ok := msg.(credentialCarrier); ok {
		bodyUser, bodyToken := c.Credentials()
		if lineUserID == "" {
			lineUserID = bodyUser
		}
		if token == "" {
			token = bodyToken
		}
	}
	return lineUserID, token
}

// authenticate verifies the pair and resolves the website user.
func authenticate(ctx context.Context, verifier auth.TokenVerifier, users UserResolver, lineUserID, token string) (context.Context, error) {
	if lineUserID == "" || token == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrMissingCredentials)
	}

	if err := verifier.Verify(ctx, lineUserID, token); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingCredentials):
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
		case errors.Is(err, auth.ErrVerifierUnavailable):
			return nil, connect.NewError(connect.CodeUnavailable, auth.ErrVerifierUnavailable)
		default:
			slog.Error("token verification failed", "line_user_id", lineUserID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}

	user, err := users.GetOrCreateUserByLineID(ctx, lineUserID)
	if err != nil {
		slog.Error("failed to resolve user", "line_user_id", lineUserID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return WithUser(ctx, lineUserID, user.ID), nil
}

// RequireLineUser returns an interceptor that verifies the caller's
// (line user id, unified token) pair and adds the LINE user ID and the
// website user ID to the request context.
func RequireLineUser(verifier auth.TokenVerifier, users UserResolver) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			lineUserID, token := credentials(req.Header(), req.Any())

			ctx, err := authenticate(ctx, verifier, users, lineUserID, token)
			if err != nil {
				return nil, err
			}

			return next(ctx, req)
		}
	}
}

// RequireLineUserHTTP is RequireLineUser for plain HTTP handlers. Only
// header credentials are accepted.
func RequireLineUserHTTP(verifier auth.TokenVerifier, users UserResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lineUserID, token := credentials(r.Header, nil)

		ctx, err := authenticate(r.Context(), verifier, users, lineUserID, token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError writes err the way a Connect handler would.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		connectErr = connect.NewError(connect.CodeUnknown, err)
	}
	if werr := connect.NewErrorWriter().Write(w, r, connectErr); werr != nil {
		slog.Error("failed to write error", "error", werr)
	}
}
