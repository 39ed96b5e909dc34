package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// VerifyTokenPath is the website endpoint that validates unified tokens.
const VerifyTokenPath = "/api/auth/verify-token"

// DefaultTimeout bounds a single verify-token round trip.
const DefaultTimeout = 5 * time.Second

// RemoteVerifier asks the website's verify-token endpoint whether a token
// belongs to a LINE user.
type RemoteVerifier struct {
	endpoint string
	client   *http.Client
}

type verifyTokenRequest struct {
	LineUserID   string `json:"line_user_id"`
	UnifiedToken string `json:"unified_token"`
}

type verifyTokenResponse struct {
	Valid bool `json:"valid"`
}

// NewRemoteVerifier creates a verifier for the service at baseURL.
// A zero timeout uses DefaultTimeout.
func NewRemoteVerifier(baseURL string, timeout time.Duration) *RemoteVerifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RemoteVerifier{
		endpoint: strings.TrimRight(baseURL, "/") + VerifyTokenPath,
		client:   &http.Client{Timeout: timeout},
	}
}

// Verify posts the pair to the verify-token endpoint.
func (v *RemoteVerifier) Verify(ctx context.Context, lineUserID, token string) error {
	if lineUserID == "" || token == "" {
		return ErrMissingCredentials
	}

	body, err := json.Marshal(verifyTokenRequest{LineUserID: lineUserID, UnifiedToken: token})
	if err != nil {
		return fmt.Errorf("failed to encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		slog.Warn("verify-token request failed", "endpoint", v.endpoint, "error", err)
		return fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: verify-token returned %s", ErrVerifierUnavailable, resp.Status)
	}

	var result verifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: bad verify-token response: %v", ErrVerifierUnavailable, err)
	}
	if !result.Valid {
		return ErrInvalidToken
	}

	return nil
}
