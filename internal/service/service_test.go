package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/tripmate/internal/auth"
	"github.com/mmynk/tripmate/internal/middleware"
	"github.com/mmynk/tripmate/internal/rpc"
	"github.com/mmynk/tripmate/internal/storage/sqlstore"
)

const testToken = "test-token"

// acceptTestToken accepts testToken for any LINE user.
var acceptTestToken = auth.VerifierFunc(func(_ context.Context, _, token string) error {
	if token != testToken {
		return auth.ErrInvalidToken
	}
	return nil
})

type testEnv struct {
	url   string
	store *sqlstore.Store
}

// setupTestServer serves both services over a temp SQLite database, with the
// real authentication interceptor in front of the authenticated procedures.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	authOpt := connect.WithInterceptors(middleware.RequireLineUser(acceptTestToken, store))
	bills := NewBillService(store)
	trips := NewTripService(store)

	mux := http.NewServeMux()
	rpc.Mount(mux, bills.Routes(authOpt)...)
	rpc.Mount(mux, trips.AuthenticatedRoutes(authOpt)...)
	rpc.Mount(mux, trips.PublicRoutes()...)
	mux.Handle(ExportPattern, middleware.RequireLineUserHTTP(acceptTestToken, store, http.HandlerFunc(bills.ExportXLSX)))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{url: server.URL, store: store}
}

func authHeader(lineUserID string) http.Header {
	if lineUserID == "" {
		return nil
	}
	return http.Header{
		middleware.LineUserIDHeader: {lineUserID},
		"Authorization":             {"Bearer " + testToken},
	}
}

// call invokes procedure as lineUserID; an empty lineUserID sends no credentials.
func call[Req, Res any](t *testing.T, env *testEnv, procedure, lineUserID string, req *Req) (*Res, error) {
	t.Helper()
	client := rpc.NewClient[Req, Res](http.DefaultClient, env.url, procedure)
	return rpc.Call(context.Background(), client, req, authHeader(lineUserID))
}

// mustCall is call that fails the test on error.
func mustCall[Req, Res any](t *testing.T, env *testEnv, procedure, lineUserID string, req *Req) *Res {
	t.Helper()
	resp, err := call[Req, Res](t, env, procedure, lineUserID, req)
	if err != nil {
		t.Fatalf("%s failed: %v", procedure, err)
	}
	return resp
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("expected %v, got %v (%v)", code, got, err)
	}
}

// userID resolves the website user behind a LINE user.
func userID(t *testing.T, env *testEnv, lineUserID string) string {
	t.Helper()
	u, err := env.store.GetOrCreateUserByLineID(context.Background(), lineUserID)
	if err != nil {
		t.Fatalf("GetOrCreateUserByLineID failed: %v", err)
	}
	return u.ID
}
