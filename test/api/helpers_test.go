package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	httpapi "github.com/project-atlas/readiness/internal/readiness/http"
	"github.com/project-atlas/readiness/internal/readiness/policy"
	"github.com/project-atlas/readiness/internal/readiness/service"
	"github.com/project-atlas/readiness/internal/readiness/store"
	"github.com/project-atlas/readiness/internal/readiness/store/drivers/sqlite"
	"github.com/project-atlas/readiness/pkg/jwtx"
	"github.com/project-atlas/readiness/pkg/slogx"
)

/*
 * Common helpers for API round-trip tests. The full router is exercised
 * in-process through httptest, backed by an in-memory store, so every test
 * sees the real middleware chain: logging, auditing, authn, role gates and
 * rate limits.
 */

const (
	adminEmail    = "admin@atlas.mil"
	adminPassword = "Admin123!"
)

type testEnv struct {
	Server *httptest.Server
	Store  store.Store
	Codec  *jwtx.Codec
	Audit  *service.AuditRecorder

	auditStop sync.Once
}

// DrainAudit stops the audit recorder, flushing queued entries to the store.
// No request may be issued against the server afterwards.
func (env *testEnv) DrainAudit() {
	env.auditStop.Do(env.Audit.Stop)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec("api-test-secret", "HS256", "readiness-test")
	require.NoError(t, err)

	logger := slogx.New(slogx.Config{Service: "readiness-test", Format: "text", Level: "error"})

	tokens := &service.TokenService{Codec: codec}
	recorder := &service.AuditRecorder{Store: st, Verifier: codec, Logger: logger}
	recorder.Start()

	router := httpapi.NewRouter(codec, "test", st, logger)
	router.IdentityService = &service.IdentityService{Store: st, Tokens: tokens}
	router.ScoreService = &service.ScoreService{Store: st, Filter: policy.NewDenylist()}
	router.AuditRecorder = recorder
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	env := &testEnv{Server: srv, Store: st, Codec: codec, Audit: recorder}
	t.Cleanup(env.DrainAudit)
	return env
}

// postJSON issues a POST with a JSON body and optional bearer token.
func (env *testEnv) postJSON(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, env.Server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.Server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// get issues a GET with an optional bearer token.
func (env *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, env.Server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.Server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// decodeJSON decodes the response body into out and closes it.
func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// drainBody closes the body so connections get reused.
func drainBody(t *testing.T, resp *http.Response) {
	t.Helper()
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func jwtClaims(role, userID string) jwtx.Claims {
	return jwtx.Claims{Subject: "test-subject", Role: role, UserID: userID}
}

type tokenGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// loginAdmin bootstraps (or re-authenticates) the admin account and returns
// its bearer token.
func (env *testEnv) loginAdmin(t *testing.T) string {
	t.Helper()

	resp := env.postJSON(t, "/api/v1/auth/login", "", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var grant tokenGrant
	decodeJSON(t, resp, &grant)
	require.NotEmpty(t, grant.AccessToken)
	return grant.AccessToken
}

// loginDevice performs a device login and returns the device bearer token.
func (env *testEnv) loginDevice(t *testing.T, deviceID string) string {
	t.Helper()

	resp := env.postJSON(t, "/api/v1/auth/device-login", "", map[string]string{
		"device_id": deviceID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var grant tokenGrant
	decodeJSON(t, resp, &grant)
	require.NotEmpty(t, grant.AccessToken)
	return grant.AccessToken
}
