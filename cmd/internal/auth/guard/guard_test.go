package guard

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"brandhub/cmd/internal/principal"
	"brandhub/cmd/security/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T) *token.Codec {
	t.Helper()
	cfg := token.DefaultConfig()
	cfg.Secret = "guard-test-secret-guard-test-secret"
	c, err := token.NewCodec(cfg)
	require.NoError(t, err)
	return c
}

func newGuard(t *testing.T, key string, rejected *[]Mode) (*Guard, *token.Codec) {
	t.Helper()
	codec := newCodec(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := New(Config{ServiceAPIKey: key}, codec, log, func(m Mode) {
		if rejected != nil {
			*rejected = append(*rejected, m)
		}
	})
	return g, codec
}

func okHandler(t *testing.T, want *principal.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want != nil {
			got, ok := PrincipalFrom(r.Context())
			assert.True(t, ok)
			assert.Equal(t, *want, got)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func assertUnauthorized(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Invalid or expired token", body.Message)
}

func TestServiceKey(t *testing.T) {
	t.Parallel()
	var rejected []Mode
	g, _ := newGuard(t, "svc-key-123", &rejected)
	h := g.Protect(ModeServiceKey, okHandler(t, nil))

	cases := []struct {
		name string
		key  string
		want int
	}{
		{"match", "svc-key-123", http.StatusNoContent},
		{"mismatch", "svc-key-124", http.StatusUnauthorized},
		{"prefix", "svc-key", http.StatusUnauthorized},
		{"absent", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/customers/create-customer", nil)
		if tc.key != "" {
			req.Header.Set(HeaderAPIKey, tc.key)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, tc.want, rr.Code, tc.name)
	}
	assert.Equal(t, []Mode{ModeServiceKey, ModeServiceKey, ModeServiceKey}, rejected)
}

func TestServiceKey_UnconfiguredRejects(t *testing.T) {
	t.Parallel()
	g, _ := newGuard(t, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/users/create-user", nil)
	req.Header.Set(HeaderAPIKey, "anything")
	rr := httptest.NewRecorder()
	g.Protect(ModeServiceKey, okHandler(t, nil)).ServeHTTP(rr, req)
	assertUnauthorized(t, rr)
}

func TestBearer(t *testing.T) {
	t.Parallel()
	g, codec := newGuard(t, "k", nil)
	p := principal.Principal{Kind: principal.KindUser, Ref: uuid.New()}

	tok, _, err := codec.SignAccessToken(p, time.Minute, time.Now().UTC())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	g.Protect(ModeBearer, okHandler(t, &p)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestBearer_Rejections(t *testing.T) {
	t.Parallel()
	g, codec := newGuard(t, "k", nil)
	p := principal.Principal{Kind: principal.KindCustomer, Ref: uuid.New()}

	expired, _, err := codec.SignAccessToken(p, time.Minute, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":  "",
		"scheme":   "Basic abc",
		"empty":    "Bearer ",
		"garbage":  "Bearer not.a.jwt",
		"expired":  "Bearer " + expired,
		"api key?": "svc",
	} {
		req := httptest.NewRequest(http.MethodGet, "/customers/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		g.Protect(ModeBearer, okHandler(t, nil)).ServeHTTP(rr, req)
		t.Run(name, func(t *testing.T) { assertUnauthorized(t, rr) })
	}
}

func TestPublicPathsBypass(t *testing.T) {
	t.Parallel()
	g, _ := newGuard(t, "k", nil)

	for _, path := range PublicPaths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		g.Protect(ModeBearer, okHandler(t, nil)).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code, path)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer   abc ")
	tok, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)
}

func TestPrincipalFrom_Empty(t *testing.T) {
	t.Parallel()

	_, ok := PrincipalFrom(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
