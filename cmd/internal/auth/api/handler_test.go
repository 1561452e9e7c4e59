package authapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brandhub/cmd/identity"
	"brandhub/cmd/internal/auth/guard"
	"brandhub/cmd/internal/auth/session"
	"brandhub/cmd/internal/credential"
	"brandhub/cmd/internal/principal"
	"brandhub/cmd/security/password"
	"brandhub/cmd/security/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey   = "service-key-for-tests"
	testPassword = "correct horse battery staple"
)

type countingRecorder struct {
	logins    map[string]int
	refreshes map[string]int
	logouts   int
}

func (c *countingRecorder) Login(k principal.Kind, res string) {
	c.logins[k.String()+"/"+res]++
}
func (c *countingRecorder) Refresh(k principal.Kind, res string) {
	c.refreshes[k.String()+"/"+res]++
}
func (c *countingRecorder) Logout(string) { c.logouts++ }

type testAPI struct {
	mux *http.ServeMux
	rec *countingRecorder
	now time.Time
}

func newTestAPI(t *testing.T, cfg Config) *testAPI {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tcfg := token.DefaultConfig()
	tcfg.Secret = "authapi-test-secret-authapi-test-secret"
	codec, err := token.NewCodec(tcfg)
	require.NoError(t, err)

	hasher := password.DefaultConfig()
	hasher.Params.MemoryKiB = 8 * 1024
	hasher.Params.Iterations = 1
	hasher.Params.Parallelism = 1

	creds := credential.NewMemoryStore()
	ids := identity.NewMemoryStore(creds)
	svc, err := session.NewService(session.DefaultConfig(), codec, creds, hasher, log)
	require.NoError(t, err)

	g := guard.New(guard.Config{ServiceAPIKey: testAPIKey}, codec, log, nil)
	rec := &countingRecorder{logins: map[string]int{}, refreshes: map[string]int{}}

	api := &testAPI{mux: http.NewServeMux(), rec: rec, now: time.Now().UTC()}
	h, err := NewHandler(log, cfg, ids, svc, g, hasher, WithRecorder(rec), WithClock(func() time.Time { return api.now }))
	require.NoError(t, err)
	h.Register(api.mux)
	return api
}

type envelopeResp struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testAPI) do(t *testing.T, method, path string, body any, mutate func(*http.Request)) (*httptest.ResponseRecorder, envelopeResp) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "203.0.113.7:5555"
	if mutate != nil {
		mutate(req)
	}
	rr := httptest.NewRecorder()
	a.mux.ServeHTTP(rr, req)

	var env envelopeResp
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func withKey(r *http.Request) { r.Header.Set(guard.HeaderAPIKey, testAPIKey) }

func withCookie(v string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: v}) }
}

func withBearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func refreshCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", RefreshCookieName)
	return nil
}

func (a *testAPI) registerCustomer(t *testing.T, email string) {
	t.Helper()
	rr, env := a.do(t, http.MethodPost, "/customers/create-customer", map[string]string{
		"name": "Ada", "email": email, "password": testPassword,
	}, withKey)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
}

func TestCustomerLifecycle(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())
	a.registerCustomer(t, "a@b.com")

	rr, env := a.do(t, http.MethodPost, "/customers/password-login", loginRequest{Email: "A@B.com", Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	assert.True(t, env.Success)

	var login struct {
		RefID       string `json:"refId"`
		Kind        string `json:"kind"`
		Email       string `json:"email"`
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "customer", login.Kind)
	assert.Equal(t, "a@b.com", login.Email)
	assert.NotEmpty(t, login.AccessToken)

	c := refreshCookie(t, rr)
	assert.Len(t, c.Value, 64)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 14*24*60*60, c.MaxAge)

	rr, env = a.do(t, http.MethodGet, "/customers/me", nil, withBearer(login.AccessToken))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), login.RefID)

	a.now = a.now.Add(time.Minute)
	rr, env = a.do(t, http.MethodPost, "/jwt/refresh/customer-token", nil, withCookie(c.Value))
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	var refreshed accessResponse
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	rotated := refreshCookie(t, rr)
	assert.NotEqual(t, c.Value, rotated.Value)

	rr, env = a.do(t, http.MethodPost, "/jwt/refresh/customer-token", nil, withCookie(c.Value))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid or expired token", env.Message)

	rr, env = a.do(t, http.MethodPost, "/jwt/logout", nil, withCookie(rotated.Value))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Less(t, refreshCookie(t, rr).MaxAge, 0)

	rr, _ = a.do(t, http.MethodPost, "/jwt/refresh/customer-token", nil, withCookie(rotated.Value))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	assert.Equal(t, 1, a.rec.logins["customer/success"])
	assert.Equal(t, 1, a.rec.refreshes["customer/success"])
	assert.Equal(t, 2, a.rec.refreshes["customer/fail"])
	assert.Equal(t, 1, a.rec.logouts)
}

func TestLogin_FailuresAreUniform(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())
	a.registerCustomer(t, "ada@example.com")

	unknown, envU := a.do(t, http.MethodPost, "/customers/password-login", loginRequest{Email: "nobody@example.com", Password: testPassword}, nil)
	wrong, envW := a.do(t, http.MethodPost, "/customers/password-login", loginRequest{Email: "ada@example.com", Password: "not the password"}, nil)
	otherKind, envK := a.do(t, http.MethodPost, "/users/password-login", loginRequest{Email: "ada@example.com", Password: testPassword}, nil)

	for _, rr := range []*httptest.ResponseRecorder{unknown, wrong, otherKind} {
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
	}
	assert.Equal(t, envU, envW)
	assert.Equal(t, envU, envK)
	assert.Equal(t, msgInvalidCredentials, envU.Message)
	assert.Equal(t, 2, a.rec.logins["customer/fail"])
	assert.Equal(t, 1, a.rec.logins["user/fail"])
}

func TestLogin_BadRequests(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())

	for name, body := range map[string]any{
		"not json":      "{",
		"unknown field": `{"email":"a@b.com","password":"x","extra":1}`,
		"no identifier": loginRequest{Password: "x"},
		"no password":   loginRequest{Email: "a@b.com"},
		"phone no cc":   loginRequest{Phone: "5551234", Password: "x"},
	} {
		rr, env := a.do(t, http.MethodPost, "/customers/password-login", body, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
		assert.False(t, env.Success, name)
	}
}

func TestLogin_ByPhone(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())

	rr, env := a.do(t, http.MethodPost, "/users/create-user", map[string]string{
		"name": "Op", "countryCode": "+44", "phone": "7700 900123", "password": testPassword, "role": "admin",
	}, withKey)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)

	rr, env = a.do(t, http.MethodPost, "/users/password-login", loginRequest{CountryCode: "44", Phone: "7700900123", Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, rr.Code, env.Message)

	var login struct {
		Role        string `json:"role"`
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "admin", login.Role)

	rr, _ = a.do(t, http.MethodGet, "/customers/me", nil, withBearer(login.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "user token on a customer route")

	rr, _ = a.do(t, http.MethodGet, "/users/me", nil, withBearer(login.AccessToken))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())
	body := map[string]string{"name": "Ada", "email": "dup@example.com", "password": testPassword}

	rr, env := a.do(t, http.MethodPost, "/customers/create-customer", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, guard.UnauthorizedMessage, env.Message)

	rr, env = a.do(t, http.MethodPost, "/customers/create-customer", body, withKey)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created registerResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotZero(t, created.RefID)

	rr, _ = a.do(t, http.MethodPost, "/customers/create-customer", body, withKey)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr, _ = a.do(t, http.MethodPost, "/users/create-user", body, withKey)
	assert.Equal(t, http.StatusCreated, rr.Code, "customers and users are separate namespaces")

	rr, env = a.do(t, http.MethodPost, "/customers/create-customer", map[string]string{
		"name": "Bo", "email": "bo@example.com", "password": "short",
	}, withKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Password is too short", env.Message)
}

func TestRegister_EmailAndPhone(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())

	rr, env := a.do(t, http.MethodPost, "/customers/create-customer", map[string]string{
		"name": "Cy", "email": "cy@example.com", "countryCode": "+1", "phone": "555-1234", "password": testPassword,
	}, withKey)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)

	rr, env = a.do(t, http.MethodPost, "/customers/password-login", loginRequest{CountryCode: "1", Phone: "5551234", Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, rr.Code, env.Message)

	var login loginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotNil(t, login.Email)
	assert.Equal(t, "cy@example.com", *login.Email)
	require.NotNil(t, login.Phone)
	assert.Equal(t, "5551234", *login.Phone)

	rr, _ = a.do(t, http.MethodPost, "/customers/create-customer", map[string]string{
		"name": "Di", "email": "di@example.com", "phone": "5550000", "password": testPassword,
	}, withKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "phone without a country code")
}

func TestSetStatus_DisablesLoginAndRefresh(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())

	rr, env := a.do(t, http.MethodPost, "/customers/create-customer", map[string]string{
		"name": "Ed", "email": "ed@example.com", "password": testPassword,
	}, withKey)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	var created registerResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	statusPath := "/customers/" + created.RefID.String() + "/status"

	creds := loginRequest{Email: "ed@example.com", Password: testPassword}
	rr, env = a.do(t, http.MethodPost, "/customers/password-login", creds, nil)
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	cookie := refreshCookie(t, rr)
	var login accessResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))

	rr, _ = a.do(t, http.MethodPatch, statusPath, map[string]bool{"isActive": false}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "service key required")

	rr, env = a.do(t, http.MethodPatch, statusPath, map[string]bool{"isActive": false}, withKey)
	require.Equal(t, http.StatusOK, rr.Code, env.Message)

	rr, _ = a.do(t, http.MethodPost, "/jwt/refresh/customer-token", nil, withCookie(cookie.Value))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr, _ = a.do(t, http.MethodPost, "/customers/password-login", creds, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr, _ = a.do(t, http.MethodGet, "/customers/me", nil, withBearer(login.AccessToken))
	assert.Equal(t, http.StatusNotFound, rr.Code, "disabled principals have no profile")

	rr, env = a.do(t, http.MethodPatch, statusPath, map[string]bool{"isActive": true}, withKey)
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	rr, _ = a.do(t, http.MethodPost, "/jwt/refresh/customer-token", nil, withCookie(cookie.Value))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = a.do(t, http.MethodPatch, "/customers/not-a-uuid/status", map[string]bool{"isActive": false}, withKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr, _ = a.do(t, http.MethodPatch, statusPath, map[string]string{}, withKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "isActive is required")
	rr, _ = a.do(t, http.MethodPatch, "/users/"+created.RefID.String()+"/status", map[string]bool{"isActive": false}, withKey)
	assert.Equal(t, http.StatusNotFound, rr.Code, "customer ref on the user route")
}

func TestRefreshAndLogout_WithoutCookie(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())

	rr, env := a.do(t, http.MethodPost, "/jwt/refresh/user-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, guard.UnauthorizedMessage, env.Message)

	rr, env = a.do(t, http.MethodPost, "/jwt/logout", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)

	rr, env = a.do(t, http.MethodPost, "/jwt/logout", nil, withCookie("garbage"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
}

func TestRefresh_CustomerCookieOnUserRoute(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())
	a.registerCustomer(t, "c@example.com")

	rr, _ := a.do(t, http.MethodPost, "/customers/password-login", loginRequest{Email: "c@example.com", Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	c := refreshCookie(t, rr)

	rr, _ = a.do(t, http.MethodPost, "/jwt/refresh/user-token", nil, withCookie(c.Value))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = a.do(t, http.MethodPost, "/jwt/refresh/customer-token", nil, withCookie(c.Value))
	assert.Equal(t, http.StatusOK, rr.Code, "a rejected kind must not consume the token")
}

func TestSecureCookie(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.CookieSecure = true
	a := newTestAPI(t, cfg)
	a.registerCustomer(t, "s@example.com")

	rr, _ := a.do(t, http.MethodPost, "/customers/password-login", loginRequest{Email: "s@example.com", Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, refreshCookie(t, rr).Secure)
}

func TestRoutes_MethodMismatch(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, DefaultConfig())

	rr, _ := a.do(t, http.MethodGet, "/jwt/logout", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
