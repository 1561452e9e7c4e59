package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"brandhub/cmd/identity"
	"brandhub/cmd/internal/auth/guard"
	"brandhub/cmd/internal/auth/session"
	"brandhub/cmd/internal/principal"
	"brandhub/cmd/security/password"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const msgInvalidCredentials = "Invalid credentials"

// Hasher turns a plaintext password into a stored verifier.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Recorder receives auth outcomes for metrics.
type Recorder interface {
	Login(kind principal.Kind, result string)
	Refresh(kind principal.Kind, result string)
	Logout(result string)
}

type nopRecorder struct{}

func (nopRecorder) Login(principal.Kind, string)   {}
func (nopRecorder) Refresh(principal.Kind, string) {}
func (nopRecorder) Logout(string)                  {}

// Handler wires the auth HTTP routes to the identity store and session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	ids      identity.Store
	sessions *session.Service
	guard    *guard.Guard
	hasher   Hasher

	// pool is optional; it backs audit_log writes and IP throttling.
	pool *pgxpool.Pool
	// failures throttles by IP when pool is nil.
	failures *failureWindow
	rec      Recorder
	now      func() time.Time
}

// HandlerOption configures optional dependencies.
type HandlerOption func(*Handler)

// WithAuditPool enables audit_log persistence and IP throttling.
func WithAuditPool(pool *pgxpool.Pool) HandlerOption {
	return func(h *Handler) { h.pool = pool }
}

// WithRecorder reports outcomes to rec.
func WithRecorder(rec Recorder) HandlerOption {
	return func(h *Handler) {
		if rec != nil {
			h.rec = rec
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cfg Config, ids identity.Store, sessions *session.Service, g *guard.Guard, hasher Hasher, opts ...HandlerOption) (*Handler, error) {
	if ids == nil || sessions == nil || g == nil || hasher == nil {
		return nil, errors.New("authapi: missing dependency")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		ids:      ids,
		sessions: sessions,
		guard:    g,
		hasher:   hasher,
		rec:      nopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.pool == nil {
		h.failures = newFailureWindow(cfg.LoginIPMax, cfg.LoginIPWindow)
	}
	return h, nil
}

// Register wires auth routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("POST /customers/password-login", h.login(principal.KindCustomer))
	mux.Handle("POST /users/password-login", h.login(principal.KindUser))

	mux.Handle("POST /jwt/refresh/customer-token", h.refresh(principal.KindCustomer))
	mux.Handle("POST /jwt/refresh/user-token", h.refresh(principal.KindUser))
	mux.HandleFunc("POST /jwt/logout", h.handleLogout)

	mux.Handle("POST /customers/create-customer", h.guard.Protect(guard.ModeServiceKey, h.register(principal.KindCustomer)))
	mux.Handle("POST /users/create-user", h.guard.Protect(guard.ModeServiceKey, h.register(principal.KindUser)))

	mux.Handle("PATCH /customers/{ref}/status", h.guard.Protect(guard.ModeServiceKey, h.setStatus(principal.KindCustomer)))
	mux.Handle("PATCH /users/{ref}/status", h.guard.Protect(guard.ModeServiceKey, h.setStatus(principal.KindUser)))

	mux.Handle("GET /customers/me", h.guard.Protect(guard.ModeBearer, h.me(principal.KindCustomer)))
	mux.Handle("GET /users/me", h.guard.Protect(guard.ModeBearer, h.me(principal.KindUser)))
}

func (h *Handler) login(kind principal.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		id, ok := identity.Identifier{Email: req.Email, CountryCode: req.CountryCode, Phone: req.Phone}.Normalize()
		if !ok || req.Password == "" {
			writeError(w, http.StatusBadRequest, "Email or country code and phone, and password are required")
			return
		}

		ctx := r.Context()
		now := h.now()
		ip := clientIP(r, h.cfg.TrustProxy)
		ua := strings.TrimSpace(r.UserAgent())

		if blocked, retryAfter, err := h.checkLoginIPThrottle(ctx, ip, now); err != nil {
			h.log.Error("auth.login.throttle_ip.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "Please retry later")
			return
		} else if blocked {
			h.audit(ctx, actionLoginThrottled, principal.Principal{Kind: kind}, ip, ua, map[string]any{"identifier": id.String()})
			h.rec.Login(kind, "rate_limited")
			writeRateLimited(w, retryAfter)
			return
		}

		acc, err := h.ids.FindForLogin(ctx, kind, id)
		if err != nil {
			if !identity.IsNotFound(err) {
				h.log.Error("auth.login.lookup.fail", "kind", kind.String(), "err", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			h.sessions.RejectUnknown(req.Password)
			h.failLogin(w, r, kind, principal.Principal{}, ip, id, "not_found")
			return
		}

		issued, err := h.sessions.Login(ctx, now, acc.Principal, acc.AuthID, req.Password)
		switch {
		case err == nil:
		case errors.Is(err, session.ErrNotFound):
			h.failLogin(w, r, kind, acc.Principal, ip, id, "no_credential")
			return
		case errors.Is(err, session.ErrInvalidCredential):
			h.failLogin(w, r, kind, acc.Principal, ip, id, "bad_password")
			return
		default:
			h.log.Error("auth.login.fail", "kind", kind.String(), "err", err)
			h.rec.Login(kind, "error")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp, now)
		h.audit(ctx, actionLoginSuccess, acc.Principal, ip, ua, nil)
		h.rec.Login(kind, "success")
		h.log.Info("auth.login.success", "kind", kind.String(), "ref", acc.Principal.Ref.String())

		writeOK(w, http.StatusOK, "Login successful", loginResponse{
			profileResponse: toProfile(acc),
			AccessToken:     issued.AccessToken,
		})
	})
}

func (h *Handler) failLogin(w http.ResponseWriter, r *http.Request, kind principal.Kind, p principal.Principal, ip net.IP, id identity.Identifier, reason string) {
	if p.IsZero() {
		p = principal.Principal{Kind: kind}
	}
	if h.failures != nil && ip != nil {
		h.failures.Record(ip.String(), h.now())
	}
	h.audit(r.Context(), actionLoginFail, p, ip, r.UserAgent(), map[string]any{
		"identifier": id.String(),
		"reason":     reason,
	})
	h.rec.Login(kind, "fail")
	h.log.Info("auth.login.fail", "kind", kind.String(), "reason", reason)
	writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
}

func (h *Handler) refresh(kind principal.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := h.now()
		ip := clientIP(r, h.cfg.TrustProxy)

		issued, err := h.sessions.Refresh(ctx, now, kind, refreshTokenFromCookie(r))
		switch {
		case err == nil:
		case errors.Is(err, session.ErrMissingToken), errors.Is(err, session.ErrInvalidRefreshToken):
			h.audit(ctx, actionRefreshFail, principal.Principal{Kind: kind}, ip, r.UserAgent(), nil)
			h.rec.Refresh(kind, "fail")
			writeError(w, http.StatusUnauthorized, guard.UnauthorizedMessage)
			return
		default:
			h.log.Error("auth.refresh.fail", "kind", kind.String(), "err", err)
			h.rec.Refresh(kind, "error")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp, now)
		h.audit(ctx, actionRefreshSuccess, issued.Principal, ip, r.UserAgent(), nil)
		h.rec.Refresh(kind, "success")
		writeOK(w, http.StatusOK, "Token refreshed", accessResponse{AccessToken: issued.AccessToken})
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context(), h.now(), refreshTokenFromCookie(r))
	h.clearRefreshCookie(w)
	h.audit(r.Context(), actionLogout, principal.Principal{}, clientIP(r, h.cfg.TrustProxy), r.UserAgent(), nil)
	h.rec.Logout("success")
	writeOK(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) register(kind principal.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		id, ok := identity.Identifier{Email: req.Email, CountryCode: req.CountryCode, Phone: req.Phone}.NormalizeAll()
		if !ok || strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "Name and email or country code and phone are required")
			return
		}

		verifier, err := h.hasher.Hash(req.Password)
		switch {
		case err == nil:
		case errors.Is(err, password.ErrPasswordTooShort),
			errors.Is(err, password.ErrPasswordTooLong),
			errors.Is(err, password.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, passwordPolicyMessage(err))
			return
		default:
			h.log.Error("auth.register.hash.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		in := identity.RegisterInput{
			Kind:       kind,
			Name:       req.Name,
			Identifier: id,
			Verifier:   verifier,
			Now:        h.now(),
		}
		if kind == principal.KindUser {
			in.Role = strings.TrimSpace(req.Role)
		}

		acc, err := h.ids.Register(r.Context(), in)
		switch {
		case err == nil:
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "Account already exists")
			return
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "Invalid registration details")
			return
		default:
			h.log.Error("auth.register.fail", "kind", kind.String(), "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		h.audit(r.Context(), actionRegister, acc.Principal, clientIP(r, h.cfg.TrustProxy), r.UserAgent(), nil)
		writeOK(w, http.StatusCreated, "Account created", registerResponse{RefID: acc.Principal.Ref})
	})
}

func passwordPolicyMessage(err error) string {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "Password is too short"
	case errors.Is(err, password.ErrPasswordTooLong):
		return "Password is too long"
	default:
		return "Password is too weak"
	}
}

// setStatus enables or disables a principal. A disabled principal can no
// longer log in or rotate its refresh token; access tokens already issued
// run out on their own.
func (h *Handler) setStatus(kind principal.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref, err := uuid.Parse(r.PathValue("ref"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid reference")
			return
		}
		var req statusRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil || req.IsActive == nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		p := principal.Principal{Kind: kind, Ref: ref}
		err = h.ids.SetActive(r.Context(), p, *req.IsActive)
		switch {
		case err == nil:
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Not found")
			return
		default:
			h.log.Error("auth.status.fail", "kind", kind.String(), "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		h.audit(r.Context(), actionStatus, p, clientIP(r, h.cfg.TrustProxy), r.UserAgent(), map[string]any{"active": *req.IsActive})
		writeOK(w, http.StatusOK, "Status updated", nil)
	})
}

func (h *Handler) me(kind principal.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := guard.PrincipalFrom(r.Context())
		if !ok || p.Kind != kind {
			guard.WriteUnauthorized(w)
			return
		}

		acc, err := h.ids.GetByRef(r.Context(), p)
		if identity.IsNotFound(err) || (err == nil && !acc.IsActive) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		if err != nil {
			h.log.Error("auth.me.fail", "kind", kind.String(), "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeOK(w, http.StatusOK, "OK", toProfile(acc))
	})
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
