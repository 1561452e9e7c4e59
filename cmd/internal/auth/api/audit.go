package authapi

import (
	"context"
	"encoding/json"
	"net"
	"strings"

	"brandhub/cmd/internal/principal"

	"github.com/google/uuid"
)

const (
	actionLoginFail      = "auth.login.fail"
	actionLoginSuccess   = "auth.login.success"
	actionLoginThrottled = "auth.login.rate_limited"
	actionRefreshSuccess = "auth.refresh.success"
	actionRefreshFail    = "auth.refresh.fail"
	actionLogout         = "auth.logout"
	actionRegister       = "auth.register"
	actionStatus         = "auth.status"
)

// audit records a security event. Without a pool it only logs.
func (h *Handler) audit(ctx context.Context, action string, p principal.Principal, ip net.IP, ua string, meta map[string]any) {
	var kind, ref, ipVal any
	attrs := []any{"action", action, "ip", ipString(ip)}
	if p.Kind.Valid() {
		kind = p.Kind.String()
		attrs = append(attrs, "kind", kind)
	}
	if p.Ref != uuid.Nil {
		ref = p.Ref
		attrs = append(attrs, "ref", p.Ref.String())
	}
	h.log.Debug("auth.audit", attrs...)

	if h.pool == nil {
		return
	}

	if ip != nil {
		ipVal = ip.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO audit_log (action, kind, ref_id, ip, user_agent, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
	`, action, kind, ref, ipVal, trimOrNil(ua), metaVal, h.now())
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
