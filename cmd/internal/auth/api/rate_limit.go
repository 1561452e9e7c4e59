package authapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"
)

// checkLoginIPThrottle counts recent failed logins from ip, in audit_log
// when a pool is configured and in process otherwise.
func (h *Handler) checkLoginIPThrottle(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration, error) {
	if ip == nil || h.cfg.LoginIPMax <= 0 {
		return false, 0, nil
	}
	if h.pool == nil {
		if h.failures.Blocked(ip.String(), now) {
			return true, h.cfg.LoginIPWindow, nil
		}
		return false, 0, nil
	}

	var n int
	err := h.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM audit_log
		WHERE action = $1
		  AND ip = $2
		  AND created_at >= $3
	`, actionLoginFail, ip.String(), now.Add(-h.cfg.LoginIPWindow)).Scan(&n)
	if err != nil {
		return false, 0, err
	}
	if n >= h.cfg.LoginIPMax {
		return true, h.cfg.LoginIPWindow, nil
	}
	return false, 0, nil
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "Too many attempts")
}
