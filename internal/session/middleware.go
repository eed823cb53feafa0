package session

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/salesdesk/salesdesk/internal/shared"
)

// checkedAtKey records, in the cookie session, when the stored identity was
// last confirmed by the backend.
const checkedAtKey = "identity_checked_at"

// MiddlewareConfig wires the per-request holder.
type MiddlewareConfig struct {
	Auth       Authenticator
	Logger     *slog.Logger
	Revalidate time.Duration
	Now        func() time.Time
}

// Middleware builds a holder over the request's cookie session and stores it
// in the request context. A stored identity confirmed within Revalidate is
// trusted as is; otherwise the stored token is validated with the backend.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			holder := NewHolder(sess, cfg.Auth, cfg.Logger)
			holder.now = now

			trusted := recentlyChecked(sess, cfg.Revalidate, now()) && holder.Resume()
			if !trusted {
				if holder.LoadFromPersistedState(r.Context()) == StateAuthenticated {
					MarkChecked(sess, now())
				} else {
					sess.Delete(checkedAtKey)
				}
			}
			if exp, ok := holder.ExpiresAt(); ok {
				sess.ExpireAt(exp)
			} else {
				sess.ExpireAt(time.Time{})
			}

			ctx := ContextWithHolder(r.Context(), holder)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MarkChecked records that the identity was just confirmed, typically right
// after a successful login.
func MarkChecked(sess *shared.Session, at time.Time) {
	if sess == nil {
		return
	}
	sess.Set(checkedAtKey, strconv.FormatInt(at.Unix(), 10))
}

func recentlyChecked(sess *shared.Session, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	raw := sess.Get(checkedAtKey)
	if raw == "" {
		return false
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return now.Sub(time.Unix(unix, 0)) < window
}
