package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/shared"
)

func serveWithSession(t *testing.T, sess *shared.Session, mw func(http.Handler) http.Handler) *Holder {
	t.Helper()
	var seen *Holder
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	return seen
}

func newSession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "sd_test", "secret", time.Hour, false)
	sess, err := manager.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sess
}

func TestMiddlewareTrustsRecentlyCheckedIdentity(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	auth := &stubAuth{}
	sess := newSession(t)
	sess.Set(KeyToken, "opaque")
	sess.Set(KeyUser, `{"email":"a@shop.vn","role":"ROLE_ADMIN"}`)
	MarkChecked(sess, now.Add(-time.Minute))

	holder := serveWithSession(t, sess, Middleware(MiddlewareConfig{Auth: auth, Revalidate: 5 * time.Minute, Now: func() time.Time { return now }}))

	assert.Zero(t, auth.meCalls)
	assert.Equal(t, StateAuthenticated, holder.State())
	assert.Equal(t, api.RoleAdmin, holder.Role())
}

func TestMiddlewareRevalidatesStaleIdentity(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	auth := &stubAuth{identity: api.Identity{Email: "a@shop.vn", Role: api.RoleSalesStaff}}
	sess := newSession(t)
	sess.Set(KeyToken, "opaque")
	sess.Set(KeyUser, `{"email":"a@shop.vn","role":"ROLE_ADMIN"}`)
	MarkChecked(sess, now.Add(-time.Hour))

	holder := serveWithSession(t, sess, Middleware(MiddlewareConfig{Auth: auth, Revalidate: 5 * time.Minute, Now: func() time.Time { return now }}))

	assert.Equal(t, 1, auth.meCalls)
	assert.Equal(t, api.RoleSalesStaff, holder.Role(), "fresh identity replaces the stored one")
}

func TestMiddlewareTokenWithoutUserValidates(t *testing.T) {
	auth := &stubAuth{meErr: &api.Error{Status: http.StatusUnauthorized}}
	sess := newSession(t)
	sess.Set(KeyToken, "opaque")

	holder := serveWithSession(t, sess, Middleware(MiddlewareConfig{Auth: auth, Revalidate: time.Hour}))

	assert.Equal(t, 1, auth.meCalls)
	assert.Equal(t, StateUnauthenticated, holder.State())
	assert.Empty(t, sess.Get(KeyToken))
}
