// Package session holds the console user's identity and bearer token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/salesdesk/salesdesk/internal/api"
)

// Persisted keys. Nothing else is ever written to a Store by the holder.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// State is the authentication status of a holder.
type State string

const (
	StateUninitialized   State = "idle"
	StatePending         State = "pending"
	StateAuthenticated   State = "success"
	StateUnauthenticated State = "error"
)

// ErrNotAuthenticated is returned by operations that need a signed-in user.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Authenticator is the subset of the backend client used by the holder.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	MeWithToken(ctx context.Context, token string) (api.Identity, error)
	UpdateProfile(ctx context.Context, fullName string) (api.Identity, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

// Holder is the single source of truth for who is signed in. It is safe for
// concurrent use; the lock is never held across a backend call.
type Holder struct {
	mu     sync.RWMutex
	store  Store
	auth   Authenticator
	state  State
	forced bool
	logger *slog.Logger
	now    func() time.Time
}

// NewHolder builds a holder over the given persisted state.
func NewHolder(store Store, auth Authenticator, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{
		store:  store,
		auth:   auth,
		state:  StateUninitialized,
		logger: logger,
		now:    time.Now,
	}
}

// State reports the current authentication state.
func (h *Holder) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// IsAuthenticated is true only when both token and identity are held.
func (h *Holder) IsAuthenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state == StateAuthenticated && h.store.Get(KeyToken) != "" && h.store.Get(KeyUser) != ""
}

// Token returns the stored bearer token. During validation of a stored token
// the token is returned as well so that concurrent calls carry it.
func (h *Holder) Token() string {
	if h == nil {
		return ""
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store.Get(KeyToken)
}

// Identity returns the signed-in user, if any.
func (h *Holder) Identity() (api.Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identityLocked()
}

// Role is a snapshot of the current role; empty when signed out.
func (h *Holder) Role() string {
	if h == nil {
		return ""
	}
	id, ok := h.Identity()
	if !ok || h.State() != StateAuthenticated {
		return ""
	}
	return id.Role
}

// Forced reports whether the last sign-out was caused by a rejected token.
func (h *Holder) Forced() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.forced
}

// LoadFromPersistedState validates a previously stored token against the
// backend. No retry is attempted and no partial state survives a failure.
func (h *Holder) LoadFromPersistedState(ctx context.Context) State {
	h.mu.Lock()
	token := h.store.Get(KeyToken)
	if token == "" {
		h.clearLocked()
		h.state = StateUnauthenticated
		h.mu.Unlock()
		return StateUnauthenticated
	}
	if exp, ok := TokenExpiry(token); ok && !exp.After(h.now()) {
		h.clearLocked()
		h.state = StateUnauthenticated
		h.mu.Unlock()
		h.logger.Info("stored token expired", slog.Time("expired_at", exp))
		return StateUnauthenticated
	}
	h.state = StatePending
	h.mu.Unlock()

	identity, err := h.auth.MeWithToken(ctx, token)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store.Get(KeyToken) != token {
		// A login or logout won the race; its outcome stands.
		return h.state
	}
	if err != nil {
		h.clearLocked()
		h.state = StateUnauthenticated
		h.logger.Warn("stored token rejected", slog.Any("error", err))
		return StateUnauthenticated
	}
	if err := h.writeIdentityLocked(identity); err != nil {
		h.clearLocked()
		h.state = StateUnauthenticated
		h.logger.Error("persist identity", slog.Any("error", err))
		return StateUnauthenticated
	}
	h.state = StateAuthenticated
	h.logger.Debug("session restored", slog.String("email", identity.Email), slog.String("role", identity.Role))
	return StateAuthenticated
}

// Resume marks the holder authenticated from stored state alone, without a
// backend round trip. It reports false when the stored pair is incomplete,
// unreadable or expired.
func (h *Holder) Resume() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	token := h.store.Get(KeyToken)
	if token == "" {
		return false
	}
	if _, ok := h.identityLocked(); !ok {
		return false
	}
	if exp, ok := TokenExpiry(token); ok && !exp.After(h.now()) {
		return false
	}
	h.state = StateAuthenticated
	return true
}

// Login authenticates with the backend and persists token and identity.
func (h *Holder) Login(ctx context.Context, email, password string) error {
	h.mu.Lock()
	h.state = StatePending
	h.forced = false
	h.mu.Unlock()

	resp, err := h.auth.Login(ctx, email, password)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.clearLocked()
		h.state = StateUnauthenticated
		return err
	}
	if resp.Token == "" {
		h.clearLocked()
		h.state = StateUnauthenticated
		return errors.New("session: backend returned an empty token")
	}
	h.store.Set(KeyToken, resp.Token)
	if err := h.writeIdentityLocked(resp.Identity()); err != nil {
		h.clearLocked()
		h.state = StateUnauthenticated
		return err
	}
	h.state = StateAuthenticated
	h.logger.Info("signed in", slog.String("email", resp.Email), slog.String("role", resp.Role))
	return nil
}

// Logout discards the token and identity. No backend call is made.
func (h *Holder) Logout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()
	h.state = StateUnauthenticated
	h.forced = false
}

// ForceLogout is invoked when the backend rejects the token.
func (h *Holder) ForceLogout(ctx context.Context) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	wasSignedIn := h.store.Get(KeyToken) != ""
	h.clearLocked()
	h.state = StateUnauthenticated
	h.forced = true
	if wasSignedIn {
		h.logger.Warn("token rejected by backend, signing out")
	}
}

// UpdateProfile renames the current user and re-persists the identity.
func (h *Holder) UpdateProfile(ctx context.Context, fullName string) (api.Identity, error) {
	current, ok := h.Identity()
	if !ok {
		return api.Identity{}, ErrNotAuthenticated
	}
	updated, err := h.auth.UpdateProfile(ctx, fullName)
	if err != nil {
		return api.Identity{}, err
	}
	if updated.Email == "" {
		updated.Email = current.Email
	}
	if updated.Role == "" {
		updated.Role = current.Role
	}
	if updated.FullName == "" {
		updated.FullName = fullName
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store.Get(KeyToken) == "" {
		return api.Identity{}, ErrNotAuthenticated
	}
	if err := h.writeIdentityLocked(updated); err != nil {
		return api.Identity{}, err
	}
	return updated, nil
}

// ChangePassword forwards a password change for the current user.
func (h *Holder) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if !h.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return h.auth.ChangePassword(ctx, oldPassword, newPassword)
}

// ExpiresAt returns the token expiry when the token carries one.
func (h *Holder) ExpiresAt() (time.Time, bool) {
	token := h.Token()
	if token == "" {
		return time.Time{}, false
	}
	return TokenExpiry(token)
}

func (h *Holder) identityLocked() (api.Identity, bool) {
	raw := h.store.Get(KeyUser)
	if raw == "" {
		return api.Identity{}, false
	}
	var id api.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return api.Identity{}, false
	}
	return id, true
}

func (h *Holder) writeIdentityLocked(id api.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("session: encode identity: %w", err)
	}
	h.store.Set(KeyUser, string(raw))
	return nil
}

func (h *Holder) clearLocked() {
	h.store.Delete(KeyToken)
	h.store.Delete(KeyUser)
}
