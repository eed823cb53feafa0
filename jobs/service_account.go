package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/salesdesk/salesdesk/internal/session"
)

// ServiceAccount signs the worker in to the backend. The token lives in
// memory only; a rejected token is dropped by the holder and the next run
// signs in again.
type ServiceAccount struct {
	mu       sync.Mutex
	holder   *session.Holder
	email    string
	password string
}

// NewServiceAccount wraps a holder over an in-memory store.
func NewServiceAccount(auth session.Authenticator, email, password string) *ServiceAccount {
	return &ServiceAccount{
		holder:   session.NewHolder(session.NewMemoryStore(), auth, nil),
		email:    email,
		password: password,
	}
}

// Context returns ctx carrying a signed-in holder.
func (a *ServiceAccount) Context(ctx context.Context) (context.Context, error) {
	if a == nil {
		return nil, errors.New("jobs: service account not configured")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if exp, ok := a.holder.ExpiresAt(); ok && time.Until(exp) < time.Minute {
		a.holder.Logout()
	}
	if !a.holder.IsAuthenticated() {
		if a.email == "" || a.password == "" {
			return nil, errors.New("jobs: worker credentials missing")
		}
		if err := a.holder.Login(ctx, a.email, a.password); err != nil {
			return nil, fmt.Errorf("jobs: service account login: %w", err)
		}
	}
	return session.ContextWithHolder(ctx, a.holder), nil
}
