// Package session exposes the signed-in identity to the data layer.
package session

import (
	"context"
	"sync"
)

// Identity is the authenticated user as reported by the auth service.
type Identity struct {
	ID       string
	Email    string
	FullName string
}

// Provider resolves the current identity. The boolean is false when nobody
// is signed in.
type Provider interface {
	CurrentIdentity(ctx context.Context) (Identity, bool)
}

// Static holds an identity set by the caller.
type Static struct {
	mu       sync.RWMutex
	identity Identity
	signedIn bool
}

func NewStatic(id Identity) *Static {
	s := &Static{}
	if id.ID != "" {
		s.SignIn(id)
	}
	return s
}

func (s *Static) SignIn(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	s.signedIn = true
}

func (s *Static) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = Identity{}
	s.signedIn = false
}

func (s *Static) CurrentIdentity(context.Context) (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.signedIn
}
