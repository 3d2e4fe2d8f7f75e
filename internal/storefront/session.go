package storefront

import "sync"

// Session supplies the bearer token for storefront calls. ok is false when
// the user is not signed in. SignOut is called when the storefront rejects
// the token.
type Session interface {
	Token() (token string, ok bool)
	SignOut()
}

// MemorySession holds a token in memory. The zero value is signed out.
type MemorySession struct {
	mu    sync.RWMutex
	token string
}

// NewMemorySession returns a session holding token. An empty token is signed out.
func NewMemorySession(token string) *MemorySession {
	return &MemorySession{token: token}
}

// Token returns the current token.
func (s *MemorySession) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// SetToken replaces the token.
func (s *MemorySession) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SignOut drops the token.
func (s *MemorySession) SignOut() {
	s.SetToken("")
}
