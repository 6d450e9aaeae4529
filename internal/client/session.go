package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"smartbin/portal/internal/model"
)

var ErrNotSignedIn = errors.New("not signed in")

// SessionProvider holds the signed-in identity a Client authenticates with.
type SessionProvider interface {
	CurrentUser() (*model.User, bool)
	Token() string
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context) error
}

// MemorySession keeps the session in process memory. A session past its
// expiry reports no user and an empty token.
type MemorySession struct {
	client *Client
	now    func() time.Time

	mu   sync.RWMutex
	sess *Session
}

var _ SessionProvider = (*MemorySession)(nil)

func NewMemorySession(c *Client) *MemorySession {
	return &MemorySession{client: c, now: time.Now}
}

func (s *MemorySession) current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil || !s.now().Before(s.sess.ExpiresAt) {
		return nil
	}
	return s.sess
}

func (s *MemorySession) CurrentUser() (*model.User, bool) {
	sess := s.current()
	if sess == nil || sess.User == nil {
		return nil, false
	}
	return sess.User, true
}

func (s *MemorySession) Token() string {
	if sess := s.current(); sess != nil {
		return sess.Token
	}
	return ""
}

// Login signs in and replaces any previous session. A failed login keeps
// the previous session.
func (s *MemorySession) Login(ctx context.Context, email, password string) (*Session, error) {
	sess, err := s.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
	return sess, nil
}

// Logout revokes the token on the server and forgets it locally. The local
// session is cleared even when the server call fails.
func (s *MemorySession) Logout(ctx context.Context) error {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess == nil {
		return ErrNotSignedIn
	}
	return s.client.SignOut(ctx, sess.Token)
}
