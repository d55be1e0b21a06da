package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/pkg/errcode"
)

// Claims represents the token claims issued by the auth provider.
// The user id travels in the registered subject claim.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is the current authenticated identity
type Session struct {
	UserId string
	Email  string
	Token  string
}

// ParseSessionToken decodes the access token's claims and checks expiry.
// The token is issued and signed by the provider; this client only
// extracts the identity, it does not hold the signing secret.
func ParseSessionToken(tokenString string) (*Session, error) {
	var claims Claims
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims)
	if err != nil {
		return nil, errcode.ErrTokenInvalid.Wrap(err)
	}

	if claims.Subject == "" {
		return nil, errcode.ErrTokenInvalid
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errcode.ErrTokenExpired
	}

	return &Session{
		UserId: claims.Subject,
		Email:  claims.Email,
		Token:  tokenString,
	}, nil
}

// Manager owns the current session and notifies observers on change.
// A nil session published to observers means signed out.
type Manager struct {
	auth *AuthClient

	mu      sync.RWMutex
	current *Session
	hooks   []func(*Session)
}

// NewManager creates a new Manager
func NewManager(auth *AuthClient) *Manager {
	return &Manager{auth: auth}
}

// Current returns the current session, nil when signed out
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnChange registers a session-changed hook. Hooks run synchronously
// in registration order.
func (m *Manager) OnChange(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// SignIn authenticates against the provider and publishes the session
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if m.auth == nil {
		return nil, errcode.ErrSignInFailed
	}

	token, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		log.CtxWarn(ctx, "sign in failed: email=%s, error=%v", email, err)
		return nil, err
	}

	sess, err := ParseSessionToken(token.AccessToken)
	if err != nil {
		return nil, err
	}
	if sess.Email == "" {
		sess.Email = email
	}

	m.set(sess)
	log.CtxInfo(ctx, "signed in: user_id=%s", sess.UserId)
	return sess, nil
}

// Restore publishes a session parsed from an existing token
func (m *Manager) Restore(token string) (*Session, error) {
	sess, err := ParseSessionToken(token)
	if err != nil {
		return nil, err
	}
	m.set(sess)
	return sess, nil
}

// SignOut clears the session and publishes nil
func (m *Manager) SignOut() {
	m.set(nil)
}

// set swaps the session and fires hooks
func (m *Manager) set(sess *Session) {
	m.mu.Lock()
	m.current = sess
	hooks := make([]func(*Session), len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(sess)
	}
}
