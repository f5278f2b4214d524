package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"farmverse/internal/client"
	"farmverse/internal/models"
)

// BackendProvider signs in with email and password against the FarmVerse
// backend's own identity service.
type BackendProvider struct {
	api       *client.Client
	listeners listeners

	mu      sync.Mutex
	current *Session
}

// NewBackendProvider creates a BackendProvider using api.
func NewBackendProvider(api *client.Client) *BackendProvider {
	return &BackendProvider{api: api}
}

func (p *BackendProvider) Name() string { return "backend" }

func (p *BackendProvider) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrUnsupported)
	}
	token, account, err := p.api.Login(ctx, strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		return nil, fmt.Errorf("sign in failed: %w", err)
	}
	session := &Session{
		User:        models.User{Identity: account.Email, Role: account.Role, Name: account.Name},
		AccessToken: token,
	}
	if claims, err := parseUnverified(token); err == nil {
		session.ExpiresAt = claims.expiresAt
	}
	p.set(session)
	return session, nil
}

func (p *BackendProvider) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrUnsupported)
	}
	role := creds.Role
	if role == "" {
		role = models.RoleConsumer
	}
	_, err := p.api.Register(ctx, client.RegisterRequest{
		Email:    strings.TrimSpace(creds.Email),
		Password: creds.Password,
		Name:     creds.Name,
		Role:     role,
	})
	if err != nil {
		return nil, fmt.Errorf("sign up failed: %w", err)
	}
	return p.SignIn(ctx, creds)
}

// SignOut forgets the session. Backend tokens are stateless, so nothing is sent.
func (p *BackendProvider) SignOut(_ context.Context) error {
	p.set(nil)
	return nil
}

func (p *BackendProvider) OnSessionChange(fn func(*Session)) func() {
	return p.listeners.add(fn)
}

func (p *BackendProvider) set(s *Session) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	p.listeners.emit(s)
}

// Restore adopts a previously saved session without contacting the backend.
func (p *BackendProvider) Restore(s *Session) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
}

// Current returns the session established by the last successful sign-in.
func (p *BackendProvider) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

var _ Provider = (*BackendProvider)(nil)
