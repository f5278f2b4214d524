// Package identity signs users in through an external identity service and
// reports session changes to the client store.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"farmverse/internal/models"
	"farmverse/internal/store"
)

var (
	// ErrOTPRequired is returned by a phone sign-in that has sent a one-time
	// code. Call SignIn again with Credentials.OTP set.
	ErrOTPRequired = errors.New("one-time code sent, verification required")
	// ErrConfirmationRequired is returned by SignUp when the account exists but
	// must be confirmed by email before a session is issued.
	ErrConfirmationRequired = errors.New("account created, email confirmation required")
	// ErrUnsupported is returned for a credential kind the provider cannot handle.
	ErrUnsupported = errors.New("credentials not supported by this provider")
)

// Credentials identify a user. Providers use the fields they understand:
// email and password, or phone and one-time code.
type Credentials struct {
	Email    string
	Phone    string
	Password string
	OTP      string
	// Name and Role are used on sign-up only.
	Name string
	Role models.Role
}

// Session is a signed-in user together with the provider's access token.
type Session struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"accessToken"`
	ExpiresAt   time.Time   `json:"expiresAt,omitempty"`
}

// Expired reports whether the session has a known expiry in the past.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Provider is an identity service. A failed SignIn or SignUp returns an error
// and does not emit a session change.
type Provider interface {
	Name() string
	SignIn(ctx context.Context, creds Credentials) (*Session, error)
	SignUp(ctx context.Context, creds Credentials) (*Session, error)
	SignOut(ctx context.Context) error
	// OnSessionChange registers fn for sign-in (non-nil session) and sign-out
	// (nil) events. The returned func unregisters it.
	OnSessionChange(fn func(*Session)) (unsubscribe func())
}

// SessionSink is the part of the client store that tracks the signed-in user.
type SessionSink interface {
	LoginUser(user models.User) store.State
	Logout() store.State
}

// Bind keeps sink in step with provider's sessions.
func Bind(provider Provider, sink SessionSink) (unbind func()) {
	return provider.OnSessionChange(func(s *Session) {
		if s == nil {
			sink.Logout()
			return
		}
		sink.LoginUser(s.User)
	})
}

// listeners is the OnSessionChange bookkeeping shared by providers.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(*Session)
}

func (l *listeners) add(fn func(*Session)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(*Session))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) emit(s *Session) {
	l.mu.Lock()
	fns := make([]func(*Session), 0, len(l.fns))
	for i := 0; i < l.next; i++ {
		if fn, ok := l.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
