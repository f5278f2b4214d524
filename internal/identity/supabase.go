package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"farmverse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// SupabaseProvider signs in through a Supabase project's GoTrue REST API,
// with email and password or with a phone number and SMS one-time code.
// The user's role and display name live in user_metadata.
type SupabaseProvider struct {
	baseURL   string
	anonKey   string
	listeners listeners
	now       func() time.Time

	mu      sync.Mutex
	current *Session
}

// NewSupabaseProvider creates a provider for the project at projectURL.
func NewSupabaseProvider(projectURL, anonKey string) *SupabaseProvider {
	return &SupabaseProvider{
		baseURL: strings.TrimRight(projectURL, "/") + "/auth/v1",
		anonKey: anonKey,
		now:     time.Now,
	}
}

func (p *SupabaseProvider) Name() string { return "supabase" }

// GoTrueError is an error response from the GoTrue API.
type GoTrueError struct {
	Status  int
	Message string
}

func (e *GoTrueError) Error() string {
	return fmt.Sprintf("supabase auth %d: %s", e.Status, e.Message)
}

type gotrueUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	RefreshToken string      `json:"refresh_token"`
	User         *gotrueUser `json:"user"`
}

func (p *SupabaseProvider) post(ctx context.Context, path string, bearer string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a := fiber.Post(p.baseURL + path)
	a.Set("apikey", p.anonKey)
	if bearer == "" {
		bearer = p.anonKey
	}
	a.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	if deadline, ok := ctx.Deadline(); ok {
		a.Timeout(time.Until(deadline))
	}
	if body != nil {
		a.JSON(body)
	}

	code, resp, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("supabase auth %s: %w", path, errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		var e struct {
			Msg              string `json:"msg"`
			Message          string `json:"message"`
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.Unmarshal(resp, &e)
		msg := firstNonEmpty(e.ErrorDescription, e.Msg, e.Message, e.Error, utils.StatusMessage(code))
		return &GoTrueError{Status: code, Message: msg}
	}
	if out == nil || len(resp) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("failed to decode supabase auth response: %w", err)
	}
	return nil
}

// SignIn uses email and password, or phone with a one-time code. A phone
// without a code triggers an SMS and returns ErrOTPRequired.
func (p *SupabaseProvider) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	var gs gotrueSession
	switch {
	case creds.Email != "" && creds.Password != "":
		body := map[string]string{"email": strings.TrimSpace(creds.Email), "password": creds.Password}
		if err := p.post(ctx, "/token?grant_type=password", "", body, &gs); err != nil {
			return nil, fmt.Errorf("sign in failed: %w", err)
		}
	case creds.Phone != "" && creds.OTP == "":
		body := map[string]interface{}{"phone": creds.Phone, "create_user": false}
		if err := p.post(ctx, "/otp", "", body, nil); err != nil {
			return nil, fmt.Errorf("failed to send one-time code: %w", err)
		}
		return nil, ErrOTPRequired
	case creds.Phone != "":
		body := map[string]string{"type": "sms", "phone": creds.Phone, "token": creds.OTP}
		if err := p.post(ctx, "/verify", "", body, &gs); err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: need email and password, or phone", ErrUnsupported)
	}
	return p.establish(gs)
}

// SignUp registers with email and password, or starts a phone sign-up by
// sending a one-time code carrying the role in user metadata.
func (p *SupabaseProvider) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	role := creds.Role
	if role == "" {
		role = models.RoleConsumer
	}
	metadata := map[string]string{"role": string(role)}
	if creds.Name != "" {
		metadata["display_name"] = creds.Name
	}

	switch {
	case creds.Email != "" && creds.Password != "":
		var gs gotrueSession
		body := map[string]interface{}{
			"email":    strings.TrimSpace(creds.Email),
			"password": creds.Password,
			"data":     metadata,
		}
		if err := p.post(ctx, "/signup", "", body, &gs); err != nil {
			return nil, fmt.Errorf("sign up failed: %w", err)
		}
		if gs.AccessToken == "" {
			return nil, ErrConfirmationRequired
		}
		return p.establish(gs)
	case creds.Phone != "" && creds.OTP == "":
		body := map[string]interface{}{"phone": creds.Phone, "create_user": true, "data": metadata}
		if err := p.post(ctx, "/otp", "", body, nil); err != nil {
			return nil, fmt.Errorf("failed to send one-time code: %w", err)
		}
		return nil, ErrOTPRequired
	case creds.Phone != "":
		return p.SignIn(ctx, creds)
	default:
		return nil, fmt.Errorf("%w: need email and password, or phone", ErrUnsupported)
	}
}

// SignOut revokes the current session. The local session is cleared even if
// the server call fails.
func (p *SupabaseProvider) SignOut(ctx context.Context) error {
	current := p.Current()
	var err error
	if current != nil && current.AccessToken != "" {
		if e := p.post(ctx, "/logout", current.AccessToken, nil, nil); e != nil {
			err = fmt.Errorf("sign out: %w", e)
		}
	}
	p.set(nil)
	return err
}

func (p *SupabaseProvider) OnSessionChange(fn func(*Session)) func() {
	return p.listeners.add(fn)
}

// Restore adopts a previously saved session without contacting the server.
func (p *SupabaseProvider) Restore(s *Session) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
}

// Current returns the active session, if any.
func (p *SupabaseProvider) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *SupabaseProvider) establish(gs gotrueSession) (*Session, error) {
	if gs.AccessToken == "" || gs.User == nil {
		return nil, errors.New("supabase auth returned no session")
	}
	user := models.User{Identity: gs.User.Email, Role: models.RoleConsumer}
	if user.Identity == "" {
		user.Identity = gs.User.Phone
	}
	if r, ok := gs.User.UserMetadata["role"].(string); ok {
		if role, err := models.ParseRole(r); err == nil {
			user.Role = role
		}
	}
	for _, k := range []string{"display_name", "full_name", "name"} {
		if n, ok := gs.User.UserMetadata[k].(string); ok && n != "" {
			user.Name = n
			break
		}
	}

	session := &Session{User: user, AccessToken: gs.AccessToken}
	if gs.ExpiresIn > 0 {
		session.ExpiresAt = p.now().Add(time.Duration(gs.ExpiresIn) * time.Second)
	}
	p.set(session)
	return session, nil
}

func (p *SupabaseProvider) set(s *Session) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	p.listeners.emit(s)
}

// OAuthURL returns the URL that starts an OAuth sign-in with provider
// (for example "google"), redirecting back to redirectTo.
func (p *SupabaseProvider) OAuthURL(provider, redirectTo string) string {
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return p.baseURL + "/authorize?" + q.Encode()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Provider = (*SupabaseProvider)(nil)
