package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"farmverse/internal/backendtest"
	"farmverse/internal/client"
	"farmverse/internal/identity"
	"farmverse/internal/models"
	"farmverse/internal/persistence"
	"farmverse/internal/store"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendProvider_BindsStore(t *testing.T) {
	srv := backendtest.Start(t)
	provider := identity.NewBackendProvider(client.New(srv.URL))
	s := store.New(store.Options{Products: []models.Product{}})
	unbind := identity.Bind(provider, s)
	defer unbind()
	ctx := context.Background()

	session, err := provider.SignUp(ctx, identity.Credentials{
		Email: "ramesh@farmverse.in", Password: "password123", Name: "Ramesh Kumar", Role: models.RoleFarmer,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	st := s.Snapshot()
	require.True(t, st.IsAuthenticated)
	assert.Equal(t, models.User{Identity: "ramesh@farmverse.in", Role: models.RoleFarmer, Name: "Ramesh Kumar"}, *st.User)

	require.NoError(t, provider.SignOut(ctx))
	assert.False(t, s.Snapshot().IsAuthenticated)
	assert.Nil(t, provider.Current())
}

func TestBackendProvider_FailureLeavesSessionUnchanged(t *testing.T) {
	srv := backendtest.Start(t)
	srv.Token(t, "asha@farmverse.in", models.RoleConsumer, "Asha")
	provider := identity.NewBackendProvider(client.New(srv.URL))
	s := store.New(store.Options{Products: []models.Product{}})
	identity.Bind(provider, s)
	ctx := context.Background()

	_, err := provider.SignIn(ctx, identity.Credentials{Email: "asha@farmverse.in", Password: "password123"})
	require.NoError(t, err)

	_, err = provider.SignIn(ctx, identity.Credentials{Email: "asha@farmverse.in", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, 401, client.StatusOf(err))
	assert.True(t, s.Snapshot().IsAuthenticated)
	assert.Equal(t, "asha@farmverse.in", s.Snapshot().User.Identity)

	_, err = provider.SignIn(ctx, identity.Credentials{Phone: "+919800000000"})
	assert.ErrorIs(t, err, identity.ErrUnsupported)
}

// fakeGoTrue mimics the handful of GoTrue endpoints the provider uses.
type fakeGoTrue struct {
	mu        sync.Mutex
	otpSent   []string
	loggedOut []string
}

func (f *fakeGoTrue) token(t *testing.T, sub string, meta fiber.Map) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub, "role": "authenticated", "user_metadata": meta,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("supabase-secret"))
	require.NoError(t, err)
	return s
}

func (f *fakeGoTrue) app(t *testing.T) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	requireKey := func(c *fiber.Ctx) error {
		if c.Get("apikey") != "anon-key" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "No API key found in request"})
		}
		return c.Next()
	}
	auth := app.Group("/auth/v1", requireKey)

	session := func(c *fiber.Ctx, user fiber.Map) error {
		meta, _ := user["user_metadata"].(fiber.Map)
		return c.JSON(fiber.Map{
			"access_token": f.token(t, "uuid-1", meta), "token_type": "bearer",
			"expires_in": 3600, "refresh_token": "r", "user": user,
		})
	}

	auth.Post("/token", func(c *fiber.Ctx) error {
		var body struct{ Email, Password string }
		if err := c.BodyParser(&body); err != nil || c.Query("grant_type") != "password" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
		}
		if body.Email == "down@farmverse.in" {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
		if body.Password != "password123" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_grant", "error_description": "Invalid login credentials"})
		}
		return session(c, fiber.Map{"id": "uuid-1", "email": body.Email, "user_metadata": fiber.Map{"role": "farmer", "display_name": "Singh Farms"}})
	})
	auth.Post("/signup", func(c *fiber.Ctx) error {
		var body struct {
			Email string            `json:"email"`
			Data  map[string]string `json:"data"`
		}
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		if body.Email == "confirm@farmverse.in" {
			return c.JSON(fiber.Map{"id": "uuid-2", "email": body.Email})
		}
		return session(c, fiber.Map{"id": "uuid-2", "email": body.Email, "user_metadata": fiber.Map{"role": body.Data["role"], "display_name": body.Data["display_name"]}})
	})
	auth.Post("/otp", func(c *fiber.Ctx) error {
		var body struct{ Phone string }
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		f.mu.Lock()
		f.otpSent = append(f.otpSent, body.Phone)
		f.mu.Unlock()
		return c.JSON(fiber.Map{})
	})
	auth.Post("/verify", func(c *fiber.Ctx) error {
		var body struct{ Type, Phone, Token string }
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		if body.Type != "sms" || body.Token != "123456" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"msg": "Token has expired or is invalid"})
		}
		return session(c, fiber.Map{"id": "uuid-3", "phone": body.Phone, "user_metadata": fiber.Map{}})
	})
	auth.Post("/logout", func(c *fiber.Ctx) error {
		f.mu.Lock()
		f.loggedOut = append(f.loggedOut, c.Get(fiber.HeaderAuthorization))
		f.mu.Unlock()
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func newSupabase(t *testing.T) (*identity.SupabaseProvider, *fakeGoTrue) {
	fake := &fakeGoTrue{}
	url := backendtest.Serve(t, fake.app(t))
	return identity.NewSupabaseProvider(url+"/", "anon-key"), fake
}

func TestSupabaseProvider_Password(t *testing.T) {
	provider, fake := newSupabase(t)
	s := store.New(store.Options{Products: []models.Product{}})
	identity.Bind(provider, s)
	ctx := context.Background()

	_, err := provider.SignIn(ctx, identity.Credentials{Email: "farmer@farmverse.in", Password: "bad"})
	var gotrueErr *identity.GoTrueError
	require.ErrorAs(t, err, &gotrueErr)
	assert.Equal(t, "Invalid login credentials", gotrueErr.Message)
	assert.False(t, s.Snapshot().IsAuthenticated)

	session, err := provider.SignIn(ctx, identity.Credentials{Email: "farmer@farmverse.in", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFarmer, session.User.Role)
	assert.Equal(t, "Singh Farms", session.User.Name)
	assert.Equal(t, "farmer@farmverse.in", s.Snapshot().User.Identity)

	require.NoError(t, provider.SignOut(ctx))
	fake.mu.Lock()
	loggedOut := fake.loggedOut
	fake.mu.Unlock()
	require.Len(t, loggedOut, 1)
	assert.Equal(t, "Bearer "+session.AccessToken, loggedOut[0])
	assert.False(t, s.Snapshot().IsAuthenticated)
}

func TestSupabaseProvider_SignUp(t *testing.T) {
	provider, _ := newSupabase(t)
	ctx := context.Background()

	session, err := provider.SignUp(ctx, identity.Credentials{Email: "new@farmverse.in", Password: "password123", Name: "Asha", Role: models.RoleConsumer})
	require.NoError(t, err)
	assert.Equal(t, models.User{Identity: "new@farmverse.in", Role: models.RoleConsumer, Name: "Asha"}, session.User)

	_, err = provider.SignUp(ctx, identity.Credentials{Email: "confirm@farmverse.in", Password: "password123"})
	assert.ErrorIs(t, err, identity.ErrConfirmationRequired)
	assert.Equal(t, "new@farmverse.in", provider.Current().User.Identity)
}

func TestSupabaseProvider_PhoneOTP(t *testing.T) {
	provider, fake := newSupabase(t)
	s := store.New(store.Options{Products: []models.Product{}})
	identity.Bind(provider, s)
	ctx := context.Background()

	_, err := provider.SignIn(ctx, identity.Credentials{Phone: "+919800000000"})
	assert.ErrorIs(t, err, identity.ErrOTPRequired)
	fake.mu.Lock()
	assert.Equal(t, []string{"+919800000000"}, fake.otpSent)
	fake.mu.Unlock()
	assert.False(t, s.Snapshot().IsAuthenticated)

	_, err = provider.SignIn(ctx, identity.Credentials{Phone: "+919800000000", OTP: "000000"})
	assert.Error(t, err)

	session, err := provider.SignIn(ctx, identity.Credentials{Phone: "+919800000000", OTP: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "+919800000000", session.User.Identity)
	assert.Equal(t, models.RoleConsumer, session.User.Role)
	assert.True(t, s.Snapshot().IsAuthenticated)
}

func TestSupabaseProvider_MissingAPIKey(t *testing.T) {
	fake := &fakeGoTrue{}
	url := backendtest.Serve(t, fake.app(t))
	provider := identity.NewSupabaseProvider(url, "wrong")

	_, err := provider.SignIn(context.Background(), identity.Credentials{Email: "a@b.c", Password: "password123"})
	var gotrueErr *identity.GoTrueError
	require.ErrorAs(t, err, &gotrueErr)
	assert.Equal(t, 401, gotrueErr.Status)
}

func TestSupabaseProvider_ErrorWithoutBody(t *testing.T) {
	provider, _ := newSupabase(t)

	_, err := provider.SignIn(context.Background(), identity.Credentials{Email: "down@farmverse.in", Password: "password123"})
	var gotrueErr *identity.GoTrueError
	require.ErrorAs(t, err, &gotrueErr)
	assert.Equal(t, fiber.StatusServiceUnavailable, gotrueErr.Status)
	assert.Equal(t, "Service Unavailable", gotrueErr.Message)
}

func TestSupabaseProvider_OAuthURL(t *testing.T) {
	provider := identity.NewSupabaseProvider("https://abc.supabase.co", "anon")
	assert.Equal(t, "https://abc.supabase.co/auth/v1/authorize?provider=google&redirect_to=http%3A%2F%2Flocalhost%3A5173", provider.OAuthURL("google", "http://localhost:5173"))
}

func TestBind_Unsubscribe(t *testing.T) {
	provider, _ := newSupabase(t)
	s := store.New(store.Options{Products: []models.Product{}})
	unbind := identity.Bind(provider, s)
	unbind()

	_, err := provider.SignIn(context.Background(), identity.Credentials{Email: "farmer@farmverse.in", Password: "password123"})
	require.NoError(t, err)
	assert.False(t, s.Snapshot().IsAuthenticated)
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	storage := persistence.NewMemoryStorage()

	got, err := identity.LoadSession(ctx, storage)
	require.NoError(t, err)
	assert.Nil(t, got)

	session := &identity.Session{User: models.User{Identity: "a@farmverse.in", Role: models.RoleFarmer}, AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Minute).UTC().Truncate(time.Second)}
	require.NoError(t, identity.SaveSession(ctx, storage, session))
	got, err = identity.LoadSession(ctx, storage)
	require.NoError(t, err)
	assert.Equal(t, session.AccessToken, got.AccessToken)
	assert.True(t, got.Expired(time.Now()))

	require.NoError(t, identity.SaveSession(ctx, storage, nil))
	got, err = identity.LoadSession(ctx, storage)
	require.NoError(t, err)
	assert.Nil(t, got)
}
