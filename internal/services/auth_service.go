package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmverse/internal/models"
	"farmverse/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for any failed login, without saying which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
	ErrInvalidToken = errors.New("invalid token")
)

// SessionClaims is what the backend knows about the caller of a request.
type SessionClaims struct {
	UserID    string
	Email     string
	Role      models.Role
	Name      string
	ExpiresAt time.Time
}

// User converts the claims to the client-facing identity.
func (c SessionClaims) User() models.User {
	return models.User{Identity: c.Email, Role: c.Role, Name: c.Name}
}

// AuthService is the backend's local identity service: it registers accounts
// and issues and validates HS256 session tokens.
type AuthService struct {
	userRepo      repositories.UserRepository
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenDuration time.Duration) *AuthService {
	if tokenDuration <= 0 {
		tokenDuration = 24 * time.Hour
	}
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: tokenDuration,
	}
}

// RegisterUser hashes the password and stores a new account.
func (s *AuthService) RegisterUser(ctx context.Context, account *models.Account, password string) error {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	if existing, err := s.userRepo.GetByEmail(ctx, account.Email); err == nil && existing != nil {
		return fmt.Errorf("%w: %s", ErrEmailTaken, account.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	account.Password = string(hashedPassword)

	if err := s.userRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("%w: %s", ErrEmailTaken, account.Email)
		}
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// LoginUser checks the credentials and returns a signed session token.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, *models.Account, error) {
	account, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     account.ID,
		"user_id": account.ID,
		"email":   account.Email,
		"role":    string(account.Role),
		"name":    account.Name,
		"exp":     now.Add(s.tokenDuration).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, account, nil
}

// ValidateToken parses and validates a session token. Tokens issued by a
// Supabase project sharing the same secret are accepted too: their role is
// read from user_metadata because the top-level role claim is "authenticated".
func (s *AuthService) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	session := &SessionClaims{
		UserID: stringClaim(claims, "user_id"),
		Email:  stringClaim(claims, "email"),
		Name:   stringClaim(claims, "name"),
	}
	if session.UserID == "" {
		session.UserID = stringClaim(claims, "sub")
	}
	role := models.Role(stringClaim(claims, "role"))
	meta, _ := claims["user_metadata"].(map[string]interface{})
	if !role.Valid() && meta != nil {
		role = models.Role(stringClaim(meta, "role"))
	}
	if session.Name == "" && meta != nil {
		session.Name = stringClaim(meta, "display_name")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: missing role", ErrInvalidToken)
	}
	session.Role = role
	if exp, ok := claims["exp"].(float64); ok {
		session.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return session, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
