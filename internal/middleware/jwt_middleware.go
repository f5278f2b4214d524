package middleware

import (
	"strings"

	"farmverse/internal/models"
	"farmverse/internal/services"
	"farmverse/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// Keys under which AuthRequired stores the caller in the Fiber context.
const (
	LocalUserID = "user_id"
	LocalEmail  = "email"
	LocalRole   = "role"
	LocalName   = "name"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("JWT validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalName, claims.Name)

		return c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles. It must run after AuthRequired.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have permission to perform this action",
		})
	}
}

// CurrentUser returns the authenticated caller stored by AuthRequired.
func CurrentUser(c *fiber.Ctx) (models.User, bool) {
	role, ok := c.Locals(LocalRole).(models.Role)
	if !ok || !role.Valid() {
		return models.User{}, false
	}
	email, _ := c.Locals(LocalEmail).(string)
	name, _ := c.Locals(LocalName).(string)
	identity := email
	if identity == "" {
		identity, _ = c.Locals(LocalUserID).(string)
	}
	return models.User{Identity: identity, Role: role, Name: name}, true
}
