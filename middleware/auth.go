// middleware/auth.go
package middleware

import (
	"fmt"
	"log"
	"strings"
	"time"

	"bgmi-scrims-system/models"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "scrims_session"

// AuthConfig holds session-token settings, parsed from the environment.
type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET,required"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`
}

func LoadAuthConfig() (AuthConfig, error) {
	var cfg AuthConfig
	if err := env.Parse(&cfg); err != nil {
		return AuthConfig{}, fmt.Errorf("parse auth env: %w", err)
	}
	return cfg, nil
}

// SessionClaims is what a session token carries.
type SessionClaims struct {
	jwt.RegisteredClaims
	Role  models.Role `json:"role"`
	Email string      `json:"email"`
}

// IssueSessionToken signs a session token for the user.
func IssueSessionToken(cfg AuthConfig, user *models.User) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.SessionTTL)),
		},
		Role:  user.Role,
		Email: user.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseSessionToken verifies a session token and returns its claims.
func ParseSessionToken(cfg AuthConfig, tokenStr string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

// SessionMiddleware authenticates the request from the session cookie or a
// bearer header and attaches user identity to the fiber context.
func SessionMiddleware(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(SessionCookieName)
		if tokenStr == "" {
			authHeader := c.Get("Authorization")
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				tokenStr = ""
			}
		}
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing session token",
			})
		}

		claims, err := ParseSessionToken(cfg, tokenStr)
		if err != nil {
			log.Printf("[AUTH] invalid session token on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired session",
			})
		}

		c.Locals("user_id", claims.Subject)
		c.Locals("user_role", claims.Role)
		c.Locals("user_email", claims.Email)
		return c.Next()
	}
}

// RequireRole gates a route to the given roles (after SessionMiddleware).
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(models.Role)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient role",
		})
	}
}

// CtxUserID returns the authenticated user id from the fiber context.
func CtxUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// CtxUserRole returns the authenticated role from the fiber context.
func CtxUserRole(c *fiber.Ctx) models.Role {
	role, _ := c.Locals("user_role").(models.Role)
	return role
}
