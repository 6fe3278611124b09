package middlewares

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"travorier/app/utils"
)

// IdentityKey is the c.Locals key holding the caller's user id
const IdentityKey = "identity"

// JWTMiddleware requires a valid bearer token and stores its user id in c.Locals
func JWTMiddleware(tokens *utils.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Authorization header is required",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid authorization header format",
			})
		}

		claims, err := tokens.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid JWT token",
				"details": err.Error(),
			})
		}

		c.Locals(IdentityKey, claims.UserID)
		return c.Next()
	}
}

// Identity returns the authenticated user id, or "" outside JWTMiddleware
func Identity(c *fiber.Ctx) string {
	identity, _ := c.Locals(IdentityKey).(string)
	return identity
}

// AdminKeyMiddleware guards internal endpoints with a shared key header.
// An empty key disables the endpoints.
func AdminKeyMiddleware(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" || subtle.ConstantTimeCompare([]byte(c.Get("X-Admin-Key")), []byte(key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid admin key",
			})
		}
		return c.Next()
	}
}
