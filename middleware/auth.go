package middleware

import (
	"event-ticketing/errors"
	"event-ticketing/model"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
)

const IdentityKey = "identity"

// Authorize rejects requests without a valid HS256 bearer token signed with
// signingKey and stores the parsed token under IdentityKey.
func Authorize(signingKey string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(signingKey),
		ErrorHandler: jwtError,
		ContextKey:   IdentityKey,
	})
}

// RequireAdmin must run after Authorize.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdminRole(c) {
			return errors.RaisePermissionsError(c, "only admin can perform this operation")
		}
		return c.Next()
	}
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return errors.RaiseUnauthorizedError(c, "Missing or malformed JWT")
	}
	return errors.RaiseUnauthorizedError(c, "Invalid or expired JWT")
}

func Claims(c *fiber.Ctx) jwt.MapClaims {
	token, ok := c.Locals(IdentityKey).(*jwt.Token)
	if !ok {
		return nil
	}
	claims, _ := token.Claims.(jwt.MapClaims)
	return claims
}

func IsAdminRole(c *fiber.Ctx) bool {
	role, _ := Claims(c)["role"].(string)
	return role == model.RoleAdmin
}

// UserId returns the subject of the verified token, or "" when there is none.
func UserId(c *fiber.Ctx) string {
	sub, _ := Claims(c)["sub"].(string)
	return sub
}
