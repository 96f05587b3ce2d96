package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// userIDKey is where the auth middleware stashes the verified caller id.
const userIDKey = "userID"

var errInvalidToken = errors.New("invalid token")

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// VerifyToken checks an HS256 token signed by the identity service and
// returns the subject user id from its "userId" claim.
func VerifyToken(secret, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return "", errInvalidToken
	}
	return userID, nil
}

// JWTAuth rejects requests without a valid bearer credential and exposes the
// caller id to handlers via locals.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing credentials"})
		}
		userID, err := VerifyToken(secret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// CallerID returns the verified caller id placed by JWTAuth.
func CallerID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
