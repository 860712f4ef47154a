package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/ticket-engine/pkg/util"
)

const principalKey = "auth_principal"

// VerifyPassword compares a plaintext password against the configured bcrypt
// hash.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthMiddleware guards mutating adapter routes with bearer tokens.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware builds the middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle validates the Authorization header and stashes the subject.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return apperrors.NewUnauthorized("bearer token required")
	}
	claims, err := m.tokens.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	c.Locals(principalKey, claims.SubjectID)
	return c.Next()
}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(c *fiber.Ctx) (string, bool) {
	subject, ok := c.Locals(principalKey).(string)
	return subject, ok && subject != ""
}
