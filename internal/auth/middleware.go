package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const sessionKey = "auth_session"

// Session is the resolved caller: identity plus active tenant. TenantID may
// be empty; core reads then return empty collections rather than errors.
// Services never resolve this ambiently: handlers thread tenant id and actor
// name into every call explicitly.
type Session struct {
	UserID   string
	Name     string
	TenantID string
}

// SessionMiddleware validates bearer tokens and loads the session.
type SessionMiddleware struct {
	tokens *TokenManager
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens}
}

// Handle enforces a valid session for protected routes.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(sessionKey, &Session{
		UserID:   claims.Subject,
		Name:     claims.Name,
		TenantID: claims.ActiveTenantID,
	})
	return c.Next()
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*Session)
	return session, ok
}
