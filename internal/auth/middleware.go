package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectID string
	Scope     Scope
}

// Middleware validates bearer tokens and records the caller's scope.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
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

	switch claims.Scope {
	case ScopeGateway, ScopeAdmin:
	default:
		return apperrors.NewUnauthorized("unknown scope")
	}

	c.Locals(principalKey, &Principal{SubjectID: claims.SubjectID, Scope: claims.Scope})
	return c.Next()
}

// RequireAdmin gates routes reserved for operators.
func (m *Middleware) RequireAdmin(c *fiber.Ctx) error {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing principal")
	}
	if principal.Scope != ScopeAdmin {
		return apperrors.NewPermissionDenied("admin scope required")
	}
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
