package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Identities belong to the
// chat platform, so nothing is loaded from the database.
type Principal struct {
	SubjectType domain.SubjectType
	SubjectID   string
	Role        *domain.StaffRole
	GuildID     string
}

// IsStaff reports whether the caller acts as support staff.
func (p *Principal) IsStaff() bool {
	return p != nil && p.SubjectType == domain.SubjectTypeStaff && p.Role != nil
}

// AuthMiddleware validates bearer tokens.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
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
	if claims.SubjectID == "" {
		return apperrors.NewUnauthorized("token has no subject")
	}

	switch claims.Subject {
	case domain.SubjectTypeUser:
	case domain.SubjectTypeStaff:
		if claims.Role == nil {
			return apperrors.NewUnauthorized("staff token without role")
		}
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, &Principal{
		SubjectType: claims.Subject,
		SubjectID:   claims.SubjectID,
		Role:        claims.Role,
		GuildID:     claims.GuildID,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
