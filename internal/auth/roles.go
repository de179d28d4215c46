package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

// RequireUser ensures a requester is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeUser {
			return apperrors.NewForbidden("requester token required")
		}
		return c.Next()
	}
}

// RequireStaffRole ensures the staff principal has one of the allowed roles.
// Admins pass every staff check.
func RequireStaffRole(allowed ...domain.StaffRole) fiber.Handler {
	allowedSet := make(map[domain.StaffRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.IsStaff() {
			return apperrors.NewForbidden("Only support staff can perform this action.")
		}
		if len(allowedSet) == 0 || *principal.Role == domain.StaffRoleAdmin {
			return c.Next()
		}
		if _, exists := allowedSet[*principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated (user or staff).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
