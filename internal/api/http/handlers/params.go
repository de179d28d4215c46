package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/auth"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"field": param})
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}
