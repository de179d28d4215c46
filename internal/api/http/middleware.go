package http

import (
	"context"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/observability"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger wraps the error handler so it records the final status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(routePath(c), c.Method(), domainErr.Code)
				body := fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}
				if len(domainErr.Details) > 0 {
					body["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
					logger.Error("request failed", zap.Error(domainErr))
				}
				if retry, ok := domainErr.Details["retry_after_seconds"].(int64); ok {
					c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(retry, 10))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(fiber.Map{"error": body})
				err = nil
			}
		}()
		return c.Next()
	}
}

// toDomainError also maps fiber's own errors, such as unmatched routes.
func toDomainError(err error) *apperrors.DomainError {
	if fe, ok := err.(*fiber.Error); ok {
		switch fe.Code {
		case fiber.StatusNotFound:
			return apperrors.NewDomainError("NOT_FOUND", fe.Message, fe.Code, nil)
		case fiber.StatusMethodNotAllowed:
			return apperrors.NewDomainError("METHOD_NOT_ALLOWED", fe.Message, fe.Code, nil)
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			return apperrors.NewDomainError("VALIDATION_FAILED", fe.Message, fiber.StatusBadRequest, nil)
		}
	}
	return apperrors.ToDomainError(err)
}

func routePath(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}
