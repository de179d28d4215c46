package service

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/weaver-helpdesk/internal/lifecycle"
	"github.com/spec-kit/weaver-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

// lifecycleError converts a rejected transition into the API error taxonomy.
func lifecycleError(err error) error {
	msg := strings.TrimPrefix(err.Error(), "lifecycle: ")
	switch {
	case errors.Is(err, lifecycle.ErrSubjectEmpty),
		errors.Is(err, lifecycle.ErrSubjectTooLong),
		errors.Is(err, lifecycle.ErrInvalidCategory),
		errors.Is(err, lifecycle.ErrInvalidRating),
		errors.Is(err, lifecycle.ErrMissingActor):
		return apperrors.NewValidationError(msg, nil)
	case errors.Is(err, lifecycle.ErrAlreadyClaimed),
		errors.Is(err, lifecycle.ErrNotOpen),
		errors.Is(err, lifecycle.ErrAlreadyClosing),
		errors.Is(err, lifecycle.ErrTicketClosed),
		errors.Is(err, lifecycle.ErrNoLongerPending):
		return apperrors.NewConflict(msg, nil)
	case errors.Is(err, lifecycle.ErrNotOwner):
		return apperrors.NewForbidden(msg)
	}
	return apperrors.NewInternalError(err)
}

// notFound maps a missing row to a 404 for resource and passes other errors
// through the default mapping.
func notFound(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

// writeConflict maps a lost compare-and-set or a unique violation to a 409.
func writeConflict(err error, message string) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict(message, nil)
	}
	return apperrors.MapError(err)
}
