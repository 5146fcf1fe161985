package api

import (
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/campuskit/prefect"
	"github.com/campuskit/prefect/decisionlog"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/module"
)

// errClass partitions domain errors into the HTTP error taxonomy.
type errClass int

const (
	classOK errClass = iota
	classNotFound
	classBadRequest
	classUnauthorized
	classForbidden
	classServer
)

// classify assigns a domain error its HTTP class. Missing referenced
// entities, including inactive user subjects, read as not-found; an
// unresolvable caller identity is unauthorized, not forbidden.
func classify(err error) errClass {
	switch {
	case err == nil:
		return classOK
	case isNotFound(err):
		return classNotFound
	case errors.Is(err, grant.ErrDuplicate),
		errors.Is(err, module.ErrDuplicate),
		errors.Is(err, module.ErrInUse):
		return classBadRequest
	case errors.Is(err, prefect.ErrScopeMismatch),
		errors.Is(err, prefect.ErrUnknownAction),
		errors.Is(err, prefect.ErrUnknownTargetType),
		errors.Is(err, prefect.ErrTargetIncomplete),
		errors.Is(err, prefect.ErrTargetRequired):
		return classBadRequest
	case errors.Is(err, prefect.ErrActorUnresolved):
		return classUnauthorized
	case errors.Is(err, prefect.ErrAccessDenied):
		return classForbidden
	default:
		return classServer
	}
}

// mapError maps domain errors to Forge HTTP errors.
func mapError(ctx forge.Context, err error) error {
	switch classify(err) {
	case classOK:
		return nil
	case classNotFound:
		return forge.NotFound(err.Error())
	case classBadRequest:
		return forge.BadRequest(err.Error())
	case classUnauthorized:
		// Forge has no unauthorized constructor, so the response is
		// written directly. The body stays opaque.
		return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	case classForbidden:
		return forge.Forbidden(err.Error())
	default:
		return err
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, grant.ErrNotFound) ||
		errors.Is(err, module.ErrNotFound) ||
		errors.Is(err, decisionlog.ErrNotFound) ||
		errors.Is(err, prefect.ErrSubjectNotFound) ||
		errors.Is(err, prefect.ErrTargetNotFound) ||
		errors.Is(err, prefect.ErrUserInactive)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
