package prefect

import "errors"

var (
	// ErrAccessDenied is returned when an enforcement check fails. It is
	// deliberately free of detail so callers cannot enumerate rules.
	ErrAccessDenied = errors.New("prefect: access denied")

	// ErrScopeMismatch is returned when a request does not address exactly
	// one of user or role.
	ErrScopeMismatch = errors.New("prefect: exactly one of user or role must be given")

	// ErrUnknownAction is returned when an action is outside the configured
	// vocabulary.
	ErrUnknownAction = errors.New("prefect: unknown action")

	// ErrUnknownTargetType is returned when a target type is outside the
	// configured vocabulary.
	ErrUnknownTargetType = errors.New("prefect: unknown target type")

	// ErrTargetIncomplete is returned when only one of target type and
	// target ID is given where both are required together.
	ErrTargetIncomplete = errors.New("prefect: target type and target id must be given together")

	// ErrTargetRequired is returned when a non-school target type is used
	// without a target ID.
	ErrTargetRequired = errors.New("prefect: target id required for this target type")

	// ErrTargetNotFound is returned when a referenced target entity does
	// not exist in the tenant.
	ErrTargetNotFound = errors.New("prefect: target not found")

	// ErrSubjectNotFound is returned when the grant subject does not exist.
	ErrSubjectNotFound = errors.New("prefect: subject not found")

	// ErrUserInactive is returned when granting to a deactivated user.
	ErrUserInactive = errors.New("prefect: user is not active")

	// ErrActorUnresolved is returned when no authenticated actor is
	// available on the context.
	ErrActorUnresolved = errors.New("prefect: actor identity not resolved")
)
