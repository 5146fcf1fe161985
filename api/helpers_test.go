package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/campuskit/prefect"
	"github.com/campuskit/prefect/decisionlog"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/module"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want errClass
	}{
		{"nil", nil, classOK},
		{"grant not found", grant.ErrNotFound, classNotFound},
		{"module not found", module.ErrNotFound, classNotFound},
		{"decision not found", decisionlog.ErrNotFound, classNotFound},
		{"subject not found", prefect.ErrSubjectNotFound, classNotFound},
		{"target not found", prefect.ErrTargetNotFound, classNotFound},
		{"inactive user reads as missing", prefect.ErrUserInactive, classNotFound},
		{"duplicate grant", grant.ErrDuplicate, classBadRequest},
		{"duplicate module", module.ErrDuplicate, classBadRequest},
		{"module in use", module.ErrInUse, classBadRequest},
		{"scope mismatch", prefect.ErrScopeMismatch, classBadRequest},
		{"unknown action", prefect.ErrUnknownAction, classBadRequest},
		{"unknown target type", prefect.ErrUnknownTargetType, classBadRequest},
		{"incomplete target", prefect.ErrTargetIncomplete, classBadRequest},
		{"target required", prefect.ErrTargetRequired, classBadRequest},
		{"no actor is unauthorized, not forbidden", prefect.ErrActorUnresolved, classUnauthorized},
		{"access denied", prefect.ErrAccessDenied, classForbidden},
		{"anything else is a server issue", errors.New("boom"), classServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err); got != tc.want {
				t.Fatalf("classify(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyWrapped(t *testing.T) {
	err := fmt.Errorf("user teacher-9: %w", prefect.ErrUserInactive)
	if got := classify(err); got != classNotFound {
		t.Fatalf("classify(wrapped inactive) = %d, want %d", got, classNotFound)
	}
}

func TestDefaultLimit(t *testing.T) {
	if got := defaultLimit(0); got != 50 {
		t.Fatalf("defaultLimit(0) = %d", got)
	}
	if got := defaultLimit(-3); got != 50 {
		t.Fatalf("defaultLimit(-3) = %d", got)
	}
	if got := defaultLimit(25); got != 25 {
		t.Fatalf("defaultLimit(25) = %d", got)
	}
	if got := defaultLimit(5000); got != 1000 {
		t.Fatalf("defaultLimit(5000) = %d", got)
	}
}
