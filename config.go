package prefect

import "slices"

// Config holds configuration for the Prefect engine.
//
// Action and target-type vocabularies are closed sets fixed per deployment.
// Validating against configuration rather than against values already
// present in the grant store means an empty store can still accept its
// first grant.
type Config struct {
	// SuperAdminRole is the reserved role title that bypasses all checks.
	// Defaults to "super-admin".
	SuperAdminRole string `json:"super_admin_role,omitempty"`

	// Actions is the closed action vocabulary. The wildcard action
	// "manage-all" is always accepted in addition. Defaults to
	// create/read/update/delete.
	Actions []string `json:"actions,omitempty"`

	// TargetTypes is the closed target-type vocabulary.
	// Defaults to school and class.
	TargetTypes []string `json:"target_types,omitempty"`

	// LogDecisions persists every check outcome to the decision log.
	// Defaults to false.
	LogDecisions bool `json:"log_decisions,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SuperAdminRole: "super-admin",
		Actions:        []string{"create", "read", "update", "delete"},
		TargetTypes:    []string{TargetTypeSchool, TargetTypeClass},
	}
}

func (c Config) actionAllowed(action string) bool {
	if action == WildcardAction {
		return true
	}
	return slices.Contains(c.Actions, action)
}

func (c Config) targetTypeAllowed(tt string) bool {
	return slices.Contains(c.TargetTypes, tt)
}
