package authz

import "errors"

// Domain errors for authorization operations. Missing principals, roles, and
// shares are never errors, they evaluate to "deny". Errors are reserved for
// call-site misuse and collaborator failures.
var (
	// ErrInvalidResource is returned when a nil resource or an empty resource
	// type is passed to a decision function.
	ErrInvalidResource = errors.New("authz.invalid_resource")

	// ErrInvalidPermission is returned when an empty permission string is
	// passed to a claim check.
	ErrInvalidPermission = errors.New("authz.invalid_permission")

	// ErrInvalidAction is returned when an action string is empty or does not
	// name a known action.
	ErrInvalidAction = errors.New("authz.invalid_action")

	// ErrInvalidLevel is returned when a string does not name a permission level.
	ErrInvalidLevel = errors.New("authz.invalid_level")

	// ErrInvalidRolesFile is returned when a role definition file is malformed.
	ErrInvalidRolesFile = errors.New("authz.invalid_roles_file")
)
