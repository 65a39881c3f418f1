package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProtectedEntity indicates an attempt to mutate the admin role or an
	// admin user through an endpoint that must not touch them.
	ErrProtectedEntity = errors.New("protected entity")
)

// AdminRoleName is the immutable, undeletable administrator role.
const AdminRoleName = "admin"
