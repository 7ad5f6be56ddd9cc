// Package repository implements persistence for users and refresh
// tokens.  The sentinel values below let the service layer tell a
// missing or conflicting row apart from an infrastructure failure
// without depending on driver-specific error types.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert or update violates a unique
// constraint (MySQL error 1062).  The service layer translates it into
// a UserAlreadyExists error.
var ErrDuplicate = errors.New("duplicate record")
