package store

import (
	"errors"
	"strings"
)

// Predefined errors for the store layer.
var (
	// ErrNotFound indicates that a requested row was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden indicates that the caller may not perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a uniqueness violation, e.g. a duplicate slug.
	ErrConflict = errors.New("conflict")

	// ErrPermissionDenied is returned when the backend rejects the query under
	// its row level security or grants (SQLSTATE 42501).
	ErrPermissionDenied = errors.New("permission denied")
)

// PermissionDeniedCode is the SQLSTATE for insufficient_privilege.
const PermissionDeniedCode = "42501"

// IsPermissionDenied reports whether err is a permission failure from any
// backend. PostgREST only surfaces it as "(42501) permission denied ..." text.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermissionDenied) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "("+PermissionDeniedCode+")") || strings.Contains(msg, "permission denied")
}
