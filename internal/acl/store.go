// Package acl decides who may read, format, edit, share and delete a document.
package acl

import "errors"

// Common errors.
var (
	ErrPermissionNotFound = errors.New("permission not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidRole        = errors.New("invalid role")
)

// Store persists document permissions.
type Store interface {
	// Grant sets the user's role, replacing any earlier one.
	Grant(docID, userID string, role Role) error

	// Revoke fails with ErrPermissionNotFound when the user has no role.
	Revoke(docID, userID string) error

	// RevokeAll forgets every permission on the document.
	RevokeAll(docID string) error

	// GetRole fails with ErrPermissionNotFound when the user has no role.
	GetRole(docID, userID string) (Role, error)

	// ListPermissions returns the document's permissions ordered by user ID.
	ListPermissions(docID string) ([]Permission, error)
}
