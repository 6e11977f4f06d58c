package acl

import (
	"errors"
	"fmt"

	"github.com/serroba/rich-docs/internal/delta"
)

// Action is something a user wants to do to a document.
type Action int

const (
	ActionRead Action = iota
	// ActionFormat changes attributes only: the change holds nothing but retains.
	ActionFormat
	// ActionEdit inserts or deletes text.
	ActionEdit
	ActionShare
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionFormat:
		return "format"
	case ActionEdit:
		return "edit"
	case ActionShare:
		return "share"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ActionFor classifies a change by the right it needs.
func ActionFor(change *delta.Delta) Action {
	if change == nil {
		return ActionEdit
	}

	for _, op := range change.Ops() {
		if op.Type != delta.Retain {
			return ActionEdit
		}
	}

	return ActionFormat
}

// Checker answers permission questions from a Store. A nil Checker allows
// everything, which is how a server runs with access control switched off.
type Checker struct {
	store Store
}

// NewChecker creates a checker backed by store.
func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// CanPerform reports whether userID may perform action on docID. Users with
// no role on the document may do nothing.
func (c *Checker) CanPerform(docID, userID string, action Action) (bool, error) {
	if c == nil {
		return true, nil
	}

	role, err := c.store.GetRole(docID, userID)
	if errors.Is(err, ErrPermissionNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return role.Allows(action), nil
}

// Require is CanPerform turned into an error wrapping ErrAccessDenied.
func (c *Checker) Require(docID, userID string, action Action) error {
	allowed, err := c.CanPerform(docID, userID, action)
	if err != nil {
		return err
	}

	if !allowed {
		return fmt.Errorf("%w: %q may not %s %q", ErrAccessDenied, userID, action, docID)
	}

	return nil
}
