package acl

import "fmt"

// Role is a user's access level on one document.
type Role int

const (
	// Viewer reads the document.
	Viewer Role = iota
	// Formatter reads and restyles existing text without changing it.
	Formatter
	// Editor reads, writes and formats.
	Editor
	// Owner can also share and delete the document.
	Owner
)

var roleNames = map[Role]string{
	Viewer:    "viewer",
	Formatter: "formatter",
	Editor:    "editor",
	Owner:     "owner",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}

	return "unknown"
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]

	return ok
}

// ParseRole is the inverse of Role.String.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}

	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*r = role

	return nil
}

// Allows reports whether the role grants action.
func (r Role) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return r.Valid()
	case ActionFormat:
		return r >= Formatter && r.Valid()
	case ActionEdit:
		return r >= Editor && r.Valid()
	case ActionShare, ActionDelete:
		return r == Owner
	default:
		return false
	}
}

// Permission is one user's role on one document.
type Permission struct {
	DocID  string `json:"docId"`
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}
