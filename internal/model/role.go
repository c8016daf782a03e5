package model

import (
	"fmt"
	"strings"
)

// Role is the access mode of a named graph for one transformation run.
type Role int

const (
	RoleInput Role = iota + 1
	RoleOutput
	RoleInOut
)

// Roles lists every role in registration order.
var Roles = []Role{RoleInput, RoleOutput, RoleInOut}

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	case RoleInOut:
		return "inout"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Writable reports whether graphs bound with this role accept mutation.
func (r Role) Writable() bool {
	return r == RoleOutput || r == RoleInOut
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= RoleInput && r <= RoleInOut
}

// ParseRole accepts the text forms used by launch files and the CLI.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "input", "in":
		return RoleInput, nil
	case "output", "out":
		return RoleOutput, nil
	case "inout", "in_out", "in-out":
		return RoleInOut, nil
	default:
		return 0, fmt.Errorf("model: unknown role %q", raw)
	}
}
