package auth

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Role is an authority granted to a principal. Roles are kept as strings
// for compatibility with issued data but are checked against KnownRoles.
type Role string

const (
	// RoleUser is the baseline role every account receives on registration.
	RoleUser Role = "ROLE_USER"

	// RoleAdmin grants account administration.
	RoleAdmin Role = "ROLE_ADMIN"
)

// KnownRoles lists every role the service recognizes.
var KnownRoles = []Role{RoleUser, RoleAdmin}

// DefaultRoles returns the role set assigned to new accounts.
func DefaultRoles() []Role {
	return []Role{RoleUser}
}

// IsKnownRole reports whether r is in KnownRoles.
func IsKnownRole(r Role) bool {
	return slices.Contains(KnownRoles, r)
}

// ParseRoles converts role names into a sorted, de-duplicated role set.
// Unknown names fail with ErrUnknownRole.
func ParseRoles(names []string) ([]Role, error) {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		r := Role(name)
		if !IsKnownRole(r) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
		}
		roles = append(roles, r)
	}
	slices.Sort(roles)
	return slices.Compact(roles), nil
}

// RoleNames converts roles to plain strings.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// Principal is a stored account: the identity record behind a username.
type Principal struct {
	ID           string
	Username     string
	Email        string
	Gender       string
	PasswordHash string `json:"-"`
	Roles        []Role
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns a copy of the principal without its password hash.
func (p *Principal) Public() *Principal {
	if p == nil {
		return nil
	}
	cp := *p
	cp.PasswordHash = ""
	cp.Roles = slices.Clone(p.Roles)
	return &cp
}

// HasRole reports whether the principal holds role r.
func (p *Principal) HasRole(r Role) bool {
	return p != nil && slices.Contains(p.Roles, r)
}

// Identity builds the request identity for this principal.
func (p *Principal) Identity() *Identity {
	return &Identity{
		Subject: p.Username,
		Email:   p.Email,
		Roles:   slices.Clone(p.Roles),
	}
}

// LogValue implements slog.LogValuer so the hash never reaches a log line.
func (p Principal) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", p.ID),
		slog.String("username", p.Username),
		slog.Any("roles", p.Roles),
		slog.Bool("enabled", p.Enabled),
	)
}

// Identity represents the caller bound to one in-flight request.
type Identity struct {
	// Subject is the unique identifier (the username).
	Subject string

	// Email is informational and may be empty.
	Email string

	// Roles lists the authorities granted.
	Roles []Role

	// Anonymous marks a placeholder identity. It satisfies no requirement
	// other than Public.
	Anonymous bool
}

// IsAuthenticated reports whether id represents a real, resolved caller.
func (id *Identity) IsAuthenticated() bool {
	return id != nil && !id.Anonymous && id.Subject != ""
}

// HasRole reports whether the identity holds role r.
func (id *Identity) HasRole(r Role) bool {
	return id != nil && slices.Contains(id.Roles, r)
}
