package auth

import "slices"

type Config struct {
	Enabled  bool
	Issuer   string
	Audience string
	JWKSURL  string
}

type Principal struct {
	Issuer   string
	Subject  string
	Audience any
	// Roles holds realm roles and the client roles granted for the audience.
	Roles  []string
	Claims map[string]any
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}
