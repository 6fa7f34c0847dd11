package domain

import "strings"

// Identity is a verified caller as supplied by the identity provider.
// Core trusts it and uses Subject as the owner key.
type Identity struct {
	// Subject is the stable user identifier.
	Subject string `json:"sub"`

	// Email is the user's email address.
	Email string `json:"email"`

	// Name is the user's display name.
	Name string `json:"name"`
}

// IsValid returns true if the identity carries an owner key.
func (i Identity) IsValid() bool {
	return strings.TrimSpace(i.Subject) != ""
}

// LocalIdentity is used by single-user surfaces (CLI, TUI, MCP)
// when no owner is configured.
var LocalIdentity = Identity{Subject: "local", Name: "Local User"}
