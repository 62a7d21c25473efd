package models

// Role is the hidden allegiance assigned at game start.
type Role string

const (
	RoleSheriff  Role = "Sheriff"
	RoleDeputy   Role = "Deputy"
	RoleOutlaw   Role = "Outlaw"
	RoleRenegade Role = "Renegade"
)

// Character is one of the sixteen playable characters.
type Character string
