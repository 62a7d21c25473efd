package game

import (
	"fmt"

	"github.com/jason-s-yu/bang/internal/models"
)

const (
	// MinPlayers is the smallest roster that can ready up and start.
	MinPlayers = 2
	// MinRankedPlayers is the smallest roster with a real (non-debug) role table.
	MinRankedPlayers = 4
	// MaxPlayers is the largest roster with a role table.
	MaxPlayers = 7
)

// roleTables maps player count to the role multiset dealt for that count.
// Counts below MinRankedPlayers only exist for local testing.
var roleTables = map[int][]models.Role{
	1: {models.RoleSheriff},
	2: {models.RoleSheriff, models.RoleOutlaw},
	3: {models.RoleSheriff, models.RoleOutlaw, models.RoleRenegade},
	4: {models.RoleSheriff, models.RoleOutlaw, models.RoleOutlaw, models.RoleRenegade},
	5: {models.RoleSheriff, models.RoleOutlaw, models.RoleOutlaw, models.RoleDeputy, models.RoleRenegade},
	6: {models.RoleSheriff, models.RoleOutlaw, models.RoleOutlaw, models.RoleDeputy, models.RoleDeputy, models.RoleRenegade},
	7: {models.RoleSheriff, models.RoleOutlaw, models.RoleOutlaw, models.RoleOutlaw, models.RoleDeputy, models.RoleDeputy, models.RoleRenegade},
}

// RoleTable returns a fresh copy of the roles for n players. Debug tables
// (fewer than MinRankedPlayers) are only returned when allowDebug is set.
func RoleTable(n int, allowDebug bool) ([]models.Role, error) {
	if n < MinRankedPlayers && !allowDebug {
		return nil, fmt.Errorf("%w: %d players (need %d-%d)", ErrInvalidPlayerCount, n, MinRankedPlayers, MaxPlayers)
	}
	roles, ok := roleTables[n]
	if !ok {
		return nil, fmt.Errorf("%w: %d players", ErrInvalidPlayerCount, n)
	}
	out := make([]models.Role, len(roles))
	copy(out, roles)
	return out, nil
}

// characterCatalog lists every playable character once.
var characterCatalog = [...]models.Character{
	"Bart Cassidy",
	"Black Jack",
	"Calamity Janet",
	"El Gringo",
	"Jesse Jones",
	"Jourdonnais",
	"Kit Carlson",
	"Lucky Duke",
	"Paul Regret",
	"Pedro Ramirez",
	"Rose Doolan",
	"Sid Ketchum",
	"Slab the Killer",
	"Suzy Lafayette",
	"Vulture Sam",
	"Willy The Kid",
}

// Characters returns a fresh copy of the character catalog.
func Characters() []models.Character {
	out := make([]models.Character, len(characterCatalog))
	copy(out, characterCatalog[:])
	return out
}
