package models

import "github.com/google/uuid"

// PeerID identifies one transport connection for as long as it stays open.
type PeerID = uuid.UUID

// Player is a roster entry. It is created when a connection is accepted and
// only receives a username once the peer completes the join handshake.
type Player struct {
	ID       PeerID `json:"id"`
	Username string `json:"username,omitempty"`
	Joined   bool   `json:"joined"`
	Ready    bool   `json:"ready"`

	CurrentTurn bool `json:"currentTurn"`

	Role      Role      `json:"role,omitempty"`
	Character Character `json:"character,omitempty"`

	Hand []Card `json:"-"`

	// Reserved for rule enforcement; only MaxHealth drives dealing today.
	MaxHealth int `json:"maxHealth"`
	Health    int `json:"health"`
	Range     int `json:"range"`
	Distance  int `json:"distance"`
}

// NewPlayer returns a roster entry for a freshly accepted connection.
func NewPlayer(id PeerID) *Player {
	return &Player{
		ID:       id,
		Range:    1,
		Distance: 1,
		Hand:     []Card{},
	}
}

func (p *Player) SetUsername(username string) {
	p.Username = username
	p.Joined = true
}

func (p *Player) MarkReady()   { p.Ready = true }
func (p *Player) MarkUnready() { p.Ready = false }

func (p *Player) AssignRole(r Role)           { p.Role = r }
func (p *Player) AssignCharacter(c Character) { p.Character = c }

// CardsInHand returns the hand size.
func (p *Player) CardsInHand() int {
	return len(p.Hand)
}

// SetMaxHealth sets both the cap and the current health.
func (p *Player) SetMaxHealth(n int) {
	p.MaxHealth = n
	p.Health = n
}

// RemoveFromHand drops one copy of card from the hand and reports whether it was held.
func (p *Player) RemoveFromHand(card Card) bool {
	for i, c := range p.Hand {
		if c == card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// String returns the display name, falling back to the peer id before join.
func (p *Player) String() string {
	if p.Username != "" {
		return p.Username
	}
	return p.ID.String()
}
