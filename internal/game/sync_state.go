// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/bang/internal/models"
)

// ObfPlayerState is one roster entry as seen by a particular viewer. Roles
// stay hidden except the viewer's own and the Sheriff's; hands are only
// revealed to their owner.
type ObfPlayerState struct {
	Username      string           `json:"username"`
	Ready         bool             `json:"ready"`
	IsCurrentTurn bool             `json:"isCurrentTurn"`
	Role          models.Role      `json:"role,omitempty"`
	Character     models.Character `json:"character,omitempty"`
	HandSize      int              `json:"handSize"`
	MaxHealth     int              `json:"maxHealth,omitempty"`
	Hand          []models.Card    `json:"hand,omitempty"`
}

// ObfGameState is returned by Snapshot.
type ObfGameState struct {
	SessionID     uuid.UUID        `json:"sessionId"`
	Phase         string           `json:"phase"`
	LobbyReady    bool             `json:"lobbyReady"`
	DeckRemaining int              `json:"deckRemaining"`
	Reshuffles    int              `json:"reshuffles"`
	DiscardSize   int              `json:"discardSize"`
	DiscardTop    models.Card      `json:"discardTop,omitempty"`
	Connected     int              `json:"connected"`
	Players       []ObfPlayerState `json:"players"`
}

// Snapshot describes the session from viewer's point of view. Pass uuid.Nil
// for a spectator view. Only joined players are listed.
func (g *Game) Snapshot(viewer models.PeerID) ObfGameState {
	obf := ObfGameState{
		SessionID:     g.ID,
		Phase:         g.phase.String(),
		LobbyReady:    g.LobbyReady(),
		DeckRemaining: g.deck.Remaining(),
		Reshuffles:    g.deck.Reshuffles(),
		DiscardSize:   g.discard.Len(),
		Connected:     len(g.order),
		Players:       make([]ObfPlayerState, 0, len(g.order)),
	}
	if top, ok := g.discard.Peek(); ok {
		obf.DiscardTop = top
	}

	for _, id := range g.order {
		p := g.players[id]
		if !p.Joined {
			continue
		}
		ps := ObfPlayerState{
			Username:      p.Username,
			Ready:         p.Ready,
			IsCurrentTurn: p.CurrentTurn,
			Character:     p.Character,
			HandSize:      p.CardsInHand(),
			MaxHealth:     p.MaxHealth,
		}
		if id == viewer || p.Role == models.RoleSheriff {
			ps.Role = p.Role
		}
		if id == viewer {
			ps.Hand = append([]models.Card(nil), p.Hand...)
		}
		obf.Players = append(obf.Players, ps)
	}
	return obf
}
