package game

import (
	"time"

	"github.com/jason-s-yu/bang/internal/cache"
	"github.com/jason-s-yu/bang/internal/models"
)

// EventType names a recorded session mutation.
type EventType string

const (
	EventPlayerConnected  EventType = "player_connected"
	EventPlayerJoined     EventType = "player_joined"
	EventPlayerReady      EventType = "player_ready"
	EventPlayerUnready    EventType = "player_unready"
	EventPlayerRemoved    EventType = "player_removed"
	EventRolesPrepared    EventType = "roles_prepared"
	EventRoleAssigned     EventType = "role_assigned"
	EventGameStarted      EventType = "game_started"
	EventMaxHealthSet     EventType = "max_health_set"
	EventCardsDealt       EventType = "cards_dealt"
	EventCardDrawn        EventType = "card_drawn"
	EventCardDiscarded    EventType = "card_discarded"
	EventDeckReshuffled   EventType = "deck_reshuffled"
	EventTurnAdvanced     EventType = "turn_advanced"
	EventSessionRestarted EventType = "session_restarted"
)

// Recorder receives one record per successful session mutation. Implementations
// must not block; the session calls Record while mutations are serialized.
type Recorder interface {
	Record(rec cache.SessionEventRecord)
}

// record stamps and forwards an event to the recorder, if any.
func (g *Game) record(actor models.PeerID, typ EventType, payload map[string]interface{}) {
	g.actionIndex++
	if g.recorder == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	g.recorder.Record(cache.SessionEventRecord{
		SessionID: g.ID,
		Index:     g.actionIndex,
		ActorID:   actor,
		EventType: string(typ),
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}
