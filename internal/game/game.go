// internal/game/game.go
package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bang/internal/models"
	"github.com/sirupsen/logrus"
)

// Phase is the lifecycle stage of the session.
type Phase int

const (
	// PhaseLobby accepts joins, leaves and ready checks.
	PhaseLobby Phase = iota
	// PhaseStarting has roles prepared for a locked roster; clients are
	// loading and no one may join or change readiness.
	PhaseStarting
	// PhaseRolesAssigned has roles and characters out but no hands dealt.
	PhaseRolesAssigned
	// PhaseActive has hands dealt and turns in progress.
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseStarting:
		return "starting"
	case PhaseRolesAssigned:
		return "roles_assigned"
	case PhaseActive:
		return "active"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// dealRounds caps DealCardsAtStart at this many passes over the roster.
const dealRounds = 10

// Options configures a new Game. The zero value is usable.
type Options struct {
	// AllowDebugRoles permits starting with fewer than MinRankedPlayers.
	AllowDebugRoles bool
	// Rand drives every shuffle. Defaults to a clock-seeded source.
	Rand *rand.Rand
	// Recorder receives session event records. Optional.
	Recorder Recorder
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// Game is the single shared session: the roster in join order, the deck, the
// discard pile and the lifecycle. Every method mutates or reads shared state
// without locking; callers must serialize access (see handlers.Gateway).
type Game struct {
	ID uuid.UUID

	log             logrus.FieldLogger
	rng             *rand.Rand
	recorder        Recorder
	allowDebugRoles bool

	order   []models.PeerID
	players map[models.PeerID]*models.Player

	deck       *Deck
	discard    *DiscardPile
	characters []models.Character
	roles      []models.Role

	roleAssignmentDone bool
	phase              Phase
	actionIndex        int
}

// NewGame builds an empty session in the lobby phase with a freshly shuffled deck.
func NewGame(opts Options) *Game {
	id, _ := uuid.NewRandom()

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	g := &Game{
		ID:              id,
		log:             logger.WithField("session", id),
		rng:             rng,
		recorder:        opts.Recorder,
		allowDebugRoles: opts.AllowDebugRoles,
	}
	g.reset()
	return g
}

// reset puts every piece of session state back to its initial value.
func (g *Game) reset() {
	g.order = nil
	g.players = make(map[models.PeerID]*models.Player)
	g.deck = NewDeckWithRand(g.rng)
	g.discard = &DiscardPile{}
	g.characters = Characters()
	g.roles = nil
	g.roleAssignmentDone = false
	g.phase = PhaseLobby
}

func (g *Game) Phase() Phase              { return g.phase }
func (g *Game) Deck() *Deck               { return g.deck }
func (g *Game) DiscardPile() *DiscardPile { return g.discard }

// RoleAssignmentDone reports whether roles and characters have been handed out.
func (g *Game) RoleAssignmentDone() bool { return g.roleAssignmentDone }

// AddPlayer appends a roster entry for a new connection. It returns false if
// the id is already present.
func (g *Game) AddPlayer(id models.PeerID) bool {
	if _, ok := g.players[id]; ok {
		g.log.WithField("peer", id).Warn("Player already online.")
		return false
	}
	g.players[id] = models.NewPlayer(id)
	g.order = append(g.order, id)
	g.record(id, EventPlayerConnected, nil)
	return true
}

// RemovePlayer drops the entry for id and returns it. If that player held the
// turn, the turn passes to whoever followed them in join order. Deciding
// whether an emptied roster restarts the session is left to the caller.
func (g *Game) RemovePlayer(id models.PeerID) (*models.Player, bool) {
	p, ok := g.players[id]
	if !ok {
		g.log.WithField("peer", id).Warn("Player couldn't be removed.")
		return nil, false
	}

	idx := g.indexOf(id)
	delete(g.players, id)
	g.order = append(g.order[:idx], g.order[idx+1:]...)

	if p.CurrentTurn {
		if next, ok := g.joinedFrom(idx); ok {
			next.CurrentTurn = true
			g.log.WithField("username", next.Username).Infof("%s left on their turn; it's now %s's turn.", p, next)
		}
	}
	p.CurrentTurn = false

	// The prepared roles were sized for a roster that no longer exists.
	if p.Joined && g.phase == PhaseStarting {
		g.log.Warn("Player left while starting; back to the lobby.")
		g.roles = nil
		g.phase = PhaseLobby
	}

	g.log.WithField("peer", id).Infof("%s disconnected.", p)
	g.record(id, EventPlayerRemoved, map[string]interface{}{"username": p.Username})
	return p, true
}

// Join attaches a username to an accepted connection.
func (g *Game) Join(id models.PeerID, username string) (*models.Player, error) {
	p, ok := g.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if p.Joined {
		return nil, ErrAlreadyJoined
	}
	if g.phase != PhaseLobby {
		return nil, ErrGameInProgress
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidName
	}
	if other, taken := g.FindPlayerByName(username); taken && other.ID != id {
		return nil, fmt.Errorf("%w: %q", ErrNameTaken, username)
	}

	p.SetUsername(username)
	g.log.WithField("peer", id).Infof("%s connected.", username)
	g.record(id, EventPlayerJoined, map[string]interface{}{"username": username})
	return p, nil
}

// SetReady toggles the ready check for id. Only valid in the lobby.
func (g *Game) SetReady(id models.PeerID, ready bool) (*models.Player, error) {
	p, ok := g.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if g.phase != PhaseLobby {
		return nil, ErrGameInProgress
	}
	if ready {
		p.MarkReady()
		g.record(id, EventPlayerReady, nil)
	} else {
		p.MarkUnready()
		g.record(id, EventPlayerUnready, nil)
	}
	return p, nil
}

// LobbyReady is true iff at least MinPlayers have joined and all of them are
// ready. Connections that never joined are not counted.
func (g *Game) LobbyReady() bool {
	joined := g.joined()
	for _, p := range joined {
		if !p.Ready {
			return false
		}
	}
	return len(joined) >= MinPlayers
}

// PrepareRoles picks the role multiset for the joined roster and locks the
// lobby. It is a no-op once roles have been assigned.
func (g *Game) PrepareRoles() error {
	if g.roleAssignmentDone {
		return nil
	}
	n := len(g.joined())
	roles, err := RoleTable(n, g.allowDebugRoles)
	if err != nil {
		g.log.WithError(err).Warn("Invalid number of players.")
		return err
	}
	if n < MinRankedPlayers {
		g.log.Warnf("Using debug role table for %d players.", n)
	}
	g.roles = roles
	if g.phase == PhaseLobby {
		g.phase = PhaseStarting
	}
	g.record(uuid.Nil, EventRolesPrepared, map[string]interface{}{"players": n})
	return nil
}

// Start begins the game: it hands out roles and characters, deals a new deck
// and gives the turn to the first player to have joined. It requires a ready
// lobby (or one already locked by PrepareRoles) and is a no-op once roles are
// out.
func (g *Game) Start() error {
	if g.phase >= PhaseRolesAssigned {
		return nil
	}
	if g.phase == PhaseLobby && !g.LobbyReady() {
		return ErrNotReady
	}

	g.log.Info("Game starting..")
	if err := g.AssignRolesAndCharacters(); err != nil {
		return err
	}
	g.deck = NewDeckWithRand(g.rng)

	for _, p := range g.Players() {
		p.CurrentTurn = false
	}
	joined := g.joined()
	joined[0].CurrentTurn = true
	g.phase = PhaseRolesAssigned

	g.log.Info("Game started.")
	g.record(uuid.Nil, EventGameStarted, map[string]interface{}{"players": len(joined)})
	return nil
}

// AssignRolesAndCharacters shuffles the prepared roles and the character
// catalog and pops one of each per player in join order. It runs at most once
// per session.
func (g *Game) AssignRolesAndCharacters() error {
	if g.roleAssignmentDone {
		return nil
	}
	joined := g.joined()
	if len(g.roles) != len(joined) {
		if err := g.PrepareRoles(); err != nil {
			return err
		}
	}
	if len(g.characters) < len(joined) {
		return fmt.Errorf("%w: only %d characters left", ErrInvalidPlayerCount, len(g.characters))
	}

	g.rng.Shuffle(len(g.roles), func(i, j int) { g.roles[i], g.roles[j] = g.roles[j], g.roles[i] })
	g.rng.Shuffle(len(g.characters), func(i, j int) {
		g.characters[i], g.characters[j] = g.characters[j], g.characters[i]
	})

	for _, p := range joined {
		id := p.ID
		p.AssignCharacter(g.characters[len(g.characters)-1])
		g.characters = g.characters[:len(g.characters)-1]
		p.AssignRole(g.roles[len(g.roles)-1])
		g.roles = g.roles[:len(g.roles)-1]

		g.log.WithField("peer", id).Infof("%s is now known as %s, playing the %s.", p, p.Character, p.Role)
		g.record(id, EventRoleAssigned, map[string]interface{}{
			"role":      string(p.Role),
			"character": string(p.Character),
		})
	}

	g.roleAssignmentDone = true
	return nil
}

// SetMaxHealth records the starting health a client computed for its player.
func (g *Game) SetMaxHealth(id models.PeerID, maxHealth int) error {
	p, ok := g.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if maxHealth <= 0 {
		return ErrInvalidHealth
	}
	p.SetMaxHealth(maxHealth)
	g.record(id, EventMaxHealthSet, map[string]interface{}{"maxHealth": maxHealth})
	return nil
}

// DealCardsAtStart tops up every hand that is below its player's MaxHealth,
// one card per player per pass, for a fixed dealRounds passes. Repeated calls
// only fill hands that are still short. It returns the number of cards dealt.
func (g *Game) DealCardsAtStart() (int, error) {
	if g.phase < PhaseRolesAssigned {
		return 0, ErrNotStarted
	}
	before := g.deck.Reshuffles()

	dealt := 0
	for round := 0; round < dealRounds; round++ {
		for _, p := range g.joined() {
			if p.CardsInHand() >= p.MaxHealth {
				continue
			}
			p.Hand = append(p.Hand, g.deck.Draw())
			dealt++
		}
	}

	g.phase = PhaseActive
	g.noteReshuffle(before)
	if dealt > 0 {
		g.record(uuid.Nil, EventCardsDealt, map[string]interface{}{"cards": dealt})
	}
	return dealt, nil
}

// DrawCard moves the top card of the deck into id's hand.
func (g *Game) DrawCard(id models.PeerID) (models.Card, error) {
	p, ok := g.players[id]
	if !ok {
		return "", ErrUnknownPlayer
	}
	if g.phase < PhaseRolesAssigned {
		return "", ErrNotStarted
	}
	before := g.deck.Reshuffles()
	card := g.deck.Draw()
	p.Hand = append(p.Hand, card)
	g.noteReshuffle(before)

	g.log.WithField("peer", id).Debugf("%s drew a %s.", p, card)
	g.record(id, EventCardDrawn, map[string]interface{}{"card": string(card), "remaining": g.deck.Remaining()})
	return card, nil
}

// Discard moves one copy of card from id's hand onto the discard pile.
func (g *Game) Discard(id models.PeerID, card models.Card) error {
	p, ok := g.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if !p.RemoveFromHand(card) {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, card)
	}
	g.discard.Push(card)
	g.record(id, EventCardDiscarded, map[string]interface{}{"card": string(card)})
	return nil
}

func (g *Game) noteReshuffle(before int) {
	if n := g.deck.Reshuffles() - before; n > 0 {
		g.log.Infof("Deck exhausted; reshuffled a new catalog (%d time(s)).", n)
		g.record(uuid.Nil, EventDeckReshuffled, map[string]interface{}{"remaining": g.deck.Remaining()})
	}
}

// NextTurn passes the turn from the current player to the next one in join
// order, wrapping around, and returns the new current player.
func (g *Game) NextTurn() (*models.Player, error) {
	if g.phase < PhaseRolesAssigned {
		return nil, ErrNotStarted
	}
	idx := -1
	for i, id := range g.order {
		if g.players[id].CurrentTurn {
			idx = i
			break
		}
	}
	if idx < 0 {
		g.log.Warn("No player holds the turn.")
		return nil, ErrNoCurrentTurn
	}

	current := g.players[g.order[idx]]
	current.CurrentTurn = false
	next, _ := g.joinedFrom(idx + 1)
	if next == nil {
		next = current
	}
	next.CurrentTurn = true

	g.log.Infof("It's now %s's turn.", next)
	g.record(next.ID, EventTurnAdvanced, map[string]interface{}{"from": current.Username, "to": next.Username})
	return next, nil
}

// CurrentPlayer returns the player holding the turn.
func (g *Game) CurrentPlayer() (*models.Player, bool) {
	for _, id := range g.order {
		if p := g.players[id]; p.CurrentTurn {
			return p, true
		}
	}
	return nil, false
}

// Restart wipes the roster, characters, discard pile and role bookkeeping and
// puts the session back in the lobby with a fresh deck. Used once the last
// player has left.
func (g *Game) Restart() {
	g.log.Info("Game restarting..")
	g.reset()
	g.record(uuid.Nil, EventSessionRestarted, nil)
}

// FindPlayerByID looks up a roster entry by connection id.
func (g *Game) FindPlayerByID(id models.PeerID) (*models.Player, bool) {
	p, ok := g.players[id]
	return p, ok
}

func (g *Game) FindPlayerByName(username string) (*models.Player, bool) {
	for _, id := range g.order {
		if p := g.players[id]; p.Joined && p.Username == username {
			return p, true
		}
	}
	return nil, false
}

func (g *Game) FindPlayerByRole(role models.Role) (*models.Player, bool) {
	for _, id := range g.order {
		if p := g.players[id]; p.Role == role {
			return p, true
		}
	}
	return nil, false
}

func (g *Game) FindPlayerByCharacter(character models.Character) (*models.Player, bool) {
	for _, id := range g.order {
		if p := g.players[id]; p.Character == character {
			return p, true
		}
	}
	return nil, false
}

// PlayerIsOnline reports whether id has a roster entry.
func (g *Game) PlayerIsOnline(id models.PeerID) bool {
	_, ok := g.players[id]
	return ok
}

// PlayersOnline returns the roster length, joined or not.
func (g *Game) PlayersOnline() int {
	return len(g.order)
}

// Players returns the roster in join order.
func (g *Game) Players() []*models.Player {
	out := make([]*models.Player, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.players[id])
	}
	return out
}

// PlayerListToArray returns the usernames of joined players in join order.
func (g *Game) PlayerListToArray() []string {
	names := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if p := g.players[id]; p.Joined {
			names = append(names, p.Username)
		}
	}
	return names
}

// JoinedCount returns how many players have completed the join handshake.
func (g *Game) JoinedCount() int {
	return len(g.joined())
}

// joined returns the players that completed the join handshake, in join order.
func (g *Game) joined() []*models.Player {
	out := make([]*models.Player, 0, len(g.order))
	for _, id := range g.order {
		if p := g.players[id]; p.Joined {
			out = append(out, p)
		}
	}
	return out
}

// joinedFrom returns the first joined player at or after order index start,
// wrapping around.
func (g *Game) joinedFrom(start int) (*models.Player, bool) {
	n := len(g.order)
	for i := 0; i < n; i++ {
		if p := g.players[g.order[(start+i)%n]]; p.Joined {
			return p, true
		}
	}
	return nil, false
}

func (g *Game) indexOf(id models.PeerID) int {
	for i, other := range g.order {
		if other == id {
			return i
		}
	}
	return -1
}
