// internal/game/game_test.go
package game

import (
	"io"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bang/internal/cache"
	"github.com/jason-s-yu/bang/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRecorder collects session event records instead of publishing them.
type mockRecorder struct {
	mu      sync.Mutex
	records []cache.SessionEventRecord
}

func (mr *mockRecorder) Record(rec cache.SessionEventRecord) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.records = append(mr.records, rec)
}

func (mr *mockRecorder) types() []string {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	out := make([]string, len(mr.records))
	for i, r := range mr.records {
		out[i] = r.EventType
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// setupTestGame builds a seeded game with the given usernames connected and joined.
func setupTestGame(t *testing.T, debugRoles bool, names ...string) (*Game, []models.PeerID, *mockRecorder) {
	t.Helper()
	rec := &mockRecorder{}
	g := NewGame(Options{
		AllowDebugRoles: debugRoles,
		Rand:            rand.New(rand.NewSource(1)),
		Recorder:        rec,
		Logger:          quietLogger(),
	})

	ids := make([]models.PeerID, len(names))
	for i, name := range names {
		ids[i] = uuid.New()
		require.True(t, g.AddPlayer(ids[i]))
		_, err := g.Join(ids[i], name)
		require.NoError(t, err)
	}
	return g, ids, rec
}

// startTestGame readies every player and starts the game.
func startTestGame(t *testing.T, g *Game, ids []models.PeerID) {
	t.Helper()
	for _, id := range ids {
		_, err := g.SetReady(id, true)
		require.NoError(t, err)
	}
	require.True(t, g.LobbyReady())
	require.NoError(t, g.PrepareRoles())
	require.NoError(t, g.Start())
}

func currentTurnCount(g *Game) int {
	n := 0
	for _, p := range g.Players() {
		if p.CurrentTurn {
			n++
		}
	}
	return n
}

func TestAddAndRemovePlayer(t *testing.T) {
	g, _, _ := setupTestGame(t, false)
	id := uuid.New()

	assert.True(t, g.AddPlayer(id))
	assert.False(t, g.AddPlayer(id), "duplicate id must be rejected")
	assert.Equal(t, 1, g.PlayersOnline())
	assert.True(t, g.PlayerIsOnline(id))

	p, ok := g.RemovePlayer(id)
	require.True(t, ok)
	assert.Equal(t, id, p.ID)
	assert.False(t, g.PlayerIsOnline(id))

	_, ok = g.RemovePlayer(id)
	assert.False(t, ok)
	assert.Equal(t, 0, g.PlayersOnline())
}

func TestJoinRules(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice")

	_, err := g.Join(uuid.New(), "Ghost")
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, err = g.Join(ids[0], "Alice2")
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	bob := uuid.New()
	require.True(t, g.AddPlayer(bob))
	_, err = g.Join(bob, "   ")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = g.Join(bob, "Alice")
	assert.ErrorIs(t, err, ErrNameTaken)

	p, err := g.Join(bob, " Bob ")
	require.NoError(t, err)
	assert.Equal(t, "Bob", p.Username)
	assert.True(t, p.Joined)
}

func TestPlayerListOnlyIncludesJoined(t *testing.T) {
	g, _, _ := setupTestGame(t, false, "Alice", "Bob")
	require.True(t, g.AddPlayer(uuid.New()))

	assert.Equal(t, 3, g.PlayersOnline())
	assert.Equal(t, []string{"Alice", "Bob"}, g.PlayerListToArray())
}

func TestLobbyReadyPredicate(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice")
	_, err := g.SetReady(ids[0], true)
	require.NoError(t, err)
	assert.False(t, g.LobbyReady(), "a lone ready player is below the minimum")

	bob := uuid.New()
	require.True(t, g.AddPlayer(bob))
	_, err = g.Join(bob, "Bob")
	require.NoError(t, err)
	assert.False(t, g.LobbyReady())

	_, err = g.SetReady(bob, true)
	require.NoError(t, err)
	assert.True(t, g.LobbyReady())

	_, err = g.SetReady(ids[0], false)
	require.NoError(t, err)
	assert.False(t, g.LobbyReady())

	_, err = g.SetReady(uuid.New(), true)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestStartRequiresReadyLobby(t *testing.T) {
	g, _, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")

	assert.ErrorIs(t, g.Start(), ErrNotReady)
	assert.Equal(t, PhaseLobby, g.Phase())
	assert.False(t, g.RoleAssignmentDone())
	assert.Equal(t, 0, currentTurnCount(g))
}

func TestStartRejectsSmallRosterWithoutDebugRoles(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob")
	for _, id := range ids {
		_, err := g.SetReady(id, true)
		require.NoError(t, err)
	}
	require.True(t, g.LobbyReady())

	assert.ErrorIs(t, g.PrepareRoles(), ErrInvalidPlayerCount)
	assert.ErrorIs(t, g.Start(), ErrInvalidPlayerCount)
	assert.Equal(t, PhaseLobby, g.Phase())
}

func TestStartAssignsRolesAndCharacters(t *testing.T) {
	g, ids, rec := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)

	assert.Equal(t, PhaseRolesAssigned, g.Phase())
	assert.True(t, g.RoleAssignmentDone())

	roles := make([]models.Role, 0, len(ids))
	chars := make(map[models.Character]bool)
	for _, p := range g.Players() {
		roles = append(roles, p.Role)
		require.NotEmpty(t, p.Character)
		assert.False(t, chars[p.Character], "character %q assigned twice", p.Character)
		chars[p.Character] = true
	}
	assert.Equal(t, map[models.Role]int{
		models.RoleSheriff:  1,
		models.RoleOutlaw:   2,
		models.RoleRenegade: 1,
	}, countRoles(roles))

	sheriff, ok := g.FindPlayerByRole(models.RoleSheriff)
	require.True(t, ok)
	byChar, ok := g.FindPlayerByCharacter(sheriff.Character)
	require.True(t, ok)
	assert.Equal(t, sheriff.ID, byChar.ID)

	first, ok := g.CurrentPlayer()
	require.True(t, ok)
	assert.Equal(t, ids[0], first.ID, "the first player to join opens the game")
	assert.Equal(t, 1, currentTurnCount(g))
	assert.Equal(t, CatalogSize, g.Deck().Remaining())
	assert.Contains(t, rec.types(), string(EventGameStarted))
}

func TestStartIsIdempotent(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)

	before := make(map[models.PeerID]models.Role)
	for _, p := range g.Players() {
		before[p.ID] = p.Role
	}
	_, err := g.NextTurn()
	require.NoError(t, err)
	deck := g.Deck()

	require.NoError(t, g.Start())
	require.NoError(t, g.AssignRolesAndCharacters())

	for _, p := range g.Players() {
		assert.Equal(t, before[p.ID], p.Role)
	}
	assert.Same(t, deck, g.Deck(), "a second start must not replace the deck")
	cur, _ := g.CurrentPlayer()
	assert.Equal(t, ids[1], cur.ID, "a second start must not reset the turn")
}

func TestJoinAndReadyClosedAfterStart(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)

	late := uuid.New()
	require.True(t, g.AddPlayer(late))
	_, err := g.Join(late, "Eve")
	assert.ErrorIs(t, err, ErrGameInProgress)

	_, err = g.SetReady(ids[0], false)
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestNextTurnCyclesThroughJoinOrder(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave", "Eve")
	startTestGame(t, g, ids)

	for i := 1; i <= len(ids); i++ {
		next, err := g.NextTurn()
		require.NoError(t, err)
		assert.Equal(t, ids[i%len(ids)], next.ID)
		assert.Equal(t, 1, currentTurnCount(g))
	}
	cur, _ := g.CurrentPlayer()
	assert.Equal(t, ids[0], cur.ID, "n turns return to the first player")
}

func TestNextTurnBeforeStart(t *testing.T) {
	g, _, _ := setupTestGame(t, false, "Alice", "Bob")
	_, err := g.NextTurn()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestRemovingCurrentPlayerPassesTurn(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)

	_, ok := g.RemovePlayer(ids[0])
	require.True(t, ok)
	cur, ok := g.CurrentPlayer()
	require.True(t, ok)
	assert.Equal(t, ids[1], cur.ID)
	assert.Equal(t, 1, currentTurnCount(g))

	// Last in order holds the turn: it wraps to the front.
	_, err := g.NextTurn()
	require.NoError(t, err)
	_, err = g.NextTurn()
	require.NoError(t, err)
	cur, _ = g.CurrentPlayer()
	require.Equal(t, ids[3], cur.ID)

	_, ok = g.RemovePlayer(ids[3])
	require.True(t, ok)
	cur, ok = g.CurrentPlayer()
	require.True(t, ok)
	assert.Equal(t, ids[1], cur.ID)

	next, err := g.NextTurn()
	require.NoError(t, err)
	assert.Equal(t, ids[2], next.ID)
}

func TestRemovingOtherPlayerKeepsTurn(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)

	_, ok := g.RemovePlayer(ids[2])
	require.True(t, ok)
	cur, _ := g.CurrentPlayer()
	assert.Equal(t, ids[0], cur.ID)

	next, err := g.NextTurn()
	require.NoError(t, err)
	assert.Equal(t, ids[1], next.ID)
	next, err = g.NextTurn()
	require.NoError(t, err)
	assert.Equal(t, ids[3], next.ID)
}

func TestSetMaxHealth(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice")

	assert.ErrorIs(t, g.SetMaxHealth(uuid.New(), 4), ErrUnknownPlayer)
	assert.ErrorIs(t, g.SetMaxHealth(ids[0], 0), ErrInvalidHealth)

	require.NoError(t, g.SetMaxHealth(ids[0], 5))
	p, _ := g.FindPlayerByID(ids[0])
	assert.Equal(t, 5, p.MaxHealth)
	assert.Equal(t, 5, p.Health)
}

func TestDealCardsAtStart(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")

	_, err := g.DealCardsAtStart()
	assert.ErrorIs(t, err, ErrNotStarted)

	startTestGame(t, g, ids)
	require.NoError(t, g.SetMaxHealth(ids[0], 4))
	require.NoError(t, g.SetMaxHealth(ids[1], 5))

	dealt, err := g.DealCardsAtStart()
	require.NoError(t, err)
	assert.Equal(t, 9, dealt)
	assert.Equal(t, PhaseActive, g.Phase())

	hands := map[models.PeerID]int{}
	for _, p := range g.Players() {
		hands[p.ID] = p.CardsInHand()
	}
	assert.Equal(t, 4, hands[ids[0]])
	assert.Equal(t, 5, hands[ids[1]])
	assert.Equal(t, 0, hands[ids[2]], "players without max health get nothing yet")
	assert.Equal(t, CatalogSize-9, g.Deck().Remaining())

	// Full hands are skipped on later deals.
	require.NoError(t, g.SetMaxHealth(ids[2], 3))
	dealt, err = g.DealCardsAtStart()
	require.NoError(t, err)
	assert.Equal(t, 3, dealt)
}

func TestDealCardsAtStartStopsAfterTenRounds(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)
	require.NoError(t, g.SetMaxHealth(ids[0], 25))

	dealt, err := g.DealCardsAtStart()
	require.NoError(t, err)
	assert.Equal(t, dealRounds, dealt)
	p, _ := g.FindPlayerByID(ids[0])
	assert.Equal(t, dealRounds, p.CardsInHand())
}

func TestDrawCardAddsToHand(t *testing.T) {
	g, ids, rec := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")

	_, err := g.DrawCard(ids[0])
	assert.ErrorIs(t, err, ErrNotStarted)

	startTestGame(t, g, ids)
	_, err = g.DrawCard(uuid.New())
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	before := g.Deck().Remaining()
	card, err := g.DrawCard(ids[1])
	require.NoError(t, err)
	assert.Equal(t, before-1, g.Deck().Remaining())

	p, _ := g.FindPlayerByID(ids[1])
	assert.Equal(t, []models.Card{card}, p.Hand)
	assert.Contains(t, rec.types(), string(EventCardDrawn))
}

func TestDrawCardReshufflesExhaustedDeck(t *testing.T) {
	g, ids, rec := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)
	g.Deck().DrawMultiple(CatalogSize)

	_, err := g.DrawCard(ids[0])
	require.NoError(t, err)
	assert.Equal(t, CatalogSize-1, g.Deck().Remaining())
	assert.Contains(t, rec.types(), string(EventDeckReshuffled))
}

func TestDiscardMovesCardToPile(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)

	card, err := g.DrawCard(ids[0])
	require.NoError(t, err)
	require.NoError(t, g.Discard(ids[0], card))

	p, _ := g.FindPlayerByID(ids[0])
	assert.Empty(t, p.Hand)
	top, ok := g.DiscardPile().Peek()
	require.True(t, ok)
	assert.Equal(t, card, top)

	assert.ErrorIs(t, g.Discard(ids[0], card), ErrCardNotInHand)
	assert.ErrorIs(t, g.Discard(uuid.New(), card), ErrUnknownPlayer)
}

func TestRestartResetsSession(t *testing.T) {
	g, ids, rec := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)
	card, err := g.DrawCard(ids[0])
	require.NoError(t, err)
	require.NoError(t, g.Discard(ids[0], card))

	for _, id := range ids {
		_, ok := g.RemovePlayer(id)
		require.True(t, ok)
	}
	g.Restart()

	assert.Equal(t, 0, g.PlayersOnline())
	assert.Equal(t, PhaseLobby, g.Phase())
	assert.False(t, g.RoleAssignmentDone())
	assert.Equal(t, 0, g.DiscardPile().Len())
	assert.Equal(t, CatalogSize, g.Deck().Remaining())
	assert.Len(t, g.characters, len(Characters()))
	assert.Contains(t, rec.types(), string(EventSessionRestarted))

	// The restarted session is playable again.
	fresh := make([]models.PeerID, 4)
	for i, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		fresh[i] = uuid.New()
		require.True(t, g.AddPlayer(fresh[i]))
		_, err := g.Join(fresh[i], name)
		require.NoError(t, err)
	}
	startTestGame(t, g, fresh)
	assert.Equal(t, 1, currentTurnCount(g))
}

func TestFindPlayerReturnsAbsentResult(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice")

	p, ok := g.FindPlayerByName("Alice")
	require.True(t, ok)
	assert.Equal(t, ids[0], p.ID)

	_, ok = g.FindPlayerByName("Bob")
	assert.False(t, ok)
	_, ok = g.FindPlayerByID(uuid.New())
	assert.False(t, ok)
	_, ok = g.FindPlayerByRole(models.RoleSheriff)
	assert.False(t, ok)
	_, ok = g.FindPlayerByCharacter("Lucky Duke")
	assert.False(t, ok)
}

func TestRecordedEventsAreIndexed(t *testing.T) {
	g, ids, rec := setupTestGame(t, true, "Alice", "Bob")
	startTestGame(t, g, ids)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.records)
	for i, r := range rec.records {
		assert.Equal(t, g.ID, r.SessionID)
		assert.Equal(t, i+1, r.Index)
		assert.NotZero(t, r.Timestamp)
	}
}

func TestSnapshotHidesPrivateState(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	startTestGame(t, g, ids)
	require.NoError(t, g.SetMaxHealth(ids[1], 3))
	_, err := g.DealCardsAtStart()
	require.NoError(t, err)

	snap := g.Snapshot(ids[1])
	assert.Equal(t, g.ID, snap.SessionID)
	assert.Equal(t, PhaseActive.String(), snap.Phase)
	require.Len(t, snap.Players, 4)

	bob := snap.Players[1]
	p, _ := g.FindPlayerByID(ids[1])
	assert.Equal(t, p.Role, bob.Role, "viewers see their own role")
	assert.Equal(t, p.Hand, bob.Hand)

	for i, ps := range snap.Players {
		if i == 1 {
			continue
		}
		assert.Empty(t, ps.Hand)
		other, _ := g.FindPlayerByID(ids[i])
		if other.Role == models.RoleSheriff {
			assert.Equal(t, models.RoleSheriff, ps.Role)
		} else {
			assert.Empty(t, ps.Role)
		}
	}
}

func TestStartKeepsDeckWhenRoleAssignmentFails(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob")
	for _, id := range ids {
		_, err := g.SetReady(id, true)
		require.NoError(t, err)
	}
	deck := g.Deck()
	deck.Draw()

	assert.ErrorIs(t, g.Start(), ErrInvalidPlayerCount)
	assert.Same(t, deck, g.Deck())
	assert.Equal(t, CatalogSize-1, g.Deck().Remaining())
}

func TestUnjoinedConnectionsAreIgnored(t *testing.T) {
	g, ids, _ := setupTestGame(t, false, "Alice", "Bob", "Carol", "Dave")
	lurker := uuid.New()
	require.True(t, g.AddPlayer(lurker))

	for _, id := range ids {
		_, err := g.SetReady(id, true)
		require.NoError(t, err)
	}
	assert.True(t, g.LobbyReady(), "a connection that never joined does not block the lobby")
	assert.Equal(t, 4, g.JoinedCount())

	require.NoError(t, g.PrepareRoles())
	assert.Equal(t, PhaseStarting, g.Phase())
	require.NoError(t, g.Start())

	lp, _ := g.FindPlayerByID(lurker)
	assert.Empty(t, lp.Role)
	assert.Empty(t, lp.Character)

	require.NoError(t, g.SetMaxHealth(ids[0], 3))
	require.NoError(t, g.SetMaxHealth(lurker, 3))
	dealt, err := g.DealCardsAtStart()
	require.NoError(t, err)
	assert.Equal(t, 3, dealt)
	assert.Equal(t, 0, lp.CardsInHand())

	for i := 0; i < 2*len(ids); i++ {
		next, err := g.NextTurn()
		require.NoError(t, err)
		assert.True(t, next.Joined)
		assert.False(t, lp.CurrentTurn)
	}
}

func TestLeavingWhileStartingReopensLobby(t *testing.T) {
	g, ids, _ := setupTestGame(t, true, "Alice", "Bob", "Carol")
	for _, id := range ids {
		_, err := g.SetReady(id, true)
		require.NoError(t, err)
	}
	require.NoError(t, g.PrepareRoles())
	require.Equal(t, PhaseStarting, g.Phase())

	late := uuid.New()
	require.True(t, g.AddPlayer(late))
	_, err := g.Join(late, "Eve")
	assert.ErrorIs(t, err, ErrGameInProgress)
	_, err = g.SetReady(ids[0], false)
	assert.ErrorIs(t, err, ErrGameInProgress)

	// A waiting connection leaving changes nothing.
	_, ok := g.RemovePlayer(late)
	require.True(t, ok)
	assert.Equal(t, PhaseStarting, g.Phase())

	_, ok = g.RemovePlayer(ids[2])
	require.True(t, ok)
	assert.Equal(t, PhaseLobby, g.Phase())

	require.NoError(t, g.Start())
	roles := make([]models.Role, 0, 2)
	for _, p := range g.Players() {
		roles = append(roles, p.Role)
	}
	assert.ElementsMatch(t, []models.Role{models.RoleSheriff, models.RoleOutlaw}, roles)
}
