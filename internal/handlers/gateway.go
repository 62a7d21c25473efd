// internal/handlers/gateway.go
package handlers

import (
	"errors"
	"strconv"
	"sync"

	"github.com/jason-s-yu/bang/internal/game"
	"github.com/jason-s-yu/bang/internal/models"
	"github.com/sirupsen/logrus"
)

// Transport delivers outbound messages. Both methods must return without
// waiting on network I/O; the gateway calls them while holding its lock.
type Transport interface {
	SendTo(peer models.PeerID, msg Message)
	Broadcast(msg Message)
}

// handler runs one command for a resolved peer. The gateway lock is held.
type handler func(gw *Gateway, peer *models.Player, cmd Command)

type route struct {
	fn handler
	// readOnly routes take the shared lock and must not mutate the session.
	readOnly bool
}

// Gateway sits between the transport and the session. It owns the only
// reference to the Game and serializes every mutation behind mu; read-only
// commands share the lock with each other.
type Gateway struct {
	mu     sync.RWMutex
	game   *game.Game
	out    Transport
	log    logrus.FieldLogger
	routes map[CommandKind]route
}

// NewGateway wires a session to a transport.
func NewGateway(g *game.Game, out Transport, logger logrus.FieldLogger) *Gateway {
	gw := &Gateway{
		game: g,
		out:  out,
		log:  logger.WithField("session", g.ID),
	}
	gw.routes = map[CommandKind]route{
		CmdSendPlayerList: {fn: (*Gateway).broadcastPlayerList, readOnly: true},
		CmdLobbyReady:     {fn: (*Gateway).readyPlayerAndBroadcast},
		CmdGameStarted:    {fn: (*Gateway).startAndSendRoles},
		CmdSetMaxHealth:   {fn: (*Gateway).dealAndSendHand},
		CmdDrawCard:       {fn: (*Gateway).dealCardToPlayer},
		CmdNextTurn:       {fn: (*Gateway).nextTurn},
	}
	return gw
}

func (gw *Gateway) sendTo(peer models.PeerID, typ MessageType, topic Topic, data ...string) {
	gw.out.SendTo(peer, NewMessage(typ, topic, data...))
}

func (gw *Gateway) broadcast(typ MessageType, topic Topic, data ...string) {
	gw.out.Broadcast(NewMessage(typ, topic, data...))
}

func (gw *Gateway) sendError(peer models.PeerID, text string) {
	gw.sendTo(peer, TypeInfo, TopicError, text)
}

// Connect registers a newly accepted peer. It returns false if the id is
// already on the roster.
func (gw *Gateway) Connect(peer models.PeerID) bool {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.game.AddPlayer(peer)
}

// Disconnect removes a peer, tells everyone if they had joined, and restarts
// the session once nobody is left. A game whose last joined player leaves is
// also restarted; connections still waiting to join keep their roster entry.
func (gw *Gateway) Disconnect(peer models.PeerID) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	p, ok := gw.game.RemovePlayer(peer)
	if ok && p.Joined {
		gw.broadcast(TypeData, TopicPlayerDC, p.Username)
	}

	if gw.game.PlayersOnline() <= 0 {
		gw.game.Restart()
		return
	}
	if gw.game.JoinedCount() == 0 && gw.game.Phase() != game.PhaseLobby {
		waiting := gw.game.Players()
		gw.game.Restart()
		for _, w := range waiting {
			gw.game.AddPlayer(w.ID)
		}
	}
}

// Shutdown tells every peer the server is going away.
func (gw *Gateway) Shutdown() {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	gw.broadcast(TypeInfo, TopicServerQuit)
}

// View runs fn with shared access to the session. fn must not mutate it.
func (gw *Gateway) View(fn func(g *game.Game)) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	fn(gw.game)
}

// Handle runs one inbound command from peer.
func (gw *Gateway) Handle(peer models.PeerID, cmd Command) {
	logger := gw.log.WithFields(logrus.Fields{"peer": peer, "command": cmd.Name})

	if cmd.Kind == CmdPlayerJoin {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		gw.finishPlayerJoin(peer, cmd)
		return
	}

	r, ok := gw.routes[cmd.Kind]
	if !ok {
		logger.Warn("Unknown command.")
		gw.sendError(peer, "Unknown Command")
		return
	}

	if r.readOnly {
		gw.mu.RLock()
		defer gw.mu.RUnlock()
	} else {
		gw.mu.Lock()
		defer gw.mu.Unlock()
	}

	p, found := gw.game.FindPlayerByID(peer)
	if !found || !p.Joined {
		logger.Warn("Command before join.")
		gw.sendError(peer, "Join required")
		return
	}
	logger.Debug("Handling command.")
	r.fn(gw, p, cmd)
}

// finishPlayerJoin attaches the username, ACKs, sends the roster to the new
// player and announces them to everyone else.
func (gw *Gateway) finishPlayerJoin(peer models.PeerID, cmd Command) {
	p, err := gw.game.Join(peer, cmd.Arg(0))
	if err != nil {
		gw.log.WithField("peer", peer).WithError(err).Warn("Join rejected.")
		gw.sendTo(peer, TypeData, TopicJoin, JoinRejected)
		return
	}
	gw.sendTo(peer, TypeData, TopicJoin, JoinAccepted)
	gw.sendTo(peer, TypeData, TopicPlayerList, gw.game.PlayerListToArray()...)
	gw.broadcast(TypeData, TopicPlayerJoined, p.Username)
}

func (gw *Gateway) broadcastPlayerList(_ *models.Player, _ Command) {
	gw.broadcast(TypeData, TopicPlayerList, gw.game.PlayerListToArray()...)
}

func (gw *Gateway) readyPlayerAndBroadcast(p *models.Player, cmd Command) {
	var ready bool
	var state string
	switch cmd.Arg(0) {
	case ArgReady:
		ready, state = true, "READY"
	case ArgUnready:
		ready, state = false, "UNREADY"
	default:
		gw.sendError(p.ID, "Invalid ready state")
		return
	}

	if _, err := gw.game.SetReady(p.ID, ready); err != nil {
		gw.sendError(p.ID, err.Error())
		return
	}
	gw.broadcast(TypeData, TopicLobbyReady, state, p.Username)

	if !gw.game.LobbyReady() {
		gw.log.Debug("Lobby isn't ready.")
		return
	}
	if err := gw.game.PrepareRoles(); err != nil {
		gw.broadcast(TypeInfo, TopicError, err.Error())
		return
	}
	gw.log.Info("Lobby is ready.")
	gw.broadcast(TypeData, TopicGameStart)
}

// startAndSendRoles starts the game (once) and tells the sender their own
// role, who the Sheriff is and every player's character.
func (gw *Gateway) startAndSendRoles(p *models.Player, _ Command) {
	if err := gw.game.Start(); err != nil {
		gw.sendError(p.ID, err.Error())
		return
	}

	gw.sendTo(p.ID, TypeData, TopicRoleInfo, p.Username, string(p.Role))
	if sheriff, ok := gw.game.FindPlayerByRole(models.RoleSheriff); ok {
		gw.sendTo(p.ID, TypeData, TopicRoleInfo, sheriff.Username, string(sheriff.Role))
	}
	for _, other := range gw.game.Players() {
		if !other.Joined {
			continue
		}
		gw.sendTo(p.ID, TypeData, TopicCharacterInfo, other.Username, string(other.Character))
	}
	gw.sendTo(p.ID, TypeData, TopicAllSent)
}

func (gw *Gateway) dealAndSendHand(p *models.Player, cmd Command) {
	if gw.game.Phase() < game.PhaseRolesAssigned {
		gw.sendError(p.ID, game.ErrNotStarted.Error())
		return
	}
	maxHealth, err := strconv.Atoi(cmd.Arg(0))
	if err != nil {
		gw.sendError(p.ID, "Invalid max health")
		return
	}
	if err := gw.game.SetMaxHealth(p.ID, maxHealth); err != nil {
		gw.sendError(p.ID, err.Error())
		return
	}
	if _, err := gw.game.DealCardsAtStart(); err != nil {
		gw.sendError(p.ID, err.Error())
		return
	}
	gw.sendTo(p.ID, TypeData, TopicReceiveHandCards, models.CardStrings(p.Hand)...)
	gw.log.WithField("peer", p.ID).Infof("Sent cards to %s", p.Username)
}

func (gw *Gateway) dealCardToPlayer(p *models.Player, _ Command) {
	card, err := gw.game.DrawCard(p.ID)
	if err != nil {
		gw.sendError(p.ID, err.Error())
		return
	}
	gw.sendTo(p.ID, TypeData, TopicCard, string(card))
}

// nextTurn is only honored from the player holding the turn, so a repeated
// or stale NextTurn cannot advance twice.
func (gw *Gateway) nextTurn(p *models.Player, _ Command) {
	if !p.CurrentTurn {
		if _, ok := gw.game.CurrentPlayer(); ok {
			gw.sendError(p.ID, "Not your turn")
			return
		}
	}
	next, err := gw.game.NextTurn()
	if err != nil {
		if errors.Is(err, game.ErrNoCurrentTurn) {
			gw.log.WithError(err).Error("Turn state lost.")
		}
		gw.sendError(p.ID, err.Error())
		return
	}
	gw.broadcast(TypeData, TopicNextTurn, next.Username)
}
