// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/bang/internal/middleware"
	"github.com/jason-s-yu/bang/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "bang"

// PeerHandler consumes connection lifecycle and inbound commands. Gateway
// implements it.
type PeerHandler interface {
	Connect(peer models.PeerID) bool
	Disconnect(peer models.PeerID)
	Handle(peer models.PeerID, cmd Command)
}

// WSOptions configures admission and per-peer buffering.
type WSOptions struct {
	AdmissionKey string
	MaxPeers     int
	WriteTimeout time.Duration
	OutboxSize   int
	PingInterval time.Duration
}

// WSTransport carries the session protocol over websockets. Frames are JSON
// string arrays in text messages, ["PlayerJoin","Alice"] inbound and
// ["DATA","JOIN","ACK"] outbound. Each peer gets a buffered outbox drained by
// its own write pump, so SendTo and Broadcast never block.
type WSTransport struct {
	opts WSOptions
	log  logrus.FieldLogger

	mu    sync.RWMutex
	peers map[models.PeerID]*peerConn

	quit     chan struct{}
	quitOnce sync.Once
}

// peerConn is one peer's outbound side.
type peerConn struct {
	id     models.PeerID
	remote string
	out    chan Message
	// done is closed once nothing will write to the socket again.
	done chan struct{}
}

// NewWSTransport returns a transport with defaults filled in for zero options.
func NewWSTransport(opts WSOptions, logger logrus.FieldLogger) *WSTransport {
	if opts.MaxPeers <= 0 {
		opts.MaxPeers = 12
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 32
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &WSTransport{
		opts:  opts,
		log:   logger,
		peers: make(map[models.PeerID]*peerConn),
		quit:  make(chan struct{}),
	}
}

// PeerCount returns the number of registered peers.
func (t *WSTransport) PeerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// SendTo queues msg for one peer. Unknown peers are ignored.
func (t *WSTransport) SendTo(peer models.PeerID, msg Message) {
	t.mu.RLock()
	pc, ok := t.peers[peer]
	t.mu.RUnlock()
	if ok {
		t.enqueue(pc, msg)
	}
}

// Broadcast queues msg for every registered peer.
func (t *WSTransport) Broadcast(msg Message) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, pc := range t.peers {
		t.enqueue(pc, msg)
	}
}

func (t *WSTransport) enqueue(pc *peerConn, msg Message) {
	select {
	case pc.out <- msg:
	default:
		t.log.WithField("peer", pc.id).Warnf("Outbox full. Dropped message %s.", msg.Topic)
	}
}

// register reserves a slot for pc, failing when the server is full.
func (t *WSTransport) register(pc *peerConn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.peers) >= t.opts.MaxPeers {
		return false
	}
	t.peers[pc.id] = pc
	return true
}

func (t *WSTransport) unregister(id models.PeerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
}

// abandon releases a slot for a peer whose write pump never started.
func (t *WSTransport) abandon(pc *peerConn) {
	t.unregister(pc.id)
	close(pc.done)
}

// Handler returns the HTTP handler that admits, upgrades and serves peers,
// feeding their lifecycle and commands to h.
func (t *WSTransport) Handler(h PeerHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !keyMatches(extractAdmissionKey(r), t.opts.AdmissionKey) {
			t.log.WithField("remote", r.RemoteAddr).Warn("Rejected connection with bad admission key.")
			http.Error(w, "invalid admission key", http.StatusForbidden)
			return
		}
		select {
		case <-t.quit:
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		default:
		}

		pc := &peerConn{
			id:     uuid.New(),
			remote: r.RemoteAddr,
			out:    make(chan Message, t.opts.OutboxSize),
			done:   make(chan struct{}),
		}
		if !t.register(pc) {
			t.log.WithField("remote", r.RemoteAddr).Warn("Rejected connection; server full.")
			http.Error(w, "server full", http.StatusServiceUnavailable)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			t.log.Warnf("WebSocket accept error: %v", err)
			t.abandon(pc)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			t.abandon(pc)
			c.Close(BadSubprotocolError, "client must speak the bang subprotocol")
			return
		}

		if !h.Connect(pc.id) {
			t.abandon(pc)
			c.Close(DuplicatePeerError, "duplicate peer")
			return
		}
		middleware.LogWebSocketConnect(t.log, pc.remote, r.URL.Path, pc.id)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go t.writePump(ctx, c, pc)
		err = t.readPump(ctx, c, pc, h)

		// Stop routing messages to the peer before the session announces the departure.
		t.unregister(pc.id)
		h.Disconnect(pc.id)
		cancel()
		<-pc.done

		middleware.LogWebSocketDisconnect(t.log, pc.remote, r.URL.Path, pc.id, err)
	})
}

// readPump decodes inbound frames and hands them to h until the connection
// fails or ctx ends. A clean close returns nil.
func (t *WSTransport) readPump(ctx context.Context, c *websocket.Conn, pc *peerConn, h PeerHandler) error {
	logger := t.log.WithField("peer", pc.id)
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || status == ServerQuitCode {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			logger.Warnf("Read error: %v (CloseStatus: %d)", err, status)
			return err
		}

		if typ != websocket.MessageText {
			logger.Warnf("Received non-text message type %d. Ignoring.", typ)
			continue
		}

		var frame []string
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warnf("Invalid frame: %v", err)
			t.enqueue(pc, NewMessage(TypeInfo, TopicError, "Invalid message"))
			continue
		}
		h.Handle(pc.id, DecodeCommand(frame))
	}
}

// writePump drains the peer's outbox onto the socket and keeps it alive with
// pings. On shutdown it flushes whatever is queued, then closes the socket.
func (t *WSTransport) writePump(ctx context.Context, c *websocket.Conn, pc *peerConn) {
	defer close(pc.done)
	logger := t.log.WithField("peer", pc.id)

	ticker := time.NewTicker(t.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.quit:
			t.flush(c, pc)
			c.Close(ServerQuitCode, "server quitting")
			return
		case msg := <-pc.out:
			if err := t.write(ctx, c, msg); err != nil {
				logger.Warnf("Failed to write to websocket: %v", err)
				c.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Failed to send ping: %v. Assuming disconnect.", err)
				c.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}

// flush writes everything still queued for pc, ignoring the request context.
func (t *WSTransport) flush(c *websocket.Conn, pc *peerConn) {
	for {
		select {
		case msg := <-pc.out:
			if err := t.write(context.Background(), c, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (t *WSTransport) write(ctx context.Context, c *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg.Frame())
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, t.opts.WriteTimeout)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}

// Shutdown stops admitting peers, lets every write pump flush its outbox and
// close its socket, and waits for them until ctx ends.
func (t *WSTransport) Shutdown(ctx context.Context) error {
	t.quitOnce.Do(func() { close(t.quit) })

	t.mu.RLock()
	peers := make([]*peerConn, 0, len(t.peers))
	for _, pc := range t.peers {
		peers = append(peers, pc)
	}
	t.mu.RUnlock()

	var g errgroup.Group
	for _, pc := range peers {
		g.Go(func() error {
			select {
			case <-pc.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}
