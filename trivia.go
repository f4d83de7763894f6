// Jeopardyss Trivia Session Server
//
// One authoritative trivia/buzzer match per process. A host screen, a
// scoreboard, and N player buzzers all connect over websockets; the hub
// serializes every inbound event through the session store, so "first
// buzz wins" is decided by arrival order at a single writer rather than
// by client clocks.
//
// Features:
// - WebSocket endpoint at /trivia/ws; players identified by cookie (playerID)
// - Full GameState snapshot on connect, full-state broadcast after every
//   accepted mutation
// - Buzzer arbitration: Idle -> Armed -> Locked -> Idle, at most one winner
//   per armed window
// - Daily-double wagers clamped to [200, max(score, 1000)] in steps of 200
// - Incorrect-guess exhaustion auto-closes a clue once every named player
//   has missed it
// - Disconnecting lock holders release the buzz lock instead of stalling
//   the match; idle players are dropped after a configurable timeout
// - Optional buzzer window expiry via --buzzer-timeout
// - In-browser QR button to share the session, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// GameStateMessage carries the full post-mutation snapshot to every client.
type GameStateMessage struct {
	Type string     `json:"type"` // "game_state"
	Game *GameState `json:"game"`
}

// SessionErrorMessage is sent only to the client whose event was rejected.
type SessionErrorMessage struct {
	Type    string `json:"type"` // "session_error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type inboundEvent struct {
	client *Client
	msg    ClientMessage
}

// Hub owns the session store and the set of connected clients. Everything
// that touches either runs on the single run() goroutine; the channels
// below are the only way in.
type Hub struct {
	cfg     *Config
	session *sessionStore
	clock   clockwork.Clock

	clients  map[*Client]bool
	register chan *Client
	unreg    chan *Client
	events   chan inboundEvent
	expiries chan uint64
	removals chan string

	// armGen counts transitions of the buzzer window in and out of its
	// armed state. A pending expiry only fires while the window it was
	// started for is still the current one; mutations that leave the
	// window armed do not disturb it.
	armGen uint64
	armed  bool
}

func newHub(cfg *Config, board []GameBoard, clock clockwork.Clock) *Hub {
	return &Hub{
		cfg:      cfg,
		session:  newSession(board, clock),
		clock:    clock,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		events:   make(chan inboundEvent),
		expiries: make(chan uint64, 16),
		removals: make(chan string, 16),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true

			// Snapshot first, so a late joiner never sees a diff against
			// unknown prior state.
			c.send <- GameStateMessage{
				Type: "game_state",
				Game: h.session.Snapshot(),
			}

		case c := <-h.unreg:
			h.dropClient(c)

		case ev := <-h.events:
			h.handleEvent(ev)

		case gen := <-h.expiries:
			if gen != h.armGen {
				continue
			}
			if snapshot, ok := h.session.ExpireBuzzerWindow(); ok {
				logf(h.cfg, "GAMES: Buzzer window expired unanswered")
				h.noteArming(snapshot)
				h.broadcast(snapshot)
			}

		case playerID := <-h.removals:
			if h.connected(playerID) {
				continue
			}
			if snapshot, ok := h.session.RemovePlayer(playerID); ok {
				logf(h.cfg, "GAMES: Dropped idle player %q", playerID)
				h.noteArming(snapshot)
				h.broadcast(snapshot)
			}
		}
	}
}

func (h *Hub) handleEvent(ev inboundEvent) {
	snapshot, serr := h.session.Apply(ev.client.playerID, ev.msg)
	if serr != nil {
		if serr.silent() {
			return
		}

		logf(h.cfg, "GAMES: Rejected %q from %q: %s", ev.msg.Type, ev.client.playerID, serr.Message)

		select {
		case ev.client.send <- SessionErrorMessage{
			Type:    "session_error",
			Code:    serr.Kind,
			Message: serr.Message,
		}:
		default:
			h.dropClient(ev.client)
		}
		return
	}

	logf(h.cfg, "GAMES: Applied %q from %q", ev.msg.Type, ev.client.playerID)

	h.noteArming(snapshot)
	h.broadcast(snapshot)
}

// noteArming tracks the buzzer window across accepted mutations. Each
// transition into the armed state opens a fresh window and, when a timeout
// is configured, schedules its expiry; any transition out invalidates the
// pending one.
func (h *Hub) noteArming(snapshot *GameState) {
	if snapshot.IsBuzzerActive == h.armed {
		return
	}

	h.armed = snapshot.IsBuzzerActive
	h.armGen++

	if h.armed && h.cfg.buzzerTimeout > 0 {
		gen := h.armGen
		h.clock.AfterFunc(h.cfg.buzzerTimeout, func() {
			h.expiries <- gen
		})
	}
}

func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)

	if c.playerID == "" || h.connected(c.playerID) {
		return
	}

	// A departed lock holder must not stall the match.
	if snapshot, ok := h.session.ReleaseDisconnected(c.playerID); ok {
		logf(h.cfg, "GAMES: Released buzz lock held by departed player %q", c.playerID)
		h.noteArming(snapshot)
		h.broadcast(snapshot)
	}

	if h.cfg.playerTimeout > 0 {
		playerID := c.playerID
		h.clock.AfterFunc(h.cfg.playerTimeout, func() {
			h.removals <- playerID
		})
	}
}

// connected reports whether any open connection belongs to this playerID.
func (h *Hub) connected(playerID string) bool {
	for c := range h.clients {
		if c.playerID == playerID {
			return true
		}
	}
	return false
}

// broadcast pushes a message to every client, dropping any whose send
// buffer is full.
func (h *Hub) broadcast(snapshot *GameState) {
	msg := GameStateMessage{
		Type: "game_state",
		Game: snapshot,
	}

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "jeopardyss_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func serveWS(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		// Unknown event types still go through the session, which answers
		// them with a protocol violation.
		h.events <- inboundEvent{
			client: c,
			msg:    msg,
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at .../qr; strip the trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func serveTriviaPage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write([]byte(newPage("jeopardyss", "Point a game client at this server, or scan the QR at ./qr to join.")))
	}
}

// registerTriviaGame sets up routes so that:
//   - $path       → landing page (assigns the player cookie)
//   - $path/ws    → WebSocket for the match
//   - $path/qr    → PNG QR code for the game URL
func registerTriviaGame(cfg *Config, path string, board []GameBoard, clock clockwork.Clock, mux *httprouter.Router) *Hub {
	hub := newHub(cfg, board, clock)
	go hub.run()

	mux.GET(cfg.prefix+path, serveTriviaPage(cfg))

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, hub))

	mux.GET(cfg.prefix+path+"/qr", qrHandler)

	return hub
}
