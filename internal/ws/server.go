package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"stake-arena/internal/identity"
	"stake-arena/internal/ledger"
	"stake-arena/internal/match"
)

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

// Rooms is the part of the match registry a connection drives.
type Rooms interface {
	Dispatch(ctx context.Context, roomID string, ev match.Event) (match.Snapshot, error)
	Subscribe(roomID string) (<-chan match.Snapshot, func(), error)
}

// Client is one socket. After a successful join it is bound to a single
// player in a single room.
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	roomID   string
	playerID string
	unsub    func()
}

type Server struct {
	rooms    Rooms
	upgrader websocket.Upgrader
}

func NewServer(rooms Rooms) *Server {
	return &Server{
		rooms:    rooms,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	metricConnectionsTotal.Add(1)
	metricConnectionsActive.Add(1)
	log.Debug().Str("conn_id", c.id).Str("remote", r.RemoteAddr).Msg("ws connected")

	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) readLoop(c *Client) {
	defer s.unregister(c)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var in Inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			c.sendError("", "invalid_json", "")
			continue
		}
		s.handle(c, in)
	}
}

func (s *Server) writeLoop(c *Client) {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) handle(c *Client, in Inbound) {
	if in.Type == string(match.EventJoin) {
		s.handleJoin(c, in)
		return
	}
	kind, ok := eventKinds[in.Type]
	if !ok {
		c.sendError(in.Type, "unknown_type", "")
		return
	}
	if c.roomID == "" {
		c.sendError(in.Type, "not_joined", "")
		return
	}
	ev := match.Event{Kind: kind, PlayerID: c.playerID, Cell: -1}
	if in.Cell != nil {
		ev.Cell = *in.Cell
	}
	if _, err := s.rooms.Dispatch(context.Background(), c.roomID, ev); err != nil {
		c.sendDispatchError(in.Type, err)
		return
	}
	if kind == match.EventLeave {
		c.leaveRoom()
	}
}

var eventKinds = map[string]match.EventKind{
	string(match.EventReady):   match.EventReady,
	string(match.EventStart):   match.EventStart,
	string(match.EventMove):    match.EventMove,
	string(match.EventLeave):   match.EventLeave,
	string(match.EventRematch): match.EventRematch,
}

func (s *Server) handleJoin(c *Client, in Inbound) {
	if in.RoomID == "" || in.PlayerID == "" {
		c.sendError(in.Type, "invalid_request", "")
		return
	}
	if id, err := identity.Canonical(in.PlayerID); err == nil {
		in.PlayerID = id
	}
	if c.roomID != "" && (c.roomID != in.RoomID || c.playerID != in.PlayerID) {
		c.sendError(in.Type, "already_joined", "")
		return
	}
	ev := match.Event{
		Kind:     match.EventJoin,
		PlayerID: in.PlayerID,
		Stake:    in.Stake,
		Asset:    ledger.Asset(in.Asset),
	}
	if _, err := s.rooms.Dispatch(context.Background(), in.RoomID, ev); err != nil {
		c.sendDispatchError(in.Type, err)
		return
	}
	if c.roomID != "" {
		return
	}
	ch, unsub, err := s.rooms.Subscribe(in.RoomID)
	if err != nil {
		c.sendDispatchError(in.Type, err)
		return
	}
	c.roomID = in.RoomID
	c.playerID = in.PlayerID
	c.unsub = unsub
	go c.forward(ch)
	log.Info().Str("conn_id", c.id).Str("room_id", c.roomID).Str("player_id", c.playerID).Msg("ws joined")
}

func (c *Client) forward(ch <-chan match.Snapshot) {
	for snap := range ch {
		msg, err := json.Marshal(StateUpdate{Type: "state_update", Snapshot: snap})
		if err != nil {
			continue
		}
		select {
		case c.send <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) leaveRoom() {
	if c.unsub != nil {
		c.unsub()
	}
	c.unsub = nil
	c.roomID = ""
	c.playerID = ""
}

// unregister treats a dropped socket as a disconnect of the bound player.
func (s *Server) unregister(c *Client) {
	if c.roomID != "" {
		ev := match.Event{Kind: match.EventDisconnect, PlayerID: c.playerID}
		if _, err := s.rooms.Dispatch(context.Background(), c.roomID, ev); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Str("room_id", c.roomID).Msg("disconnect dispatch failed")
		}
		c.leaveRoom()
	}
	close(c.done)
	_ = c.conn.Close()
	metricConnectionsActive.Add(-1)
	log.Debug().Str("conn_id", c.id).Msg("ws disconnected")
}

func (c *Client) sendDispatchError(event string, err error) {
	code, reason := match.Code(err)
	c.sendError(event, code, reason)
}

func (c *Client) sendError(event, code, reason string) {
	metricEventErrors.Add(1)
	msg, _ := json.Marshal(ErrorMessage{Type: "error", Event: event, Error: code, Reason: reason})
	select {
	case c.send <- msg:
	default:
		log.Warn().Str("conn_id", c.id).Str("error", code).Msg("ws send buffer full, error dropped")
	}
}
