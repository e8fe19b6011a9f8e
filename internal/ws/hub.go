package ws

import (
	"errors"
	"log/slog"
	"sync"

	"rps_arena/internal/game"
	"rps_arena/internal/logger"
	"rps_arena/internal/match"
	"rps_arena/internal/protocol"

	"github.com/google/uuid"
)

// Hub owns the set of connected clients, decodes their frames and routes them
// to the matchmaker.
type Hub struct {
	mm  *match.Matchmaker
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(mm *match.Matchmaker) *Hub {
	return &Hub{
		mm:      mm,
		log:     logger.With("component", "hub"),
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handle processes one inbound frame from c.
func (h *Hub) Handle(c *Client, raw []byte) {
	messagesTotal.Add(1)

	in, err := protocol.Decode(raw)
	if err != nil {
		h.log.Debug("Hub.Handle: bad frame", "participant", c.id, "error", err)
		h.reply(c, protocol.Error("Invalid message"))
		return
	}

	switch in.Type {
	case protocol.MsgConnect:
		var p protocol.ConnectPayload
		if err := in.Bind(&p); err != nil {
			h.reply(c, protocol.Error("Invalid message"))
			return
		}
		h.connect(c, p.PlayerID)

	case protocol.MsgFindMatch:
		h.findMatch(c)

	case protocol.MsgPlayerMove:
		var p protocol.MovePayload
		if err := in.Bind(&p); err != nil {
			h.reply(c, protocol.Error("Invalid move"))
			return
		}
		h.playerMove(c, p.Choice)

	case protocol.MsgPing:
		h.reply(c, protocol.Message{Type: protocol.MsgPong})
	}
}

func (h *Hub) connect(c *Client, requested string) {
	if c.id != "" {
		h.reply(c, protocol.Error("Already connected"))
		return
	}

	id := requested
	if id == "" {
		id = uuid.NewString()
	}

	h.mu.Lock()
	if _, taken := h.clients[id]; taken {
		h.mu.Unlock()
		h.reply(c, protocol.Error("Player id already in use"))
		return
	}
	h.clients[id] = c
	h.mu.Unlock()

	c.id = id
	h.log.Info("participant connected", "participant", id)
	h.reply(c, protocol.Message{Type: protocol.MsgConnected, Payload: protocol.ConnectedPayload{PlayerID: id}})
}

func (h *Hub) findMatch(c *Client) {
	if c.id == "" {
		h.reply(c, protocol.Error("Not connected"))
		return
	}

	res, err := h.mm.RequestMatch(match.Participant{ID: c.id, Sink: c})
	switch {
	case errors.Is(err, match.ErrAlreadyInSession):
		h.reply(c, protocol.Error("Already in a match"))
		return
	case err != nil:
		h.log.Error("Hub.findMatch: request failed", "participant", c.id, "error", err)
		h.reply(c, protocol.Error("Failed to find match"))
		return
	}

	payload := protocol.MatchmakingPayload{Matched: res.Matched, RoomID: res.SessionID}
	if res.Waiting {
		waiting := true
		payload.Waiting = &waiting
	}
	h.reply(c, protocol.Message{Type: protocol.MsgMatchmaking, Payload: payload})
}

func (h *Hub) playerMove(c *Client, raw string) {
	if c.id == "" {
		h.reply(c, protocol.Error("Not connected"))
		return
	}

	choice, err := game.ParseChoice(raw)
	if err != nil || !h.mm.SubmitMove(c.id, choice) {
		h.reply(c, protocol.Error("Invalid move"))
	}
}

// Disconnect forgets c and releases whatever match state it held. The id
// stays claimed until the matchmaker is done with it, so a new connection
// cannot take it over halfway.
func (h *Hub) Disconnect(c *Client) {
	if c.id == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.id] != c {
		return
	}

	h.mm.RemoveParticipant(c.id)
	delete(h.clients, c.id)
	h.log.Info("participant disconnected", "participant", c.id)
}

func (h *Hub) reply(c *Client, msg protocol.Message) {
	if err := c.Send(msg); err != nil {
		h.log.Warn("Hub.reply: delivery failed", "participant", c.id, "type", msg.Type, "error", err)
	}
}
