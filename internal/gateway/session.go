// Websocket sessions.
//
// Protocol (one JSON object per text frame):
//
//	→ {"type":"login","player":"p1"}
//	← {"type":"welcome","player":"p1","session":"<uuid>"}
//	→ {"type":"npc_interaction","npc":{"id":3,"key":"goblin","name":"Grubfoot"},
//	   "position":{"x":10,"y":4,"level":0},"option":"talk-to"}
//	← {"type":"outcome","outcome":"dispatched","hooks":1,"tasks":0}
//	← {"type":"message","text":"Grubfoot nods at p1."}
//	→ {"type":"ping"}
//	← {"type":"pong","tick":42}
//
// Any message may carry a "request_id"; replies echo it.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/runeforge/hookgate/internal/monitoring"
	npcinteraction "github.com/runeforge/hookgate/internal/pipes/npc_interaction"
	"github.com/runeforge/hookgate/internal/world"
)

// maxMessageBytes bounds a single client frame.
const maxMessageBytes = 64 << 10

// Client message types.
const (
	MsgLogin          = "login"
	MsgNPCInteraction = "npc_interaction"
	MsgPing           = "ping"
)

// OutcomeDisabled is reported when the NPC interaction pipe is switched off.
const OutcomeDisabled = "disabled"

type session struct {
	id     string
	g      *Gateway
	conn   *websocket.Conn
	player *world.Character
	logger zerolog.Logger
}

func (g *Gateway) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		// Accept has already written the HTTP error.
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	id := uuid.New().String()
	s := &session{
		id:     id,
		g:      g,
		conn:   conn,
		logger: log.With().Str("session", id).Logger(),
	}
	s.serve(r.Context())
}

func (s *session) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.close()

	s.logger.Debug().Msg("session opened")
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.logger.Debug().Err(err).Msg("session read failed")
			}
			return
		}
		if typ != websocket.MessageText {
			s.write(ctx, errorReply("", "text frames only"))
			continue
		}
		s.handle(ctx, data)
	}
}

func (s *session) close() {
	if s.player != nil {
		playerID := s.player.ID()
		cancelled := 0
		if s.g.scheduler != nil {
			cancelled = s.g.scheduler.CancelOwner(playerID)
		}
		s.g.roster.Leave(playerID)
		s.logger.Info().Str("player", playerID).Int("tasks_cancelled", cancelled).Msg("player left")
	}
	_ = s.conn.Close(websocket.StatusNormalClosure, "")
}

// handle routes one client message and writes the reply.
func (s *session) handle(ctx context.Context, data []byte) {
	if !gjson.ValidBytes(data) {
		s.write(ctx, errorReply("", "invalid json"))
		return
	}
	msg := gjson.ParseBytes(data)

	requestID := msg.Get("request_id").String()
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = monitoring.WithRequestIDContext(ctx, requestID)

	switch msgType := msg.Get("type").String(); msgType {
	case MsgLogin:
		s.write(ctx, s.login(ctx, requestID, msg))
	case MsgNPCInteraction:
		s.write(ctx, s.interact(ctx, requestID, msg))
	case MsgPing:
		var tick uint64
		if s.g.scheduler != nil {
			tick = s.g.scheduler.CurrentTick()
		}
		s.write(ctx, buildReply(
			field{"type", "pong"},
			field{"request_id", requestID},
			field{"tick", tick},
		))
	default:
		s.write(ctx, errorReply(requestID, "unknown message type: "+msgType))
	}
}

func (s *session) login(ctx context.Context, requestID string, msg gjson.Result) []byte {
	if s.player != nil {
		return errorReply(requestID, "already logged in")
	}
	playerID := strings.TrimSpace(msg.Get("player").String())
	if playerID == "" {
		return errorReply(requestID, "player is required")
	}

	char, ok := s.g.roster.TryJoin(playerID)
	if !ok {
		return errorReply(requestID, "player already connected")
	}
	if pos := msg.Get("position"); pos.Exists() {
		char.MoveTo(parsePosition(pos))
	}
	s.player = char
	s.logger = s.logger.With().Str("player", playerID).Logger()
	s.logger.Info().Msg("player joined")

	go s.pump(ctx, char)

	return buildReply(
		field{"type", "welcome"},
		field{"request_id", requestID},
		field{"player", playerID},
		field{"session", s.id},
	)
}

func (s *session) interact(ctx context.Context, requestID string, msg gjson.Result) []byte {
	if s.player == nil {
		return errorReply(requestID, "login required")
	}
	if s.g.pipe == nil || !s.g.pipe.Enabled() {
		return outcomeReply(requestID, OutcomeDisabled, 0, 0)
	}

	npcJSON := msg.Get("npc")
	npc := world.NPC{
		ID:   int(npcJSON.Get("id").Int()),
		Key:  npcJSON.Get("key").String(),
		Name: npcJSON.Get("name").String(),
	}
	if npc.Key == "" {
		return errorReply(requestID, "npc.key is required")
	}
	option := msg.Get("option").String()
	if option == "" {
		return errorReply(requestID, "option is required")
	}

	result := s.g.pipe.Dispatch(ctx, s.player, npc, parsePosition(msg.Get("position")), option)
	if !result.Dispatched() {
		return outcomeReply(requestID, result.Outcome.String(), 0, 0)
	}

	tasks := 0
	if s.g.runner != nil {
		handles, err := s.g.runner.Run(ctx, result.Bundle)
		if errors.Is(err, npcinteraction.ErrBusy) {
			return outcomeReply(requestID, "busy", 0, 0)
		}
		if err != nil {
			s.logger.Error().Err(err).Str("request_id", requestID).Str("npc", npc.Key).Msg("failed to run hooks")
			return errorReply(requestID, err.Error())
		}
		tasks = len(handles)
	}
	return outcomeReply(requestID, result.Outcome.String(), len(result.Bundle.Hooks), tasks)
}

// pump forwards the player's queued messages until the session ends.
func (s *session) pump(ctx context.Context, char *world.Character) {
	for {
		select {
		case text := <-char.Outbox():
			s.write(ctx, buildReply(field{"type", "message"}, field{"text", text}))
		case <-ctx.Done():
			return
		}
	}
}

// write sends one frame. Safe for concurrent use.
func (s *session) write(ctx context.Context, data []byte) {
	if timeout := s.g.cfg.Server.WriteTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Debug().Err(err).Msg("session write failed")
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

type field struct {
	path  string
	value interface{}
}

// buildReply assembles a JSON object from fields in order.
func buildReply(fields ...field) []byte {
	out := []byte(`{}`)
	for _, f := range fields {
		if s, ok := f.value.(string); ok && s == "" && f.path == "request_id" {
			continue
		}
		next, err := sjson.SetBytes(out, f.path, f.value)
		if err != nil {
			log.Error().Err(err).Str("path", f.path).Msg("failed to build reply")
			continue
		}
		out = next
	}
	return out
}

func outcomeReply(requestID, outcome string, hooks, tasks int) []byte {
	return buildReply(
		field{"type", "outcome"},
		field{"request_id", requestID},
		field{"outcome", outcome},
		field{"hooks", hooks},
		field{"tasks", tasks},
	)
}

func errorReply(requestID, message string) []byte {
	return buildReply(
		field{"type", "error"},
		field{"request_id", requestID},
		field{"error", message},
	)
}

func parsePosition(pos gjson.Result) world.Position {
	return world.Position{
		X:     int(pos.Get("x").Int()),
		Y:     int(pos.Get("y").Int()),
		Level: int(pos.Get("level").Int()),
	}
}
