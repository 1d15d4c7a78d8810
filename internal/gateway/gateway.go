// Package gateway serves player interactions over websocket.
//
// DESIGN: The gateway is the outer surface of the hook dispatcher:
//
//	client ──ws──► session ──► npc_interaction.Pipe.Dispatch ──► Runner.Run ──► scheduler
//	       ◄──────  outcome reply / queued player messages
//
// FILES:
//   - gateway.go:    Gateway struct, HTTP routes, Start/Shutdown
//   - session.go:    Websocket session, message parsing and replies
//   - middleware.go: Request IDs, logging, panic recovery
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/runeforge/hookgate/internal/config"
	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/monitoring"
	npcinteraction "github.com/runeforge/hookgate/internal/pipes/npc_interaction"
	"github.com/runeforge/hookgate/internal/scheduler"
	"github.com/runeforge/hookgate/internal/world"
)

// HeaderRequestID carries the request ID on HTTP requests and responses.
const HeaderRequestID = "X-Request-ID"

// Deps are the collaborators the gateway routes interactions to.
type Deps struct {
	Roster    *world.Roster
	Registry  *hooks.Registry
	Pipe      *npcinteraction.Pipe
	Runner    *npcinteraction.Runner
	Scheduler *scheduler.Scheduler
	Metrics   *monitoring.MetricsCollector
}

// Gateway is the websocket front door.
type Gateway struct {
	cfg       *config.Config
	server    *http.Server
	roster    *world.Roster
	registry  *hooks.Registry
	pipe      *npcinteraction.Pipe
	runner    *npcinteraction.Runner
	scheduler *scheduler.Scheduler
	metrics   *monitoring.MetricsCollector
	startedAt time.Time
}

// New creates a gateway. The HTTP server is built but not started.
func New(cfg *config.Config, deps Deps) *Gateway {
	g := &Gateway{
		cfg:       cfg,
		roster:    deps.Roster,
		registry:  deps.Registry,
		pipe:      deps.Pipe,
		runner:    deps.Runner,
		scheduler: deps.Scheduler,
		metrics:   deps.Metrics,
		startedAt: time.Now(),
	}
	if g.roster == nil {
		g.roster = world.NewRoster()
	}

	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           g.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}
	return g
}

// Handler returns the HTTP handler with middleware applied.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/stats", g.handleStats)
	mux.HandleFunc(g.cfg.Server.WSPath, g.handleWebsocket)

	// Applied outside-in: recovery wraps logging wraps routes.
	return g.panicRecovery(g.loggingMiddleware(mux))
}

// Start serves until Shutdown. Returns http.ErrServerClosed after a clean shutdown.
func (g *Gateway) Start() error {
	log.Info().
		Int("port", g.cfg.Server.Port).
		Str("ws_path", g.cfg.Server.WSPath).
		Msg("Hook gateway listening")
	return g.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for handlers to return.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if err := g.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(g.startedAt).Round(time.Second).String(),
		"players": g.roster.Len(),
	})
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"metrics": g.metrics.Stats(),
		"players": g.roster.Len(),
	}
	if g.registry != nil {
		counts := make(map[string]int)
		for _, t := range g.registry.Types() {
			counts[string(t)] = g.registry.Count(t)
		}
		stats["hooks"] = counts
	}
	if g.scheduler != nil {
		stats["scheduler"] = g.scheduler.Stats()
	}
	g.writeJSON(w, http.StatusOK, stats)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	g.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"message": msg},
	})
}
