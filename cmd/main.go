// Package main is the entry point for the hook gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/runeforge/hookgate/internal/config"
	"github.com/runeforge/hookgate/internal/content"
	"github.com/runeforge/hookgate/internal/gateway"
	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/monitoring"
	npcinteraction "github.com/runeforge/hookgate/internal/pipes/npc_interaction"
	"github.com/runeforge/hookgate/internal/quests"
	"github.com/runeforge/hookgate/internal/scheduler"
	"github.com/runeforge/hookgate/internal/store"
	"github.com/runeforge/hookgate/internal/world"
)

// Version is set at build time via ldflags.
var Version = "v0.1.0"

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/hookgate/.env first
	configEnv := filepath.Join(homeDir, ".config", "hookgate", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve", "start":
			os.Exit(runServe(os.Args[2:]))
		case "validate":
			os.Exit(runValidate(os.Args[2:]))
		case "version", "-v", "--version":
			PrintVersion()
			return
		case "help", "-h", "--help":
			printHelp()
			return
		}
	}

	printHelp()
	os.Exit(2)
}

// PrintVersion prints the build version.
func PrintVersion() {
	fmt.Printf("hookgate %s\n", Version)
}

// resolveConfig resolves the config for serve and validate.
// Checks: user flag -> filesystem locations -> embedded config.
// Returns raw bytes and source description.
func resolveConfig(userConfig string) ([]byte, string, error) {
	if userConfig != "" {
		data, err := os.ReadFile(userConfig)
		if err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", userConfig)
		}
		return data, userConfig, nil
	}

	homeDir, _ := os.UserHomeDir()

	searchPaths := []string{}
	if homeDir != "" {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".config", "hookgate", "config.yaml"))
	}
	searchPaths = append(searchPaths, "configs/hookgate.yaml", "hookgate.yaml")

	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			return data, path, nil
		}
	}

	if data, err := getEmbeddedConfig("hookgate"); err == nil {
		return data, "(embedded) hookgate.yaml", nil
	}

	return nil, "", fmt.Errorf("no config file found. Specify --config path")
}

// runValidate loads the config and content without serving.
func runValidate(args []string) int {
	loadEnvFiles()

	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	demo := fs.Bool("demo", false, "also validate the embedded demo content")
	_ = fs.Parse(args)

	setupLogging(false)

	data, source, err := resolveConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := config.LoadFromBytes(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", source, err)
		return 1
	}

	registry := hooks.NewRegistry()
	loader := content.NewLoader(nil, nil)
	n, err := loadContent(loader, registry, cfg.Content.Manifests, *demo)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("%s: ok (%d hooks)\n", source, n)
	return 0
}

// runServe starts the gateway and blocks until SIGINT/SIGTERM.
func runServe(args []string) int {
	loadEnvFiles()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	demo := fs.Bool("demo", false, "load the embedded demo content")
	_ = fs.Parse(args)

	setupLogging(*debug)

	configData, configSource, err := resolveConfig(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("No config file found. Specify --config path")
		return 1
	}

	cfg, err := config.LoadFromBytes(configData)
	if err != nil {
		log.Error().Err(err).Str("config", configSource).Msg("failed to load configuration")
		return 1
	}

	// Configured logging replaces the bootstrap logger; --debug still wins.
	if *debug {
		cfg.Monitoring.LogLevel = "debug"
	}
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	logger := monitoring.Global(cfg.Monitoring.LoggerConfig())
	defer logger.Close()

	log.Info().
		Str("version", Version).
		Str("config", configSource).
		Msg("Hook gateway starting")

	st, err := store.New(cfg.Store.Type, cfg.Store.Path)
	if err != nil {
		log.Error().Err(err).Str("type", cfg.Store.Type).Msg("failed to open quest store")
		return 1
	}
	defer st.Close()

	tracker, err := monitoring.NewTracker(cfg.Monitoring.TelemetryConfig())
	if err != nil {
		log.Error().Err(err).Msg("failed to open telemetry")
		return 1
	}
	defer tracker.Close()

	metrics := monitoring.NewMetricsCollector()
	roster := world.NewRoster()
	progress := quests.NewTracker(st)
	registry := hooks.NewRegistry()

	loader := content.NewLoader(roster, progress)
	n, err := loadContent(loader, registry, cfg.Content.Manifests, *demo)
	if err != nil {
		log.Error().Err(err).Msg("failed to load content")
		return 1
	}

	pipe := npcinteraction.New(cfg.Pipes.NPCInteraction, registry, progress).
		WithLogger(logger.Component("npc_interaction")).
		WithMetrics(metrics).
		WithTracker(tracker)

	sched := scheduler.New(cfg.Scheduler, metrics)
	sched.Start()
	defer sched.Stop()

	runner := npcinteraction.NewRunner(sched, roster, roster, cfg.Pipes.NPCInteraction.HonorWalkTo)

	log.Info().
		Int("port", cfg.Server.Port).
		Int("hooks", n).
		Bool("npc_interaction_pipe", pipe.Enabled()).
		Str("store", cfg.Store.Type).
		Msg("configuration loaded")

	gw := gateway.New(cfg, gateway.Deps{
		Roster:    roster,
		Registry:  registry,
		Pipe:      pipe,
		Runner:    runner,
		Scheduler: sched,
		Metrics:   metrics,
	})

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := gw.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("gateway shutdown error")
		}
	}()

	if err := gw.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("gateway error")
		return 1
	}

	log.Info().Interface("metrics", metrics.Stats()).Msg("Hook gateway stopped")
	return 0
}

// loadContent registers manifests from disk and, with demo set, the embedded
// demo content. Returns the number of hooks registered.
func loadContent(loader *content.Loader, registry *hooks.Registry, paths []string, demo bool) (int, error) {
	total, err := loader.LoadFiles(registry, paths)
	if err != nil {
		return total, err
	}
	if !demo {
		return total, nil
	}

	names, err := listEmbeddedContent()
	if err != nil {
		return total, err
	}
	for _, name := range names {
		data, err := getEmbeddedContent(name)
		if err != nil {
			return total, err
		}
		m, err := content.Parse(data)
		if err != nil {
			return total, fmt.Errorf("(embedded) %s: %w", name, err)
		}
		n, err := loader.Register(registry, m)
		total += n
		if err != nil {
			return total, fmt.Errorf("(embedded) %s: %w", name, err)
		}
	}
	return total, nil
}

// setupLogging configures the bootstrap zerolog logger used until the config
// is loaded.
func setupLogging(debug bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// printHelp prints usage information
func printHelp() {
	fmt.Println("hookgate - action hook dispatcher for game servers")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hookgate [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve        Start the websocket gateway")
	fmt.Println("  validate     Load config and content, then exit")
	fmt.Println("  version      Print version information")
	fmt.Println("  help         Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config FILE    Gateway config (default: search, then embedded)")
	fmt.Println("  --debug          Enable debug logging (serve)")
	fmt.Println("  --demo           Load the embedded demo content")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  HOOKGATE_LOG_LEVEL       Override monitoring.log_level")
	fmt.Println("  HOOKGATE_UNHANDLED_LOG   Record unhandled interactions to this JSONL file")
}
