// Solace - terminal chat companion with periodic wellbeing checkups
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/solace/internal/config"
	"github.com/ashureev/solace/internal/gateway"
	"github.com/ashureev/solace/internal/metrics"
	"github.com/ashureev/solace/internal/store"
	"github.com/joho/godotenv"
)

// Version is the release string printed by the version command.
const Version = "0.1.0"

// app holds the dependencies shared by every command.
type app struct {
	cfg     *config.Config
	repo    *store.SQLiteStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// PrintHelp prints CLI usage.
func PrintHelp() {
	fmt.Print(`solace - a chat companion that checks in on you

Usage:
  solace <command> [flags]

Commands:
  onboard    Save your name, age, gender and country (once)
  chat       Start a chat session
  history    Print the saved conversation
  clear      Delete the saved conversation and summary
  checkups   List completed checkups and when the next one is due
  version    Print the version
  help       Show this help

Configuration is read from the environment and an optional .env file.
`)
}

// newApp loads configuration, sets up logging and opens the database.
func newApp() (*app, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Logs go to stderr so they never interleave with the chat on stdout.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}
	logger.Debug("Database connected", "path", cfg.DBPath)

	return &app{
		cfg:     cfg,
		repo:    repo,
		metrics: metrics.New(),
		logger:  logger,
	}, nil
}

// close flushes metrics and closes the database.
func (a *app) close() {
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.logger.Warn("Failed to write metrics textfile", "path", a.cfg.MetricsTextfile, "error", err)
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Error("Failed to close repository", "error", err)
	}
}

// generator builds the Gemini client, or an always-failing stand-in when it
// cannot be built so chat still runs on fallback replies.
func (a *app) generator(ctx context.Context) gateway.Generator {
	client, err := gateway.NewGeminiClient(ctx, gateway.Config{
		APIKey:  a.cfg.Model.APIKey,
		Model:   a.cfg.Model.Name,
		BaseURL: a.cfg.Model.BaseURL,
		Timeout: a.cfg.Model.Timeout,
	}, a.logger)
	if err != nil {
		a.logger.Warn("Model provider unavailable, replies will fall back", "error", err)
		return gateway.Unavailable{Reason: err}
	}
	return client
}

func run(cmd func(*app, []string) int, args []string) int {
	a, err := newApp()
	if err != nil {
		slog.Error("Failed to start", "error", err)
		return 1
	}
	defer a.close()
	return cmd(a, args)
}

// main dispatches CLI commands to their corresponding handlers.
func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		PrintHelp()
		return
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "help", "h", "-h", "--help":
		PrintHelp()
		return

	case "version", "-v":
		fmt.Println("solace " + Version)
		return

	case "onboard":
		os.Exit(run(cmdOnboard, rest))

	case "chat", "c":
		os.Exit(run(cmdChat, rest))

	case "history":
		os.Exit(run(cmdHistory, rest))

	case "clear":
		os.Exit(run(cmdClear, rest))

	case "checkups":
		os.Exit(run(cmdCheckups, rest))

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		PrintHelp()
		os.Exit(2)
	}
}
