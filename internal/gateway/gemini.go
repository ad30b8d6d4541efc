package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/solace/internal/domain"
	"google.golang.org/genai"
)

// DefaultTimeout bounds a single provider round trip.
const DefaultTimeout = 10 * time.Second

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Config holds Gemini client settings.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string // optional endpoint override
	Timeout    time.Duration
	HTTPClient *http.Client
}

// GeminiClient implements Generator on the Gemini generateContent endpoint.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, cfg Config, logger *slog.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("create gemini client: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Generate sends one request and returns the first candidate's text.
func (g *GeminiClient) Generate(ctx context.Context, summary, message string, profile *domain.UserProfile) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(summary, message, profile), nil)
	if err != nil {
		g.logger.Warn("Gemini request failed", "model", g.model, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", &TransientError{Op: "generate", Err: err}
	}

	text, err := replyText(resp)
	if err != nil {
		g.logger.Warn("Gemini reply unusable", "model", g.model, "error", err)
		return "", &TransientError{Op: "decode reply", Err: err}
	}

	g.logger.Debug("Gemini reply received", "model", g.model, "reply_length", len(text), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}
