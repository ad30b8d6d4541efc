// Package conversation routes each user input to the checkup engine or the
// model, keeps the persisted message log and the rolling summary in step.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/solace/internal/checkup"
	"github.com/ashureev/solace/internal/domain"
	"github.com/ashureev/solace/internal/gateway"
	"github.com/ashureev/solace/internal/metrics"
	"github.com/ashureev/solace/internal/safety"
	"github.com/ashureev/solace/internal/transcript"
	"github.com/google/uuid"
)

const (
	// MissingProfileMessage is shown instead of calling the model when
	// onboarding has not produced a profile.
	MissingProfileMessage = "User info is missing. Please restart the app or complete onboarding again."
	// FallbackMessage replaces a reply the model failed to produce.
	FallbackMessage = "Sorry, something went wrong."
)

var (
	// ErrEmptyInput is returned for blank submissions.
	ErrEmptyInput = errors.New("input is empty")
	// ErrTurnInProgress is returned when a turn is submitted while another is running.
	ErrTurnInProgress = errors.New("another turn is in progress")
)

// Route names which path handled a turn.
type Route string

// Routes recorded per turn.
const (
	RouteChat       Route = "chat"
	RouteCheckup    Route = "checkup"
	RouteNoProfile  Route = "no_profile"
	RouteStartCheck Route = "checkup_start"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	InsertMessage(ctx context.Context, msg *domain.Message) error
	ListMessages(ctx context.Context) ([]domain.Message, error)
	ClearHistory(ctx context.Context) (int64, error)
	ReplaceSummary(ctx context.Context, content string) error
	GetSummary(ctx context.Context) (string, error)
	GetProfile(ctx context.Context) (*domain.UserProfile, error)
}

// Turn is the outcome of one handled input.
type Turn struct {
	Route Route
	// Messages are the entries appended to the session transcript by this turn,
	// starting with the user's own message.
	Messages []domain.Message
	// Checkup is set on the turn that completed a checkup cycle.
	Checkup *domain.CheckupRecord
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Store      Store
	Generator  gateway.Generator
	Engine     *checkup.Engine
	Scheduler  *checkup.Scheduler
	Metrics    *metrics.Metrics
	Transcript transcript.Logger
	Logger     *slog.Logger
}

// Orchestrator drives one chat session.
type Orchestrator struct {
	store     Store
	gen       gateway.Generator
	engine    *checkup.Engine
	scheduler *checkup.Scheduler
	metrics   *metrics.Metrics
	trail     transcript.Logger
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	sessionID string

	turnMu sync.Mutex

	mu       sync.RWMutex
	profile  *domain.UserProfile
	summary  string
	window   *Window
	messages []domain.Message
}

// New creates an orchestrator. Start must be called before the first turn.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("conversation: store is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("conversation: generator is required")
	}
	if deps.Engine == nil || deps.Scheduler == nil {
		return nil, fmt.Errorf("conversation: checkup engine and scheduler are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	trail := deps.Transcript
	if trail == nil {
		trail = transcript.Noop{}
	}

	o := &Orchestrator{
		store:     deps.Store,
		gen:       deps.Generator,
		engine:    deps.Engine,
		scheduler: deps.Scheduler,
		metrics:   deps.Metrics,
		trail:     trail,
		now:       time.Now,
		newID:     newMessageID,
		window:    NewWindow(SummaryWindow),
	}
	o.sessionID = o.newID()
	o.logger = logger.With("session_id", o.sessionID)
	return o, nil
}

// WithClock replaces the time source used for message timestamps.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// SessionID identifies this session in logs and transcripts.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// newMessageID returns a UUIDv7, falling back to a random UUID.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Start loads the profile and either begins a due checkup or restores the
// persisted history. It returns the session transcript after startup.
func (o *Orchestrator) Start(ctx context.Context) ([]domain.Message, error) {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	profile, err := o.store.GetProfile(ctx)
	if err != nil {
		o.metrics.RecordStorageError("get_profile")
		o.logger.Warn("Failed to load profile", "error", err)
		profile = nil
	}

	history, err := o.store.ListMessages(ctx)
	if err != nil {
		o.metrics.RecordStorageError("list_messages")
		o.logger.Warn("Failed to load message history", "error", err)
		history = nil
	}
	summary, err := o.store.GetSummary(ctx)
	if err != nil {
		o.metrics.RecordStorageError("get_summary")
		o.logger.Warn("Failed to load rolling summary", "error", err)
		summary = ""
	}

	o.mu.Lock()
	o.profile = profile
	o.summary = summary
	o.window.Reset()
	for _, msg := range history {
		o.window.Push(msg)
	}
	o.messages = nil
	o.mu.Unlock()

	if o.scheduler.Due(ctx) {
		prompts, err := o.engine.Start()
		if err != nil && !errors.Is(err, checkup.ErrCycleActive) {
			return nil, fmt.Errorf("start checkup: %w", err)
		}
		for _, text := range prompts {
			o.appendSession(o.message(text, domain.SenderBot))
		}
		o.metrics.RecordTurn(string(RouteStartCheck))
		o.logger.Info("Session started with checkup", "interval_days", o.scheduler.IntervalDays())
		return o.Transcript(), nil
	}

	o.mu.Lock()
	o.messages = append(o.messages, history...)
	o.mu.Unlock()
	o.logger.Info("Session started", "restored_messages", len(history), "has_profile", profile != nil)
	return o.Transcript(), nil
}

// HandleUserInput runs one turn. Model and storage failures are absorbed
// into fallback messages; only ErrEmptyInput and ErrTurnInProgress are returned.
func (o *Orchestrator) HandleUserInput(ctx context.Context, text string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, ErrEmptyInput
	}
	if !o.turnMu.TryLock() {
		return Turn{}, ErrTurnInProgress
	}
	defer o.turnMu.Unlock()

	if o.engine.Active() {
		return o.checkupTurn(ctx, text)
	}

	profile := o.currentProfile(ctx)
	if profile == nil {
		o.metrics.RecordTurn(string(RouteNoProfile))
		notice := o.message(MissingProfileMessage, domain.SenderBot)
		o.appendSession(notice)
		return Turn{Route: RouteNoProfile, Messages: []domain.Message{notice}}, nil
	}

	return o.chatTurn(ctx, text, profile), nil
}

func (o *Orchestrator) checkupTurn(ctx context.Context, text string) (Turn, error) {
	o.metrics.RecordTurn(string(RouteCheckup))
	answer := o.message(text, domain.SenderUser)
	o.appendSession(answer)

	step, err := o.engine.Answer(ctx, text, o.currentProfile(ctx))
	if err != nil {
		// Only reachable if the cycle was abandoned concurrently.
		return Turn{}, fmt.Errorf("answer checkup: %w", err)
	}

	turn := Turn{Route: RouteCheckup, Messages: []domain.Message{answer}, Checkup: step.Result}
	for _, reply := range step.Replies {
		msg := o.message(reply, domain.SenderBot)
		o.appendSession(msg)
		turn.Messages = append(turn.Messages, msg)
	}
	return turn, nil
}

func (o *Orchestrator) chatTurn(ctx context.Context, text string, profile *domain.UserProfile) Turn {
	o.metrics.RecordTurn(string(RouteChat))
	turn := Turn{Route: RouteChat}

	userMsg := o.message(text, domain.SenderUser)
	o.appendPersisted(ctx, userMsg)
	turn.Messages = append(turn.Messages, userMsg)

	o.mu.RLock()
	summary := o.summary
	o.mu.RUnlock()

	start := time.Now()
	reply, err := o.gen.Generate(ctx, summary, text, profile)
	o.metrics.RecordGatewayCall("chat", start, err)

	if err != nil {
		o.logger.Warn("Model call failed, using fallback reply", "error", err)
		fallback := o.message(FallbackMessage, domain.SenderBot)
		o.appendPersisted(ctx, fallback)
		turn.Messages = append(turn.Messages, fallback)
	} else {
		botMsg := o.message(reply, domain.SenderBot)
		o.appendPersisted(ctx, botMsg)
		turn.Messages = append(turn.Messages, botMsg)
	}

	if flags := safety.Detect(text); flags.Any() {
		for _, kind := range flags.Kinds() {
			o.metrics.RecordCrisisFlag(kind)
		}
		o.logger.Info("Crisis phrases detected, sharing resources", "kinds", flags.Kinds())
		notice := o.message(safety.ResourcesMessage(), domain.SenderSystem)
		o.appendPersisted(ctx, notice)
		turn.Messages = append(turn.Messages, notice)
	}

	// The summary covers every message this turn appended.
	if err == nil {
		o.refreshSummary(ctx)
	}
	return turn
}

// refreshSummary recomputes the rolling summary from the window and persists it.
func (o *Orchestrator) refreshSummary(ctx context.Context) {
	summary := FormatSummary(o.window.Messages())

	o.mu.Lock()
	o.summary = summary
	o.mu.Unlock()

	if err := o.store.ReplaceSummary(ctx, summary); err != nil {
		o.metrics.RecordStorageError("replace_summary")
		o.logger.Error("Failed to save rolling summary", "error", err)
	}
}

// currentProfile returns the cached profile, retrying the store once if
// onboarding completed after Start.
func (o *Orchestrator) currentProfile(ctx context.Context) *domain.UserProfile {
	o.mu.RLock()
	profile := o.profile
	o.mu.RUnlock()
	if profile != nil {
		return profile
	}

	profile, err := o.store.GetProfile(ctx)
	if err != nil {
		o.metrics.RecordStorageError("get_profile")
		o.logger.Warn("Failed to load profile", "error", err)
		return nil
	}
	if profile != nil {
		o.mu.Lock()
		o.profile = profile
		o.mu.Unlock()
	}
	return profile
}

func (o *Orchestrator) message(text string, sender domain.Sender) domain.Message {
	return domain.Message{
		ID:        o.newID(),
		Text:      text,
		Sender:    sender,
		CreatedAt: o.now(),
	}
}

// appendPersisted stores msg in the log and the summary window, then shows
// it. A storage failure keeps the message in the session only.
func (o *Orchestrator) appendPersisted(ctx context.Context, msg domain.Message) {
	if err := o.store.InsertMessage(ctx, &msg); err != nil {
		o.metrics.RecordStorageError("insert_message")
		o.logger.Error("Failed to persist message", "message_id", msg.ID, "sender", msg.Sender, "error", err)
	}
	o.window.Push(msg)
	o.appendSession(msg)
}

// appendSession shows msg in this session's transcript only.
func (o *Orchestrator) appendSession(msg domain.Message) {
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()

	o.trail.Log(transcript.Event{
		Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		SessionID: o.sessionID,
		EventType: "message",
		Sender:    string(msg.Sender),
		MessageID: msg.ID,
		Content:   msg.Text,
	})
}

// Transcript returns the session-visible messages in order.
func (o *Orchestrator) Transcript() []domain.Message {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]domain.Message(nil), o.messages...)
}

// Summary returns the current rolling summary.
func (o *Orchestrator) Summary() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.summary
}

// ClearHistory deletes the persisted log and summary and empties the session.
func (o *Orchestrator) ClearHistory(ctx context.Context) (int64, error) {
	if !o.turnMu.TryLock() {
		return 0, ErrTurnInProgress
	}
	defer o.turnMu.Unlock()

	deleted, err := o.store.ClearHistory(ctx)
	if err != nil {
		o.metrics.RecordStorageError("clear_history")
		return 0, err
	}

	o.mu.Lock()
	o.summary = ""
	o.messages = nil
	o.mu.Unlock()
	o.window.Reset()

	o.logger.Info("History cleared", "deleted", deleted)
	return deleted, nil
}

// Close abandons an unfinished checkup. The transcript logger is owned by
// the caller.
func (o *Orchestrator) Close() {
	o.engine.Abandon()
}
