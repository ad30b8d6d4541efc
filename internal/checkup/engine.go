package checkup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/solace/internal/domain"
	"github.com/ashureev/solace/internal/gateway"
	"github.com/ashureev/solace/internal/metrics"
	"github.com/ashureev/solace/internal/safety"
	"github.com/samber/lo"
)

// Phase is the engine's position in a cycle.
type Phase int

const (
	// PhaseIdle means no cycle is running.
	PhaseIdle Phase = iota
	// PhaseAwaitingAnswer means the current question was asked and the next input answers it.
	PhaseAwaitingAnswer
	// PhaseScoring means an answer is being scored by the model.
	PhaseScoring
	// PhaseFinalizing means all answers are scored and the result is being stored.
	PhaseFinalizing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseScoring:
		return "scoring"
	case PhaseFinalizing:
		return "finalizing"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	// ErrCycleActive is returned by Start while a cycle is running.
	ErrCycleActive = errors.New("checkup cycle already active")
	// ErrNoActiveCycle is returned by Answer when nothing was asked.
	ErrNoActiveCycle = errors.New("no active checkup cycle")
	// ErrScoringInProgress is returned by Answer while the previous answer is still being scored.
	ErrScoringInProgress = errors.New("previous answer is still being scored")
)

const openingMessage = "Before we continue, I'd like to check in on how you've been feeling over the past two weeks. " +
	"I'll ask a few short questions; just answer in your own words."

// State is a snapshot of an in-flight cycle. len(Scores) == Index while Active.
type State struct {
	Active bool
	Phase  Phase
	Index  int
	Scores []int
}

// Step is the outcome of one answered question.
type Step struct {
	Question int
	Score    int
	// ScoreErr is set when the model call failed and Score fell back to 0.
	ScoreErr error
	// Replies are the messages to show next: the following question, or the
	// closing summary once the cycle finished.
	Replies []string
	// Result is non-nil once the cycle finished.
	Result *domain.CheckupRecord
}

// Engine administers one checkup cycle at a time. State lives in memory only;
// a cycle interrupted by process exit is abandoned.
type Engine struct {
	gen       gateway.Generator
	store     Store
	scheduler *Scheduler
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	questions []string

	mu     sync.Mutex
	phase  Phase
	index  int
	scores []int
	cycle  uint64 // incremented by Start
}

// NewEngine creates an idle engine.
func NewEngine(gen gateway.Generator, store Store, scheduler *Scheduler, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		gen:       gen,
		store:     store,
		scheduler: scheduler,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		questions: Questions(),
	}
}

// WithClock replaces the time source used for completedAt.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Active returns true while a cycle is running.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase != PhaseIdle
}

// State returns a snapshot of the current cycle.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Active: e.phase != PhaseIdle,
		Phase:  e.phase,
		Index:  e.index,
		Scores: append([]int(nil), e.scores...),
	}
}

// Start begins a cycle and returns the opening message followed by the first question.
func (e *Engine) Start() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseIdle {
		return nil, ErrCycleActive
	}
	e.phase = PhaseAwaitingAnswer
	e.index = 0
	e.scores = make([]int, 0, len(e.questions))
	e.cycle++

	e.logger.Info("Checkup cycle started", "questions", len(e.questions))
	return []string{openingMessage, e.questions[0]}, nil
}

// Abandon discards an in-flight cycle without storing anything.
func (e *Engine) Abandon() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseIdle {
		return
	}
	e.logger.Info("Checkup cycle abandoned", "answered", len(e.scores))
	e.reset()
}

// Answer scores text as the answer to the pending question and advances the
// cycle. Model failures score 0; the cycle always progresses.
func (e *Engine) Answer(ctx context.Context, text string, profile *domain.UserProfile) (Step, error) {
	e.mu.Lock()
	switch e.phase {
	case PhaseIdle:
		e.mu.Unlock()
		return Step{}, ErrNoActiveCycle
	case PhaseScoring, PhaseFinalizing:
		e.mu.Unlock()
		return Step{}, ErrScoringInProgress
	}
	e.phase = PhaseScoring
	index := e.index
	cycle := e.cycle
	question := e.questions[index]
	e.mu.Unlock()

	score, scoreErr := e.score(ctx, question, text, profile)

	e.mu.Lock()
	defer e.mu.Unlock()

	// Abandoned (and possibly restarted) while the model was scoring.
	if e.phase != PhaseScoring || e.cycle != cycle {
		e.logger.Info("Discarding score for abandoned checkup", "question", index)
		return Step{}, ErrNoActiveCycle
	}

	e.scores = append(e.scores, score)
	e.index++
	step := Step{Question: index, Score: score, ScoreErr: scoreErr}

	if e.index < len(e.questions) {
		e.phase = PhaseAwaitingAnswer
		step.Replies = []string{e.questions[e.index]}
		return step, nil
	}

	e.phase = PhaseFinalizing
	rec, replies := e.finalize(ctx)
	step.Result = rec
	step.Replies = replies
	e.reset()
	return step, nil
}

func (e *Engine) score(ctx context.Context, question, answer string, profile *domain.UserProfile) (int, error) {
	start := time.Now()
	reply, err := e.gen.Generate(ctx, "", ScorePrompt(question, answer), profile)
	e.metrics.RecordGatewayCall("score", start, err)
	if err != nil {
		e.logger.Warn("Scoring failed, recording 0", "error", err)
		return MinScore, err
	}
	return ParseScore(reply), nil
}

// finalize must be called with e.mu held.
func (e *Engine) finalize(ctx context.Context) (*domain.CheckupRecord, []string) {
	rec := &domain.CheckupRecord{
		PHQScore:    lo.Sum(e.scores[:PHQCount]),
		GADScore:    lo.Sum(e.scores[PHQCount:]),
		CompletedAt: e.now(),
	}

	if err := e.store.InsertCheckup(ctx, rec); err != nil {
		e.metrics.RecordStorageError("insert_checkup")
		e.logger.Error("Failed to store checkup result", "phq_score", rec.PHQScore, "gad_score", rec.GADScore, "error", err)
	}
	if e.scheduler != nil {
		if err := e.scheduler.MarkCompleted(ctx, rec.CompletedAt); err != nil {
			e.metrics.RecordStorageError("save_checkup_date")
			e.logger.Error("Failed to store last checkup date", "error", err)
		}
	}
	e.metrics.RecordCheckup(rec.PHQScore, rec.GADScore)
	e.logger.Info("Checkup cycle completed", "phq_score", rec.PHQScore, "gad_score", rec.GADScore)

	replies := []string{closingMessage(rec)}
	if e.scores[selfHarmIndex] > MinScore {
		replies = append(replies, safety.ResourcesMessage())
	}
	return rec, replies
}

func (e *Engine) reset() {
	e.phase = PhaseIdle
	e.index = 0
	e.scores = nil
}

func closingMessage(rec *domain.CheckupRecord) string {
	return fmt.Sprintf("Thank you for sharing, that takes courage. Your check-in is complete.\n"+
		"Mood score (PHQ-9): %d out of %d\nAnxiety score (GAD-7): %d out of %d",
		rec.PHQScore, PHQCount*MaxScore, rec.GADScore, (QuestionCount-PHQCount)*MaxScore)
}
