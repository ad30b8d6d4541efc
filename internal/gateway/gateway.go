// Package gateway relays prompts to the generative model provider.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/solace/internal/domain"
)

// Generator maps (rolling summary, new input, profile) to reply text.
// A nil profile means personalization is omitted.
type Generator interface {
	Generate(ctx context.Context, summary, message string, profile *domain.UserProfile) (string, error)
}

// ErrEmptyReply is returned when the provider answered without any text.
var ErrEmptyReply = errors.New("model returned no text")

// TransientError wraps every gateway failure: timeouts, non-2xx responses,
// malformed bodies and missing credentials. Callers substitute a fallback
// value instead of propagating it.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err came from the gateway.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Unavailable is a Generator that always fails. It stands in for the
// provider when no client could be built (for example a missing API key),
// so the core keeps running on its fallback paths.
type Unavailable struct {
	Reason error
}

// Generate always returns a *TransientError.
func (u Unavailable) Generate(_ context.Context, _, _ string, _ *domain.UserProfile) (string, error) {
	reason := u.Reason
	if reason == nil {
		reason = errors.New("model provider not configured")
	}
	return "", &TransientError{Op: "generate", Err: reason}
}

// Ensure implementations satisfy Generator.
var (
	_ Generator = (*GeminiClient)(nil)
	_ Generator = Unavailable{}
)
