package shared

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "busy", err: errors.New("exec: SQLITE_BUSY (5)"), want: true},
		{name: "locked", err: errors.New("database is locked"), want: true},
		{name: "other", err: errors.New("no such table: messages"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSQLiteConflictError(tt.err); got != tt.want {
				t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryOnConflictRetriesBusyErrors(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, "insert", func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryOnConflictStopsOnOtherErrors(t *testing.T) {
	calls := 0
	sentinel := errors.New("constraint failed")
	err := RetryOnConflict(context.Background(), RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}, "insert", func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestRetryOnConflictGivesUp(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}, "insert", func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
