package checkup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/solace/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	values   map[string]string
	checkups []domain.CheckupRecord
	getErr   error
	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) GetValue(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) SetValue(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.values[key] = value
	return nil
}

func (f *fakeStore) InsertCheckup(_ context.Context, rec *domain.CheckupRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	rec.ID = int64(len(f.checkups) + 1)
	f.checkups = append(f.checkups, *rec)
	return nil
}

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name     string
		last     *time.Time
		interval int
		want     bool
	}{
		{name: "never ran", last: nil, interval: 14, want: true},
		{name: "just ran", last: at(0), interval: 14, want: false},
		{name: "13 days 23 hours", last: at(14*24*time.Hour - time.Hour), interval: 14, want: false},
		{name: "exactly 14 days", last: at(14 * 24 * time.Hour), interval: 14, want: true},
		{name: "long ago", last: at(100 * 24 * time.Hour), interval: 14, want: true},
		{name: "future date", last: at(-48 * time.Hour), interval: 14, want: false},
		{name: "invalid interval uses default", last: at(10 * 24 * time.Hour), interval: 0, want: false},
		{name: "short interval", last: at(24 * time.Hour), interval: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(now, tt.last, tt.interval); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	st := newFakeStore()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	sched := NewScheduler(st, 14, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	if !sched.Due(ctx) {
		t.Fatal("expected due when no checkup ever ran")
	}
	if err := sched.MarkCompleted(ctx, now); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if sched.Due(ctx) {
		t.Fatal("expected not due immediately after completion")
	}

	now = now.Add(13 * 24 * time.Hour)
	if sched.Due(ctx) {
		t.Fatal("expected not due after 13 days")
	}
	now = now.Add(24 * time.Hour)
	if !sched.Due(ctx) {
		t.Fatal("expected due after 14 days")
	}
}

func TestSchedulerTreatsBadDateAsAbsent(t *testing.T) {
	st := newFakeStore()
	st.values[domain.LastCheckupKey] = "last tuesday"
	sched := NewScheduler(st, 14, nil)

	if sched.LastCheckup(context.Background()) != nil {
		t.Fatal("expected nil for malformed date")
	}
	if !sched.Due(context.Background()) {
		t.Fatal("expected due for malformed date")
	}

	st.getErr = errors.New("disk I/O error")
	if !sched.Due(context.Background()) {
		t.Fatal("expected due when the store read fails")
	}
}

func TestNewSchedulerDefaultsInterval(t *testing.T) {
	if got := NewScheduler(newFakeStore(), -3, nil).IntervalDays(); got != DefaultIntervalDays {
		t.Fatalf("IntervalDays() = %d, want %d", got, DefaultIntervalDays)
	}
}
