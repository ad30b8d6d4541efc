package conversation

import (
	"context"
	"sync"

	"github.com/ashureev/solace/internal/domain"
)

// memStore is an in-memory backend with injectable write failures.
type memStore struct {
	mu         sync.Mutex
	messages   []domain.Message
	summary    string
	values     map[string]string
	profile    *domain.UserProfile
	checkups   []domain.CheckupRecord
	insertErr  error
	summaryErr error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (s *memStore) InsertMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	msg.Seq = int64(len(s.messages) + 1)
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memStore) ListMessages(context.Context) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...), nil
}

func (s *memStore) ClearHistory(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.messages))
	s.messages = nil
	s.summary = ""
	return n, nil
}

func (s *memStore) ReplaceSummary(_ context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summaryErr != nil {
		return s.summaryErr
	}
	s.summary = content
	return nil
}

func (s *memStore) GetSummary(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, nil
}

func (s *memStore) GetProfile(context.Context) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, nil
}

func (s *memStore) GetValue(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memStore) SetValue(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memStore) InsertCheckup(_ context.Context, rec *domain.CheckupRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = int64(len(s.checkups) + 1)
	s.checkups = append(s.checkups, *rec)
	return nil
}
