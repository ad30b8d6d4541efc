package onboarding

import (
	"context"
	"errors"
	"testing"

	"github.com/ashureev/solace/internal/domain"
)

type fakeStore struct {
	profile *domain.UserProfile
	getErr  error
	saves   int
}

func (f *fakeStore) GetProfile(context.Context) (*domain.UserProfile, error) {
	return f.profile, f.getErr
}

func (f *fakeStore) SaveProfile(_ context.Context, p *domain.UserProfile) error {
	f.saves++
	cp := *p
	f.profile = &cp
	return nil
}

func TestValidate(t *testing.T) {
	valid := domain.UserProfile{Name: "A", Age: 30, Gender: "female", Country: "PK"}

	tests := []struct {
		name    string
		mutate  func(p *domain.UserProfile)
		wantErr bool
	}{
		{name: "complete", mutate: func(*domain.UserProfile) {}},
		{name: "missing name", mutate: func(p *domain.UserProfile) { p.Name = "" }, wantErr: true},
		{name: "zero age", mutate: func(p *domain.UserProfile) { p.Age = 0 }, wantErr: true},
		{name: "negative age", mutate: func(p *domain.UserProfile) { p.Age = -4 }, wantErr: true},
		{name: "missing country", mutate: func(p *domain.UserProfile) { p.Country = "" }, wantErr: true},
		{name: "unknown gender", mutate: func(p *domain.UserProfile) { p.Gender = "robot" }, wantErr: true},
		{name: "unspecified gender", mutate: func(p *domain.UserProfile) { p.Gender = "unspecified" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := Validate(p)
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidProfile) {
				t.Fatalf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestParseAge(t *testing.T) {
	if age, err := ParseAge(" 30 "); err != nil || age != 30 {
		t.Fatalf("ParseAge(30) = %d, %v", age, err)
	}
	for _, in := range []string{"", "abc", "0", "-1"} {
		if _, err := ParseAge(in); !errors.Is(err, ErrInvalidProfile) {
			t.Errorf("ParseAge(%q) = %v, want ErrInvalidProfile", in, err)
		}
	}
}

func TestCompleteStoresNormalizedProfile(t *testing.T) {
	st := &fakeStore{}
	got, err := Complete(context.Background(), st, domain.UserProfile{Name: "  A ", Age: 30, Gender: "Female", Country: " PK"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	want := domain.UserProfile{Name: "A", Age: 30, Gender: "female", Country: "PK"}
	if *got != want || *st.profile != want {
		t.Fatalf("stored %+v, want %+v", st.profile, want)
	}
}

func TestCompleteNeverReplacesStoredProfile(t *testing.T) {
	existing := &domain.UserProfile{Name: "Old", Age: 40, Gender: "male", Country: "UK"}
	st := &fakeStore{profile: existing}

	got, err := Complete(context.Background(), st, domain.UserProfile{Name: "New", Age: 20, Gender: "female", Country: "PK"})
	if !errors.Is(err, ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}
	if got != existing || st.saves != 0 || st.profile.Name != "Old" {
		t.Fatalf("stored profile changed: %+v", st.profile)
	}
}

func TestCompleteRejectsInvalidBeforeStoring(t *testing.T) {
	st := &fakeStore{}
	if _, err := Complete(context.Background(), st, domain.UserProfile{Name: "A"}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
	if st.saves != 0 {
		t.Fatal("invalid profile must not be stored")
	}
}

func TestLoad(t *testing.T) {
	if _, err := Load(context.Background(), &fakeStore{}); !errors.Is(err, ErrProfileMissing) {
		t.Fatalf("expected ErrProfileMissing, got %v", err)
	}
	if _, err := Load(context.Background(), &fakeStore{getErr: errors.New("boom")}); err == nil || errors.Is(err, ErrProfileMissing) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	p := &domain.UserProfile{Name: "A"}
	if got, err := Load(context.Background(), &fakeStore{profile: p}); err != nil || got != p {
		t.Fatalf("Load = %+v, %v", got, err)
	}
}
