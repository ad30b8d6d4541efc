// Package onboarding collects and stores the one-time user profile.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/solace/internal/domain"
)

var (
	// ErrInvalidProfile is returned when a required field is missing or malformed.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrProfileExists is returned by Complete when a profile is already stored.
	ErrProfileExists = errors.New("profile already exists")
	// ErrProfileMissing is returned by Load before onboarding ran.
	ErrProfileMissing = errors.New("profile missing")
)

// Genders lists the accepted gender values.
var Genders = []string{"male", "female", "non-binary", "unspecified"}

// Store is the persistence onboarding needs.
type Store interface {
	GetProfile(ctx context.Context) (*domain.UserProfile, error)
	SaveProfile(ctx context.Context, profile *domain.UserProfile) error
}

// Normalize trims fields and lowercases gender.
func Normalize(p domain.UserProfile) domain.UserProfile {
	p.Name = strings.TrimSpace(p.Name)
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	p.Country = strings.TrimSpace(p.Country)
	return p
}

// Validate checks that every field is filled in.
func Validate(p domain.UserProfile) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	case p.Age <= 0:
		return fmt.Errorf("%w: age must be a positive number", ErrInvalidProfile)
	case p.Country == "":
		return fmt.Errorf("%w: country is required", ErrInvalidProfile)
	case !validGender(p.Gender):
		return fmt.Errorf("%w: gender must be one of %s", ErrInvalidProfile, strings.Join(Genders, ", "))
	}
	return nil
}

func validGender(g string) bool {
	for _, v := range Genders {
		if g == v {
			return true
		}
	}
	return false
}

// ParseAge parses a typed age.
func ParseAge(s string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || age <= 0 {
		return 0, fmt.Errorf("%w: age must be a positive number", ErrInvalidProfile)
	}
	return age, nil
}

// Complete validates p and stores it. A stored profile is immutable: when one
// exists it is returned with ErrProfileExists and p is discarded.
func Complete(ctx context.Context, st Store, p domain.UserProfile) (*domain.UserProfile, error) {
	p = Normalize(p)
	if err := Validate(p); err != nil {
		return nil, err
	}

	existing, err := st.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}
	if existing != nil {
		return existing, ErrProfileExists
	}

	if err := st.SaveProfile(ctx, &p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return &p, nil
}

// Load returns the stored profile or ErrProfileMissing.
func Load(ctx context.Context, st Store) (*domain.UserProfile, error) {
	p, err := st.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		return nil, ErrProfileMissing
	}
	return p, nil
}
