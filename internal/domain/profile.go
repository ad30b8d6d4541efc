// Package domain contains core domain types for the solace companion.
package domain

import "strings"

// ProfileKey is the key/value entry holding the onboarding profile blob.
const ProfileKey = "userInfo"

// UserProfile describes the user captured once during onboarding.
type UserProfile struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Country string `json:"country"`
}

// HasPersona returns true if the profile carries enough detail to personalize prompts.
func (p *UserProfile) HasPersona() bool {
	if p == nil {
		return false
	}
	return strings.TrimSpace(p.Gender) != "" && strings.TrimSpace(p.Country) != ""
}
