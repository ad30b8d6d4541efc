package domain

import (
	"time"
)

// LastCheckupKey is the key/value entry holding the last completed checkup time.
const LastCheckupKey = "last_checkup_date"

// CheckupRecord is the persisted result of one completed checkup cycle.
type CheckupRecord struct {
	ID          int64     `json:"id"`
	PHQScore    int       `json:"phq_score"`
	GADScore    int       `json:"gad_score"`
	CompletedAt time.Time `json:"completed_at"`
}
