package model

import "time"

// ClaimRecord is the audit trail entry for a claim attempt that reached
// answer verification. Failed attempts are recorded too, so admins can
// spot repeated probing of an item's questions.
type ClaimRecord struct {
	ID         int64     `json:"id"`
	Reference  string    `json:"reference"`
	ItemID     int64     `json:"item_id"`
	ClaimantID int64     `json:"claimant_id"`
	Outcome    string    `json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	ClaimantName string `json:"claimant_name,omitempty"`
}

// Claim attempt outcomes.
const (
	ClaimOutcomeClaimed    = "claimed"
	ClaimOutcomeIncorrect  = "answers_incorrect"
	ClaimOutcomeIncomplete = "incomplete"
	ClaimOutcomeConflict   = "conflict"
)
