package model

import "time"

// SecurityQuestion is a shared-secret challenge attached to a found item
// by its finder. The answer is never serialized; depending on server
// configuration it is stored either trimmed in clear or as a bcrypt hash.
type SecurityQuestion struct {
	ID           int64     `json:"id"`
	ItemID       int64     `json:"item_id"`
	Question     string    `json:"question"`
	Answer       string    `json:"-"`
	AnswerHashed bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
