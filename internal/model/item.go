package model

import "time"

// Item represents a reported lost or found item.
type Item struct {
	ID          int64      `json:"id"`
	ReportType  string     `json:"report_type"`
	Status      string     `json:"status"`
	Name        string     `json:"name"`
	Category    string     `json:"category,omitempty"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	OccurredOn  time.Time  `json:"occurred_on"`
	ReportedBy  int64      `json:"reported_by"`
	ClaimedBy   *int64     `json:"claimed_by,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	PhotoMime   string     `json:"photo_mime,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Report types.
const (
	ReportTypeLost  = "lost"
	ReportTypeFound = "found"
)

// Item statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusExpected = "expected"
	StatusClaimed  = "claimed"
	StatusResolved = "resolved"
)

// ValidReportType reports whether t is a known report type.
func ValidReportType(t string) bool {
	return t == ReportTypeLost || t == ReportTypeFound
}

// ValidStatus reports whether s is a known item status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpected, StatusClaimed, StatusResolved:
		return true
	}
	return false
}

// StatusTransitionAllowed reports whether a moderation transition from
// one status to another is permitted. Moderation is one-shot: pending
// items are approved or rejected exactly once, approved lost items can
// be marked expected, and claimed items can be resolved. The
// approved→claimed transition belongs to the claim engine, not to
// moderation, so it is deliberately absent here.
func StatusTransitionAllowed(from, to string) bool {
	switch to {
	case StatusApproved, StatusRejected:
		return from == StatusPending
	case StatusExpected:
		return from == StatusApproved
	case StatusResolved:
		return from == StatusClaimed
	}
	return false
}
