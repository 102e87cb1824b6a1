package claim

import "errors"

// Failure kinds surfaced by the engine. Each is a per-request condition
// the caller can recover from; none is fatal to the process.
var (
	// ErrItemNotFound: the referenced item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemNotClaimable: the item is not in a claimable state. Also
	// covers the already-claimed race outcome so a loser of a race and
	// a latecomer see the same failure.
	ErrItemNotClaimable = errors.New("item is not claimable")

	// ErrInvalidClaimTarget: lost items are not claimed through the
	// question protocol.
	ErrInvalidClaimTarget = errors.New("only found items can be claimed")

	// ErrUnauthorized: the claimant is unknown, deleted, or deactivated.
	ErrUnauthorized = errors.New("claimant is not an active user")

	// ErrIncompleteSubmission: the submission does not cover every
	// question on the item, or references unknown question IDs.
	ErrIncompleteSubmission = errors.New("submission must answer every question on the item")

	// ErrAnswersIncorrect: at least one answer did not match. Which one
	// is deliberately not reported, so the endpoint cannot be used as a
	// per-question oracle.
	ErrAnswersIncorrect = errors.New("one or more answers are incorrect")

	// ErrNotOwner: only the reporting finder may manage an item's questions.
	ErrNotOwner = errors.New("caller does not own this item")

	// ErrQuestionsLocked: questions are frozen once an item is claimed.
	ErrQuestionsLocked = errors.New("questions cannot be changed after an item is claimed")

	// ErrQuestionNotFound: the question does not exist on the item.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrEmptyQuestion: a question or answer is empty after trimming.
	ErrEmptyQuestion = errors.New("question and answer must be non-empty")

	// ErrTooManyQuestions: adding the questions would exceed the cap.
	ErrTooManyQuestions = errors.New("too many questions on item")
)
