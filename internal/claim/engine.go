// Package claim implements the ownership verification workflow for found
// items: the finder attaches security questions, a claimant proves
// ownership by answering all of them, and the item transfers custody
// through a single compare-and-swap status transition.
package claim

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/reclaim-app/reclaim/internal/model"
	"github.com/reclaim-app/reclaim/internal/store"
)

// DefaultMaxQuestions bounds the number of questions per item, which in
// turn bounds verification cost (relevant when answers are bcrypt-hashed).
const DefaultMaxQuestions = 20

// Engine decides claim attempts and manages security questions.
type Engine struct {
	DB *sql.DB

	// MaxQuestions caps questions per item. Zero means DefaultMaxQuestions.
	MaxQuestions int

	// HashAnswers stores new answers as bcrypt hashes instead of clear
	// text. Comparison semantics are unchanged: trimmed, case-sensitive.
	HashAnswers bool
}

// NewEngine creates an engine with default configuration.
func NewEngine(db *sql.DB) *Engine {
	return &Engine{DB: db, MaxQuestions: DefaultMaxQuestions}
}

// Answer is one submitted response to a security question.
type Answer struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

// Pair is an unvalidated (question, answer) pair from the finder.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Receipt is returned on a successful claim.
type Receipt struct {
	Reference string     `json:"reference"`
	ItemID    int64      `json:"item_id"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// SubmitClaim verifies a claimant's answers against an item's security
// questions and, if every answer matches, atomically transitions the item
// from approved to claimed. Preconditions are checked in a fixed order;
// the first failing one determines the returned error. On failure no
// state changes except the audit trail.
func (e *Engine) SubmitClaim(ctx context.Context, itemID, claimantID int64, answers []Answer) (*Receipt, error) {
	item, err := store.GetItem(ctx, e.DB, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading item: %w", err)
	}
	if item == nil || item.DeletedAt != nil {
		return nil, ErrItemNotFound
	}

	if item.Status != model.StatusApproved {
		return nil, ErrItemNotClaimable
	}

	if item.ReportType != model.ReportTypeFound {
		return nil, ErrInvalidClaimTarget
	}

	claimant, err := store.GetUser(ctx, e.DB, claimantID)
	if err != nil {
		return nil, fmt.Errorf("loading claimant: %w", err)
	}
	if claimant == nil || claimant.DeletedAt != nil || !claimant.Active {
		return nil, ErrUnauthorized
	}

	questions, err := store.ListQuestions(ctx, e.DB, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading questions: %w", err)
	}
	// Approval requires at least one question, but guard anyway: an item
	// with none must not be claimable by an empty submission.
	if len(questions) == 0 {
		return nil, ErrItemNotClaimable
	}

	submitted := make(map[int64]string, len(answers))
	known := make(map[int64]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	for _, a := range answers {
		if !known[a.QuestionID] {
			return nil, e.recordFailure(ctx, itemID, claimantID, model.ClaimOutcomeIncomplete, ErrIncompleteSubmission)
		}
		submitted[a.QuestionID] = a.Answer
	}

	// Every question must have a submitted answer.
	for _, q := range questions {
		if _, ok := submitted[q.ID]; !ok {
			return nil, e.recordFailure(ctx, itemID, claimantID, model.ClaimOutcomeIncomplete, ErrIncompleteSubmission)
		}
	}

	// All questions are compared even after a mismatch, so the caller
	// learns nothing about which answer failed, not even from timing.
	matched := true
	for _, q := range questions {
		if !answerMatches(q, submitted[q.ID]) {
			matched = false
		}
	}
	if !matched {
		return nil, e.recordFailure(ctx, itemID, claimantID, model.ClaimOutcomeIncorrect, ErrAnswersIncorrect)
	}

	// Compare-and-swap: approved → claimed. Of two racing verified
	// submissions, exactly one lands; the other observes the conflict.
	claimed, err := store.ClaimItem(ctx, e.DB, itemID, claimantID)
	if err != nil {
		return nil, fmt.Errorf("claiming item: %w", err)
	}
	if !claimed {
		return nil, e.recordFailure(ctx, itemID, claimantID, model.ClaimOutcomeConflict, ErrItemNotClaimable)
	}

	reference := uuid.NewString()
	if err := store.RecordClaim(ctx, e.DB, reference, itemID, claimantID, model.ClaimOutcomeClaimed); err != nil {
		return nil, fmt.Errorf("recording claim: %w", err)
	}

	updated, err := store.GetItem(ctx, e.DB, itemID)
	if err != nil {
		return nil, fmt.Errorf("reloading item: %w", err)
	}

	slog.Info("item claimed", "item", itemID, "claimant", claimant.Username, "reference", reference)
	return &Receipt{Reference: reference, ItemID: itemID, ClaimedAt: updated.ClaimedAt}, nil
}

// AddQuestions appends security questions to a found item. Only the
// reporting finder may add questions, and only before the item is claimed.
func (e *Engine) AddQuestions(ctx context.Context, itemID, finderID int64, pairs []Pair) error {
	item, err := store.GetItem(ctx, e.DB, itemID)
	if err != nil {
		return fmt.Errorf("loading item: %w", err)
	}
	if item == nil || item.DeletedAt != nil {
		return ErrItemNotFound
	}
	if item.ReportedBy != finderID {
		return ErrNotOwner
	}
	if item.ReportType != model.ReportTypeFound {
		return ErrInvalidClaimTarget
	}
	if item.Status == model.StatusClaimed || item.Status == model.StatusResolved {
		return ErrQuestionsLocked
	}

	existing, err := store.CountQuestions(ctx, e.DB, itemID)
	if err != nil {
		return fmt.Errorf("counting questions: %w", err)
	}

	prepared, err := e.PrepareQuestions(pairs, existing)
	if err != nil {
		return err
	}

	if err := store.AddQuestions(ctx, e.DB, itemID, prepared); err != nil {
		return fmt.Errorf("storing questions: %w", err)
	}

	slog.Info("questions added", "item", itemID, "count", len(prepared))
	return nil
}

// RemoveQuestion deletes a question from an item. Permitted for the
// reporting finder or an admin, and only while the item is unclaimed.
func (e *Engine) RemoveQuestion(ctx context.Context, itemID, callerID int64, isAdmin bool, questionID int64) error {
	item, err := store.GetItem(ctx, e.DB, itemID)
	if err != nil {
		return fmt.Errorf("loading item: %w", err)
	}
	if item == nil || item.DeletedAt != nil {
		return ErrItemNotFound
	}
	if item.ReportedBy != callerID && !isAdmin {
		return ErrNotOwner
	}
	if item.Status == model.StatusClaimed || item.Status == model.StatusResolved {
		return ErrQuestionsLocked
	}

	removed, err := store.RemoveQuestion(ctx, e.DB, itemID, questionID)
	if err != nil {
		return fmt.Errorf("removing question: %w", err)
	}
	if !removed {
		return ErrQuestionNotFound
	}
	return nil
}

// PrepareQuestions validates and normalizes raw pairs for storage:
// trims both sides, rejects empty ones, enforces the question cap
// (existing is the number already on the item), and hashes answers when
// the engine is configured to.
func (e *Engine) PrepareQuestions(pairs []Pair, existing int) ([]store.QuestionInput, error) {
	if len(pairs) == 0 {
		return nil, ErrEmptyQuestion
	}

	max := e.MaxQuestions
	if max <= 0 {
		max = DefaultMaxQuestions
	}
	if existing+len(pairs) > max {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyQuestions, max)
	}

	prepared := make([]store.QuestionInput, 0, len(pairs))
	for _, p := range pairs {
		question := strings.TrimSpace(p.Question)
		answer := strings.TrimSpace(p.Answer)
		if question == "" || answer == "" {
			return nil, ErrEmptyQuestion
		}

		if e.HashAnswers {
			hash, err := bcrypt.GenerateFromPassword([]byte(answer), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hashing answer: %w", err)
			}
			answer = string(hash)
		}

		prepared = append(prepared, store.QuestionInput{
			Question:     question,
			Answer:       answer,
			AnswerHashed: e.HashAnswers,
		})
	}
	return prepared, nil
}

// answerMatches compares a submitted answer against the stored one:
// trimmed, case-sensitive exact match.
func answerMatches(q model.SecurityQuestion, submitted string) bool {
	trimmed := strings.TrimSpace(submitted)
	if q.AnswerHashed {
		return bcrypt.CompareHashAndPassword([]byte(q.Answer), []byte(trimmed)) == nil
	}
	return trimmed == strings.TrimSpace(q.Answer)
}

// recordFailure writes an audit row for a failed attempt and passes the
// failure through. Audit write errors take precedence: a claim decision
// that cannot be recorded is a server-side fault, not a caller one.
func (e *Engine) recordFailure(ctx context.Context, itemID, claimantID int64, outcome string, cause error) error {
	if err := store.RecordClaim(ctx, e.DB, uuid.NewString(), itemID, claimantID, outcome); err != nil {
		return fmt.Errorf("recording claim attempt: %w", err)
	}
	slog.Info("claim attempt failed", "item", itemID, "claimant", claimantID, "outcome", outcome)
	return cause
}
