package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reclaim-app/reclaim/internal/model"
)

// QuestionInput is a prepared (question, answer) pair ready for storage.
// The answer is either trimmed clear text or a bcrypt hash, as indicated
// by AnswerHashed.
type QuestionInput struct {
	Question     string
	Answer       string
	AnswerHashed bool
}

// AddQuestions appends questions to an item in a single transaction.
// Existing questions are never replaced.
func AddQuestions(ctx context.Context, db *sql.DB, itemID int64, questions []QuestionInput) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range questions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO security_questions (item_id, question, answer, answer_hashed)
			 VALUES (?, ?, ?, ?)`,
			itemID, q.Question, q.Answer, q.AnswerHashed,
		)
		if err != nil {
			return fmt.Errorf("adding question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing questions: %w", err)
	}
	return nil
}

// ListQuestions returns an item's security questions in creation order.
func ListQuestions(ctx context.Context, db *sql.DB, itemID int64) ([]model.SecurityQuestion, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_id, question, answer, answer_hashed, created_at
		 FROM security_questions WHERE item_id = ? ORDER BY id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()

	var questions []model.SecurityQuestion
	for rows.Next() {
		var q model.SecurityQuestion
		if err := rows.Scan(&q.ID, &q.ItemID, &q.Question, &q.Answer, &q.AnswerHashed, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountQuestions returns the number of questions attached to an item.
func CountQuestions(ctx context.Context, db *sql.DB, itemID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM security_questions WHERE item_id = ?`, itemID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting questions: %w", err)
	}
	return count, nil
}

// RemoveQuestion deletes a question from an item. Returns false when no
// such question exists on the item.
func RemoveQuestion(ctx context.Context, db *sql.DB, itemID, questionID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM security_questions WHERE id = ? AND item_id = ?`,
		questionID, itemID,
	)
	if err != nil {
		return false, fmt.Errorf("removing question: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("removing question: %w", err)
	}
	return n > 0, nil
}
