package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reclaim-app/reclaim/internal/model"
)

// RecordClaim appends a claim attempt to the audit trail.
func RecordClaim(ctx context.Context, db *sql.DB, reference string, itemID, claimantID int64, outcome string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO claims (reference, item_id, claimant_id, outcome) VALUES (?, ?, ?, ?)`,
		reference, itemID, claimantID, outcome,
	)
	if err != nil {
		return fmt.Errorf("recording claim attempt: %w", err)
	}
	return nil
}

// ListClaims returns claim attempts, newest first, optionally filtered by item.
func ListClaims(ctx context.Context, db *sql.DB, itemID int64) ([]model.ClaimRecord, error) {
	query := `SELECT c.id, c.reference, c.item_id, c.claimant_id, c.outcome, c.created_at,
	                 i.name AS item_name, u.username AS claimant_name
	          FROM claims c
	          JOIN items i ON i.id = c.item_id
	          JOIN users u ON u.id = c.claimant_id`
	var args []any

	if itemID > 0 {
		query += ` WHERE c.item_id = ?`
		args = append(args, itemID)
	}

	query += ` ORDER BY c.created_at DESC, c.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claim attempts: %w", err)
	}
	defer rows.Close()

	var claims []model.ClaimRecord
	for rows.Next() {
		var c model.ClaimRecord
		if err := rows.Scan(&c.ID, &c.Reference, &c.ItemID, &c.ClaimantID, &c.Outcome,
			&c.CreatedAt, &c.ItemName, &c.ClaimantName); err != nil {
			return nil, fmt.Errorf("scanning claim attempt: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
