package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reclaim-app/reclaim/internal/model"
)

// ErrNotPending is returned when an edit targets an item that has left
// the pending state.
var ErrNotPending = errors.New("only pending items can be edited")

// ItemFilter narrows ListItems results. Zero values mean "no filter".
type ItemFilter struct {
	ReportType string
	Status     string
	ReportedBy int64
}

const itemColumns = `id, report_type, status, name, category, location, description,
	        occurred_on, reported_by, claimed_by, claimed_at, photo_mime,
	        created_at, updated_at, deleted_at`

// CreateItem creates a new item report in pending status.
func CreateItem(ctx context.Context, db *sql.DB, reportType, name, category, location, description string, occurredOn time.Time, reportedBy int64) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (report_type, name, category, location, description, occurred_on, reported_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reportType, name, category, location, description, occurredOn, reportedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items matching the filter, newest first.
func ListItems(ctx context.Context, db *sql.DB, filter ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL`
	var args []any

	if filter.ReportType != "" {
		query += ` AND report_type = ?`
		args = append(args, filter.ReportType)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.ReportedBy > 0 {
		query += ` AND reported_by = ?`
		args = append(args, filter.ReportedBy)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListListedItems returns non-deleted items publicly visible to claimants:
// approved and expected ones, optionally filtered by report type.
func ListListedItems(ctx context.Context, db *sql.DB, reportType string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
	          WHERE deleted_at IS NULL AND status IN (?, ?)`
	args := []any{model.StatusApproved, model.StatusExpected}

	if reportType != "" {
		query += ` AND report_type = ?`
		args = append(args, reportType)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListClaimedBy returns items successfully claimed by the given user.
func ListClaimedBy(ctx context.Context, db *sql.DB, userID int64) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE deleted_at IS NULL AND claimed_by = ?
		 ORDER BY claimed_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing claimed items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateItemDetails updates an item's descriptive attributes. Only pending
// items are editable; once moderated the report is frozen.
func UpdateItemDetails(ctx context.Context, db *sql.DB, id int64, name, category, location, description string, occurredOn time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, category = ?, location = ?, description = ?,
		        occurred_on = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		name, category, location, description, occurredOn, id, model.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// SetItemStatus transitions an item's status, but only if it currently has
// the expected prior status. Returns false without error when the item was
// concurrently modified or never had the expected status.
func SetItemStatus(ctx context.Context, db *sql.DB, id int64, from, to string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("setting item status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting item status: %w", err)
	}
	return n > 0, nil
}

// ClaimItem atomically transitions an approved item to claimed and records
// the claimant. The WHERE clause is the compare-and-swap: of two racing
// claim attempts, exactly one update matches a row.
func ClaimItem(ctx context.Context, db *sql.DB, id, claimantID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, claimed_by = ?, claimed_at = CURRENT_TIMESTAMP,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		model.StatusClaimed, claimantID, id, model.StatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("claiming item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming item: %w", err)
	}
	return n > 0, nil
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemPhoto sets an item's photo data.
func SetItemPhoto(ctx context.Context, db *sql.DB, id int64, photo []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET photo = ?, photo_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	return nil
}

// GetItemPhoto returns an item's photo data and MIME type.
func GetItemPhoto(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM items WHERE id = ?`, id,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item photo: %w", err)
	}
	return photo, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var category, location, description, photoMime sql.NullString
	err := row.Scan(&item.ID, &item.ReportType, &item.Status, &item.Name,
		&category, &location, &description,
		&item.OccurredOn, &item.ReportedBy, &item.ClaimedBy, &item.ClaimedAt, &photoMime,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.Category = category.String
	item.Location = location.String
	item.Description = description.String
	item.PhotoMime = photoMime.String
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
