package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chalkin/chalkin/internal/core/domain"
)

// ExportRepo implements ports.ExportRepository with pgx.
type ExportRepo struct {
	db *DB
}

// NewExportRepo creates a new ExportRepo.
func NewExportRepo(db *DB) *ExportRepo {
	return &ExportRepo{db: db}
}

const exportColumns = `id, user_id, session_ref, name, request, status, object_key,
	strava_upload_id, strava_activity_id, error, created_at, updated_at`

// Create inserts an export and fills in its ID and timestamps.
func (r *ExportRepo) Create(ctx context.Context, e *domain.Export) error {
	req, err := json.Marshal(e.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO exports (user_id, session_ref, name, request, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, e.UserID, e.SessionRef, e.Name, req, string(e.Status)).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapErr(err)
}

// GetByID returns an export.
func (r *ExportRepo) GetByID(ctx context.Context, id string) (*domain.Export, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+exportColumns+` FROM exports WHERE id = $1`, id)
	e, err := scanExport(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// ListByUser returns a user's exports, newest first.
func (r *ExportRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Export, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+exportColumns+` FROM exports
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Update writes the mutable fields of an export.
func (r *ExportRepo) Update(ctx context.Context, e *domain.Export) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE exports
		SET status = $2, object_key = $3, strava_upload_id = $4,
		    strava_activity_id = $5, error = $6, updated_at = $7
		WHERE id = $1
	`, e.ID, string(e.Status), e.ObjectKey, e.StravaUploadID, e.StravaActivityID, e.Error, e.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanExport(row pgx.Row) (*domain.Export, error) {
	var (
		e   domain.Export
		req []byte
	)
	err := row.Scan(&e.ID, &e.UserID, &e.SessionRef, &e.Name, &req, &e.Status, &e.ObjectKey,
		&e.StravaUploadID, &e.StravaActivityID, &e.Error, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(req, &e.Request); err != nil {
		return nil, fmt.Errorf("unmarshal export request: %w", err)
	}
	return &e, nil
}
