package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"screenscan/domain/inspection"
	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const recordColumns = `id, user_id, device_name, image_url, prediction, defect_type, confidence, created_at`

// inspectionRepository implements ports.RecordStore for PostgreSQL
type inspectionRepository struct {
	db *sqlx.DB
}

// NewInspectionRepository creates a new PostgreSQL record store
func NewInspectionRepository(db *sqlx.DB) ports.RecordStore {
	return &inspectionRepository{db: db}
}

// List returns the user's records, newest first
func (r *inspectionRepository) List(ctx context.Context, q ports.RecordQuery) ([]inspection.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM inspections
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{q.UserID}
	if q.Limit > 0 {
		query += ` LIMIT $2`
		args = append(args, q.Limit)
	}

	records := []inspection.Record{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, translate(err, "failed to list inspections")
	}
	return records, nil
}

// ListLabels returns the prediction and confidence of every record the user owns
func (r *inspectionRepository) ListLabels(ctx context.Context, userID string) ([]inspection.VerdictLabel, error) {
	labels := []inspection.VerdictLabel{}
	err := r.db.SelectContext(ctx, &labels, `
		SELECT prediction, confidence
		FROM inspections
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, translate(err, "failed to list inspection labels")
	}
	return labels, nil
}

// Create inserts a record; the database assigns id and created_at
func (r *inspectionRepository) Create(ctx context.Context, draft inspection.Draft) (*inspection.Record, error) {
	query, args, err := r.db.BindNamed(`
		INSERT INTO inspections (user_id, device_name, image_url, prediction, defect_type, confidence)
		VALUES (:user_id, :device_name, :image_url, :prediction, :defect_type, :confidence)
		RETURNING `+recordColumns, draft)
	if err != nil {
		return nil, fmt.Errorf("bind insert: %w", err)
	}

	var rec inspection.Record
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&rec); err != nil {
		return nil, translate(err, "failed to create inspection")
	}
	return &rec, nil
}

// translate turns driver errors into DATABASE_ERROR AppErrors naming the SQLSTATE condition
func translate(err error, message string) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return errors.DatabaseError(fmt.Sprintf("%s (%s)", message, pqErr.Code.Name()), err)
	}
	return errors.DatabaseError(message, err)
}
