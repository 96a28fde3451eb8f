// Package sqlite is the local-development record store backed by gorm and SQLite.
package sqlite

import (
	"context"
	"time"

	"screenscan/domain/inspection"
	"screenscan/internal/errors"
	"screenscan/ports"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// inspectionRow is the gorm model of the inspections table
type inspectionRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	UserID     string    `gorm:"not null;index:idx_inspections_user_created,priority:1"`
	DeviceName *string   `gorm:"type:text"`
	ImageURL   string    `gorm:"not null"`
	Prediction string    `gorm:"not null"`
	DefectType *string   `gorm:"type:text"`
	Confidence *float64
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_inspections_user_created,priority:2,sort:desc"`
}

func (inspectionRow) TableName() string { return "inspections" }

func (r inspectionRow) record() inspection.Record {
	return inspection.Record{
		ID:         r.ID,
		UserID:     r.UserID,
		DeviceName: r.DeviceName,
		ImageURL:   r.ImageURL,
		Prediction: r.Prediction,
		DefectType: r.DefectType,
		Confidence: r.Confidence,
		CreatedAt:  r.CreatedAt,
	}
}

// inspectionRepository implements ports.RecordStore with gorm
type inspectionRepository struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite file at path and migrates the schema
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database %s", path)
	}
	if err := db.AutoMigrate(&inspectionRow{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate sqlite schema")
	}
	return db, nil
}

// NewInspectionRepository creates a record store over an opened gorm database
func NewInspectionRepository(db *gorm.DB) ports.RecordStore {
	return &inspectionRepository{db: db}
}

func (r *inspectionRepository) List(ctx context.Context, q ports.RecordQuery) ([]inspection.Record, error) {
	tx := r.db.WithContext(ctx).
		Where("user_id = ?", q.UserID).
		Order("created_at DESC").
		Order("id DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []inspectionRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, errors.DatabaseError("failed to list inspections", err)
	}

	records := make([]inspection.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (r *inspectionRepository) ListLabels(ctx context.Context, userID string) ([]inspection.VerdictLabel, error) {
	labels := []inspection.VerdictLabel{}
	err := r.db.WithContext(ctx).
		Model(&inspectionRow{}).
		Select("prediction", "confidence").
		Where("user_id = ?", userID).
		Scan(&labels).Error
	if err != nil {
		return nil, errors.DatabaseError("failed to list inspection labels", err)
	}
	return labels, nil
}

func (r *inspectionRepository) Create(ctx context.Context, draft inspection.Draft) (*inspection.Record, error) {
	row := inspectionRow{
		UserID:     draft.UserID,
		DeviceName: draft.DeviceName,
		ImageURL:   draft.ImageURL,
		Prediction: draft.Prediction,
		DefectType: draft.DefectType,
		Confidence: draft.Confidence,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errors.DatabaseError("failed to create inspection", err)
	}
	rec := row.record()
	return &rec, nil
}
