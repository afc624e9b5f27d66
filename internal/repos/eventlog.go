package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

type EventLogRepo interface {
	Record(ctx context.Context, tx *gorm.DB, entry *types.EventLog) (*types.EventLog, error)
	ListBySource(ctx context.Context, tx *gorm.DB, sourceRecordID string) ([]*types.EventLog, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.EventLog, error)
}

type eventLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventLogRepo(db *gorm.DB, baseLog *logger.Logger) EventLogRepo {
	return &eventLogRepo{db: db, log: baseLog.With("repo", "EventLogRepo")}
}

func (er *eventLogRepo) Record(ctx context.Context, tx *gorm.DB, entry *types.EventLog) (*types.EventLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (er *eventLogRepo) ListBySource(ctx context.Context, tx *gorm.DB, sourceRecordID string) ([]*types.EventLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	var results []*types.EventLog
	if err := transaction.WithContext(ctx).
		Where("source_record_id = ?", sourceRecordID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (er *eventLogRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.EventLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	if limit <= 0 {
		limit = 100
	}
	var results []*types.EventLog
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
