package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

type ReviewFlagRepo interface {
	Create(ctx context.Context, tx *gorm.DB, flag *types.ReviewFlag) (*types.ReviewFlag, error)
	ListOpen(ctx context.Context, tx *gorm.DB) ([]*types.ReviewFlag, error)
	Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type reviewFlagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewFlagRepo(db *gorm.DB, baseLog *logger.Logger) ReviewFlagRepo {
	return &reviewFlagRepo{db: db, log: baseLog.With("repo", "ReviewFlagRepo")}
}

func (rr *reviewFlagRepo) Create(ctx context.Context, tx *gorm.DB, flag *types.ReviewFlag) (*types.ReviewFlag, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if flag.ID == uuid.Nil {
		flag.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(flag).Error; err != nil {
		return nil, err
	}
	return flag, nil
}

func (rr *reviewFlagRepo) ListOpen(ctx context.Context, tx *gorm.DB) ([]*types.ReviewFlag, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.ReviewFlag
	if err := transaction.WithContext(ctx).
		Where("resolved = ?", false).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *reviewFlagRepo) Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ReviewFlag{}).
		Where("id = ?", id).
		Update("resolved", true).Error
}
