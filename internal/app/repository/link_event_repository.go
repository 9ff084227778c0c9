package repository

import (
	"context"
	"time"

	"github.com/sifan077/paylink/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkEventRepository defines the data access contract for link lifecycle events.
type LinkEventRepository interface {
	Create(ctx context.Context, event *model.LinkEvent) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type linkEventRepository struct {
	db *gorm.DB
}

// NewLinkEventRepository returns a GORM-backed LinkEventRepository.
func NewLinkEventRepository(db *gorm.DB) LinkEventRepository {
	return &linkEventRepository{db: db}
}

// Create inserts the event, ignoring redeliveries of an already stored id.
func (r *linkEventRepository) Create(ctx context.Context, event *model.LinkEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
}

func (r *linkEventRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("occurred_at < ?", before).
		Delete(&model.LinkEvent{})
	return result.RowsAffected, result.Error
}
