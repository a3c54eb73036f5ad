package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"talentbase/hiring-pipeline/internal/models"
)

// gormQueue stores work items in the same database as the applicant records,
// which is what lets the pipeline enqueue inside its own transactions.
type gormQueue struct {
	db         *gorm.DB
	visibility time.Duration
	log        *zap.SugaredLogger
}

func NewGormQueue(db *gorm.DB, visibility time.Duration, log *zap.SugaredLogger) Queue {
	return &gormQueue{
		db:         db,
		visibility: visibility,
		log:        log,
	}
}

func (q *gormQueue) Enqueue(ctx context.Context, tx *gorm.DB, kind Kind, payload any) error {
	if tx == nil {
		tx = q.db
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}

	item := &WorkItem{
		ID:      uuid.New(),
		Kind:    kind,
		Payload: body,
	}
	if err := tx.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to enqueue %s work item: %w", kind, err)
	}

	q.log.Debugw("work item enqueued", "kind", kind, "id", item.ID)
	return nil
}

// Lease claims up to limit items that are not done and whose lease is absent
// or expired. The claim itself is a conditional update, so two consumers
// racing for the same item cannot both get it within one visibility window.
func (q *gormQueue) Lease(ctx context.Context, limit int) ([]WorkItem, error) {
	if limit <= 0 {
		limit = 1
	}
	cutoff := time.Now().Add(-q.visibility)

	var candidates []WorkItem
	err := q.db.WithContext(ctx).
		Where("done_at IS NULL").
		Where("leased_at IS NULL OR leased_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find leasable work items: %w", err)
	}

	now := time.Now()
	var leased []WorkItem
	for _, item := range candidates {
		result := q.db.WithContext(ctx).Model(&WorkItem{}).
			Where("id = ? AND done_at IS NULL AND (leased_at IS NULL OR leased_at < ?)", item.ID, cutoff).
			Updates(map[string]interface{}{
				"leased_at": now,
				"attempts":  gorm.Expr("attempts + 1"),
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to lease work item %s: %w", item.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			// Claimed by another consumer in the meantime.
			continue
		}

		item.LeasedAt = &now
		item.Attempts++
		leased = append(leased, item)
	}

	return leased, nil
}

func (q *gormQueue) Complete(ctx context.Context, id uuid.UUID) error {
	result := q.db.WithContext(ctx).Model(&WorkItem{}).
		Where("id = ? AND done_at IS NULL", id).
		Update("done_at", time.Now())

	if result.Error != nil {
		return fmt.Errorf("failed to complete work item %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("work item %s: %w", id, models.ErrNotFound)
	}

	q.log.Debugw("work item completed", "id", id)
	return nil
}
