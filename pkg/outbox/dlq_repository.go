package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/internal/repo"
	"github.com/abhishekY2401/product-service/pkg/db/models"
	"github.com/abhishekY2401/product-service/pkg/enums"
)

const maxDLQErrorLen = 1024

// DLQRepository stores outbox rows the relay gave up on.
type DLQRepository struct {
	base repo.Base
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{base: repo.NewBase(db)}
}

// InsertTx writes entry inside tx, clipping the error message.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !entry.ErrorReason.IsValid() {
		return errors.New("dlq entry needs a valid error reason")
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxDLQErrorLen {
		clipped := (*entry.ErrorMessage)[:maxDLQErrorLen]
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}

func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	return repo.TakeOptional[models.OutboxDLQ](r.base.DB(ctx), "event_id = ?", eventID)
}

// CountByReason groups dead letters by why they failed.
func (r *DLQRepository) CountByReason(ctx context.Context) (map[enums.OutboxDLQErrorReason]int64, error) {
	var rows []struct {
		ErrorReason string
		Total       int64
	}
	err := r.base.DB(ctx).Model(&models.OutboxDLQ{}).
		Select("error_reason, COUNT(*) AS total").
		Group("error_reason").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OutboxDLQErrorReason]int64, len(rows))
	for _, row := range rows {
		reason, err := enums.ParseOutboxDLQErrorReason(row.ErrorReason)
		if err != nil {
			return nil, err
		}
		out[reason] = row.Total
	}
	return out, nil
}

// DeleteFailedBefore drops dead letters recorded before cutoff.
func (r *DLQRepository) DeleteFailedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	res := tx.Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}
