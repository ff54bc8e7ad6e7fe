package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base holds the gorm handle a domain repository runs on. The handle is
// either the pool or an open transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx. A nil ctx returns it unchanged.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a Base running on tx.
func (b Base) Bind(tx *gorm.DB) Base {
	return Base{db: tx}
}

// TakeOptional loads one row matching query, or nil when none does.
func TakeOptional[T any](q *gorm.DB, query string, args ...any) (*T, error) {
	var row T
	err := q.Where(query, args...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
