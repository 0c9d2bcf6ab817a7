package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridianhq/corpsite/pkg/console"
	"gorm.io/gorm"
)

// repo is the generic gorm-backed collection serving one resource
// family. The family's canonical order is fixed at construction.
type repo[T console.Record] struct {
	db    *gorm.DB
	order string
}

func (r *repo[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.db.WithContext(ctx).
		Order(r.order).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	return out, nil
}

func (r *repo[T]) Insert(ctx context.Context, rec *T) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}

	return nil
}

// Update applies a partial update by column and returns the resulting
// record as confirmed by the database.
func (r *repo[T]) Update(
	ctx context.Context, id uint, patch map[string]any,
) (*T, error) {
	result := r.db.WithContext(ctx).
		Model(new(T)).
		Where("id = ?", id).
		Updates(patch)
	if result.Error != nil {
		return nil, fmt.Errorf("updating record %d: %w", id, result.Error)
	}

	if result.RowsAffected == 0 {
		return nil, console.ErrNotFound
	}

	var updated T
	if err := r.db.WithContext(ctx).
		First(&updated, id).Error; err != nil {
		return nil, fmt.Errorf("reloading record %d: %w", id, err)
	}

	return &updated, nil
}

func (r *repo[T]) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return fmt.Errorf("deleting record %d: %w", id, result.Error)
	}

	if result.RowsAffected == 0 {
		return console.ErrNotFound
	}

	return nil
}

// IsNotFound reports whether err is a missing-record error from either
// the repo layer or gorm itself.
func IsNotFound(err error) bool {
	return errors.Is(err, console.ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}
