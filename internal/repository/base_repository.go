package repository

import (
	"context"
	"errors"

	appErr "github.com/clanhub/api/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BaseRepository defines the primary-key operations shared by entity repositories.
type BaseRepository[T any] interface {
	GetByID(ctx context.Context, id any, dest *T) error
	DeleteByID(ctx context.Context, id any) (bool, error)
	InsertIfAbsent(ctx context.Context, obj *T, uniqueColumns ...string) (bool, error)
}

type baseRepository[T any] struct {
	db *gorm.DB
}

func NewBaseRepository[T any](db *gorm.DB) BaseRepository[T] {
	return &baseRepository[T]{db: db}
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	if err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "entity not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get entity failed")
	}
	return nil
}

// DeleteByID hard-deletes the row and reports whether one was removed.
func (r *baseRepository[T]) DeleteByID(ctx context.Context, id any) (bool, error) {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, "id = ?", id)
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "delete entity failed")
	}
	return res.RowsAffected > 0, nil
}

// InsertIfAbsent inserts obj unless a row with the same values in
// uniqueColumns exists. The statement is a single INSERT .. ON CONFLICT DO
// NOTHING, so the check and the write cannot interleave with another writer.
func (r *baseRepository[T]) InsertIfAbsent(ctx context.Context, obj *T, uniqueColumns ...string) (bool, error) {
	cols := make([]clause.Column, 0, len(uniqueColumns))
	for _, c := range uniqueColumns {
		cols = append(cols, clause.Column{Name: c})
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{Columns: cols, DoNothing: true}).Create(obj)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "insert entity failed")
	}
	return res.RowsAffected > 0, nil
}
