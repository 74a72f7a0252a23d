package repository

import (
	"context"

	"gorm.io/gorm"
)

// Scope narrows a query, e.g. ordering or limits.
type Scope func(*gorm.DB) *gorm.DB

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, scopes ...Scope) ([]*T, error)
	FindOne(ctx context.Context, query *T, scopes ...Scope) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
}

func OrderBy(expr string) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Order(expr) }
}

func Limit(n int) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Limit(n) }
}
