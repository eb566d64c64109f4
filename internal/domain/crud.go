package domain

import (
	"context"
	"time"
)

// Crud is the data-access contract every entity type gets. Results of the
// list operations are in ascending identity order.
//
// first and max must be non-negative; params must be non-nil. Violations are
// programming errors and panic.
type Crud[T any] interface {
	Create(ctx context.Context, t *T) error
	Remove(ctx context.Context, id uint64) error
	Update(ctx context.Context, t *T) (*T, error)

	Count(ctx context.Context) (int64, error)
	Find(ctx context.Context, id uint64) (*T, error)
	FindAll(ctx context.Context) ([]T, error)
	FindAllRange(ctx context.Context, first, max int) ([]T, error)

	FindByNamedQuery(ctx context.Context, name string, params map[string]any) ([]T, error)
	FindByNamedQueryRange(ctx context.Context, name string, params map[string]any, first, max int) ([]T, error)

	// Before matches attr < t.
	Before(ctx context.Context, attr TimeStamp, t time.Time) ([]T, error)
	// Since matches attr >= t.
	Since(ctx context.Context, attr TimeStamp, t time.Time) ([]T, error)
	// During matches t1 <= attr <= t2.
	During(ctx context.Context, attr TimeStamp, t1, t2 time.Time) ([]T, error)
	// NotDuring is the complement of During.
	NotDuring(ctx context.Context, attr TimeStamp, t1, t2 time.Time) ([]T, error)

	Search(ctx context.Context, field TextField, query string) ([]T, error)
	SearchInsensitive(ctx context.Context, field TextField, query string) ([]T, error)
}
