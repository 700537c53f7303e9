package shared

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the base persistence contract shared by all aggregates.
type Repository[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindAll(ctx context.Context, filter Filter) ([]T, error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter Filter) (int64, error)
}

// LocationRepository adds location-scoped lookups. Every tenant-facing query
// goes through these so one location can never read another's rows.
type LocationRepository[T any] interface {
	Repository[T]
	FindByIDForLocation(ctx context.Context, locationID, id uuid.UUID) (*T, error)
	FindAllForLocation(ctx context.Context, locationID uuid.UUID, filter Filter) ([]T, error)
}

// Filter carries pagination, ordering and field filters for list queries.
// OrderBy values are checked against per-aggregate allowlists before they
// reach SQL.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]interface{}
}

// DefaultFilter is page 1, 20 rows, newest first.
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Paginated wraps one page of results with the totals clients need to
// render pagination controls.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated derives TotalPages from the total row count, rounding up.
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
