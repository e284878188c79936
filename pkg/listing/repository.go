package listing

import (
	"context"

	"github.com/mealboard/marketplace/pkg/repository/document"
)

// Repository persists listings. Implementations return ErrNotFound for
// unknown ids and wrap store failures as internal errors.
type Repository interface {
	Search(ctx context.Context, c Criteria, page document.Pagination) ([]Listing, error)
	Count(ctx context.Context, c Criteria) (int64, error)
	Get(ctx context.Context, id string) (*Listing, error)
	// Insert stores l and returns the store-assigned id.
	Insert(ctx context.Context, l *Listing) (string, error)
	UpdateFields(ctx context.Context, id string, patch FieldsPatch) (*Listing, error)
	UpdateImages(ctx context.Context, id string, patch ImagesPatch) (*Listing, error)
	Delete(ctx context.Context, id string) error
	// MaxSequence returns the highest stored sequence number, 0 when empty.
	MaxSequence(ctx context.Context) (int64, error)
}
