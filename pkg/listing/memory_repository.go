package listing

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mealboard/marketplace/pkg/repository/document"
)

// MemoryRepository keeps listings in process memory. It enforces the same
// sequence number uniqueness as the MongoDB index.
type MemoryRepository struct {
	mu       sync.RWMutex
	listings map[string]Listing
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{listings: make(map[string]Listing)}
}

func (r *MemoryRepository) Search(_ context.Context, c Criteria, page document.Pagination) ([]Listing, error) {
	matches := r.matching(c)
	sort.Slice(matches, func(i, j int) bool {
		if c.Sort == document.SortAsc {
			return matches[i].SequenceNumber < matches[j].SequenceNumber
		}
		return matches[i].SequenceNumber > matches[j].SequenceNumber
	})

	if page.PageSize <= 0 {
		return matches, nil
	}
	start, end := page.Window()
	total := int64(len(matches))
	if start >= total {
		return []Listing{}, nil
	}
	if end > total {
		end = total
	}
	return matches[start:end], nil
}

func (r *MemoryRepository) Count(_ context.Context, c Criteria) (int64, error) {
	return int64(len(r.matching(c))), nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(l)
	return &cp, nil
}

func (r *MemoryRepository) Insert(_ context.Context, l *Listing) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.listings {
		if existing.SequenceNumber == l.SequenceNumber {
			return "", ErrDuplicateSequence
		}
	}
	stored := clone(*l)
	stored.ID = primitive.NewObjectID().Hex()
	r.listings[stored.ID] = stored
	return stored.ID, nil
}

func (r *MemoryRepository) UpdateFields(_ context.Context, id string, patch FieldsPatch) (*Listing, error) {
	return r.update(id, patch.Apply)
}

func (r *MemoryRepository) UpdateImages(_ context.Context, id string, patch ImagesPatch) (*Listing, error) {
	return r.update(id, patch.Apply)
}

func (r *MemoryRepository) update(id string, apply func(*Listing)) (*Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	apply(&l)
	r.listings[id] = l
	cp := clone(l)
	return &cp, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[id]; !ok {
		return ErrNotFound
	}
	delete(r.listings, id)
	return nil
}

func (r *MemoryRepository) MaxSequence(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var highest int64
	for _, l := range r.listings {
		if l.SequenceNumber > highest {
			highest = l.SequenceNumber
		}
	}
	return highest, nil
}

func (r *MemoryRepository) matching(c Criteria) []Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Listing, 0, len(r.listings))
	for _, l := range r.listings {
		if c.Match(l) {
			out = append(out, clone(l))
		}
	}
	return out
}

func clone(l Listing) Listing {
	l.Categories = append([]string(nil), l.Categories...)
	if l.ImageThumbnails != nil {
		l.ImageThumbnails = append([]string(nil), l.ImageThumbnails...)
	}
	return l
}
