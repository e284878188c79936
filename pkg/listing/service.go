package listing

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/mealboard/marketplace/pkg/controller"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/observability/metrics"
)

// OwnerDirectory resolves the public first name of a user. It returns
// ErrOwnerNotFound when the user does not exist.
type OwnerDirectory interface {
	FirstName(ctx context.Context, userID string) (string, error)
}

// ErrOwnerNotFound is returned by OwnerDirectory implementations for unknown users.
var ErrOwnerNotFound = errors.New("owner not found")

// Options configures a Service.
type Options struct {
	PageSize         int
	MatchAllSentinel string
	Categories       []string
	// SequenceBackend labels allocation metrics
	SequenceBackend string
}

// Service implements the catalog operations on top of a Repository.
type Service struct {
	repo       Repository
	sequence   Sequence
	owners     OwnerDirectory
	parser     Parser
	pageSize   int
	categories []string
	backend    string
	metrics    *metrics.CatalogMetrics
	logger     logger.Logger
}

// NewService wires a Service. m may be nil.
func NewService(repo Repository, sequence Sequence, owners OwnerDirectory, opts Options, m *metrics.CatalogMetrics, log logger.Logger) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	return &Service{
		repo:       repo,
		sequence:   sequence,
		owners:     owners,
		parser:     Parser{Sentinel: opts.MatchAllSentinel},
		pageSize:   opts.PageSize,
		categories: append([]string(nil), opts.Categories...),
		backend:    opts.SequenceBackend,
		metrics:    m,
		logger:     log,
	}
}

// ParseCriteria reads search parameters from a query string.
func (s *Service) ParseCriteria(values url.Values) (Criteria, error) {
	return s.parser.Parse(values)
}

// Categories returns the category vocabulary offered to clients.
func (s *Service) Categories() []string {
	return append([]string(nil), s.categories...)
}

// Search counts every match of c and returns the requested page ordered by
// sequence number.
func (s *Service) Search(ctx context.Context, c Criteria) (*Page, error) {
	start := time.Now()
	page, err := s.search(ctx, c)
	s.record("search", err)
	if err == nil {
		s.metrics.Search(time.Since(start), page.Total)
	}
	return page, err
}

func (s *Service) search(ctx context.Context, c Criteria) (*Page, error) {
	total, err := s.repo.Count(ctx, c)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Search(ctx, c, c.Pagination(s.pageSize))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Listing{}
	}
	return &Page{Total: total, Items: items}, nil
}

// Get loads a listing joined with its owner's first name.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		s.record("get", err)
		return nil, err
	}

	detail := &Detail{Listing: *l}
	name, err := s.owners.FirstName(ctx, l.OwnerID)
	switch {
	case err == nil:
		detail.Owner = &Owner{ID: l.OwnerID, FirstName: name}
	case errors.Is(err, ErrOwnerNotFound):
		s.logger.WithContext(ctx).Warn("listing owner missing", "listing_id", id, "owner_id", l.OwnerID)
	default:
		err = internal("failed to load listing owner", err)
		s.record("get", err)
		return nil, err
	}
	s.record("get", nil)
	return detail, nil
}

// ListByOwner searches the listings of userID. The first name is empty when
// the user does not exist.
func (s *Service) ListByOwner(ctx context.Context, userID string, c Criteria) (*OwnerPage, error) {
	c.OwnerID = userID
	page, err := s.search(ctx, c)
	if err != nil {
		s.record("list_by_owner", err)
		return nil, err
	}

	name, err := s.owners.FirstName(ctx, userID)
	if err != nil && !errors.Is(err, ErrOwnerNotFound) {
		err = internal("failed to load listing owner", err)
		s.record("list_by_owner", err)
		return nil, err
	}
	s.record("list_by_owner", nil)
	return &OwnerPage{Page: *page, FirstName: name}, nil
}

// Create allocates the next sequence number and stores the listing. It
// returns the store-assigned id.
func (s *Service) Create(ctx context.Context, draft Draft) (string, error) {
	id, err := s.create(ctx, draft)
	s.record("create", err)
	return id, err
}

func (s *Service) create(ctx context.Context, draft Draft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}

	seq, err := s.sequence.Next(ctx)
	if err != nil {
		return "", err
	}
	s.metrics.Allocation(s.backend)

	l := &Listing{
		SequenceNumber: seq,
		Title:          draft.Title,
		Location:       draft.Location,
		Price:          draft.Price,
		Categories:     append([]string(nil), draft.Categories...),
		OwnerID:        draft.OwnerID,
	}
	id, err := s.repo.Insert(ctx, l)
	if err != nil {
		return "", err
	}
	s.logger.WithContext(ctx).Info("listing created", "listing_id", id, "sequence_number", seq, "owner_id", draft.OwnerID)
	return id, nil
}

// UpdateFields merges patch into the listing. The listing must exist.
func (s *Service) UpdateFields(ctx context.Context, id string, patch FieldsPatch) (*Listing, error) {
	if err := patch.Validate(); err != nil {
		s.record("update_fields", err)
		return nil, err
	}
	l, err := s.repo.UpdateFields(ctx, id, patch)
	s.record("update_fields", err)
	return l, err
}

// UpdateImages replaces the listing's preview and thumbnails. The returned
// listing carries the values just written.
func (s *Service) UpdateImages(ctx context.Context, id string, images []string) (*Listing, error) {
	patch, err := NewImagesPatch(images)
	if err != nil {
		s.record("update_images", err)
		return nil, err
	}
	l, err := s.repo.UpdateImages(ctx, id, patch)
	s.record("update_images", err)
	return l, err
}

// Delete removes the listing.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	s.record("delete", err)
	if err == nil {
		s.logger.WithContext(ctx).Info("listing deleted", "listing_id", id)
	}
	return err
}

// SyncSequence raises the allocator above the highest stored sequence
// number so data written by earlier allocators keeps the max+1 contract.
func (s *Service) SyncSequence(ctx context.Context) error {
	highest, err := s.repo.MaxSequence(ctx)
	if err != nil {
		return err
	}
	if err := s.sequence.EnsureAtLeast(ctx, highest); err != nil {
		return err
	}
	s.logger.Info("listing sequence synchronized", "floor", highest, "backend", s.backend)
	return nil
}

func (s *Service) record(operation string, err error) {
	outcome := "ok"
	if err != nil {
		switch controller.KindOf(err) {
		case controller.KindNotFound:
			outcome = "not_found"
		case controller.KindInvalidArgument:
			outcome = "invalid"
		case controller.KindConflict:
			outcome = "conflict"
		default:
			outcome = "error"
		}
	}
	s.metrics.Operation(operation, outcome)
}
