package listing

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/observability/metrics"
)

type fakeOwners map[string]string

func (f fakeOwners) FirstName(_ context.Context, id string) (string, error) {
	name, ok := f[id]
	if !ok {
		return "", ErrOwnerNotFound
	}
	return name, nil
}

type failingOwners struct{}

func (failingOwners) FirstName(context.Context, string) (string, error) {
	return "", errors.New("connection reset")
}

func newTestService(t testing.TB, owners OwnerDirectory) (*Service, *MemoryRepository, *metrics.Registry) {
	t.Helper()
	repo := NewMemoryRepository()
	reg := metrics.NewRegistry()
	svc := NewService(repo, NewMemorySequence(), owners, Options{
		PageSize:         10,
		MatchAllSentinel: "Gluten free",
		Categories:       []string{"Beef", "Pasta"},
		SequenceBackend:  "memory",
	}, reg.Catalog, logger.NewNopLogger())
	return svc, repo, reg
}

func mustCreate(t testing.TB, svc *Service, d Draft) string {
	t.Helper()
	id, err := svc.Create(context.Background(), d)
	if err != nil {
		t.Fatalf("Create(%+v) error = %v", d, err)
	}
	return id
}

func mustSearch(t testing.TB, svc *Service, query string) *Page {
	t.Helper()
	values, _ := url.ParseQuery(query)
	c, err := svc.ParseCriteria(values)
	if err != nil {
		t.Fatalf("ParseCriteria(%q) error = %v", query, err)
	}
	page, err := svc.Search(context.Background(), c)
	if err != nil {
		t.Fatalf("Search(%q) error = %v", query, err)
	}
	return page
}

func TestService_EndToEndExample(t *testing.T) {
	svc, repo, _ := newTestService(t, fakeOwners{"U1": "Ada"})
	ctx := context.Background()

	first := mustCreate(t, svc, Draft{Title: "Chili", Location: "Paris", Price: 12, Categories: SplitCategories("Beef,Starter"), OwnerID: "U1"})
	second := mustCreate(t, svc, Draft{Title: "Stew", Location: "Lyon", Price: 9, Categories: SplitCategories("Beef,Gluten free"), OwnerID: "U1"})

	l, err := repo.Get(ctx, first)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if l.SequenceNumber != 1 {
		t.Fatalf("first sequence number = %d, want 1", l.SequenceNumber)
	}

	page := mustSearch(t, svc, "categories=Beef")
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("categories=Beef matched %d/%d, want 2", page.Total, len(page.Items))
	}
	if page.Items[0].ID != second {
		t.Fatalf("default order must be newest first, got %s", page.Items[0].ID)
	}

	page = mustSearch(t, svc, "categories=Gluten%20free,Beef")
	if page.Total != 1 || page.Items[0].ID != second {
		t.Fatalf("sentinel query should only match the second listing, got %+v", page.Items)
	}

	page = mustSearch(t, svc, "categories=Gluten%20free,Starter")
	if page.Total != 0 || len(page.Items) != 0 || page.Items == nil {
		t.Fatalf("all-of query should match nothing and return an empty slice, got %+v", page)
	}
}

func TestService_Pagination(t *testing.T) {
	svc, _, _ := newTestService(t, fakeOwners{})
	for i := 0; i < 25; i++ {
		mustCreate(t, svc, Draft{Title: "Meal", Price: float64(i), Categories: []string{"Pasta"}, OwnerID: "u1"})
	}

	tests := []struct {
		query     string
		wantLen   int
		wantFirst int64
	}{
		{"", 10, 25},
		{"page=2", 10, 15},
		{"page=3", 5, 5},
		{"page=4", 0, 0},
		{"page=1&sort=asc", 10, 1},
		{"page=3&sort=asc", 5, 21},
		{"page=zero", 10, 25},
		{"page=9223372036854775807", 0, 0},
		{"page=922337203685477581", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page := mustSearch(t, svc, tt.query)
			if page.Total != 25 {
				t.Fatalf("total = %d, want 25", page.Total)
			}
			if len(page.Items) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(page.Items), tt.wantLen)
			}
			if tt.wantLen > 0 && page.Items[0].SequenceNumber != tt.wantFirst {
				t.Fatalf("first sequence = %d, want %d", page.Items[0].SequenceNumber, tt.wantFirst)
			}
		})
	}
}

func TestService_Get(t *testing.T) {
	t.Run("joins owner first name", func(t *testing.T) {
		svc, _, _ := newTestService(t, fakeOwners{"u1": "Ada"})
		id := mustCreate(t, svc, Draft{Title: "Chili", Price: 1, Categories: []string{"Beef"}, OwnerID: "u1"})

		detail, err := svc.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if detail.Owner == nil || detail.Owner.FirstName != "Ada" || detail.Owner.ID != "u1" {
			t.Fatalf("unexpected owner: %+v", detail.Owner)
		}
	})

	t.Run("missing owner leaves owner empty", func(t *testing.T) {
		svc, _, _ := newTestService(t, fakeOwners{})
		id := mustCreate(t, svc, Draft{Title: "Chili", Price: 1, Categories: []string{"Beef"}, OwnerID: "gone"})

		detail, err := svc.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if detail.Owner != nil {
			t.Fatalf("expected nil owner, got %+v", detail.Owner)
		}
	})

	t.Run("owner lookup failure is internal", func(t *testing.T) {
		svc, _, _ := newTestService(t, failingOwners{})
		id := mustCreate(t, svc, Draft{Title: "Chili", Price: 1, Categories: []string{"Beef"}, OwnerID: "u1"})

		if _, err := svc.Get(context.Background(), id); err == nil || errors.Is(err, ErrNotFound) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		svc, _, _ := newTestService(t, fakeOwners{})
		if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestService_ListByOwner(t *testing.T) {
	svc, _, _ := newTestService(t, fakeOwners{"u1": "Ada"})
	mustCreate(t, svc, Draft{Title: "A", Price: 1, Categories: []string{"Beef"}, OwnerID: "u1"})
	mustCreate(t, svc, Draft{Title: "B", Price: 2, Categories: []string{"Pasta"}, OwnerID: "u1"})
	mustCreate(t, svc, Draft{Title: "C", Price: 3, Categories: []string{"Beef"}, OwnerID: "u2"})

	page, err := svc.ListByOwner(context.Background(), "u1", Criteria{Page: 1})
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if page.Total != 2 || page.FirstName != "Ada" {
		t.Fatalf("unexpected page: %+v", page)
	}
	for _, l := range page.Items {
		if l.OwnerID != "u1" {
			t.Fatalf("listing of another owner returned: %+v", l)
		}
	}

	page, err = svc.ListByOwner(context.Background(), "u2", Criteria{Categories: []string{"Pasta"}})
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if page.Total != 0 || page.FirstName != "" {
		t.Fatalf("unknown owner should have no name and no pasta: %+v", page)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, repo, _ := newTestService(t, fakeOwners{})
	valid := Draft{Title: "Chili", Price: 1, Categories: []string{"Beef"}, OwnerID: "u1"}

	tests := []struct {
		name   string
		mutate func(*Draft)
	}{
		{"blank title", func(d *Draft) { d.Title = "  " }},
		{"negative price", func(d *Draft) { d.Price = -1 }},
		{"no categories", func(d *Draft) { d.Categories = nil }},
		{"no owner", func(d *Draft) { d.OwnerID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			if _, err := svc.Create(context.Background(), d); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	if highest, _ := repo.MaxSequence(context.Background()); highest != 0 {
		t.Fatalf("rejected drafts must not be stored, highest sequence = %d", highest)
	}
}

func TestService_UpdateFields(t *testing.T) {
	svc, repo, _ := newTestService(t, fakeOwners{})
	ctx := context.Background()
	id := mustCreate(t, svc, Draft{Title: "Chili", Location: "Paris", Price: 12, Categories: []string{"Beef"}, OwnerID: "u1"})

	title := "Chili sin carne"
	price := 10.5
	patch := FieldsPatch{Title: &title, Price: &price}

	first, err := svc.UpdateFields(ctx, id, patch)
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	second, err := svc.UpdateFields(ctx, id, patch)
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if first.Title != title || first.Price != price || first.Location != "Paris" {
		t.Fatalf("unexpected merge result: %+v", first)
	}
	if first.Title != second.Title || first.Price != second.Price || first.Location != second.Location {
		t.Fatalf("repeated update changed the projection: %+v vs %+v", first, second)
	}

	if _, err := svc.UpdateFields(ctx, "missing", patch); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	empty := ""
	if _, err := svc.UpdateFields(ctx, id, FieldsPatch{Title: &empty}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	stored, _ := repo.Get(ctx, id)
	if stored.Title != title {
		t.Fatalf("rejected patch mutated the listing: %+v", stored)
	}
}

func TestService_UpdateImages(t *testing.T) {
	svc, _, _ := newTestService(t, fakeOwners{})
	ctx := context.Background()
	id := mustCreate(t, svc, Draft{Title: "Chili", Price: 12, Categories: []string{"Beef"}, OwnerID: "u1"})

	updated, err := svc.UpdateImages(ctx, id, []string{"https://img/1.png", " ", "https://img/2.png"})
	if err != nil {
		t.Fatalf("UpdateImages() error = %v", err)
	}
	if updated.ImagePreview != "https://img/1.png" {
		t.Fatalf("preview = %q, want the first image", updated.ImagePreview)
	}
	if strings.Join(updated.ImageThumbnails, ",") != "https://img/1.png,https://img/2.png" {
		t.Fatalf("thumbnails = %v", updated.ImageThumbnails)
	}

	if _, err := svc.UpdateImages(ctx, id, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.UpdateImages(ctx, "missing", []string{"x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc, _, _ := newTestService(t, fakeOwners{})
	ctx := context.Background()
	id := mustCreate(t, svc, Draft{Title: "Chili", Price: 12, Categories: []string{"Beef"}, OwnerID: "u1"})

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted listing still resolves: %v", err)
	}
	if err := svc.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestService_SyncSequence(t *testing.T) {
	svc, repo, _ := newTestService(t, fakeOwners{})
	ctx := context.Background()

	if _, err := repo.Insert(ctx, &Listing{SequenceNumber: 41, Title: "Legacy", Categories: []string{"Beef"}}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := svc.SyncSequence(ctx); err != nil {
		t.Fatalf("SyncSequence() error = %v", err)
	}

	id := mustCreate(t, svc, Draft{Title: "New", Price: 1, Categories: []string{"Beef"}, OwnerID: "u1"})
	l, _ := repo.Get(ctx, id)
	if l.SequenceNumber != 42 {
		t.Fatalf("sequence after sync = %d, want 42", l.SequenceNumber)
	}
}

func TestService_Categories(t *testing.T) {
	svc, _, _ := newTestService(t, fakeOwners{})
	cats := svc.Categories()
	cats[0] = "mutated"
	if svc.Categories()[0] != "Beef" {
		t.Fatal("Categories() must return a copy")
	}
}

func TestService_Metrics(t *testing.T) {
	svc, _, reg := newTestService(t, fakeOwners{})
	ctx := context.Background()

	mustCreate(t, svc, Draft{Title: "Chili", Price: 1, Categories: []string{"Beef"}, OwnerID: "u1"})
	_, _ = svc.Get(ctx, "missing")
	_, _ = svc.Create(ctx, Draft{})

	expected := `
# HELP marketplace_listing_operations_total Listing operations by name and outcome
# TYPE marketplace_listing_operations_total counter
marketplace_listing_operations_total{operation="create",outcome="invalid"} 1
marketplace_listing_operations_total{operation="create",outcome="ok"} 1
marketplace_listing_operations_total{operation="get",outcome="not_found"} 1
# HELP marketplace_sequence_allocations_total Sequence numbers handed out by backend
# TYPE marketplace_sequence_allocations_total counter
marketplace_sequence_allocations_total{backend="memory"} 1
`
	err := testutil.GatherAndCompare(reg.Gatherer(), strings.NewReader(expected),
		"marketplace_listing_operations_total", "marketplace_sequence_allocations_total")
	if err != nil {
		t.Fatal(err)
	}
}
