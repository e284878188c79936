package document

import (
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	mongostore "github.com/mealboard/marketplace/pkg/store/mongodb"
)

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		raw  string
		want SortOrder
	}{
		{"asc", SortAsc},
		{" ASC ", SortAsc},
		{"desc", SortDesc},
		{"", SortDesc},
		{"ascending", SortDesc},
	}
	for _, tt := range tests {
		if got := ParseSortOrder(tt.raw); got != tt.want {
			t.Errorf("ParseSortOrder(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestPagination_Window(t *testing.T) {
	tests := []struct {
		page, size int
		start, end int64
	}{
		{1, 10, 0, 10},
		{2, 10, 10, 20},
		{3, 5, 10, 15},
		{0, 10, 0, 10},
		{math.MaxInt64, 10, math.MaxInt64 - 10, math.MaxInt64},
		{math.MaxInt64/10 + 2, 10, math.MaxInt64 - 10, math.MaxInt64},
	}
	for _, tt := range tests {
		start, end := Pagination{Page: tt.page, PageSize: tt.size}.Window()
		if start != tt.start || end != tt.end {
			t.Errorf("Window(page=%d,size=%d) = [%d,%d), want [%d,%d)", tt.page, tt.size, start, end, tt.start, tt.end)
		}
	}
}

func TestFindOptions(t *testing.T) {
	opts := FindOptions(QueryOptions{
		Sort:       Sort{Field: "sequenceNumber", Order: SortAsc},
		Pagination: Pagination{Page: 3, PageSize: 10},
	})

	if *opts.Skip != 20 || *opts.Limit != 10 {
		t.Fatalf("skip/limit = %d/%d, want 20/10", *opts.Skip, *opts.Limit)
	}
	sort, ok := opts.Sort.(bson.D)
	if !ok || len(sort) != 1 || sort[0].Key != "sequenceNumber" || sort[0].Value != 1 {
		t.Fatalf("unexpected sort: %#v", opts.Sort)
	}

	far := FindOptions(QueryOptions{Pagination: Pagination{Page: math.MaxInt64, PageSize: 10}})
	if *far.Skip < 0 {
		t.Fatalf("skip = %d for a far page, must not be negative", *far.Skip)
	}

	desc := FindOptions(QueryOptions{Sort: Sort{Field: "sequenceNumber", Order: SortDesc}})
	if d := desc.Sort.(bson.D); d[0].Value != -1 {
		t.Fatalf("desc sort value = %v, want -1", d[0].Value)
	}
	if desc.Limit != nil || desc.Skip != nil {
		t.Fatal("zero page size must not set skip/limit")
	}
}

func TestProjection(t *testing.T) {
	p := Projection([]string{"firstname", "lastname"})
	if len(p) != 2 || p[0].Key != "firstname" || p[1].Value != 1 {
		t.Fatalf("unexpected projection: %#v", p)
	}
}

func TestNewMongoDBExecutor_Validation(t *testing.T) {
	if _, err := NewMongoDBExecutor(nil); err == nil {
		t.Fatal("expected error for nil adapter")
	}

	exec, err := NewMongoDBExecutor(&mongostore.Adapter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec == nil {
		t.Fatal("expected non-nil executor")
	}
}
