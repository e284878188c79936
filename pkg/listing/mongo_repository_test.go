package listing

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mealboard/marketplace/pkg/repository/document"
)

// recordingExecutor captures the last call and answers with canned values.
type recordingExecutor struct {
	collection string
	opts       document.QueryOptions
	filter     document.Filter
	update     document.Filter

	findDocs  []listingDocument
	findOne   *listingDocument
	insertID  interface{}
	deleted   int64
	count     int64
	err       error
	insertErr error
}

func (e *recordingExecutor) Find(_ context.Context, collection string, opts document.QueryOptions, results interface{}) error {
	e.collection, e.opts = collection, opts
	if e.err != nil {
		return e.err
	}
	*(results.(*[]listingDocument)) = e.findDocs
	return nil
}

func (e *recordingExecutor) Count(_ context.Context, collection string, filter document.Filter) (int64, error) {
	e.collection, e.filter = collection, filter
	return e.count, e.err
}

func (e *recordingExecutor) FindOne(_ context.Context, collection string, filter document.Filter, result interface{}, _ ...string) error {
	e.collection, e.filter = collection, filter
	if e.err != nil {
		return e.err
	}
	if e.findOne == nil {
		return document.ErrNotFound
	}
	*(result.(*listingDocument)) = *e.findOne
	return nil
}

func (e *recordingExecutor) InsertOne(_ context.Context, collection string, doc interface{}) (interface{}, error) {
	e.collection = collection
	return e.insertID, e.insertErr
}

func (e *recordingExecutor) FindOneAndUpdate(_ context.Context, collection string, filter, update document.Filter, result interface{}) error {
	e.collection, e.filter, e.update = collection, filter, update
	if e.err != nil {
		return e.err
	}
	if e.findOne == nil {
		return document.ErrNotFound
	}
	*(result.(*listingDocument)) = *e.findOne
	return nil
}

func (e *recordingExecutor) DeleteOne(_ context.Context, collection string, filter document.Filter) (int64, error) {
	e.collection, e.filter = collection, filter
	return e.deleted, e.err
}

func TestMongoRepository_Search(t *testing.T) {
	oid := primitive.NewObjectID()
	exec := &recordingExecutor{findDocs: []listingDocument{{ID: oid, SequenceNumber: 7, Title: "Chili", Categories: []string{"Beef"}}}}
	repo := NewMongoRepository(exec, "")

	c := Criteria{Categories: []string{"Beef"}, Sort: document.SortAsc}
	got, err := repo.Search(context.Background(), c, document.Pagination{Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if exec.collection != DefaultCollection {
		t.Fatalf("collection = %q", exec.collection)
	}
	if exec.opts.Sort != (document.Sort{Field: FieldSequenceNumber, Order: document.SortAsc}) {
		t.Fatalf("sort = %+v", exec.opts.Sort)
	}
	if exec.opts.Pagination.Offset() != 10 {
		t.Fatalf("offset = %d", exec.opts.Pagination.Offset())
	}
	if !reflect.DeepEqual(exec.opts.Filter, c.Filter()) {
		t.Fatalf("filter = %#v", exec.opts.Filter)
	}
	if len(got) != 1 || got[0].ID != oid.Hex() || got[0].SequenceNumber != 7 {
		t.Fatalf("unexpected listings: %+v", got)
	}
}

func TestMongoRepository_Get(t *testing.T) {
	oid := primitive.NewObjectID()

	t.Run("found", func(t *testing.T) {
		exec := &recordingExecutor{findOne: &listingDocument{ID: oid, Title: "Chili"}}
		l, err := NewMongoRepository(exec, "listings").Get(context.Background(), oid.Hex())
		if err != nil || l.Title != "Chili" {
			t.Fatalf("Get() = %+v, %v", l, err)
		}
		if exec.collection != "listings" || exec.filter["_id"] != oid {
			t.Fatalf("unexpected call: %s %v", exec.collection, exec.filter)
		}
	})

	tests := []struct {
		name string
		id   string
		exec *recordingExecutor
		want error
	}{
		{"malformed id", "not-an-object-id", &recordingExecutor{}, ErrNotFound},
		{"missing document", oid.Hex(), &recordingExecutor{}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMongoRepository(tt.exec, "").Get(context.Background(), tt.id); !errors.Is(err, tt.want) {
				t.Fatalf("Get() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("store failure is internal", func(t *testing.T) {
		exec := &recordingExecutor{err: errors.New("socket closed")}
		_, err := NewMongoRepository(exec, "").Get(context.Background(), oid.Hex())
		if err == nil || errors.Is(err, ErrNotFound) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})
}

func TestMongoRepository_Insert(t *testing.T) {
	oid := primitive.NewObjectID()

	id, err := NewMongoRepository(&recordingExecutor{insertID: oid}, "").Insert(context.Background(), &Listing{SequenceNumber: 1})
	if err != nil || id != oid.Hex() {
		t.Fatalf("Insert() = %q, %v", id, err)
	}

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	_, err = NewMongoRepository(&recordingExecutor{insertErr: dup}, "").Insert(context.Background(), &Listing{SequenceNumber: 1})
	if !errors.Is(err, ErrDuplicateSequence) {
		t.Fatalf("expected ErrDuplicateSequence, got %v", err)
	}
}

func TestMongoRepository_UpdateFields(t *testing.T) {
	oid := primitive.NewObjectID()
	exec := &recordingExecutor{findOne: &listingDocument{ID: oid, Title: "New"}}
	repo := NewMongoRepository(exec, "")

	title := "New"
	price := 4.5
	l, err := repo.UpdateFields(context.Background(), oid.Hex(), FieldsPatch{Title: &title, Price: &price})
	if err != nil || l.Title != "New" {
		t.Fatalf("UpdateFields() = %+v, %v", l, err)
	}
	want := document.Filter{"$set": bson.M{FieldTitle: "New", FieldPrice: 4.5}}
	if !reflect.DeepEqual(exec.update, want) {
		t.Fatalf("update = %#v, want %#v", exec.update, want)
	}

	exec.update = nil
	if _, err := repo.UpdateFields(context.Background(), oid.Hex(), FieldsPatch{}); err != nil {
		t.Fatalf("empty patch error = %v", err)
	}
	if exec.update != nil {
		t.Fatal("empty patch must not issue an update")
	}

	exec.findOne = nil
	if _, err := repo.UpdateFields(context.Background(), oid.Hex(), FieldsPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMongoRepository_UpdateImages(t *testing.T) {
	oid := primitive.NewObjectID()
	exec := &recordingExecutor{findOne: &listingDocument{ID: oid, ImagePreview: "a", ImageThumbnails: []string{"a", "b"}}}

	l, err := NewMongoRepository(exec, "").UpdateImages(context.Background(), oid.Hex(), ImagesPatch{Preview: "a", Thumbnails: []string{"a", "b"}})
	if err != nil || l.ImagePreview != "a" {
		t.Fatalf("UpdateImages() = %+v, %v", l, err)
	}
	want := document.Filter{"$set": bson.M{FieldImagePreview: "a", FieldThumbnails: []string{"a", "b"}}}
	if !reflect.DeepEqual(exec.update, want) {
		t.Fatalf("update = %#v", exec.update)
	}
}

func TestMongoRepository_Delete(t *testing.T) {
	oid := primitive.NewObjectID()

	if err := NewMongoRepository(&recordingExecutor{deleted: 1}, "").Delete(context.Background(), oid.Hex()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := NewMongoRepository(&recordingExecutor{deleted: 0}, "").Delete(context.Background(), oid.Hex()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := NewMongoRepository(&recordingExecutor{}, "").Delete(context.Background(), "bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestMongoRepository_MaxSequence(t *testing.T) {
	exec := &recordingExecutor{}
	repo := NewMongoRepository(exec, "")

	if got, err := repo.MaxSequence(context.Background()); err != nil || got != 0 {
		t.Fatalf("MaxSequence() on empty = %d, %v", got, err)
	}
	if exec.opts.Sort.Order != document.SortDesc || exec.opts.Pagination.PageSize != 1 {
		t.Fatalf("unexpected query: %+v", exec.opts)
	}

	exec.findDocs = []listingDocument{{SequenceNumber: 314}}
	if got, _ := repo.MaxSequence(context.Background()); got != 314 {
		t.Fatalf("MaxSequence() = %d, want 314", got)
	}
}

func TestIndexes(t *testing.T) {
	indexes := Indexes()
	if len(indexes) == 0 {
		t.Fatal("expected indexes")
	}
	keys := indexes[0].Keys.(bson.D)
	if keys[0].Key != FieldSequenceNumber || indexes[0].Options.Unique == nil || !*indexes[0].Options.Unique {
		t.Fatal("sequence number index must be unique")
	}
}
