package listing

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mealboard/marketplace/pkg/repository/document"
)

// DefaultCollection is the MongoDB collection holding listings.
const DefaultCollection = "products"

type listingDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	SequenceNumber  int64              `bson:"sequenceNumber"`
	Title           string             `bson:"title"`
	Location        string             `bson:"location"`
	Price           float64            `bson:"price"`
	Categories      []string           `bson:"categories"`
	OwnerID         string             `bson:"ownerId"`
	ImagePreview    string             `bson:"imagePreview,omitempty"`
	ImageThumbnails []string           `bson:"imageThumbnails,omitempty"`
}

func (d listingDocument) toListing() Listing {
	return Listing{
		ID:              d.ID.Hex(),
		SequenceNumber:  d.SequenceNumber,
		Title:           d.Title,
		Location:        d.Location,
		Price:           d.Price,
		Categories:      d.Categories,
		OwnerID:         d.OwnerID,
		ImagePreview:    d.ImagePreview,
		ImageThumbnails: d.ImageThumbnails,
	}
}

func newListingDocument(l *Listing) listingDocument {
	return listingDocument{
		SequenceNumber:  l.SequenceNumber,
		Title:           l.Title,
		Location:        l.Location,
		Price:           l.Price,
		Categories:      l.Categories,
		OwnerID:         l.OwnerID,
		ImagePreview:    l.ImagePreview,
		ImageThumbnails: l.ImageThumbnails,
	}
}

// MongoRepository stores listings in a MongoDB collection.
type MongoRepository struct {
	exec       document.MongoExecutor
	collection string
}

// NewMongoRepository creates a repository over exec. An empty collection
// name selects DefaultCollection.
func NewMongoRepository(exec document.MongoExecutor, collection string) *MongoRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoRepository{exec: exec, collection: collection}
}

func (r *MongoRepository) Search(ctx context.Context, c Criteria, page document.Pagination) ([]Listing, error) {
	opts := document.QueryOptions{
		Filter:     c.Filter(),
		Sort:       document.Sort{Field: FieldSequenceNumber, Order: c.Sort},
		Pagination: page,
	}
	var docs []listingDocument
	if err := r.exec.Find(ctx, r.collection, opts, &docs); err != nil {
		return nil, internal("failed to search listings", err)
	}
	out := make([]Listing, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toListing())
	}
	return out, nil
}

func (r *MongoRepository) Count(ctx context.Context, c Criteria) (int64, error) {
	n, err := r.exec.Count(ctx, r.collection, c.Filter())
	if err != nil {
		return 0, internal("failed to count listings", err)
	}
	return n, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc listingDocument
	if err := r.exec.FindOne(ctx, r.collection, document.Filter{"_id": oid}, &doc); err != nil {
		return nil, r.mapError("failed to load listing", err)
	}
	l := doc.toListing()
	return &l, nil
}

func (r *MongoRepository) Insert(ctx context.Context, l *Listing) (string, error) {
	inserted, err := r.exec.InsertOne(ctx, r.collection, newListingDocument(l))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicateSequence.WithCause(err)
		}
		return "", internal("failed to save listing", err)
	}
	oid, ok := inserted.(primitive.ObjectID)
	if !ok {
		return "", internal("failed to save listing", fmt.Errorf("unexpected inserted id type %T", inserted))
	}
	return oid.Hex(), nil
}

func (r *MongoRepository) UpdateFields(ctx context.Context, id string, patch FieldsPatch) (*Listing, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}
	return r.update(ctx, id, fieldsUpdate(patch))
}

func (r *MongoRepository) UpdateImages(ctx context.Context, id string, patch ImagesPatch) (*Listing, error) {
	return r.update(ctx, id, document.Filter{"$set": bson.M{
		FieldImagePreview: patch.Preview,
		FieldThumbnails:   patch.Thumbnails,
	}})
}

func (r *MongoRepository) update(ctx context.Context, id string, update document.Filter) (*Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc listingDocument
	if err := r.exec.FindOneAndUpdate(ctx, r.collection, document.Filter{"_id": oid}, update, &doc); err != nil {
		return nil, r.mapError("failed to update listing", err)
	}
	l := doc.toListing()
	return &l, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	deleted, err := r.exec.DeleteOne(ctx, r.collection, document.Filter{"_id": oid})
	if err != nil {
		return internal("failed to delete listing", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) MaxSequence(ctx context.Context) (int64, error) {
	var docs []listingDocument
	opts := document.QueryOptions{
		Sort:       document.Sort{Field: FieldSequenceNumber, Order: document.SortDesc},
		Pagination: document.Pagination{Page: 1, PageSize: 1},
	}
	if err := r.exec.Find(ctx, r.collection, opts, &docs); err != nil {
		return 0, internal("failed to read highest sequence number", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	return docs[0].SequenceNumber, nil
}

func (r *MongoRepository) mapError(message string, err error) error {
	if errors.Is(err, document.ErrNotFound) {
		return ErrNotFound
	}
	return internal(message, err)
}

func fieldsUpdate(p FieldsPatch) document.Filter {
	set := bson.M{}
	if p.Title != nil {
		set[FieldTitle] = *p.Title
	}
	if p.Location != nil {
		set[FieldLocation] = *p.Location
	}
	if p.Price != nil {
		set[FieldPrice] = *p.Price
	}
	if p.Categories != nil {
		set[FieldCategories] = p.Categories
	}
	return document.Filter{"$set": set}
}

// Indexes returns the indexes the listings collection needs.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: FieldSequenceNumber, Value: -1}},
			Options: options.Index().SetUnique(true).SetName("sequence_number_unique"),
		},
		{Keys: bson.D{{Key: FieldOwnerID, Value: 1}, {Key: FieldSequenceNumber, Value: -1}}, Options: options.Index().SetName("owner_sequence")},
		{Keys: bson.D{{Key: FieldCategories, Value: 1}}, Options: options.Index().SetName("categories")},
		{Keys: bson.D{{Key: FieldPrice, Value: 1}}, Options: options.Index().SetName("price")},
	}
}
