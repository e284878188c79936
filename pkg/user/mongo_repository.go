package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mealboard/marketplace/pkg/controller"
	"github.com/mealboard/marketplace/pkg/repository/document"
)

// DefaultCollection is the MongoDB collection holding users.
const DefaultCollection = "users"

var profileFields = []string{"firstname", "lastname", "email"}

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	FirstName    string             `bson:"firstname"`
	LastName     string             `bson:"lastname"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash,omitempty"`
	Phone        string             `bson:"phone,omitempty"`
}

// MongoRepository stores users in MongoDB.
type MongoRepository struct {
	exec       document.MongoExecutor
	collection string
}

func NewMongoRepository(exec document.MongoExecutor, collection string) *MongoRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoRepository{exec: exec, collection: collection}
}

func (r *MongoRepository) Profile(ctx context.Context, id string) (*Profile, error) {
	doc, err := r.findOne(ctx, id, profileFields...)
	if err != nil {
		return nil, err
	}
	return &Profile{ID: doc.ID.Hex(), FirstName: doc.FirstName, LastName: doc.LastName, Email: doc.Email}, nil
}

func (r *MongoRepository) Phone(ctx context.Context, id string) (string, error) {
	doc, err := r.findOne(ctx, id, "phone")
	if err != nil {
		return "", err
	}
	return doc.Phone, nil
}

func (r *MongoRepository) Insert(ctx context.Context, u *User) (string, error) {
	inserted, err := r.exec.InsertOne(ctx, r.collection, userDocument{
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        strings.TrimSpace(u.Email),
		PasswordHash: u.PasswordHash,
		Phone:        u.Phone,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrEmailTaken.WithCause(err)
		}
		return "", controller.NewInternalError("failed to save user", err)
	}
	oid, ok := inserted.(primitive.ObjectID)
	if !ok {
		return "", controller.NewInternalError("failed to save user", fmt.Errorf("unexpected inserted id type %T", inserted))
	}
	return oid.Hex(), nil
}

func (r *MongoRepository) findOne(ctx context.Context, id string, fields ...string) (*userDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc userDocument
	if err := r.exec.FindOne(ctx, r.collection, document.Filter{"_id": oid}, &doc, fields...); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, controller.NewInternalError("failed to load user", err)
	}
	return &doc, nil
}

// Indexes returns the indexes the users collection needs.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	}}
}
