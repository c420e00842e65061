package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

type listDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	UserID    string             `bson:"_userId"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// ListRepository handles list persistence. Every filter carries _userId.
type ListRepository struct {
	coll *mongo.Collection
}

// NewListRepository creates a new ListRepository.
func NewListRepository(db *mongo.Database) *ListRepository {
	return &ListRepository{coll: db.Collection(listsCollection)}
}

// Create inserts a list and sets its generated ID and creation time.
func (r *ListRepository) Create(ctx context.Context, list *model.List) error {
	doc := listDocument{Title: list.Title, UserID: list.UserID, CreatedAt: now()}

	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		list.ID = oid.Hex()
	}
	list.CreatedAt = doc.CreatedAt
	return nil
}

// ListByUser returns all lists owned by userID in insertion order.
func (r *ListRepository) ListByUser(ctx context.Context, userID string) ([]model.List, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"_userId": userID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []listDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	lists := make([]model.List, 0, len(docs))
	for _, d := range docs {
		lists = append(lists, *d.toModel())
	}
	return lists, nil
}

// Get retrieves the list with id owned by userID.
func (r *ListRepository) Get(ctx context.Context, userID, id string) (*model.List, error) {
	filter, err := ownedFilter(userID, id)
	if err != nil {
		return nil, err
	}
	return decodeList(r.coll.FindOne(ctx, filter))
}

// Update applies patch to the list with id owned by userID and returns the result.
func (r *ListRepository) Update(ctx context.Context, userID, id string, patch model.ListPatch) (*model.List, error) {
	if patch.Title == nil {
		return r.Get(ctx, userID, id)
	}

	filter, err := ownedFilter(userID, id)
	if err != nil {
		return nil, err
	}

	return decodeList(r.coll.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"title": *patch.Title}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	))
}

// Delete removes the list with id owned by userID and returns what was removed.
func (r *ListRepository) Delete(ctx context.Context, userID, id string) (*model.List, error) {
	filter, err := ownedFilter(userID, id)
	if err != nil {
		return nil, err
	}
	return decodeList(r.coll.FindOneAndDelete(ctx, filter))
}

func ownedFilter(userID, id string) (bson.M, error) {
	oid, err := parseDocID(id)
	if err != nil {
		return nil, err
	}
	return bson.M{"_id": oid, "_userId": userID}, nil
}

func decodeList(res *mongo.SingleResult) (*model.List, error) {
	var doc listDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (d listDocument) toModel() *model.List {
	return &model.List{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt.UTC(),
	}
}
