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

type taskDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	ListID    string             `bson:"_listId"`
	Completed bool               `bson:"completed"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// TaskRepository handles task persistence. Every filter carries _listId.
type TaskRepository struct {
	coll *mongo.Collection
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{coll: db.Collection(tasksCollection)}
}

// Create inserts a task and sets its generated ID and creation time.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	doc := taskDocument{Title: task.Title, ListID: task.ListID, Completed: task.Completed, CreatedAt: now()}

	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		task.ID = oid.Hex()
	}
	task.CreatedAt = doc.CreatedAt
	return nil
}

// ListByList returns the tasks of listID in insertion order.
func (r *TaskRepository) ListByList(ctx context.Context, listID string) ([]model.Task, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"_listId": listID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, *d.toModel())
	}
	return tasks, nil
}

// Get retrieves the task with id inside listID.
func (r *TaskRepository) Get(ctx context.Context, listID, id string) (*model.Task, error) {
	filter, err := taskFilter(listID, id)
	if err != nil {
		return nil, err
	}
	return decodeTask(r.coll.FindOne(ctx, filter))
}

// Update applies patch to the task and returns the result.
func (r *TaskRepository) Update(ctx context.Context, listID, id string, patch model.TaskPatch) (*model.Task, error) {
	if patch.Empty() {
		return r.Get(ctx, listID, id)
	}

	filter, err := taskFilter(listID, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}

	return decodeTask(r.coll.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	))
}

// Delete removes the task and returns what was removed.
func (r *TaskRepository) Delete(ctx context.Context, listID, id string) (*model.Task, error) {
	filter, err := taskFilter(listID, id)
	if err != nil {
		return nil, err
	}
	return decodeTask(r.coll.FindOneAndDelete(ctx, filter))
}

// DeleteByList removes every task of listID and reports how many were removed.
func (r *TaskRepository) DeleteByList(ctx context.Context, listID string) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"_listId": listID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func taskFilter(listID, id string) (bson.M, error) {
	oid, err := parseDocID(id)
	if err != nil {
		return nil, err
	}
	return bson.M{"_id": oid, "_listId": listID}, nil
}

func decodeTask(res *mongo.SingleResult) (*model.Task, error) {
	var doc taskDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (d taskDocument) toModel() *model.Task {
	return &model.Task{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		ListID:    d.ListID,
		Completed: d.Completed,
		CreatedAt: d.CreatedAt.UTC(),
	}
}
