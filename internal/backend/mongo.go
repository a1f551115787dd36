package backend

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nebula-tasks/beat/internal/metrics"
	"github.com/nebula-tasks/beat/internal/task"
)

// mongoCollection is the narrow surface MongoBackend needs, so tests can
// inject a fake instead of dialing a real server.
type mongoCollection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// DefaultDatabase and DefaultCollection name the Mongo location used when a
// MongoBackend is built without overrides.
const (
	DefaultDatabase   = "celery"
	DefaultCollection = "celery_taskmeta"
)

// MongoBackend stores one document per task, located by the filter
// {task_id: <id>}, in a configured database/collection.
type MongoBackend struct {
	Base
	collection mongoCollection
}

// NewMongoBackend connects to uri and binds to database/collection,
// defaulting empty values to DefaultDatabase/DefaultCollection.
func NewMongoBackend(ctx context.Context, uri, database, collection string) (*MongoBackend, error) {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &TransportError{Err: err}
	}

	return newMongoBackend(client.Database(database).Collection(collection)), nil
}

func newMongoBackend(coll mongoCollection) *MongoBackend {
	mb := &MongoBackend{collection: coll}
	mb.Base.Storer = mb
	return mb
}

type mongoDoc struct {
	TaskID    string     `bson:"task_id"`
	Status    task.State `bson:"status"`
	Result    *string    `bson:"result,omitempty"`
	Traceback *string    `bson:"traceback,omitempty"`
	DateDone  *time.Time `bson:"date_done,omitempty"`
}

func toDoc(meta *ResultMetadata) mongoDoc {
	return mongoDoc{
		TaskID:    meta.TaskID,
		Status:    meta.Status,
		Result:    meta.Result,
		Traceback: meta.Traceback,
		DateDone:  meta.DateDone,
	}
}

func fromDoc(d mongoDoc) *ResultMetadata {
	return &ResultMetadata{
		TaskID:    d.TaskID,
		Status:    d.Status,
		Result:    d.Result,
		Traceback: d.Traceback,
		DateDone:  d.DateDone,
	}
}

// StoreResult inserts the first Pending write for a task id (when no
// document exists yet), replaces on every subsequent update, and deletes
// when meta is nil.
func (mb *MongoBackend) StoreResult(ctx context.Context, id string, meta *ResultMetadata) error {
	start := time.Now()
	defer func() {
		metrics.ResultBackendLatency.WithLabelValues("mongo", "store").Observe(time.Since(start).Seconds())
	}()

	filter := bson.M{"task_id": id}

	if meta == nil {
		if _, err := mb.collection.DeleteOne(ctx, filter); err != nil {
			return &TransportError{Err: err}
		}
		return nil
	}

	doc := toDoc(meta)
	if meta.Status == task.Pending {
		err := mb.collection.FindOne(ctx, filter).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, err := mb.collection.InsertOne(ctx, doc); err != nil {
				return &TransportError{Err: err}
			}
			return nil
		}
		if err != nil {
			return &TransportError{Err: err}
		}
	}

	if _, err := mb.collection.ReplaceOne(ctx, filter, doc); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// GetTaskMeta finds the document filtered by task_id, returning
// ErrDocumentNotFound when absent.
func (mb *MongoBackend) GetTaskMeta(ctx context.Context, id string) (*ResultMetadata, error) {
	start := time.Now()
	defer func() {
		metrics.ResultBackendLatency.WithLabelValues("mongo", "get").Observe(time.Since(start).Seconds())
	}()

	result := mb.collection.FindOne(ctx, bson.M{"task_id": id})

	var doc mongoDoc
	if err := result.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, &SerializationError{Err: err}
	}
	return fromDoc(doc), nil
}

var _ Backend = (*MongoBackend)(nil)
