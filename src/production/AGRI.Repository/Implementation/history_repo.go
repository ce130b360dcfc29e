package implementation

import (
	"context"
	"time"

	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoHistoryRepository struct {
	coll *mongo.Collection
}

func NewMongoHistoryRepository(coll *mongo.Collection) *MongoHistoryRepository {
	return &MongoHistoryRepository{coll: coll}
}

// ReplaceAll rewrites the history collection. The caller hands the events
// newest first and already truncated to the retention cap.
func (r *MongoHistoryRepository) ReplaceAll(ctx context.Context, events []agrimodels.IrrigationEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(events))
	for i := range events {
		docs = append(docs, events[i])
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}

func (r *MongoHistoryRepository) LoadRecent(ctx context.Context, limit int) ([]agrimodels.IrrigationEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "ended_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := make([]agrimodels.IrrigationEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
