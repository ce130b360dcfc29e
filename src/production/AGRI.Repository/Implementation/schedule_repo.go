package implementation

import (
	"context"
	"time"

	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoScheduleRepository struct {
	coll *mongo.Collection
}

func NewMongoScheduleRepository(coll *mongo.Collection) *MongoScheduleRepository {
	return &MongoScheduleRepository{coll: coll}
}

// ReplaceAll rewrites the schedule collection from the in-memory list.
func (r *MongoScheduleRepository) ReplaceAll(ctx context.Context, schedules []agrimodels.Schedule) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return err
	}
	if len(schedules) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(schedules))
	for i := range schedules {
		docs = append(docs, schedules[i])
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}

func (r *MongoScheduleRepository) LoadAll(ctx context.Context) ([]agrimodels.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	schedules := make([]agrimodels.Schedule, 0)
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}
