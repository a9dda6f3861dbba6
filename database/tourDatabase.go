package database

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/natours-api/apifeatures"
	"github.com/sanjiv-madhavan/natours-api/models"
)

type TourRepository struct {
	logger     *slog.Logger
	collection *mongo.Collection
	now        func() time.Time
}

func NewTourRepository(collection *mongo.Collection, logger *slog.Logger) *TourRepository {
	return &TourRepository{logger: logger, collection: collection, now: time.Now}
}

func (r *TourRepository) Find(ctx context.Context, spec apifeatures.Spec) ([]models.Tour, error) {
	cursor, err := r.collection.Find(ctx, spec.FilterDocument(), spec.FindOptions())
	if err != nil {
		return nil, translate(err)
	}
	tours := []models.Tour{}
	if err := cursor.All(ctx, &tours); err != nil {
		return nil, err
	}
	return tours, nil
}

func (r *TourRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Tour, error) {
	var tour models.Tour
	opts := options.FindOne().SetProjection(bson.D{{Key: apifeatures.VersionField, Value: 0}})
	if err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}, opts).Decode(&tour); err != nil {
		return nil, translate(err)
	}
	return &tour, nil
}

// Create stamps the id and the immutable creation time before inserting.
func (r *TourRepository) Create(ctx context.Context, tour *models.Tour) error {
	tour.ID = primitive.NewObjectID()
	createdAt := r.now().UTC().Truncate(time.Millisecond)
	tour.CreatedAt = &createdAt
	tour.Version = 0
	_, err := r.collection.InsertOne(ctx, tour)
	return translate(err)
}

// Update applies the non-nil fields of update and returns the new document.
func (r *TourRepository) Update(ctx context.Context, id primitive.ObjectID, update models.TourUpdate) (*models.Tour, error) {
	set, err := bson.Marshal(update)
	if err != nil {
		return nil, err
	}
	var fields bson.D
	if err := bson.Unmarshal(set, &fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: apifeatures.VersionField, Value: 0}})
	var tour models.Tour
	err = r.collection.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}}, opts).Decode(&tour)
	if err != nil {
		return nil, translate(err)
	}
	return &tour, nil
}

func (r *TourRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TourRepository) Stats(ctx context.Context) ([]models.TourStats, error) {
	stats := []models.TourStats{}
	if err := r.aggregate(ctx, TourStatsPipeline(StatsMinRating), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *TourRepository) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	plan := []models.MonthlyPlan{}
	if err := r.aggregate(ctx, MonthlyPlanPipeline(year), &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *TourRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Aggregation failed", slog.Any("error", err))
		return err
	}
	return cursor.All(ctx, out)
}
