package database

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/natours-api/apifeatures"
	"github.com/sanjiv-madhavan/natours-api/models"
)

var secretUserFields = []string{"password", "passwordResetToken", "passwordResetExpires"}

type UserRepository struct {
	logger     *slog.Logger
	collection *mongo.Collection
}

func NewUserRepository(collection *mongo.Collection, logger *slog.Logger) *UserRepository {
	return &UserRepository{logger: logger, collection: collection}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, user)
	return translate(err)
}

// FindByEmail returns the full record, password hash included.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// FindByID returns the record without its password hash.
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, options.FindOne().SetProjection(bson.D{{Key: "password", Value: 0}}))
}

func (r *UserRepository) FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *UserRepository) FindByResetToken(ctx context.Context, hashedToken string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "passwordResetToken", Value: hashedToken}})
}

func (r *UserRepository) Find(ctx context.Context, spec apifeatures.Spec) ([]models.User, error) {
	spec.Projection = withoutSecrets(spec.Projection)
	cursor, err := r.collection.Find(ctx, spec.FilterDocument(), spec.FindOptions())
	if err != nil {
		return nil, translate(err)
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Save writes every field of user. An empty password (record loaded without
// its hash) is left untouched in storage, and a cleared reset token is removed.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	raw, err := bson.Marshal(user)
	if err != nil {
		return err
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return err
	}
	delete(set, "_id")

	update := bson.D{{Key: "$set", Value: set}}
	if !user.HasPendingReset() {
		delete(set, "passwordResetToken")
		delete(set, "passwordResetExpires")
		update = append(update, bson.E{Key: "$unset", Value: bson.D{
			{Key: "passwordResetToken", Value: ""},
			{Key: "passwordResetExpires", Value: ""},
		}})
	}

	res, err := r.collection.UpdateByID(ctx, user.ID, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D, opts ...*options.FindOneOptions) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, filter, opts...).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// withoutSecrets keeps password material out of listing projections.
func withoutSecrets(projection bson.D) bson.D {
	out := bson.D{}
	inclusive := false
	for _, e := range projection {
		if isSecret(e.Key) {
			continue
		}
		if v, ok := e.Value.(int); ok && v == 1 {
			inclusive = true
		}
		out = append(out, e)
	}
	if inclusive {
		return out
	}
	for _, field := range secretUserFields {
		out = append(out, bson.E{Key: field, Value: 0})
	}
	return out
}

func isSecret(field string) bool {
	for _, secret := range secretUserFields {
		if field == secret {
			return true
		}
	}
	return false
}
