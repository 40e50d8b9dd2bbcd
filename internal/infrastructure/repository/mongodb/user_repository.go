package mongodb

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/userdesk/internal/domain/errs"
	"github.com/lllypuk/userdesk/internal/domain/user"
)

// UserRepository implements userapp.Repository on a users collection.
// Ids come from a Sequence so they stay the small integers the API exposes.
type UserRepository struct {
	collection *mongo.Collection
	ids        *Sequence
	logger     *slog.Logger
}

// UserRepoOption configures UserRepository.
type UserRepoOption func(*UserRepository)

// WithUserRepoLogger sets the logger for user repository.
func WithUserRepoLogger(logger *slog.Logger) UserRepoOption {
	return func(r *UserRepository) {
		r.logger = logger
	}
}

// NewUserRepository creates a MongoDB user repository.
func NewUserRepository(collection *mongo.Collection, ids *Sequence, opts ...UserRepoOption) *UserRepository {
	r := &UserRepository{
		collection: collection,
		ids:        ids,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FindByID finds a user by id
func (r *UserRepository) FindByID(ctx context.Context, id int64) (user.User, error) {
	if id <= 0 {
		return user.User{}, errs.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByUsername finds a user by username
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, errs.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"username": username})
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, errs.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"email": email})
}

// FindAll returns every user ordered by id
func (r *UserRepository) FindAll(ctx context.Context) ([]user.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return listDocuments(ctx, r.logger, r.collection, opts, documentToUser, "users")
}

// List returns a window of users ordered by id
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]user.User, error) {
	limit = DefaultLimitWithMax(limit, DefaultPaginationLimit, MaxPaginationLimit)
	opts := FindWithPagination(offset, limit, "_id", 1)
	return listDocuments(ctx, r.logger, r.collection, opts, documentToUser, "users")
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	count, err := CountAll(ctx, r.collection)
	if err != nil {
		return 0, HandleMongoError(err, "users")
	}
	return count, nil
}

// Save inserts a new user, assigning its id, or updates an existing one.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	if u == nil {
		return errs.ErrInvalidInput
	}

	if u.IsNew() {
		return r.insert(ctx, u)
	}

	doc := userToDocument(*u)
	doc.SetTimestamps()
	update := bson.M{"$set": bson.M{
		"name":       doc.Name,
		"lastname":   doc.Lastname,
		"email":      doc.Email,
		"username":   doc.Username,
		"password":   doc.Password,
		"updated_at": doc.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to update user",
			slog.Int64("user_id", u.ID),
			slog.String("error", err.Error()),
		)
		return HandleMongoError(err, "user")
	}
	if result.MatchedCount == 0 {
		return errs.ErrNotFound
	}

	return nil
}

func (r *UserRepository) insert(ctx context.Context, u *user.User) error {
	id, err := r.ids.Next(ctx)
	if err != nil {
		return err
	}

	doc := userToDocument(*u)
	doc.ID = id
	doc.SetTimestamps()

	if _, err = r.collection.InsertOne(ctx, doc); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			r.logger.ErrorContext(ctx, "failed to insert user",
				slog.String("username", u.Username),
				slog.String("error", err.Error()),
			)
		}
		return HandleMongoError(err, "user")
	}

	u.ID = id
	return nil
}

// Delete removes the user with id
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete user",
			slog.Int64("user_id", id),
			slog.String("error", err.Error()),
		)
		return HandleMongoError(err, "user")
	}

	if result.DeletedCount == 0 {
		return errs.ErrNotFound
	}

	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (user.User, error) {
	var doc userDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.ErrorContext(ctx, "failed to find user",
				slog.Any("filter", filter),
				slog.String("error", err.Error()),
			)
		}
		return user.User{}, HandleMongoError(err, "user")
	}

	return documentToUser(&doc), nil
}

// userDocument is the stored shape of a user.
type userDocument struct {
	ID           int64  `bson:"_id"`
	Name         string `bson:"name"`
	Lastname     string `bson:"lastname"`
	Email        string `bson:"email"`
	Username     string `bson:"username"`
	Password     string `bson:"password"`
	BaseDocument `bson:",inline"`
}

func userToDocument(u user.User) userDocument {
	return userDocument{
		ID:       u.ID,
		Name:     u.Name,
		Lastname: u.Lastname,
		Email:    u.Email,
		Username: u.Username,
		Password: u.Password,
	}
}

func documentToUser(doc *userDocument) user.User {
	return user.User{
		ID:       doc.ID,
		Name:     doc.Name,
		Lastname: doc.Lastname,
		Email:    doc.Email,
		Username: doc.Username,
		Password: doc.Password,
	}
}
