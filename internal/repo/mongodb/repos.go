// Package mongodb stores users, CVs and reviews in MongoDB collections that
// keep the camelCase field names of the API.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/pkg/database"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const opTimeout = 3 * time.Second

// activeOnly hides deactivated users.
var activeOnly = bson.E{Key: "active", Value: bson.D{{Key: "$ne", Value: false}}}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

// NewStore wires all repositories over db. Close disconnects client.
func NewStore(client *mongo.Client, db *mongo.Database) *repo.Store {
	return &repo.Store{
		Users:   NewUsersRepo(db),
		CVs:     NewCVsRepo(db),
		Reviews: NewReviewsRepo(db),
		Close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		},
	}
}

type UsersRepo struct{ coll *mongo.Collection }

func NewUsersRepo(db *mongo.Database) *UsersRepo {
	return &UsersRepo{coll: db.Collection(database.UsersCollection)}
}

func (r *UsersRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.coll.InsertOne(ctx, toUserDoc(u))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UsersRepo) findOne(ctx context.Context, filter bson.D) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var doc userDoc
	if err := r.coll.FindOne(ctx, append(filter, activeOnly)).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *UsersRepo) FindByResetToken(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	return r.findOne(ctx, bson.D{
		{Key: "passwordResetLink", Value: hash},
		{Key: "passwordExpiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	})
}

func (r *UsersRepo) UpdateCredentials(ctx context.Context, u *domain.User) error {
	set := bson.D{
		{Key: "password", Value: u.PasswordHash},
		{Key: "updatedAt", Value: u.UpdatedAt},
	}
	unset := bson.D{}
	if u.PasswordChangedAt != nil {
		set = append(set, bson.E{Key: "passwordChangedAt", Value: *u.PasswordChangedAt})
	} else {
		unset = append(unset, bson.E{Key: "passwordChangedAt", Value: ""})
	}
	if u.PasswordResetLink != "" && u.PasswordExpiresAt != nil {
		set = append(set,
			bson.E{Key: "passwordResetLink", Value: u.PasswordResetLink},
			bson.E{Key: "passwordExpiresAt", Value: *u.PasswordExpiresAt})
	} else {
		unset = append(unset,
			bson.E{Key: "passwordResetLink", Value: ""},
			bson.E{Key: "passwordExpiresAt", Value: ""})
	}
	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: u.ID}, activeOnly}, update)
	if err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) FindSummaries(ctx context.Context, ids []string) (map[string]*domain.UserSummary, error) {
	out := make(map[string]*domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cur, err := r.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}, activeOnly})
	if err != nil {
		return nil, fmt.Errorf("find user summaries: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for i := range docs {
		out[docs[i].ID] = docs[i].toDomain().ToSummary()
	}
	return out, nil
}

type CVsRepo struct{ coll *mongo.Collection }

func NewCVsRepo(db *mongo.Database) *CVsRepo {
	return &CVsRepo{coll: db.Collection(database.CVsCollection)}
}

func cvFilter(f repo.CVFilter) bson.D {
	filter := bson.D{}
	if f.UserID != "" {
		filter = append(filter, bson.E{Key: "userId", Value: f.UserID})
	}
	switch {
	case f.Status != "":
		filter = append(filter, bson.E{Key: "status", Value: f.Status})
	case f.NotStatus != "":
		filter = append(filter, bson.E{Key: "status", Value: bson.D{{Key: "$ne", Value: f.NotStatus}}})
	}
	return filter
}

func (r *CVsRepo) Create(ctx context.Context, cv *domain.CV) error {
	if cv.ID == "" {
		cv.ID = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, toCVDoc(cv)); err != nil {
		return fmt.Errorf("insert cv: %w", err)
	}
	return nil
}

func (r *CVsRepo) FindByID(ctx context.Context, id string) (*domain.CV, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var doc cvDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}

func (r *CVsRepo) UpdateStatus(ctx context.Context, cv *domain.CV) error {
	set := bson.D{
		{Key: "status", Value: cv.Status},
		{Key: "updatedAt", Value: cv.UpdatedAt},
	}
	if cv.ReviewID != "" {
		set = append(set, bson.E{Key: "reviewId", Value: cv.ReviewID})
	}
	if cv.ReviewedAt != nil {
		set = append(set, bson.E{Key: "reviewedAt", Value: *cv.ReviewedAt})
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: cv.ID}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("update cv status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CVsRepo) List(ctx context.Context, f repo.CVFilter) ([]*domain.CV, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, cvFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find cvs: %w", err)
	}
	var docs []cvDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.CV, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *CVsRepo) Count(ctx context.Context, f repo.CVFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, cvFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count cvs: %w", err)
	}
	return n, nil
}

type ReviewsRepo struct{ coll *mongo.Collection }

func NewReviewsRepo(db *mongo.Database) *ReviewsRepo {
	return &ReviewsRepo{coll: db.Collection(database.ReviewsCollection)}
}

func (r *ReviewsRepo) Create(ctx context.Context, rv *domain.Review) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.coll.InsertOne(ctx, toReviewDoc(rv))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *ReviewsRepo) findOne(ctx context.Context, filter bson.D) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var doc reviewDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewsRepo) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *ReviewsRepo) FindByCVID(ctx context.Context, cvID string) (*domain.Review, error) {
	return r.findOne(ctx, bson.D{{Key: "cvId", Value: cvID}})
}

func (r *ReviewsRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

func (r *ReviewsRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

var (
	_ repo.UserRepository   = (*UsersRepo)(nil)
	_ repo.CVRepository     = (*CVsRepo)(nil)
	_ repo.ReviewRepository = (*ReviewsRepo)(nil)
)
