package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yacine2174/projet-master-sub002/models"
	"github.com/yacine2174/projet-master-sub002/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection  = "users"
	resetsCollection = "reset_requests"
)

// MongoStore persists users and the reset ledger in MongoDB.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	resets *mongo.Collection
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client: client,
		users:  db.Collection(usersCollection),
		resets: db.Collection(resetsCollection),
	}
}

// EnsureIndexes creates the indexes the store's atomicity guarantees rely on:
// the unique email index, and the partial unique index that lets two
// concurrent reset creations for one user race safely (one insert wins, the
// other surfaces a duplicate key that maps to ErrActiveResetExists).
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users email index: %w", err)
	}

	_, err = s.resets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(models.ResetPending)}),
		},
		{
			Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "requestedAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("reset request indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *MongoStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) UserByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoStore) UpdateUserStatus(ctx context.Context, id bson.ObjectID, status models.AccountStatus, now time.Time) error {
	return s.updateUser(ctx, id, bson.M{"status": status, "updatedAt": now})
}

func (s *MongoStore) UpdateUserRole(ctx context.Context, id bson.ObjectID, role models.Role, now time.Time) error {
	return s.updateUser(ctx, id, bson.M{"role": role, "updatedAt": now})
}

func (s *MongoStore) UpdateUserPassword(ctx context.Context, id bson.ObjectID, hash string, now time.Time) error {
	return s.updateUser(ctx, id, bson.M{"passwordHash": hash, "updatedAt": now})
}

func (s *MongoStore) updateUser(ctx context.Context, id bson.ObjectID, set bson.M) error {
	res, err := s.users.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateResetRequest(ctx context.Context, req *models.ResetRequest, now time.Time) error {
	if req.ID.IsZero() {
		req.ID = bson.NewObjectID()
	}
	req.Status = models.ResetPending
	req.RequestedAt = now

	// Upsert against the active-request filter: when a pending or
	// approved-and-unexpired request matches, nothing is inserted and the
	// exclusivity violation surfaces as UpsertedCount == 0. When nothing
	// matches, the insert itself can still lose a race with a concurrent
	// create; the partial unique pending index turns that into E11000.
	filter := bson.M{
		"userId": req.UserID,
		"$or": bson.A{
			bson.M{"status": models.ResetPending},
			bson.M{"status": models.ResetApproved, "expiresAt": bson.M{"$gt": now}},
		},
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":         req.ID,
			"userName":    req.UserName,
			"userEmail":   req.UserEmail,
			"userRole":    req.UserRole,
			"status":      req.Status,
			"requestedAt": req.RequestedAt,
		},
	}
	res, err := s.resets.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrActiveResetExists
		}
		return err
	}
	if res.UpsertedCount == 0 {
		return ErrActiveResetExists
	}
	return nil
}

func (s *MongoStore) ResetByID(ctx context.Context, id bson.ObjectID) (*models.ResetRequest, error) {
	var req models.ResetRequest
	if err := s.resets.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (s *MongoStore) LatestResetByEmail(ctx context.Context, email string) (*models.ResetRequest, error) {
	var req models.ResetRequest
	err := s.resets.FindOne(ctx, bson.M{"userEmail": email},
		options.FindOne().SetSort(bson.D{{Key: "requestedAt", Value: -1}})).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (s *MongoStore) ListResetRequests(ctx context.Context) ([]models.ResetRequest, error) {
	cur, err := s.resets.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "requestedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var reqs []models.ResetRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *MongoStore) ReviewResetRequest(ctx context.Context, id bson.ObjectID, approve bool, reviewerID bson.ObjectID, notes string, now time.Time, expiresAt time.Time) (*models.ResetRequest, error) {
	set := bson.M{
		"approvedAt": now,
		"reviewerId": reviewerID,
	}
	if approve {
		set["status"] = models.ResetApproved
		set["expiresAt"] = expiresAt
	} else {
		set["status"] = models.ResetRejected
	}
	if notes != "" {
		set["adminNotes"] = notes
	}

	// Keyed on the current status so two reviewers cannot both win.
	var req models.ResetRequest
	err := s.resets.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.ResetPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&req)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	// Missing vs already decided.
	if _, lookupErr := s.ResetByID(ctx, id); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, ErrResetNotPending
}

func (s *MongoStore) RedeemResetRequest(ctx context.Context, email string, newHash string, now time.Time) (*models.ResetRequest, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	result, err := sess.WithTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
		var req models.ResetRequest
		err := s.resets.FindOneAndUpdate(txCtx,
			bson.M{
				"userEmail": email,
				"status":    models.ResetApproved,
				"expiresAt": bson.M{"$gt": now},
			},
			bson.M{"$set": bson.M{"status": models.ResetCompleted, "completedAt": now}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&req)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrResetNotRedeemable
			}
			return nil, err
		}

		res, err := s.users.UpdateByID(txCtx, req.UserID,
			bson.M{"$set": bson.M{"passwordHash": newHash, "updatedAt": now}})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, ErrNotFound
		}
		return &req, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.ResetRequest), nil
}
