// internal/app/store/joinrequests/joinrequeststore.go
package joinrequeststore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/carecommunity/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the join requests collection.
// A partial unique index on (group_id, user_id) where status is "pending"
// backs ErrPendingRequestExists; approved rows are history and unconstrained.
const Collection = "community_join_requests"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

var ErrPendingRequestExists = errors.New("a pending join request already exists for this user")

// Create inserts a pending request for (groupID, userID).
func (s *Store) Create(ctx context.Context, groupID primitive.ObjectID, userID string) (models.JoinRequest, error) {
	jr := models.JoinRequest{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, jr); err != nil {
		if wafflemongo.IsDup(err) {
			return models.JoinRequest{}, ErrPendingRequestExists
		}
		return models.JoinRequest{}, err
	}
	return jr, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.JoinRequest, error) {
	var jr models.JoinRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&jr); err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

// FindPending returns the pending request for (groupID, userID), or
// mongo.ErrNoDocuments if there is none.
func (s *Store) FindPending(ctx context.Context, groupID primitive.ObjectID, userID string) (models.JoinRequest, error) {
	var jr models.JoinRequest
	err := s.c.FindOne(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"status":   models.StatusPending,
	}).Decode(&jr)
	if err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

// ListPendingByGroup returns the group's pending requests, oldest first.
func (s *Store) ListPendingByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.JoinRequest, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"group_id": groupID, "status": models.StatusPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	reqs := []models.JoinRequest{}
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// MarkApproved moves a pending request to approved. Returns the number of
// documents modified; 0 means the request was not pending.
func (s *Store) MarkApproved(ctx context.Context, id primitive.ObjectID, approverID string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{
			"status":      models.StatusApproved,
			"approved_at": now,
			"approved_by": approverID,
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteByGroup removes all requests for a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
