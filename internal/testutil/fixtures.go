package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/carecommunity/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParams adds chi URL parameters to the request context.
// Pairs are key, value, key, value, ...
func WithChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts community documents directly, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateGroup inserts a group owned by creatorID along with the creator's membership row.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, vis models.Visibility, creatorID string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:         primitive.NewObjectID(),
		Name:       name,
		NameCI:     text.Fold(name),
		Visibility: vis,
		CreatorID:  creatorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("community_groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	f.CreateMembership(ctx, g.ID, creatorID, models.RoleCreator)
	return g
}

// CreateMembership inserts a membership row.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID primitive.ObjectID, userID string, role models.MemberRole) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("community_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateJoinRequest inserts a join request with the given status.
func (f *Fixtures) CreateJoinRequest(ctx context.Context, groupID primitive.ObjectID, userID string, status models.RequestStatus) models.JoinRequest {
	f.t.Helper()

	jr := models.JoinRequest{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("community_join_requests").InsertOne(ctx, jr); err != nil {
		f.t.Fatalf("failed to create test join request: %v", err)
	}
	return jr
}

// CreateMessage inserts a message posted at the given time.
func (f *Fixtures) CreateMessage(ctx context.Context, groupID primitive.ObjectID, senderID, text string, at time.Time) models.Message {
	f.t.Helper()

	m := models.Message{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		SenderID:   senderID,
		SenderName: senderID,
		Text:       text,
		CreatedAt:  at.UTC(),
	}
	if _, err := f.db.Collection("community_messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}

// Count returns the number of documents in coll referencing groupID.
func (f *Fixtures) Count(ctx context.Context, coll string, groupID primitive.ObjectID) int64 {
	f.t.Helper()
	filter := map[string]any{"group_id": groupID}
	if coll == "community_groups" {
		filter = map[string]any{"_id": groupID}
	}
	n, err := f.db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		f.t.Fatalf("count %s: %v", coll, err)
	}
	return n
}
