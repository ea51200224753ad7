// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/carecommunity/internal/app/system/paging"
	"github.com/dalemusser/carecommunity/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the community messages collection.
const Collection = "community_messages"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a message. ID and CreatedAt are assigned here; the stored
// document is never modified afterwards.
func (s *Store) Create(ctx context.Context, m models.Message) (models.Message, error) {
	m.ID = primitive.NewObjectID()
	m.Text = strings.TrimSpace(m.Text)
	m.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListPage returns one page of the group's messages in chronological
// order (oldest first), keyset-paged on (created_at, _id).
func (s *Store) ListPage(ctx context.Context, groupID primitive.ObjectID, cfg paging.KeysetConfig) ([]models.Message, paging.Result, error) {
	filter := bson.M{"group_id": groupID}
	if window := cfg.KeysetWindow("created_at"); window != nil {
		filter["$or"] = window["$or"]
	}
	find := options.Find()
	cfg.ApplyToFind(find, "created_at")

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, paging.Result{}, err
	}
	defer cur.Close(ctx)

	msgs := []models.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, paging.Result{}, err
	}
	return msgs, paging.TrimPage(&msgs, cfg), nil
}

// DeleteByGroup removes all messages for a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
