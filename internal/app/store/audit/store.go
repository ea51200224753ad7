// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the audit events collection.
const Collection = "community_audit_events"

// Community event types
const (
	EventGroupCreated     = "group_created"
	EventGroupDeleted     = "group_deleted"
	EventMemberJoined     = "member_joined"
	EventMemberLeft       = "member_left"
	EventJoinRequested    = "join_requested"
	EventRequestApproved  = "join_request_approved"
	EventMessageRateLimit = "message_rate_limited"
)

// Event is one recorded community action.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
	EventType string              `bson:"event_type"`
	GroupID   *primitive.ObjectID `bson:"group_id,omitempty"`

	// Who
	ActorID   string `bson:"actor_id"`             // caller that performed the action
	SubjectID string `bson:"subject_id,omitempty"` // affected user, when different from the actor

	Details map[string]string `bson:"details,omitempty"`
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// ListByGroup returns the most recent events for a group, newest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
