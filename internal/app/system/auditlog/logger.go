// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/carecommunity/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for audit events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// Logger records community audit events to MongoDB and structured logs.
// A nil *Logger is valid and records nothing.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	mode   string
}

// New creates a new audit Logger. An unknown mode is treated as ModeAll.
func New(store *audit.Store, zapLog *zap.Logger, mode string) *Logger {
	switch mode {
	case ModeAll, ModeDB, ModeLog, ModeOff:
	default:
		mode = ModeAll
	}
	return &Logger{store: store, zapLog: zapLog, mode: mode}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("event_type", event.EventType),
		zap.String("actor_id", event.ActorID),
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", event.SubjectID))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	l.zapLog.Info("audit event", fields...)
}

// Log records event according to the configured mode. Storage failures
// are logged and never returned; auditing must not fail the request.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil || l.mode == ModeOff {
		return
	}
	if l.mode == ModeAll || l.mode == ModeLog {
		l.logToZap(event)
	}
	if (l.mode == ModeAll || l.mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func (l *Logger) groupEvent(ctx context.Context, eventType string, groupID primitive.ObjectID, actorID, subjectID string, details map[string]string) {
	l.Log(ctx, audit.Event{
		EventType: eventType,
		GroupID:   &groupID,
		ActorID:   actorID,
		SubjectID: subjectID,
		Details:   details,
	})
}

// GroupCreated logs creation of a group.
func (l *Logger) GroupCreated(ctx context.Context, groupID primitive.ObjectID, actorID, name, visibility string) {
	l.groupEvent(ctx, audit.EventGroupCreated, groupID, actorID, "", map[string]string{
		"name":       name,
		"visibility": visibility,
	})
}

// GroupDeleted logs deletion of a group and its cascade.
func (l *Logger) GroupDeleted(ctx context.Context, groupID primitive.ObjectID, actorID, name string) {
	l.groupEvent(ctx, audit.EventGroupDeleted, groupID, actorID, "", map[string]string{"name": name})
}

// MemberJoined logs a user joining a public group directly.
func (l *Logger) MemberJoined(ctx context.Context, groupID primitive.ObjectID, userID string) {
	l.groupEvent(ctx, audit.EventMemberJoined, groupID, userID, "", nil)
}

// MemberLeft logs a member leaving.
func (l *Logger) MemberLeft(ctx context.Context, groupID primitive.ObjectID, userID string) {
	l.groupEvent(ctx, audit.EventMemberLeft, groupID, userID, "", nil)
}

// JoinRequested logs a new pending request for a private group.
func (l *Logger) JoinRequested(ctx context.Context, groupID, requestID primitive.ObjectID, userID string) {
	l.groupEvent(ctx, audit.EventJoinRequested, groupID, userID, "", map[string]string{
		"request_id": requestID.Hex(),
	})
}

// RequestApproved logs the creator approving a request.
func (l *Logger) RequestApproved(ctx context.Context, groupID, requestID primitive.ObjectID, approverID, userID string) {
	l.groupEvent(ctx, audit.EventRequestApproved, groupID, approverID, userID, map[string]string{
		"request_id": requestID.Hex(),
	})
}

// MessageRateLimited logs a rejected message post.
func (l *Logger) MessageRateLimited(ctx context.Context, groupID primitive.ObjectID, userID string) {
	l.groupEvent(ctx, audit.EventMessageRateLimit, groupID, userID, "", nil)
}
