package community

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/carecommunity/internal/app/system/paging"
	"github.com/dalemusser/carecommunity/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SendMessageInput struct {
	Text string `json:"text"`
	// SenderName is the display name snapshot; the caller id is used when empty.
	SenderName string `json:"senderName"`
}

// ListMessagesQuery selects a page of history. Limit <= 0 means the
// default. Before and After are cursors from a previous MessagePage;
// without either the latest messages are returned.
type ListMessagesQuery struct {
	Limit  int
	Before string
	After  string
}

// MessagePage is one page of a group's history, oldest first.
type MessagePage struct {
	Messages []models.Message `json:"messages"`
	HasOlder bool             `json:"hasOlder"`
	HasNewer bool             `json:"hasNewer"`
	// OlderCursor is passed as before to page back; NewerCursor as after
	// to fetch what was posted since.
	OlderCursor string `json:"olderCursor,omitempty"`
	NewerCursor string `json:"newerCursor,omitempty"`
}

// SendMessage posts a message to a group the caller belongs to.
func (s *Service) SendMessage(ctx context.Context, groupID, callerID string, in SendMessageInput) (models.Message, error) {
	callerID = normalizeCaller(callerID)
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return models.Message{}, validationError("Message text is required")
	}
	if callerID == "" {
		return models.Message{}, unauthorizedError()
	}
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return models.Message{}, err
	}
	member, err := s.isMember(ctx, g, callerID)
	if err != nil {
		return models.Message{}, err
	}
	if !member {
		return models.Message{}, forbiddenError("Only members can post messages")
	}

	name := strings.TrimSpace(in.SenderName)
	if name == "" {
		name = callerID
	}
	m, err := s.messages.Create(ctx, models.Message{
		GroupID:    g.ID,
		SenderID:   callerID,
		SenderName: name,
		Text:       text,
	})
	if err != nil {
		return models.Message{}, internalError("send message", err)
	}
	return m, nil
}

// ListMessages returns a page of the group's messages, oldest first. By
// default it is the most recent page.
func (s *Service) ListMessages(ctx context.Context, groupID, callerID string, q ListMessagesQuery) (MessagePage, error) {
	callerID = normalizeCaller(callerID)
	if callerID == "" {
		return MessagePage{}, unauthorizedError()
	}
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return MessagePage{}, err
	}
	member, err := s.isMember(ctx, g, callerID)
	if err != nil {
		return MessagePage{}, err
	}
	if !member {
		return MessagePage{}, forbiddenError("Only members can read messages")
	}

	cfg, err := paging.ConfigureKeyset(strings.TrimSpace(q.Before), strings.TrimSpace(q.After), s.clampLimit(q.Limit))
	if err != nil {
		return MessagePage{}, validationError("Invalid message cursor")
	}

	msgs, res, err := s.messages.ListPage(ctx, g.ID, cfg)
	if err != nil {
		return MessagePage{}, internalError("list messages", err)
	}
	p := MessagePage{Messages: msgs, HasOlder: res.HasPrev, HasNewer: res.HasNext}
	p.OlderCursor, p.NewerCursor = paging.BuildCursors(msgs,
		func(m models.Message) time.Time { return m.CreatedAt },
		func(m models.Message) primitive.ObjectID { return m.ID })
	return p, nil
}

func (s *Service) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.messageLimit
	case limit > MaxMessageLimit:
		return MaxMessageLimit
	default:
		return limit
	}
}
