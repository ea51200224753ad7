// internal/app/features/communities/messages.go
package communities

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/carecommunity/internal/app/services/community"
	"github.com/dalemusser/carecommunity/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sendMessageRequest struct {
	community.SendMessageInput
	UserID string `json:"userId"`
}

// HandleSendMessage handles POST /communities/{id}/messages.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", "validation")
		return
	}

	c := callerOf(r, req.UserID)
	if req.SenderName == "" {
		req.SenderName = c.Name
	}

	groupID := chi.URLParam(r, "id")
	if c.ID != "" && !h.MessageLimiter.Allow(c.ID) {
		if oid, err := primitive.ObjectIDFromHex(groupID); err == nil {
			h.Audit.MessageRateLimited(r.Context(), oid, c.ID)
		}
		retry := int(math.Ceil(h.MessageLimiter.RetryAfter(c.ID).Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
		writeFailure(w, http.StatusTooManyRequests, "Too many messages. Please wait before posting again.", "rate_limited")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "community send message")
	defer cancel()

	m, err := h.Svc.SendMessage(ctx, groupID, c.ID, req.SendMessageInput)
	if err != nil {
		if community.KindOf(err) != community.KindInternal {
			h.MessageLimiter.Refund(c.ID)
		}
		h.writeServiceError(w, r, "send message", err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"message": "Message sent", "data": m})
}

// ServeMessages handles GET /communities/{id}/messages?limit=&before=&after=.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	q := community.ListMessagesQuery{
		Before: strings.TrimSpace(query.Get(r, "before")),
		After:  strings.TrimSpace(query.Get(r, "after")),
	}
	if raw := strings.TrimSpace(query.Get(r, "limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeFailure(w, http.StatusBadRequest, "limit must be a non-negative integer", "validation")
			return
		}
		q.Limit = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "community list messages")
	defer cancel()

	c := callerOf(r, "")
	page, err := h.Svc.ListMessages(ctx, chi.URLParam(r, "id"), c.ID, q)
	if err != nil {
		h.writeServiceError(w, r, "list messages", err)
		return
	}
	out := envelope{
		"messages": page.Messages,
		"count":    len(page.Messages),
		"hasOlder": page.HasOlder,
		"hasNewer": page.HasNewer,
	}
	if page.OlderCursor != "" {
		out["olderCursor"] = page.OlderCursor
		out["newerCursor"] = page.NewerCursor
	}
	writeOK(w, http.StatusOK, out)
}
