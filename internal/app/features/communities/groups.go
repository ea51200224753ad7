// internal/app/features/communities/groups.go
package communities

import (
	"net/http"

	"github.com/dalemusser/carecommunity/internal/app/services/community"
	"github.com/dalemusser/carecommunity/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

type createGroupRequest struct {
	community.CreateGroupInput
	UserID string `json:"userId"`
}

// ServeList handles GET /communities.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "community list")
	defer cancel()

	c := callerOf(r, "")
	groups, err := h.Svc.ListGroups(ctx, c.ID)
	if err != nil {
		h.writeServiceError(w, r, "list groups", err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"groups": groups, "count": len(groups)})
}

// HandleCreate handles POST /communities.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", "validation")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "community create")
	defer cancel()

	c := callerOf(r, req.UserID)
	g, err := h.Svc.CreateGroup(ctx, c.ID, req.CreateGroupInput)
	if err != nil {
		h.writeServiceError(w, r, "create group", err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"group": g})
}

// ServeGroup handles GET /communities/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "community get")
	defer cancel()

	c := callerOf(r, "")
	d, err := h.Svc.GetGroup(ctx, chi.URLParam(r, "id"), c.ID)
	if err != nil {
		h.writeServiceError(w, r, "get group", err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"group": d})
}

type callerBody struct {
	UserID string `json:"userId"`
}

// HandleJoin handles POST /communities/{id}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var body callerBody
	if err := decodeBody(w, r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", "validation")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "community join")
	defer cancel()

	c := callerOf(r, body.UserID)
	res, err := h.Svc.JoinGroup(ctx, chi.URLParam(r, "id"), c.ID)
	if err != nil {
		h.writeServiceError(w, r, "join group", err)
		return
	}

	payload := envelope{"status": res.Status, "message": res.Message}
	if res.RequestID != "" {
		payload["requestId"] = res.RequestID
	}
	writeOK(w, http.StatusOK, payload)
}

// HandleLeave handles POST /communities/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	var body callerBody
	if err := decodeBody(w, r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", "validation")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "community leave")
	defer cancel()

	c := callerOf(r, body.UserID)
	if err := h.Svc.LeaveGroup(ctx, chi.URLParam(r, "id"), c.ID); err != nil {
		h.writeServiceError(w, r, "leave group", err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Left group"})
}

// HandleApprove handles POST /communities/{id}/requests/{requestId}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var body callerBody
	if err := decodeBody(w, r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", "validation")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "community approve")
	defer cancel()

	c := callerOf(r, body.UserID)
	jr, err := h.Svc.ApproveRequest(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "requestId"), c.ID)
	if err != nil {
		h.writeServiceError(w, r, "approve request", err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Request approved", "request": jr})
}

// HandleDelete handles DELETE /communities/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "community delete")
	defer cancel()

	c := callerOf(r, "")
	if err := h.Svc.DeleteGroup(ctx, chi.URLParam(r, "id"), c.ID); err != nil {
		h.writeServiceError(w, r, "delete group", err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Group deleted"})
}
