// internal/app/features/communities/response.go
package communities

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/carecommunity/internal/app/services/community"
	"github.com/dalemusser/carecommunity/internal/app/system/callerid"
	"github.com/dalemusser/carecommunity/internal/app/system/requestid"
	"go.uber.org/zap"
)

// envelope is the body of every response: {"success":bool, ...payload}.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, status int, payload envelope) {
	body := envelope{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeFailure(w http.ResponseWriter, status int, message, code string) {
	body := envelope{"success": false, "message": message}
	if code != "" {
		body["error"] = code
	}
	writeJSON(w, status, body)
}

func statusFor(k community.Kind) int {
	switch k {
	case community.KindValidation:
		return http.StatusBadRequest
	case community.KindUnauthorized:
		return http.StatusUnauthorized
	case community.KindForbidden:
		return http.StatusForbidden
	case community.KindNotFound:
		return http.StatusNotFound
	case community.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service failure onto the response. Internal
// causes are logged, never returned to the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := community.KindOf(err)
	if kind == community.KindInternal {
		h.Log.Error("community operation failed",
			zap.String("op", op),
			requestid.Field(r.Context()),
			zap.Error(err))
	}
	writeFailure(w, statusFor(kind), community.MessageOf(err), strings.ReplaceAll(kind.String(), " ", "_"))
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// callerOf returns the resolved caller, falling back to a userId carried
// in an already decoded request body.
func callerOf(r *http.Request, bodyUserID string) callerid.Caller {
	if c, ok := callerid.FromRequest(r); ok {
		return c
	}
	return callerid.Caller{ID: strings.TrimSpace(bodyUserID)}
}
