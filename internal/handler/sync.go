package handler

import (
	"net/http"

	"borneostock-sync/internal/session"
	"borneostock-sync/pkg/response"
)

// SyncHandler exposes the offline session state and the manual sync trigger.
type SyncHandler struct {
	session *session.Controller
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(sess *session.Controller) *SyncHandler {
	return &SyncHandler{session: sess}
}

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.session.Status())
}

// Trigger handles POST /api/v1/sync/trigger. A trigger while offline, while
// a pass is already running, or with an empty queue is not an error; the
// returned status shows what happened.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	result, err := h.session.TriggerSync(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"result": result,
		"status": h.session.Status(),
	})
}
