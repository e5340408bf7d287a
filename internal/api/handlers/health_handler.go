package handlers

import (
	"context"
	"net/http"

	"github.com/clanhub/api/internal/api/types"
)

// ReadinessChecker reports whether the service can answer clan requests.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

type HealthHandler struct {
	ready ReadinessChecker
}

func NewHealthHandler(ready ReadinessChecker) *HealthHandler { return &HealthHandler{ready: ready} }

// Liveness answers as long as the process is serving; it never touches the database.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready.Check(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ready"}})
}
