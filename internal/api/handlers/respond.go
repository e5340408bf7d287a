package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/clanhub/api/internal/api/middleware"
	"github.com/clanhub/api/internal/api/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its status and envelope. Server-side failures are
// logged here because their detail never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		middleware.Logger(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeErrorStr(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: code, Message: msg}})
}
