package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clanhub/api/internal/api/middleware"
	"github.com/clanhub/api/internal/api/types"
	"github.com/clanhub/api/internal/services"
)

const maxBodyBytes = 1 << 20

type ClansHandler struct {
	svc services.ClanService
}

func NewClansHandler(svc services.ClanService) *ClansHandler {
	return &ClansHandler{svc: svc}
}

func (h *ClansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ClanCreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "invalid json")
		return
	}
	c, err := h.svc.CreateClan(r.Context(), &services.CreateClanInput{Name: req.Name, Region: req.Region})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: c})
}

func (h *ClansHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListClans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    items,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context()), Total: len(items)},
	})
}

func (h *ClansHandler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.SearchClans(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    items,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context()), Total: len(items)},
	})
}

func (h *ClansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := clanID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetClan(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: c})
}

func (h *ClansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := clanID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteClan(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
