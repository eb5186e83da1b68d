package principles

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/principlequiz/backend/internal/models"
)

type reader interface {
	List(ctx context.Context, filter models.PrincipleFilter) ([]models.Principle, error)
	Get(ctx context.Context, id string) (*models.Principle, error)
}

type Handler struct {
	store reader
}

func NewHandler(store reader) *Handler {
	return &Handler{store: store}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var filter models.PrincipleFilter
	if t := query.Get("type"); t != "" {
		pt := models.PrincipleType(t)
		if !models.ValidPrincipleTypes[pt] {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "type must be 'law', 'cognitive_bias', or 'heuristic'"})
			return
		}
		filter.Type = &pt
	}
	filter.Category = query.Get("category")

	principles, err := h.store.List(r.Context(), filter)
	if err != nil {
		log.Printf("[handler] list principles: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list principles"})
		return
	}

	if principles == nil {
		principles = []models.Principle{}
	}
	writeJSON(w, http.StatusOK, models.PrincipleListResponse{Principles: principles, Total: len(principles)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Principle not found"})
		return
	}
	if err != nil {
		log.Printf("[handler] get principle %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load principle"})
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// RegisterRoutes mounts the principle endpoints on an /api/v1 subrouter.
func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/principles", h.List).Methods("GET")
	api.HandleFunc("/principles/{id}", h.Get).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
