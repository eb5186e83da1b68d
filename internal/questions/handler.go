package questions

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/principlequiz/backend/internal/models"
	"github.com/principlequiz/backend/internal/principles"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Difficulty != "" && !models.ValidDifficulties[req.Difficulty] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be 'easy', 'medium', or 'hard'"})
		return
	}

	resp, err := h.service.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Generation failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req models.EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.Estimate(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Estimate failed", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListForPrinciple(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	resp, err := h.service.ListForPrinciple(r.Context(), id)
	if errors.Is(err, principles.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Principle not found"})
		return
	}
	if err != nil {
		log.Printf("[handler] list questions for %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list questions"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		log.Printf("[handler] question stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var status *models.RunStatus
	if s := query.Get("status"); s != "" {
		rs := models.RunStatus(s)
		status = &rs
	}

	limit := intQueryParam(query, "limit", 20)
	offset := intQueryParam(query, "offset", 0)

	runs, err := h.service.ListRuns(r.Context(), status, limit, offset)
	if err != nil {
		log.Printf("[handler] list runs: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list runs"})
		return
	}

	if runs == nil {
		runs = []models.GenerationRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := h.service.GetRun(r.Context(), id)
	if errors.Is(err, ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Run not found"})
		return
	}
	if err != nil {
		log.Printf("[handler] get run %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load run"})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// RegisterRoutes mounts the question and run endpoints on an /api/v1 subrouter.
func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/questions/generate", h.Generate).Methods("POST")
	api.HandleFunc("/questions/estimate", h.Estimate).Methods("POST")
	api.HandleFunc("/questions/stats", h.Stats).Methods("GET")
	api.HandleFunc("/principles/{id}/questions", h.ListForPrinciple).Methods("GET")
	api.HandleFunc("/generation-runs", h.ListRuns).Methods("GET")
	api.HandleFunc("/generation-runs/{id}", h.GetRun).Methods("GET")
}

func writeServiceError(w http.ResponseWriter, prefix string, err error) {
	var costErr *CostLimitError
	switch {
	case errors.As(err, &costErr):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error()})
	case IsClientError(err):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[handler] %s: %v", prefix, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: prefix + ": " + err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
