package ops

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sopstack/inventory-backend/internal/service"
)

// Handler exposes the operational surface: health, snapshot sync and
// run triggering. It lives on its own port, away from the report API.
type Handler struct {
	syncer  *Syncer
	reports *service.ReportService
}

func NewHandler(syncer *Syncer, reports *service.ReportService) *Handler {
	return &Handler{syncer: syncer, reports: reports}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods("GET")
	router.HandleFunc("/api/ops/periods", h.ListPeriods).Methods("GET")
	router.HandleFunc("/api/ops/sync", h.SyncPeriod).Methods("POST")
	router.HandleFunc("/api/ops/runs", h.TriggerRun).Methods("POST")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	limit := 24
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	periods, err := h.reports.GetAvailablePeriods(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"periods": periods})
}

type periodRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (r periodRequest) valid() bool {
	return r.Year > 0 && r.Month >= 1 && r.Month <= 12
}

func (h *Handler) SyncPeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		http.Error(w, "year and month are required", http.StatusBadRequest)
		return
	}

	files, err := h.syncer.SyncPeriod(r.Context(), req.Year, req.Month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"downloaded": files})
}

func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		http.Error(w, "year and month are required", http.StatusBadRequest)
		return
	}

	results, err := h.reports.Run(r.Context(), req.Year, req.Month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	runs := make([]map[string]interface{}, 0, len(results))
	for _, res := range results {
		runs = append(runs, map[string]interface{}{
			"run":     res.Run.Name(),
			"batches": len(res.Batches),
			"quality": res.Quality,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
