package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgarridoc/citabot/internal/calendar"
	"github.com/dgarridoc/citabot/pkg/logging"
)

// Handler exposes the admin appointment endpoints.
type Handler struct {
	repo   *Repository
	mirror calendar.Mirror
	logger *logging.Logger
}

// NewHandler creates the admin handler. mirror may be nil when calendar
// mirroring is disabled.
func NewHandler(repo *Repository, mirror calendar.Mirror, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("appointments: repository cannot be nil")
	}
	if mirror == nil {
		mirror = calendar.NoopMirror{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, mirror: mirror, logger: logger}
}

// Routes returns the admin sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/calendar", h.upcoming)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.remove)
	return r
}

// upcoming lists the next mirrored calendar events, so an operator can check
// the mirror against the appointment table.
func (h *Handler) upcoming(w http.ResponseWriter, r *http.Request) {
	max := int64(20)
	if v, err := strconv.ParseInt(r.URL.Query().Get("max"), 10, 64); err == nil && v > 0 && v <= 100 {
		max = v
	}
	events, err := h.mirror.ListFutureEvents(r.Context(), max)
	if err != nil {
		h.logger.Error("could not list calendar events", "error", err)
		writeError(w, http.StatusBadGateway, "could not list calendar events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	appts, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("could not list appointments", "error", err, "filter", filter)
		writeError(w, http.StatusInternalServerError, "could not list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts, "count": len(appts)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("could not load appointment", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "could not load appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.repo.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("could not delete appointment", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "could not delete appointment")
		return
	}
	h.logger.Info("appointment deleted by admin", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
