package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dgarridoc/citabot/internal/http/middleware"
	"github.com/dgarridoc/citabot/internal/llm"
	"github.com/dgarridoc/citabot/internal/payload"
	"github.com/dgarridoc/citabot/internal/session"
	"github.com/dgarridoc/citabot/pkg/logging"
)

// processor runs one conversation turn. Implemented by dialogue.Manager.
type processor interface {
	Process(ctx context.Context, sess *session.Session, text string, history []llm.Message, docText string) string
}

// Handler exposes the conversational API.
type Handler struct {
	manager     processor
	sessions    *session.Registry
	transcripts *TranscriptStore
	logger      *logging.Logger
}

// NewHandler creates the chat handler.
func NewHandler(manager processor, sessions *session.Registry, transcripts *TranscriptStore, logger *logging.Logger) *Handler {
	if manager == nil || sessions == nil || transcripts == nil {
		panic("chat: manager, sessions and transcripts are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		manager:     manager,
		sessions:    sessions,
		transcripts: transcripts,
		logger:      logger,
	}
}

// Routes returns the chat sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/message", h.handleMessage)
	r.Get("/history", h.handleHistory)
	r.Delete("/history", h.handleReset)
	r.Post("/document", h.handleDocument)
	return r
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type messageResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	sess := h.sessions.Get(req.SessionID)
	h.applyIdentity(r.Context(), sess)

	history, err := h.transcripts.History(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Warn("could not load history", "error", err, "session_id", req.SessionID)
	}
	doc, err := h.transcripts.Document(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Warn("could not load document", "error", err, "session_id", req.SessionID)
	}

	reply := h.manager.Process(r.Context(), sess, req.Message, history, doc)

	if err := h.transcripts.Append(r.Context(), req.SessionID, Turn{User: req.Message, Assistant: reply}); err != nil {
		h.logger.Warn("could not persist turn", "error", err, "session_id", req.SessionID)
	}

	writeJSON(w, http.StatusOK, messageResponse{SessionID: req.SessionID, Reply: reply})
}

type historyEntry struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	turns, err := h.transcripts.Turns(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("could not load transcript", "error", err, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}

	entries := make([]historyEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, historyEntry{
			User:      t.User,
			Assistant: payload.StripBlocks(t.Assistant),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "turns": entries})
}

// handleReset clears the transcript and discards the in-memory session,
// starting the conversation from scratch.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := h.transcripts.Clear(r.Context(), sessionID); err != nil {
		h.logger.Error("could not clear transcript", "error", err, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, "could not reset conversation")
		return
	}
	h.sessions.Drop(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

type documentRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "session_id and text are required")
		return
	}
	if err := h.transcripts.SaveDocument(r.Context(), req.SessionID, req.Text); err != nil {
		h.logger.Error("could not store document", "error", err, "session_id", req.SessionID)
		writeError(w, http.StatusInternalServerError, "could not store document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyIdentity seeds the session with the authenticated user the first time
// it is seen. Anonymous sessions stay anonymous.
func (h *Handler) applyIdentity(ctx context.Context, sess *session.Session) {
	ident, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()
	if sess.Identity.Email == "" {
		sess.Identity = session.Identity{Name: ident.Name, Email: ident.Email}
		sess.State().Merge(session.Partial{Name: ident.Name, Email: ident.Email})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
