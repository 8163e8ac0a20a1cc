package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/conversation"
	"github.com/gorilla/mux"
)

type AdminHandler struct {
	sessions *conversation.Registry
}

func NewAdminHandler(sessions *conversation.Registry) *AdminHandler {
	return &AdminHandler{sessions: sessions}
}

func (h *AdminHandler) Register(r *mux.Router) {
	r.HandleFunc("/admin/conversations", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/admin/conversations/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/admin/conversations/{id}", h.handleClose).Methods(http.MethodDelete)
	r.HandleFunc("/admin/conversations/{id}/messages", h.handleSubmit).Methods(http.MethodPost)
}

type SessionSnapshot struct {
	ID        string                    `json:"id"`
	State     conversation.State        `json:"state"`
	Principal models.Principal          `json:"principal"`
	Turns     []models.ConversationTurn `json:"turns"`
}

func snapshot(s *conversation.Session) SessionSnapshot {
	return SessionSnapshot{
		ID:        s.ID(),
		State:     s.State(),
		Principal: s.Principal(),
		Turns:     s.Turns(),
	}
}

func (h *AdminHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload struct {
		Principal *models.Principal `json:"principal,omitempty"`
	}
	// An empty body is allowed.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s := h.sessions.Create(resolvePrincipal(payload.Principal, models.RoleAdmin))
	logger.Log.WithFields(map[string]interface{}{
		"session_id": s.ID(),
		"principal":  s.Principal().Name,
	}).Info("conversation session opened")
	writeJSON(w, http.StatusCreated, snapshot(s))
}

func (h *AdminHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshot(s))
}

func (h *AdminHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Close(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	answer, err := s.Submit(r.Context(), payload.Text)
	switch {
	case errors.Is(err, conversation.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, conversation.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.Log.WithError(err).Error("conversation submit failed")
		writeError(w, http.StatusInternalServerError, "failed to process question")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (h *AdminHandler) lookup(w http.ResponseWriter, r *http.Request) (*conversation.Session, bool) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return nil, false
	}
	return s, true
}
