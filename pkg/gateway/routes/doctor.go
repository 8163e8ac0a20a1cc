package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/doctor"
	"github.com/AndresDavidVV/ClinicaIA/pkg/records"
	"github.com/gorilla/mux"
)

const (
	msgPatientNotFound = "Paciente no encontrado"
	msgLookupFailed    = "Error al buscar"
)

type DoctorHandler struct {
	service *doctor.Service
}

func NewDoctorHandler(service *doctor.Service) *DoctorHandler {
	return &DoctorHandler{service: service}
}

func (h *DoctorHandler) Register(r *mux.Router) {
	r.HandleFunc("/doctor/second-opinion", h.handleSecondOpinion).Methods(http.MethodPost)
}

type secondOpinionRequest struct {
	Cedula    string            `json:"cedula"`
	Principal *models.Principal `json:"principal,omitempty"`
}

func (h *DoctorHandler) handleSecondOpinion(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req secondOpinionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	cedula := strings.TrimSpace(req.Cedula)
	if cedula == "" {
		writeError(w, http.StatusBadRequest, "cedula is required")
		return
	}

	principal := resolvePrincipal(req.Principal, models.RoleDoctor)
	out, err := h.service.Review(r.Context(), principal, cedula)
	switch {
	case errors.Is(err, records.ErrNotFound):
		logger.Log.WithField("principal", principal.Name).Warn("patient not found")
		writeError(w, http.StatusNotFound, msgPatientNotFound)
		return
	case err != nil:
		logger.Log.WithError(err).Error("second opinion lookup failed")
		writeError(w, http.StatusServiceUnavailable, msgLookupFailed)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// resolvePrincipal fills the role and display name the caller left out.
func resolvePrincipal(p *models.Principal, role models.UserRole) models.Principal {
	if p == nil {
		return models.DefaultPrincipal(role, "")
	}
	out := *p
	if out.Role == "" {
		out.Role = role
	}
	if strings.TrimSpace(out.Name) == "" {
		out.Name = models.DefaultPrincipal(out.Role, "").Name
	}
	return out
}
