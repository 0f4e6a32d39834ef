package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edu-crm/internal/application/service"
	"edu-crm/internal/auth"
	"edu-crm/internal/logger"
	"edu-crm/internal/models"
	"edu-crm/internal/sequence"
	studentservice "edu-crm/internal/student/service"
	"edu-crm/internal/utils"
)

type Handler struct {
	ApplicationService *service.ApplicationService
	StudentService     *studentservice.StudentService
	Logger             *logger.Logger
}

func NewHandler(applicationService *service.ApplicationService, studentService *studentservice.StudentService, log *logger.Logger) *Handler {
	return &Handler{ApplicationService: applicationService, StudentService: studentService, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.CreateApplication)
		r.Get("/", h.ListApplications)
		r.Get("/{applicationId}", h.GetApplication)
		r.Get("/code/{code}", h.GetApplicationByCode)
		r.Put("/{applicationId}", h.UpdateApplication)
		r.Delete("/{applicationId}", h.DeleteApplication)
		r.Put("/{applicationId}/status", h.Transition)
		r.Post("/{applicationId}/decision", h.RecordDecision)
		r.Get("/{applicationId}/decisions", h.GetDecisions)
		r.Get("/student/{studentId}", h.ListByStudent)
	})
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req models.ApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.StudentID == "" || req.UniversityID == "" || req.Program == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "student_id, university_id and program are required"))
		return
	}

	// The target student must be visible to the caller.
	if _, err := h.StudentService.GetStudent(r.Context(), principal.Scope(), req.StudentID); err != nil {
		h.writeApplicationError(w, "CreateApplication", err)
		return
	}

	app, err := h.ApplicationService.CreateApplication(r.Context(), principal.Scope(), req)
	if err != nil {
		h.writeApplicationError(w, "CreateApplication", err)
		return
	}

	h.Logger.LogEntity("APPLICATION", "CREATE", app.Code, "application created")
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Application created", app))
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	status := r.URL.Query().Get("status")

	apps, err := h.ApplicationService.ListApplications(r.Context(), principal.Scope(), status)
	if err != nil {
		h.writeApplicationError(w, "ListApplications", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Applications retrieved", apps))
}

func (h *Handler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	studentID := chi.URLParam(r, "studentId")

	student, err := h.StudentService.GetStudent(r.Context(), principal.Scope(), studentID)
	if err != nil {
		h.writeApplicationError(w, "ListByStudent", err)
		return
	}

	apps, err := h.ApplicationService.ListByStudent(r.Context(), principal.Scope(), *student)
	if err != nil {
		h.writeApplicationError(w, "ListByStudent", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Applications retrieved", apps))
}

func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	applicationID := chi.URLParam(r, "applicationId")

	app, err := h.ApplicationService.GetApplication(r.Context(), principal.Scope(), applicationID)
	if err != nil {
		h.writeApplicationError(w, "GetApplication", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Application retrieved", app))
}

func (h *Handler) GetApplicationByCode(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	code := chi.URLParam(r, "code")

	app, err := h.ApplicationService.GetApplicationByCode(r.Context(), principal.Scope(), code)
	if err != nil {
		h.writeApplicationError(w, "GetApplicationByCode", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Application retrieved", app))
}

func (h *Handler) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	applicationID := chi.URLParam(r, "applicationId")

	var req models.ApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	app, err := h.ApplicationService.UpdateApplication(r.Context(), principal.Scope(), applicationID, req)
	if err != nil {
		h.writeApplicationError(w, "UpdateApplication", err)
		return
	}

	h.Logger.LogEntity("APPLICATION", "UPDATE", app.Code, "application updated")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Application updated", app))
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	applicationID := chi.URLParam(r, "applicationId")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "status is required"))
		return
	}

	app, err := h.ApplicationService.Transition(r.Context(), principal.Scope(), applicationID, body.Status)
	if err != nil {
		h.writeApplicationError(w, "Transition", err)
		return
	}

	h.Logger.LogEntity("APPLICATION", "STATUS", app.Code, "status set to "+app.Status)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Application status updated", app))
}

func (h *Handler) RecordDecision(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	applicationID := chi.URLParam(r, "applicationId")

	var body struct {
		Decision   string `json:"decision"`
		Conditions string `json:"conditions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Decision == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "decision is required"))
		return
	}

	decision, err := h.ApplicationService.RecordDecision(r.Context(), principal.Scope(), applicationID, body.Decision, body.Conditions)
	if err != nil {
		h.writeApplicationError(w, "RecordDecision", err)
		return
	}

	h.Logger.LogEntity("APPLICATION", "DECISION", applicationID, "decision recorded: "+decision.Decision)
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Decision recorded", decision))
}

func (h *Handler) GetDecisions(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	applicationID := chi.URLParam(r, "applicationId")

	decisions, err := h.ApplicationService.GetDecisions(r.Context(), principal.Scope(), applicationID)
	if err != nil {
		h.writeApplicationError(w, "GetDecisions", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Decisions retrieved", decisions))
}

func (h *Handler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	applicationID := chi.URLParam(r, "applicationId")

	if err := h.ApplicationService.DeleteApplication(r.Context(), principal.Scope(), applicationID); err != nil {
		h.writeApplicationError(w, "DeleteApplication", err)
		return
	}

	h.Logger.LogEntity("APPLICATION", "DELETE", applicationID, "application deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeApplicationError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Application not found", ""))
	case errors.Is(err, service.ErrBadTransition):
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid status transition", err.Error()))
	case errors.Is(err, sequence.ErrAllocationFailed):
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not allocate application code, please retry", err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Request failed", err.Error()))
	}
}
