package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edu-crm/internal/auth"
	leadservice "edu-crm/internal/lead/service"
	"edu-crm/internal/logger"
	"edu-crm/internal/models"
	"edu-crm/internal/sequence"
	"edu-crm/internal/student/service"
	"edu-crm/internal/utils"
)

type Handler struct {
	StudentService *service.StudentService
	LeadService    *leadservice.LeadService
	Logger         *logger.Logger
}

func NewHandler(studentService *service.StudentService, leadService *leadservice.LeadService, log *logger.Logger) *Handler {
	return &Handler{StudentService: studentService, LeadService: leadService, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/students", func(r chi.Router) {
		r.Post("/", h.CreateStudent)
		r.Get("/", h.ListStudents)
		r.Get("/{studentId}", h.GetStudent)
		r.Get("/code/{code}", h.GetStudentByCode)
		r.Put("/{studentId}", h.UpdateStudent)
		r.Delete("/{studentId}", h.DeleteStudent)
		r.Post("/convert/{leadId}", h.ConvertLead)
	})
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req models.StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.FullName == "" || req.Email == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "full_name and email are required"))
		return
	}

	student, err := h.StudentService.CreateStudent(r.Context(), principal.Scope(), req)
	if err != nil {
		h.writeStudentError(w, "CreateStudent", err)
		return
	}

	h.Logger.LogEntity("STUDENT", "CREATE", student.Code, "student created")
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Student created", student))
}

// ConvertLead turns a visible lead into a student record.
func (h *Handler) ConvertLead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	leadID := chi.URLParam(r, "leadId")

	lead, err := h.LeadService.GetLead(r.Context(), principal.Scope(), leadID)
	if err != nil {
		h.writeStudentError(w, "ConvertLead", err)
		return
	}

	student, err := h.StudentService.ConvertLead(r.Context(), principal.Scope(), *lead)
	if err != nil {
		h.writeStudentError(w, "ConvertLead", err)
		return
	}

	h.Logger.LogEntity("STUDENT", "CONVERT", student.Code, "converted from lead "+leadID)
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Lead converted", student))
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	students, err := h.StudentService.ListStudents(r.Context(), principal.Scope())
	if err != nil {
		h.writeStudentError(w, "ListStudents", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Students retrieved", students))
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	studentID := chi.URLParam(r, "studentId")

	student, err := h.StudentService.GetStudent(r.Context(), principal.Scope(), studentID)
	if err != nil {
		h.writeStudentError(w, "GetStudent", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Student retrieved", student))
}

func (h *Handler) GetStudentByCode(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	code := chi.URLParam(r, "code")

	student, err := h.StudentService.GetStudentByCode(r.Context(), principal.Scope(), code)
	if err != nil {
		h.writeStudentError(w, "GetStudentByCode", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Student retrieved", student))
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	studentID := chi.URLParam(r, "studentId")

	var req models.StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	student, err := h.StudentService.UpdateStudent(r.Context(), principal.Scope(), studentID, req)
	if err != nil {
		h.writeStudentError(w, "UpdateStudent", err)
		return
	}

	h.Logger.LogEntity("STUDENT", "UPDATE", student.Code, "student updated")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Student updated", student))
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	studentID := chi.URLParam(r, "studentId")

	if err := h.StudentService.DeleteStudent(r.Context(), principal.Scope(), studentID); err != nil {
		h.writeStudentError(w, "DeleteStudent", err)
		return
	}

	h.Logger.LogEntity("STUDENT", "DELETE", studentID, "student deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeStudentError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Student not found", ""))
	case errors.Is(err, sequence.ErrAllocationFailed):
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not allocate student code, please retry", err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Request failed", err.Error()))
	}
}
