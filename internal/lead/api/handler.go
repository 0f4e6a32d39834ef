package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edu-crm/internal/auth"
	"edu-crm/internal/lead/service"
	"edu-crm/internal/logger"
	"edu-crm/internal/models"
	"edu-crm/internal/utils"
)

type Handler struct {
	LeadService *service.LeadService
	Logger      *logger.Logger
}

func NewHandler(leadService *service.LeadService, log *logger.Logger) *Handler {
	return &Handler{LeadService: leadService, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leads", func(r chi.Router) {
		r.Post("/", h.CreateLead)
		r.Get("/", h.ListLeads)
		r.Get("/{leadId}", h.GetLead)
		r.Put("/{leadId}", h.UpdateLead)
		r.Delete("/{leadId}", h.DeleteLead)
		r.Put("/{leadId}/status", h.UpdateStatus)
		r.Put("/{leadId}/counsellor", h.AssignCounsellor)
	})
}

func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req models.LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.FullName == "" || req.Email == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "full_name and email are required"))
		return
	}

	lead, err := h.LeadService.CreateLead(r.Context(), principal.Scope(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateLead: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not create lead", err.Error()))
		return
	}

	h.Logger.LogEntity("LEAD", "CREATE", lead.ID, "lead created")
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Lead created", lead))
}

func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	status := r.URL.Query().Get("status")

	leads, err := h.LeadService.ListLeads(r.Context(), principal.Scope(), status)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListLeads: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not list leads", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Leads retrieved", leads))
}

func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	leadID := chi.URLParam(r, "leadId")

	lead, err := h.LeadService.GetLead(r.Context(), principal.Scope(), leadID)
	if err != nil {
		h.writeLeadError(w, "GetLead", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Lead retrieved", lead))
}

func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	leadID := chi.URLParam(r, "leadId")

	var req models.LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	lead, err := h.LeadService.UpdateLead(r.Context(), principal.Scope(), leadID, req)
	if err != nil {
		h.writeLeadError(w, "UpdateLead", err)
		return
	}

	h.Logger.LogEntity("LEAD", "UPDATE", lead.ID, "lead updated")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Lead updated", lead))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	leadID := chi.URLParam(r, "leadId")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "status is required"))
		return
	}

	lead, err := h.LeadService.UpdateStatus(r.Context(), principal.Scope(), leadID, body.Status)
	if err != nil {
		h.writeLeadError(w, "UpdateStatus", err)
		return
	}

	h.Logger.LogEntity("LEAD", "STATUS", lead.ID, "status set to "+lead.Status)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Lead status updated", lead))
}

func (h *Handler) AssignCounsellor(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	leadID := chi.URLParam(r, "leadId")

	var body struct {
		CounsellorID string `json:"counsellor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CounsellorID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "counsellor_id is required"))
		return
	}

	lead, err := h.LeadService.AssignCounsellor(r.Context(), principal.Scope(), leadID, body.CounsellorID)
	if err != nil {
		h.writeLeadError(w, "AssignCounsellor", err)
		return
	}

	h.Logger.LogEntity("LEAD", "ASSIGN", lead.ID, "assigned to "+body.CounsellorID)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Counsellor assigned", lead))
}

func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	leadID := chi.URLParam(r, "leadId")

	if err := h.LeadService.DeleteLead(r.Context(), principal.Scope(), leadID); err != nil {
		h.writeLeadError(w, "DeleteLead", err)
		return
	}

	h.Logger.LogEntity("LEAD", "DELETE", leadID, "lead deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeLeadError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, models.ErrNotFound) {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Lead not found", ""))
		return
	}
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Request failed", err.Error()))
}
