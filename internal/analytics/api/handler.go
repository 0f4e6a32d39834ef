package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edu-crm/internal/analytics"
	"edu-crm/internal/auth"
	"edu-crm/internal/logger"
	"edu-crm/internal/utils"
)

type Handler struct {
	AnalyticsService *analytics.Service
	Logger           *logger.Logger
}

func NewHandler(analyticsService *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{AnalyticsService: analyticsService, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/summary", h.GetSummary)
		r.Get("/leads/funnel", h.GetLeadFunnel)
		r.Get("/applications/pipeline", h.GetApplicationPipeline)
		r.Get("/events/attendance", h.GetEventAttendance)
	})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", ""))
		return
	}

	summary, err := h.AnalyticsService.GetSummary(r.Context(), principal.Scope())
	if err != nil {
		h.writeAnalyticsError(w, "GetSummary", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Summary retrieved", summary))
}

func (h *Handler) GetLeadFunnel(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", ""))
		return
	}

	funnel, err := h.AnalyticsService.GetLeadFunnel(r.Context(), principal.Scope())
	if err != nil {
		h.writeAnalyticsError(w, "GetLeadFunnel", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Lead funnel retrieved", funnel))
}

func (h *Handler) GetApplicationPipeline(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", ""))
		return
	}

	pipeline, err := h.AnalyticsService.GetApplicationPipeline(r.Context(), principal.Scope())
	if err != nil {
		h.writeAnalyticsError(w, "GetApplicationPipeline", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Application pipeline retrieved", pipeline))
}

func (h *Handler) GetEventAttendance(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", ""))
		return
	}

	attendance, err := h.AnalyticsService.GetEventAttendance(r.Context(), principal.Scope())
	if err != nil {
		h.writeAnalyticsError(w, "GetEventAttendance", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event attendance retrieved", attendance))
}

func (h *Handler) writeAnalyticsError(w http.ResponseWriter, op string, err error) {
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Request failed", err.Error()))
}
