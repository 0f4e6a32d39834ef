package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edu-crm/internal/auth"
	"edu-crm/internal/event/service"
	"edu-crm/internal/logger"
	"edu-crm/internal/models"
	"edu-crm/internal/sequence"
	"edu-crm/internal/utils"
)

type Handler struct {
	EventService  *service.EventService
	WebhookSecret string
	Logger        *logger.Logger
}

func NewHandler(eventService *service.EventService, webhookSecret string, log *logger.Logger) *Handler {
	return &Handler{EventService: eventService, WebhookSecret: webhookSecret, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{eventId}", h.GetEvent)
		r.Put("/{eventId}", h.UpdateEvent)
		r.Delete("/{eventId}", h.DeleteEvent)
		r.Post("/{eventId}/registrations", h.Register)
		r.Get("/{eventId}/registrations", h.ListRegistrations)
		r.Post("/{eventId}/checkin", h.CheckInByPass)
	})
	r.Route("/registrations", func(r chi.Router) {
		r.Get("/{registrationId}", h.GetRegistration)
		r.Delete("/{registrationId}", h.CancelRegistration)
		r.Post("/{registrationId}/payment-intent", h.CreatePaymentIntent)
		r.Post("/checkin/{code}", h.CheckIn)
	})
}

// RegisterWebhookRoutes mounts the unauthenticated Stripe callback.
func (h *Handler) RegisterWebhookRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.StripeWebhook)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.Name == "" || req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "name, starts_at and ends_at are required"))
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), principal.Scope(), req)
	if err != nil {
		h.writeEventError(w, "CreateEvent", err)
		return
	}

	h.Logger.LogEntity("EVENT", "CREATE", event.ID, "event created")
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", event))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	events, err := h.EventService.ListEvents(r.Context(), principal.Scope())
	if err != nil {
		h.writeEventError(w, "ListEvents", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "eventId")

	event, err := h.EventService.GetEvent(r.Context(), principal.Scope(), eventID)
	if err != nil {
		h.writeEventError(w, "GetEvent", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "eventId")

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	event, err := h.EventService.UpdateEvent(r.Context(), principal.Scope(), eventID, req)
	if err != nil {
		h.writeEventError(w, "UpdateEvent", err)
		return
	}

	h.Logger.LogEntity("EVENT", "UPDATE", event.ID, "event updated")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event updated", event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "eventId")

	if err := h.EventService.DeleteEvent(r.Context(), principal.Scope(), eventID); err != nil {
		h.writeEventError(w, "DeleteEvent", err)
		return
	}

	h.Logger.LogEntity("EVENT", "DELETE", eventID, "event deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "eventId")

	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.AttendeeName == "" || req.AttendeeEmail == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "attendee_name and attendee_email are required"))
		return
	}

	reg, err := h.EventService.Register(r.Context(), principal.Scope(), eventID, req)
	if err != nil {
		h.writeEventError(w, "Register", err)
		return
	}

	h.Logger.LogEntity("REGISTRATION", "CREATE", reg.Code, "registration created")
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Registration created", reg))
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "eventId")

	regs, err := h.EventService.ListRegistrations(r.Context(), principal.Scope(), eventID)
	if err != nil {
		h.writeEventError(w, "ListRegistrations", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Registrations retrieved", regs))
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	registrationID := chi.URLParam(r, "registrationId")

	reg, err := h.EventService.GetRegistration(r.Context(), principal.Scope(), registrationID)
	if err != nil {
		h.writeEventError(w, "GetRegistration", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Registration retrieved", reg))
}

func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	registrationID := chi.URLParam(r, "registrationId")

	reg, err := h.EventService.CancelRegistration(r.Context(), principal.Scope(), registrationID)
	if err != nil {
		h.writeEventError(w, "CancelRegistration", err)
		return
	}

	h.Logger.LogEntity("REGISTRATION", "CANCEL", reg.Code, "registration cancelled")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Registration cancelled", reg))
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	code := chi.URLParam(r, "code")

	reg, err := h.EventService.CheckIn(r.Context(), principal.Scope(), code)
	if err != nil {
		h.writeEventError(w, "CheckIn", err)
		return
	}

	h.Logger.LogEntity("REGISTRATION", "CHECKIN", reg.Code, "attendee checked in")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Checked in", reg))
}

// CheckInByPass checks in an attendee from a scanned QR entry pass.
func (h *Handler) CheckInByPass(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "eventId")

	var req struct {
		Pass string `json:"pass"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pass == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "pass is required"))
		return
	}

	reg, err := h.EventService.CheckInByPass(r.Context(), principal.Scope(), eventID, req.Pass)
	if err != nil {
		h.writeEventError(w, "CheckInByPass", err)
		return
	}

	h.Logger.LogEntity("REGISTRATION", "CHECKIN", reg.Code, "attendee checked in by pass")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Checked in", reg))
}

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	registrationID := chi.URLParam(r, "registrationId")

	intent, err := h.EventService.CreatePaymentIntent(r.Context(), principal.Scope(), registrationID)
	if err != nil {
		h.writeEventError(w, "CreatePaymentIntent", err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Payment intent created", map[string]string{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
	}))
}

func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.EventService.HandleStripeWebhook(r, h.WebhookSecret); err != nil {
		var webhookErr *service.WebhookError
		if errors.As(err, &webhookErr) {
			h.Logger.Error("WEBHOOK", webhookErr.InternalError)
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}
		h.Logger.Error("WEBHOOK", err.Error())
		http.Error(w, "Webhook processing error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeEventError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Not found", ""))
	case errors.Is(err, service.ErrEventFull):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Event is at capacity", ""))
	case errors.Is(err, sequence.ErrAllocationFailed):
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not allocate registration code, please retry", err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Request failed", err.Error()))
	}
}
