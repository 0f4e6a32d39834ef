package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/webhook"

	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

// InitStripe sets the API key for registration fee payments.
func InitStripe(secretKey string) {
	stripe.Key = secretKey
}

// CreatePaymentIntent opens a Stripe payment for a pending registration's
// event fee. Safe to call again for the same registration: an existing
// live intent is returned instead of a second charge.
func (s *EventService) CreatePaymentIntent(ctx context.Context, sc scope.Scope, registrationID string) (*stripe.PaymentIntent, error) {
	reg, err := s.GetRegistration(ctx, sc, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationStatusPending {
		return nil, errors.New("registration does not require payment")
	}

	event, err := s.DB.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if event.Fee <= 0 {
		return nil, errors.New("event has no fee")
	}

	if reg.PaymentIntentID != "" {
		intent, err := paymentintent.Get(reg.PaymentIntentID, nil)
		if err == nil && intent.Status != "canceled" && intent.Status != "succeeded" {
			return intent, nil
		}
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(event.Fee),
		Currency: stripe.String("usd"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("registration_code", reg.Code)
	params.AddMetadata("event_id", event.ID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent for %s: %w", reg.Code, err)
	}

	reg.PaymentIntentID = intent.ID
	reg.UpdatedAt = time.Now()
	if err := s.DB.UpdateRegistration(ctx, *reg); err != nil {
		return nil, fmt.Errorf("failed to store payment intent for %s: %w", reg.Code, err)
	}
	return intent, nil
}

// WebhookError carries an HTTP status alongside a client-safe message.
type WebhookError struct {
	StatusCode    int
	PublicError   string
	InternalError string
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

// HandleStripeWebhook verifies and applies a Stripe event. Only
// payment_intent.succeeded has an effect; other event types are
// acknowledged and dropped.
func (s *EventService) HandleStripeWebhook(r *http.Request, webhookSecret string) error {
	if webhookSecret == "" {
		return &WebhookError{
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return &WebhookError{
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("failed to read webhook payload: %v", err),
		}
	}

	opts := webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true}
	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), webhookSecret, opts)
	if err != nil {
		return &WebhookError{
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook signature",
			InternalError: fmt.Sprintf("webhook signature verification failed: %v", err),
		}
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return &WebhookError{
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid webhook payload",
				InternalError: fmt.Sprintf("failed to unmarshal payment intent: %v", err),
			}
		}
		if _, err := s.ConfirmPayment(r.Context(), intent.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
			return &WebhookError{
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Webhook processing error",
				InternalError: fmt.Sprintf("failed to confirm payment %s: %v", intent.ID, err),
			}
		}
	}
	return nil
}
