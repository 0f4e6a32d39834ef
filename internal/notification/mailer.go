package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"edu-crm/internal/config"
	"edu-crm/internal/logger"
	"edu-crm/internal/models"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Mailer sends transactional email through SendGrid. A disabled mailer
// drops messages silently so local setups work without an API key.
type Mailer struct {
	key     string
	from    *sgmail.Email
	enabled bool
	logger  *logger.Logger
}

func NewMailer(cfg config.EmailConfig, log *logger.Logger) *Mailer {
	return &Mailer{
		key:     cfg.SendgridAPIKey,
		from:    sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		enabled: cfg.Enabled && cfg.SendgridAPIKey != "",
		logger:  log,
	}
}

// SendDecisionNotice emails the applicant once an admission decision is
// recorded. The application must carry its student relation for the
// recipient address; otherwise the notice is skipped.
func (m *Mailer) SendDecisionNotice(ctx context.Context, app models.Application, decision models.AdmissionDecision) error {
	if app.Student == nil || app.Student.Email == "" {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", app.Student.FullName)
	switch decision.Decision {
	case "offer":
		fmt.Fprintf(&body, "Congratulations! An offer has been issued for your application %s (%s).\n", app.Code, app.Program)
	case "conditional_offer":
		fmt.Fprintf(&body, "A conditional offer has been issued for your application %s (%s).\n", app.Code, app.Program)
		if decision.Conditions != "" {
			fmt.Fprintf(&body, "\nConditions:\n%s\n", decision.Conditions)
		}
	default:
		fmt.Fprintf(&body, "A decision has been recorded for your application %s (%s): %s.\n", app.Code, app.Program, decision.Decision)
	}
	body.WriteString("\nYour counsellor will be in touch with next steps.\n")

	subject := fmt.Sprintf("Admission decision for application %s", app.Code)
	return m.send(ctx, app.Student.FullName, app.Student.Email, subject, body.String())
}

// SendRegistrationConfirmation emails the attendee their confirmed event
// registration code.
func (m *Mailer) SendRegistrationConfirmation(ctx context.Context, event models.Event, reg models.EventRegistration) error {
	if reg.AttendeeEmail == "" {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", reg.AttendeeName)
	fmt.Fprintf(&body, "Your registration for %s is confirmed.\n\n", event.Name)
	fmt.Fprintf(&body, "Registration code: %s\n", reg.Code)
	body.WriteString("\nPresent the code or the attached QR pass at the venue.\n")

	subject := fmt.Sprintf("Registration confirmed: %s", event.Name)
	return m.send(ctx, reg.AttendeeName, reg.AttendeeEmail, subject, body.String())
}

func (m *Mailer) send(ctx context.Context, toName, toAddr, subject, text string) error {
	if !m.enabled {
		m.logger.Debug("EMAIL", fmt.Sprintf("mailer disabled, dropping %q to %s", subject, toAddr))
		return nil
	}

	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail(toName, toAddr))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(sgmail.NewContent("text/plain", text))

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.API(req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
