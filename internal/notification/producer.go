package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"edu-crm/internal/config"
	"edu-crm/internal/models"
)

// envelope is the wire format shared by every CRM event topic.
type envelope struct {
	Action     string      `json:"action"`
	Entity     string      `json:"entity"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Producer fans CRM entity events out to per-entity Kafka topics.
// Publishes are best effort; callers treat failures as non-fatal.
type Producer struct {
	leads         *kafka.Writer
	students      *kafka.Writer
	applications  *kafka.Writer
	registrations *kafka.Writer
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	newWriter := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   topic,
		})
	}
	return &Producer{
		leads:         newWriter(topics.LeadEvents),
		students:      newWriter(topics.StudentEvents),
		applications:  newWriter(topics.ApplicationEvents),
		registrations: newWriter(topics.RegistrationEvents),
	}
}

func (p *Producer) publish(w *kafka.Writer, key, entity, action string, payload interface{}) error {
	msgBytes, err := json.Marshal(envelope{
		Action:     action,
		Entity:     entity,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	return w.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

func (p *Producer) PublishLeadEvent(action string, lead models.Lead) error {
	return p.publish(p.leads, lead.ID, "lead", action, lead)
}

func (p *Producer) PublishStudentEvent(action string, student models.Student) error {
	return p.publish(p.students, student.ID, "student", action, student)
}

func (p *Producer) PublishApplicationEvent(action string, app models.Application) error {
	return p.publish(p.applications, app.ID, "application", action, app)
}

func (p *Producer) PublishRegistrationEvent(action string, reg models.EventRegistration) error {
	return p.publish(p.registrations, reg.ID, "registration", action, reg)
}

func (p *Producer) Close() error {
	for _, w := range []*kafka.Writer{p.leads, p.students, p.applications, p.registrations} {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}
