package events

import (
	"context"
	"time"

	"fleetbook/pkg/kafka"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
	"fleetbook/pkg/money"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"

	sourceService = "reservations-service"
)

// ReservationCreated is the payload published after a reservation commits.
type ReservationCreated struct {
	ReservationID string      `json:"reservation_id"`
	CarID         string      `json:"car_id"`
	UserID        string      `json:"user_id"`
	StartTime     string      `json:"start_time"`
	EndTime       string      `json:"end_time"`
	TotalPrice    money.Cents `json:"total_price"`
}

// ReservationCancelled is published after a cancellation commits.
type ReservationCancelled struct {
	ReservationID string `json:"reservation_id"`
	CarID         string `json:"car_id"`
	UserID        string `json:"user_id"`
	CancelledBy   string `json:"cancelled_by"`
}

// Publisher emits reservation lifecycle events. Publishing is best-effort:
// the reservation is already committed when Publish* runs, so a broker
// failure is logged and swallowed rather than rolled into the response.
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher returns a publisher, or a disabled one when producer is nil
// (no brokers configured). A disabled publisher drops events silently.
func NewPublisher(producer *kafka.Producer, log *logger.Logger) *Publisher {
	return &Publisher{producer: producer, log: log}
}

func (p *Publisher) PublishCreated(ctx context.Context, reservation *model.Reservation) {
	p.publish(ctx, EventReservationCreated, reservation.CarID, ReservationCreated{
		ReservationID: reservation.ID,
		CarID:         reservation.CarID,
		UserID:        reservation.UserID,
		StartTime:     reservation.StartTime.UTC().Format(time.RFC3339),
		EndTime:       reservation.EndTime.UTC().Format(time.RFC3339),
		TotalPrice:    reservation.TotalPrice,
	})
}

func (p *Publisher) PublishCancelled(ctx context.Context, reservation *model.Reservation, cancelledBy string) {
	p.publish(ctx, EventReservationCancelled, reservation.CarID, ReservationCancelled{
		ReservationID: reservation.ID,
		CarID:         reservation.CarID,
		UserID:        reservation.UserID,
		CancelledBy:   cancelledBy,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType string, carID string, payload any) {
	if p.producer == nil {
		return
	}

	// Keyed by car so consumers see one car's events in order.
	msg := kafka.NewMessage().
		WithKey(carID).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(sourceService).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish reservation event",
			"event_type", eventType,
			"car_id", carID,
			"error", err,
		)
	}
}

func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
