package model

import "time"

const ActionDeleted = "Deleted"

// ReservationLog is an append-only audit record written in the same
// transaction as a reservation deletion. It copies the reservation's user id
// by value: the reservation row is gone by the time anyone reads the log, so
// there is no live reference to follow.
type ReservationLog struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	ReservationID string    `json:"reservation_id" bson:"reservation_id"`
	UserID        string    `json:"user_id" bson:"user_id"`
	Action        string    `json:"action" bson:"action"`
	LogDate       time.Time `json:"log_date" bson:"log_date"`
}
