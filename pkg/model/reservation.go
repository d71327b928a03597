package model

import (
	"time"

	"fleetbook/pkg/money"
)

// Reservation is a confirmed allocation of one car to one user over the
// half-open interval [StartTime, EndTime). TotalPrice, CarBrand and CarModel
// are snapshots taken at creation time: a later rate or catalog change never
// alters an existing reservation. Rows are deleted on cancellation, never
// updated in place.
type Reservation struct {
	ID         string      `json:"id,omitempty" bson:"_id,omitempty"`
	CarID      string      `json:"car_id" bson:"car_id"`
	UserID     string      `json:"user_id" bson:"user_id"`
	CarBrand   string      `json:"car_brand" bson:"car_brand"`
	CarModel   string      `json:"car_model" bson:"car_model"`
	StartTime  time.Time   `json:"start_time" bson:"start_time"`
	EndTime    time.Time   `json:"end_time" bson:"end_time"`
	TotalPrice money.Cents `json:"total_price" bson:"total_price"`
	CreatedAt  time.Time   `json:"created_at" bson:"created_at"`
}

// ReservationRequest is the caller-supplied part of a reservation. Everything
// else (price, snapshots, owner) is derived server-side.
type ReservationRequest struct {
	CarID     string    `json:"car_id" validate:"required,mongodb"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

type ReservationStatus string

const (
	StatusCompleted ReservationStatus = "Completed"
	StatusActive    ReservationStatus = "Active"
	StatusUpcoming  ReservationStatus = "Upcoming"
)

// StatusAt derives the lifecycle phase of the reservation relative to now.
func (r *Reservation) StatusAt(now time.Time) ReservationStatus {
	switch {
	case !r.EndTime.After(now):
		return StatusCompleted
	case r.StartTime.After(now):
		return StatusUpcoming
	default:
		return StatusActive
	}
}

// ReservationHistoryEntry is a reservation as shown in a user's history,
// with the derived status attached.
type ReservationHistoryEntry struct {
	Reservation
	Status ReservationStatus `json:"status"`
}

// ReservationPeriod is the public availability view of a reservation: the
// occupied window without the owner or price.
type ReservationPeriod struct {
	StartTime time.Time `json:"start_time" bson:"start_time"`
	EndTime   time.Time `json:"end_time" bson:"end_time"`
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Adjacent intervals
// sharing an endpoint do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
