package model

import "fleetbook/pkg/money"

// Car is a rentable unit in the catalog. The catalog is read-only from the
// reservation core's perspective; PricePerDay is copied into each reservation
// at booking time.
type Car struct {
	ID          string      `json:"id,omitempty" bson:"_id,omitempty"`
	Brand       string      `json:"brand" bson:"brand"`
	Model       string      `json:"model" bson:"model"`
	Year        int         `json:"year" bson:"year"`
	PricePerDay money.Cents `json:"price_per_day" bson:"price_per_day"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
	ImageURL    string      `json:"image_url,omitempty" bson:"image_url,omitempty"`
}
