package model

import "time"

// CarLock is an advisory lock document serializing reservation writes per car.
// The unique _id makes a second concurrent insert fail with a duplicate key
// error, which the engine reports as the car being unavailable. ExpiresAt
// backs a TTL index so a crashed holder cannot wedge the car forever.
type CarLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
