package models

import "time"

// Relationship is the state of the supports relation between two users,
// from the perspective of the first.
type Relationship string

const (
	RelationshipNone        Relationship = "none"
	RelationshipSupporting  Relationship = "supporting"
	RelationshipSupportedBy Relationship = "supported_by"
)

// Support is a directed follow-like edge between two users.
// A (supporter, supported) pair is unique; edges are only ever
// inserted or deleted, never updated.
type Support struct {
	SupporterID string    `json:"supporter_id"`
	SupportedID string    `json:"supported_id"`
	CreatedAt   time.Time `json:"created_at"`
}
