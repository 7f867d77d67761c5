package models

import "time"

// Job is a posting for a role in a city.
type Job struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Role         string    `json:"role"`
	CityID       string    `json:"city_id"`
	Compensation *string   `json:"compensation,omitempty"`
	Paid         bool      `json:"paid"`
	Open         bool      `json:"open"`
	CreatedAt    time.Time `json:"created_at"`
}

// Application links a job and an applicant. At most one application
// exists per (job, applicant) pair.
type Application struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	ApplicantID string    `json:"applicant_id"`
	AppliedAt   time.Time `json:"applied_at"`
}
