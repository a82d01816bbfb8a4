package models

import "time"

// CollaborationStatus represents the lifecycle state of a collaboration.
// The two-letter codes are what gets persisted.
type CollaborationStatus string

const (
	// StatusInProgress is the only non-terminal status; every collaboration
	// starts here when an offer is accepted.
	StatusInProgress CollaborationStatus = "IP"
	// StatusCancelled is terminal.
	StatusCancelled CollaborationStatus = "CA"
	// StatusPendingFinal is terminal.
	StatusPendingFinal CollaborationStatus = "PF"
	// StatusFinished is terminal.
	StatusFinished CollaborationStatus = "FI"
)

// Valid reports whether the status is one of the known codes.
func (s CollaborationStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusCancelled, StatusPendingFinal, StatusFinished:
		return true
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s CollaborationStatus) Terminal() bool {
	return s.Valid() && s != StatusInProgress
}

// Collaboration pairs an applicant with the offerer they accepted. It is
// created atomically from a CollaborationRequest and owns its messages.
type Collaboration struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	RequestedTime  Hours               `json:"requested_time"`
	Deadline       time.Time           `json:"deadline"`
	Status         CollaborationStatus `json:"status"`
	ApplicantID    string              `json:"applicant_id"`
	CollaboratorID string              `json:"collaborator_id"`
	Competences    []string            `json:"competences,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Expired reports whether the collaboration's deadline lies before the
// given day.
func (c *Collaboration) Expired(today time.Time) bool {
	return dateBefore(c.Deadline, today)
}

// Participant reports whether the given student is the applicant or the
// collaborator.
func (c *Collaboration) Participant(studentID string) bool {
	return studentID == c.ApplicantID || studentID == c.CollaboratorID
}
