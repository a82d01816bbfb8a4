package models

import "time"

// CollaborationRequest is an open request for help that students may publish.
// The applicant's budget is debited by RequestedTime when the request is
// created. Offerers never contains the applicant.
type CollaborationRequest struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	RequestedTime   Hours     `json:"requested_time"`
	Deadline        time.Time `json:"deadline"`
	PublicationDate time.Time `json:"publication_date"`
	ApplicantID     string    `json:"applicant_id"`
	Offerers        []string  `json:"offerers"`
	Competences     []string  `json:"competences,omitempty"`
}

// Expired reports whether the request's deadline lies before the given day.
// Deadlines are dates: a request expires at the start of the day after its
// deadline, not at a particular hour.
func (r *CollaborationRequest) Expired(today time.Time) bool {
	return dateBefore(r.Deadline, today)
}

// HasOfferer reports whether the given student has already offered.
func (r *CollaborationRequest) HasOfferer(studentID string) bool {
	for _, id := range r.Offerers {
		if id == studentID {
			return true
		}
	}
	return false
}

// dateBefore compares only the calendar dates of a and b.
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
