// Package models provides data structures for the Chronus marketplace.
package models

import (
	"errors"
	"math"
	"time"
)

// HigherGrade values accepted for an unfinished degree.
const (
	HigherGradeFirst  = "1"
	HigherGradeSecond = "2"
	HigherGradeThird  = "3"
	HigherGradeFourth = "4"
	HigherGradeFifth  = "5"
	HigherGradeSixth  = "6"
)

// ErrInvalidDegree is returned when a degree's higher grade is inconsistent
// with its finished flag.
var ErrInvalidDegree = errors.New("invalid degree")

// Degree is a university degree a student is enrolled in or has completed.
type Degree struct {
	Name        string `json:"name"`
	HigherGrade string `json:"higher_grade,omitempty"`
	Finished    bool   `json:"finished"`
}

// Validate checks the higher-grade rules: an unfinished degree must carry the
// grade the student is currently in, a finished degree must not.
func (d *Degree) Validate() error {
	if d.Name == "" {
		return ErrInvalidDegree
	}
	if !d.Finished && d.HigherGrade == "" {
		return ErrInvalidDegree
	}
	if d.Finished && d.HigherGrade != "" {
		return ErrInvalidDegree
	}
	if d.HigherGrade != "" {
		switch d.HigherGrade {
		case HigherGradeFirst, HigherGradeSecond, HigherGradeThird,
			HigherGradeFourth, HigherGradeFifth, HigherGradeSixth:
		default:
			return ErrInvalidDegree
		}
	}
	return nil
}

// Student is a university student with a collaboration-hour budget.
// AvailableTime is owned by the ledger: it is mutated only through
// ledger debit and credit operations, never assigned directly.
type Student struct {
	UserID            string    `json:"user_id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Description       string    `json:"description,omitempty"`
	AvailableTime     Hours     `json:"available_time"`
	RatingCount       int       `json:"rating_count"`
	AccumulatedRating int       `json:"accumulated_rating"`
	Degrees           []Degree  `json:"degrees,omitempty"`
	Competences       []string  `json:"competences,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// FullName returns the student's display name.
func (s *Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// AverageRating returns the student's average rating rounded to the nearest
// half point, or 0 when the student has not been rated yet.
func (s *Student) AverageRating() float64 {
	if s.RatingCount == 0 {
		return 0
	}
	avg := float64(s.AccumulatedRating) / float64(s.RatingCount)
	return math.Round(avg*2) / 2
}
