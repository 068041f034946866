// Package model defines the core domain types for the room booking system.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the approval state of a reservation.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ParseStatus accepts a status name in any letter case.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "rejected":
		return StatusRejected, nil
	}
	return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
}

// Reservation is a committed booking of a room for a time interval on one date.
// Date, Start, End and ExpectedArrival keep the submitted textual form
// (YYYY-MM-DD and HH:MM); they are parsed into instants when compared.
type Reservation struct {
	ID              string     `json:"id"`
	Resource        string     `json:"room"`
	Date            string     `json:"date"`
	Start           string     `json:"start_time"`
	End             string     `json:"end_time"`
	ExpectedArrival string     `json:"expected_arrival_time,omitempty"`
	Purpose         string     `json:"purpose"`
	Owner           string     `json:"user"`
	Status          Status     `json:"status"`
	HasArrived      bool       `json:"has_arrived"`
	ArrivalMarkedAt *time.Time `json:"arrival_marked_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BookingRequest is the payload for submitting a new booking.
type BookingRequest struct {
	Resource        string `json:"room"`
	Date            string `json:"date"`
	Start           string `json:"start_time"`
	End             string `json:"end_time"`
	ExpectedArrival string `json:"expected_arrival_time,omitempty"`
	Purpose         string `json:"purpose"`
}

// NewReservation builds a Pending reservation owned by owner, rejecting
// requests with missing required fields. Interval checks are left to admission.
func NewReservation(req BookingRequest, owner string) (Reservation, error) {
	r := Reservation{
		Resource:        strings.TrimSpace(req.Resource),
		Date:            strings.TrimSpace(req.Date),
		Start:           strings.TrimSpace(req.Start),
		End:             strings.TrimSpace(req.End),
		ExpectedArrival: strings.TrimSpace(req.ExpectedArrival),
		Purpose:         strings.TrimSpace(req.Purpose),
		Owner:           strings.ToLower(strings.TrimSpace(owner)),
		Status:          StatusPending,
	}
	required := []struct {
		field string
		value string
	}{
		{"room", r.Resource},
		{"date", r.Date},
		{"start_time", r.Start},
		{"end_time", r.End},
		{"purpose", r.Purpose},
		{"user", r.Owner},
	}
	for _, f := range required {
		if f.value == "" {
			return Reservation{}, &ValidationError{Field: f.field, Message: f.field + " is required"}
		}
	}
	return r, nil
}

// Principal is a verified caller identity.
type Principal struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// StatusRequest is the payload for an admin status change.
type StatusRequest struct {
	Status string `json:"status"`
}

// BookingView is a reservation as presented to callers, annotated with its
// safety alert state.
type BookingView struct {
	Reservation
	SafetyAlert        bool   `json:"safety_alert"`
	SafetyAlertMessage string `json:"safety_alert_message,omitempty"`
}

// SafetyAlert flags a booking whose holder has not arrived by the expected time.
type SafetyAlert struct {
	BookingID       string `json:"booking_id"`
	Owner           string `json:"user"`
	Resource        string `json:"room"`
	Date            string `json:"date"`
	ExpectedArrival string `json:"expected_arrival_time"`
	Message         string `json:"message"`
}

// AdminBookings is the admin listing: every booking plus the open alerts.
type AdminBookings struct {
	Bookings     []BookingView `json:"bookings"`
	SafetyAlerts []SafetyAlert `json:"safety_alerts"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationError reports a caller-fixable problem with a single input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
