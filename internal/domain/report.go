package domain

import (
	"time"
)

// Report is a geotagged hazard report as persisted by a ReportStore.
type Report struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     string    `json:"address"`
	Date        time.Time `json:"date"`
	OwnerID     string    `json:"ownerId"`
}

// ReportInput is the caller-controlled part of a report, shared by create and update.
// Identity fields (id, owner) are absent; they never come from callers.
type ReportInput struct {
	Type        string     `json:"type" validate:"required,max=64"`
	Description string     `json:"description" validate:"required,max=2000"`
	Latitude    *float64   `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude   *float64   `json:"longitude" validate:"required,min=-180,max=180"`
	Date        *time.Time `json:"date,omitempty"`
	Address     string     `json:"address,omitempty" validate:"max=500"`
}

// Lat returns the input latitude, or zero when absent.
func (in ReportInput) Lat() float64 {
	if in.Latitude == nil {
		return 0
	}
	return *in.Latitude
}

// Lon returns the input longitude, or zero when absent.
func (in ReportInput) Lon() float64 {
	if in.Longitude == nil {
		return 0
	}
	return *in.Longitude
}

// EventType names a report lifecycle transition.
type EventType string

const (
	EventReportCreated EventType = "report.created"
	EventReportUpdated EventType = "report.updated"
	EventReportDeleted EventType = "report.deleted"
)

// ReportEvent is published after a report mutation has been persisted.
type ReportEvent struct {
	Type       EventType `json:"type"`
	Report     Report    `json:"report"`
	OccurredAt time.Time `json:"occurred_at"`
}

// User is a registered identity that can own reports.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
