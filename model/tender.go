package model

import (
	"time"
)

// TenderStatus constants
type TenderStatus string

const (
	TenderOpen       TenderStatus = "open"
	TenderInProgress TenderStatus = "in_progress"
	TenderClosed     TenderStatus = "closed"
	TenderAwarded    TenderStatus = "awarded"
)

// tenderTransitions is the closed transition table for tender statuses.
// Nothing leaves closed or awarded.
var tenderTransitions = map[TenderStatus][]TenderStatus{
	TenderOpen:       {TenderInProgress, TenderClosed, TenderAwarded},
	TenderInProgress: {TenderClosed, TenderAwarded},
}

// CanTransition reports whether the status change is in the transition table
func (s TenderStatus) CanTransition(to TenderStatus) bool {
	for _, next := range tenderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the tender can never change status again
func (s TenderStatus) Terminal() bool {
	return s == TenderClosed || s == TenderAwarded
}

// Visibility controls who can see a tender
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// LineKind tags a snapshot or bid line as material or labor
type LineKind string

const (
	LineMaterial LineKind = "material"
	LineLabor    LineKind = "labor"
)

// LineSnapshot is a frozen copy of a catalog line taken at tender creation.
// Bids are matched against these ids and defaulted to these values.
type LineSnapshot struct {
	LineID      string   `json:"line_id"`
	Kind        LineKind `json:"kind"`
	Description string   `json:"description"`
	// material fields
	Unit              UnitOfMeasure `json:"unit,omitempty"`
	EstimatedQuantity Quantity      `json:"estimated_quantity,omitempty"`
	UnitRate          Money         `json:"unit_rate,omitempty"`
	// labor fields
	EstimatedStaff int64    `json:"estimated_staff,omitempty"`
	EstimatedHours Quantity `json:"estimated_hours,omitempty"`
	HourlyRate     Money    `json:"hourly_rate,omitempty"`
}

// JobSnapshot is the frozen line-item structure of one job in a tender
type JobSnapshot struct {
	JobID  string         `json:"job_id"`
	Number string         `json:"number"`
	Name   string         `json:"name"`
	Lines  []LineSnapshot `json:"lines"`
}

// Tender is a published package of ready jobs open for competitive bids.
// It references jobs by id; Snapshot freezes their line structure for
// bid matching, the catalog remains the canonical estimate.
type Tender struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Visibility   Visibility    `json:"visibility"`
	Status       TenderStatus  `json:"status"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	JobIDs       []string      `json:"job_ids"`
	Snapshot     []JobSnapshot `json:"snapshot"`
	AwardedBidID string        `json:"awarded_bid_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// SnapshotLine finds a frozen line by id across all job snapshots.
// Returns the owning job id alongside the line.
func (t *Tender) SnapshotLine(lineID string) (string, *LineSnapshot) {
	for i := range t.Snapshot {
		for j := range t.Snapshot[i].Lines {
			if t.Snapshot[i].Lines[j].LineID == lineID {
				return t.Snapshot[i].JobID, &t.Snapshot[i].Lines[j]
			}
		}
	}
	return "", nil
}
