package model

import (
	"time"
)

// UnitOfMeasure classifies how a material quantity is measured
type UnitOfMeasure string

const (
	UnitVolume UnitOfMeasure = "volume"
	UnitArea   UnitOfMeasure = "area"
	UnitLength UnitOfMeasure = "length"
	UnitCount  UnitOfMeasure = "count"
	UnitWeight UnitOfMeasure = "weight"
)

// Valid reports whether u is a known unit of measure
func (u UnitOfMeasure) Valid() bool {
	switch u {
	case UnitVolume, UnitArea, UnitLength, UnitCount, UnitWeight:
		return true
	}
	return false
}

// JobStatus constants
type JobStatus string

const (
	JobDraft          JobStatus = "draft"
	JobReady          JobStatus = "ready"
	JobTenderCreated  JobStatus = "tender_created"
	JobLinkedToTender JobStatus = "linked_to_tender"
)

// jobTransitions is the closed transition table for job statuses. Linking
// transitions are only reachable from ready; tender-linked jobs never move
// again through the status API.
var jobTransitions = map[JobStatus][]JobStatus{
	JobDraft: {JobReady},
	JobReady: {JobDraft, JobTenderCreated, JobLinkedToTender},
}

// CanTransition reports whether the status change is in the transition table
func (s JobStatus) CanTransition(to JobStatus) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Frozen reports whether the job's line-item structure is locked.
// Only draft jobs may be structurally edited.
func (s JobStatus) Frozen() bool {
	return s != JobDraft
}

// Valid reports whether s is a known job status
func (s JobStatus) Valid() bool {
	switch s {
	case JobDraft, JobReady, JobTenderCreated, JobLinkedToTender:
		return true
	}
	return false
}

// Category groups related jobs. Jobs are kept in insertion order; the order
// carries no meaning beyond display.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	JobIDs      []string  `json:"job_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job is a discrete scope of work composed of material and labor lines.
// EstimatedTotal is a cache of the derived total, recomputed synchronously
// on every mutation — it is never authoritative on its own.
type Job struct {
	ID             string      `json:"id"`
	CategoryID     string      `json:"category_id"`
	Number         string      `json:"number"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Status         JobStatus   `json:"status"`
	Materials      []*Material `json:"materials"`
	Labor          []*Labor    `json:"labor"`
	EstimatedTotal Money       `json:"estimated_total"`
	Version        int         `json:"version"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Line returns the material or labor line with the given id.
// At most one of the results is non-nil.
func (j *Job) Line(lineID string) (*Material, *Labor) {
	for _, m := range j.Materials {
		if m.ID == lineID {
			return m, nil
		}
	}
	for _, l := range j.Labor {
		if l.ID == lineID {
			return nil, l
		}
	}
	return nil, nil
}

// Material is an estimated material line item
type Material struct {
	ID                string        `json:"id"`
	Description       string        `json:"description"`
	Unit              UnitOfMeasure `json:"unit"`
	EstimatedQuantity Quantity      `json:"estimated_quantity"`
	UnitRate          Money         `json:"unit_rate"`
	ProductLink       string        `json:"product_link,omitempty"`
	Attachments       []string      `json:"attachments,omitempty"`
	// ActualCost is set from the awarded bid for variance reporting
	ActualCost *Money `json:"actual_cost,omitempty"`
}

// EstimatedCost derives quantity × rate
func (m *Material) EstimatedCost() Money {
	return MaterialCost(m.EstimatedQuantity, m.UnitRate)
}

// Labor is an estimated labor line item
type Labor struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	EstimatedStaff int64    `json:"estimated_staff"`
	EstimatedHours Quantity `json:"estimated_hours"`
	HourlyRate     Money    `json:"hourly_rate"`
	Notes          []string `json:"notes,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
	ActualCost     *Money   `json:"actual_cost,omitempty"`
}

// EstimatedCost derives staff × hours × rate
func (l *Labor) EstimatedCost() Money {
	return LaborCost(l.EstimatedStaff, l.EstimatedHours, l.HourlyRate)
}
