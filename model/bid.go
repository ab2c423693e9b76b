package model

import (
	"time"
)

// BidStatus constants
type BidStatus string

const (
	BidDraft     BidStatus = "draft"
	BidSubmitted BidStatus = "submitted"
	BidWithdrawn BidStatus = "withdrawn"
)

// Editable reports whether the bid's lines may still be changed by the
// bidder. A withdrawn bid is editable again, that is the point of
// withdrawing.
func (s BidStatus) Editable() bool {
	return s == BidDraft || s == BidWithdrawn
}

// Valid reports whether s is a known bid status
func (s BidStatus) Valid() bool {
	switch s {
	case BidDraft, BidSubmitted, BidWithdrawn:
		return true
	}
	return false
}

// BidLine carries the bidder's proposed values for one frozen tender line.
// The line id and kind mirror the tender snapshot; a bid can neither invent
// nor omit lines.
type BidLine struct {
	LineID string   `json:"line_id"`
	Kind   LineKind `json:"kind"`
	// material fields
	Quantity Quantity `json:"quantity,omitempty"`
	UnitRate Money    `json:"unit_rate,omitempty"`
	// labor fields
	Staff      int64    `json:"staff,omitempty"`
	Hours      Quantity `json:"hours,omitempty"`
	HourlyRate Money    `json:"hourly_rate,omitempty"`
}

// Cost derives the line's bid cost from the bidder's values
func (l *BidLine) Cost() Money {
	if l.Kind == LineLabor {
		return LaborCost(l.Staff, l.Hours, l.HourlyRate)
	}
	return MaterialCost(l.Quantity, l.UnitRate)
}

// Bid is one bidder's competing cost structure against a tender
type Bid struct {
	ID           string     `json:"id"`
	TenderID     string     `json:"tender_id"`
	Bidder       string     `json:"bidder"`
	Status       BidStatus  `json:"status"`
	DurationDays int        `json:"duration_days,omitempty"`
	Lines        []*BidLine `json:"lines"`
	Attachments  []string   `json:"attachments,omitempty"`
	Awarded      bool       `json:"awarded,omitempty"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Total derives the bid total from its lines; it is never stored
func (b *Bid) Total() Money {
	var total Money
	for _, l := range b.Lines {
		total += l.Cost()
	}
	return total
}

// Line returns the bid line with the given id, or nil
func (b *Bid) Line(lineID string) *BidLine {
	for _, l := range b.Lines {
		if l.LineID == lineID {
			return l
		}
	}
	return nil
}

// Award records the owner's one-time selection of a winning bid
type Award struct {
	TenderID  string    `json:"tender_id"`
	BidID     string    `json:"bid_id"`
	AwardedAt time.Time `json:"awarded_at"`
}
