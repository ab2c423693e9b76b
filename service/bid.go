package service

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/structiq/soqtender/model"
)

// BidLinePatch holds the bidder's updated values for one line; nil fields
// are left unchanged
type BidLinePatch struct {
	Quantity   *model.Quantity
	UnitRate   *model.Money
	Staff      *int64
	Hours      *model.Quantity
	HourlyRate *model.Money
}

// BidEngine accepts bidder-supplied quantities and rates mirrored against
// a tender's frozen line structure and manages per-bid submission state.
// Bids on different tenders and different bids on the same tender are
// independent; only the award freezes them all at once.
type BidEngine struct {
	mu       sync.RWMutex
	bids     map[string]*model.Bid
	byTender map[string][]string
	tenders  *TenderManager
}

// NewBidEngine creates a bid engine over the given tender manager
func NewBidEngine(tenders *TenderManager) *BidEngine {
	return &BidEngine{
		bids:     make(map[string]*model.Bid),
		byTender: make(map[string][]string),
		tenders:  tenders,
	}
}

// CreateBid opens a draft bid against a tender, pre-populated with one line
// per frozen tender line, defaulted to the estimated values.
func (e *BidEngine) CreateBid(tenderID, bidder string, durationDays int) (*model.Bid, error) {
	if bidder == "" {
		return nil, invalidArgument("bid", "bidder", "bidder is required")
	}
	if durationDays < 0 {
		return nil, invalidArgument("bid", "duration_days", "must not be negative")
	}

	t, err := e.tenders.Tender(tenderID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, invalidState("tender", tenderID, string(t.Status), "tender is no longer accepting bids")
	}

	lines := make([]*model.BidLine, 0)
	for _, snap := range t.Snapshot {
		for _, sl := range snap.Lines {
			line := &model.BidLine{LineID: sl.LineID, Kind: sl.Kind}
			if sl.Kind == model.LineLabor {
				line.Staff = sl.EstimatedStaff
				line.Hours = sl.EstimatedHours
				line.HourlyRate = sl.HourlyRate
			} else {
				line.Quantity = sl.EstimatedQuantity
				line.UnitRate = sl.UnitRate
			}
			lines = append(lines, line)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	bid := &model.Bid{
		ID:           uuid.New().String(),
		TenderID:     tenderID,
		Bidder:       bidder,
		Status:       model.BidDraft,
		DurationDays: durationDays,
		Lines:        lines,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	e.bids[bid.ID] = bid
	e.byTender[tenderID] = append(e.byTender[tenderID], bid.ID)

	slog.Info("bid created", "bid_id", bid.ID, "tender_id", tenderID, "bidder", bidder, "lines", len(lines))
	return bid, nil
}

// Bid returns a bid by id
func (e *BidEngine) Bid(id string) (*model.Bid, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	bid, ok := e.bids[id]
	if !ok {
		return nil, notFound("bid", id)
	}
	return bid, nil
}

// BidsForTender returns all bids placed against a tender
func (e *BidEngine) BidsForTender(tenderID string) []*model.Bid {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := e.byTender[tenderID]
	result := make([]*model.Bid, 0, len(ids))
	for _, id := range ids {
		result = append(result, e.bids[id])
	}
	return result
}

// BidsByBidder returns all bids owned by a bidder
func (e *BidEngine) BidsByBidder(bidder string) []*model.Bid {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var result []*model.Bid
	for _, bid := range e.bids {
		if bid.Bidder == bidder {
			result = append(result, bid)
		}
	}
	return result
}

// UpdateBidLine patches the bidder's values on one line of an editable bid
func (e *BidEngine) UpdateBidLine(bidID, lineID string, patch BidLinePatch, baseVersion int) (*model.Bid, error) {
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, invalidArgument("bid_line", "quantity", "must not be negative")
	}
	if patch.UnitRate != nil && *patch.UnitRate < 0 {
		return nil, invalidArgument("bid_line", "unit_rate", "must not be negative")
	}
	if patch.Staff != nil && *patch.Staff < 0 {
		return nil, invalidArgument("bid_line", "staff", "must not be negative")
	}
	if patch.Hours != nil && *patch.Hours < 0 {
		return nil, invalidArgument("bid_line", "hours", "must not be negative")
	}
	if patch.HourlyRate != nil && *patch.HourlyRate < 0 {
		return nil, invalidArgument("bid_line", "hourly_rate", "must not be negative")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bid, err := e.editableBid(bidID, baseVersion)
	if err != nil {
		return nil, err
	}

	line := bid.Line(lineID)
	if line == nil {
		return nil, notFound("bid_line", lineID)
	}

	if line.Kind == model.LineLabor {
		if patch.Quantity != nil || patch.UnitRate != nil {
			return nil, invalidArgument("bid_line", "quantity", "labor lines take staff, hours and hourly rate")
		}
		if patch.Staff != nil {
			line.Staff = *patch.Staff
		}
		if patch.Hours != nil {
			line.Hours = *patch.Hours
		}
		if patch.HourlyRate != nil {
			line.HourlyRate = *patch.HourlyRate
		}
	} else {
		if patch.Staff != nil || patch.Hours != nil || patch.HourlyRate != nil {
			return nil, invalidArgument("bid_line", "staff", "material lines take quantity and unit rate")
		}
		if patch.Quantity != nil {
			line.Quantity = *patch.Quantity
		}
		if patch.UnitRate != nil {
			line.UnitRate = *patch.UnitRate
		}
	}

	bid.Version++
	bid.UpdatedAt = time.Now()
	return bid, nil
}

// AttachToBid appends a supporting attachment reference to an editable bid
func (e *BidEngine) AttachToBid(bidID, ref string, baseVersion int) (*model.Bid, error) {
	if ref == "" {
		return nil, invalidArgument("bid", "attachment", "attachment reference is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bid, err := e.editableBid(bidID, baseVersion)
	if err != nil {
		return nil, err
	}

	bid.Attachments = append(bid.Attachments, ref)
	bid.Version++
	bid.UpdatedAt = time.Now()
	return bid, nil
}

// SubmitBid submits a draft or withdrawn bid. The first submission against
// an open tender moves the tender to in_progress.
func (e *BidEngine) SubmitBid(bidID string) (*model.Bid, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bid, ok := e.bids[bidID]
	if !ok {
		return nil, notFound("bid", bidID)
	}
	if !bid.Status.Editable() {
		return nil, invalidState("bid", bidID, string(bid.Status), "only draft or withdrawn bids can be submitted")
	}

	t, err := e.tenders.Tender(bid.TenderID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, invalidState("tender", t.ID, string(t.Status), "tender is no longer accepting bids")
	}

	bid.Status = model.BidSubmitted
	bid.Version++
	bid.UpdatedAt = time.Now()

	e.tenders.noteBidActivity(bid.TenderID)

	slog.Info("bid submitted", "bid_id", bidID, "tender_id", bid.TenderID, "total", bid.Total())
	return bid, nil
}

// WithdrawBid takes a submitted bid back; the bidder may edit and resubmit.
// Once the tender is awarded every bid is immutable, withdrawal included.
func (e *BidEngine) WithdrawBid(bidID string) (*model.Bid, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bid, ok := e.bids[bidID]
	if !ok {
		return nil, notFound("bid", bidID)
	}

	t, err := e.tenders.Tender(bid.TenderID)
	if err != nil {
		return nil, err
	}
	if t.Status == model.TenderAwarded {
		return nil, invalidState("tender", t.ID, string(t.Status), "bids are frozen once the tender is awarded")
	}
	if bid.Status != model.BidSubmitted {
		return nil, invalidState("bid", bidID, string(bid.Status), "only submitted bids can be withdrawn")
	}

	bid.Status = model.BidWithdrawn
	bid.Version++
	bid.UpdatedAt = time.Now()

	slog.Info("bid withdrawn", "bid_id", bidID, "tender_id", bid.TenderID)
	return bid, nil
}

// awardUnder validates the winning bid and runs the tender status CAS while
// holding the bid lock, so no withdraw can slip between validation and the
// award. Only the award coordinator calls this.
func (e *BidEngine) awardUnder(tenderID, bidID string, cas func() (*model.Tender, error)) (*model.Tender, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bid, ok := e.bids[bidID]
	if !ok {
		return nil, notFound("bid", bidID)
	}
	if bid.TenderID != tenderID {
		return nil, invalidArgument("bid", "tender_id", "bid does not belong to this tender")
	}
	if bid.Status != model.BidSubmitted {
		return nil, invalidState("bid", bidID, string(bid.Status), "only submitted bids can be awarded")
	}

	t, err := cas()
	if err != nil {
		return nil, err
	}

	bid.Awarded = true
	bid.UpdatedAt = time.Now()
	return t, nil
}

// editableBid fetches a bid whose lines may still change.
// Must be called with the lock held.
func (e *BidEngine) editableBid(bidID string, baseVersion int) (*model.Bid, error) {
	bid, ok := e.bids[bidID]
	if !ok {
		return nil, notFound("bid", bidID)
	}

	t, err := e.tenders.Tender(bid.TenderID)
	if err != nil {
		return nil, err
	}
	if t.Status == model.TenderAwarded {
		return nil, invalidState("tender", t.ID, string(t.Status), "bids are frozen once the tender is awarded")
	}

	if !bid.Status.Editable() {
		return nil, invalidState("bid", bidID, string(bid.Status), "bid is not editable after submission")
	}
	if baseVersion != 0 && baseVersion != bid.Version {
		return nil, conflict("bid", bidID,
			fmt.Sprintf("version %d does not match current %d", baseVersion, bid.Version))
	}
	return bid, nil
}
