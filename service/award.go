package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/structiq/soqtender/model"
)

// AwardCoordinator selects the winning bid for a tender. Award decisions
// are serialized: the coordinator mutex plus the compare-and-set on the
// tender status guarantee that of N concurrent awards exactly one succeeds.
// Awarding is terminal and deliberately not idempotent — a second call is
// an error, since the first already had side effects on every other bidder.
type AwardCoordinator struct {
	mu      sync.Mutex
	awards  map[string]*model.Award // tender id → award
	tenders *TenderManager
	bids    *BidEngine
	catalog *CatalogStore
}

// NewAwardCoordinator creates an award coordinator over the engine's stores
func NewAwardCoordinator(tenders *TenderManager, bids *BidEngine, catalog *CatalogStore) *AwardCoordinator {
	return &AwardCoordinator{
		awards:  make(map[string]*model.Award),
		tenders: tenders,
		bids:    bids,
		catalog: catalog,
	}
}

// AwardBid awards the tender to a submitted bid as one atomic step: the
// tender becomes awarded, the winning bid is flagged, every other bid is
// frozen (they refuse submit/withdraw once the tender is awarded) and the
// award relation is recorded.
func (a *AwardCoordinator) AwardBid(tenderID, bidID string) (*model.Tender, *model.Award, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, err := a.bids.awardUnder(tenderID, bidID, func() (*model.Tender, error) {
		return a.tenders.completeAward(tenderID, bidID)
	})
	if err != nil {
		return nil, nil, err
	}

	award := &model.Award{
		TenderID:  tenderID,
		BidID:     bidID,
		AwardedAt: time.Now(),
	}
	a.awards[tenderID] = award

	slog.Info("bid awarded", "tender_id", tenderID, "bid_id", bidID)
	return t, award, nil
}

// Award returns the award record for a tender, if any
func (a *AwardCoordinator) Award(tenderID string) (*model.Award, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	award, ok := a.awards[tenderID]
	if !ok {
		return nil, notFound("award", tenderID)
	}
	return award, nil
}

// ApplyAwardActuals copies the winning bid's line costs onto the catalog
// lines as actual values, so the estimate owner can report variance.
func (a *AwardCoordinator) ApplyAwardActuals(tenderID string) error {
	a.mu.Lock()
	award, ok := a.awards[tenderID]
	a.mu.Unlock()
	if !ok {
		return invalidState("tender", tenderID, "", "tender has not been awarded")
	}

	bid, err := a.bids.Bid(award.BidID)
	if err != nil {
		return err
	}
	t, err := a.tenders.Tender(tenderID)
	if err != nil {
		return err
	}

	for _, line := range bid.Lines {
		jobID, snap := t.SnapshotLine(line.LineID)
		if snap == nil {
			// bid lines always mirror the snapshot; a miss is a bug
			return notFound("line", line.LineID)
		}
		if err := a.catalog.ApplyActual(jobID, line.LineID, line.Cost()); err != nil {
			return err
		}
	}

	slog.Info("award actuals applied", "tender_id", tenderID, "bid_id", bid.ID)
	return nil
}
