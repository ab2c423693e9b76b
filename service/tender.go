package service

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/structiq/soqtender/model"
)

// TenderSpec is the input for a new tender
type TenderSpec struct {
	Name        string
	Description string
	JobIDs      []string
	Visibility  model.Visibility
	StartDate   time.Time
	EndDate     time.Time
}

// TenderManager packages ready jobs into tenders and owns the tender
// status state machine. Award transitions go through the AwardCoordinator,
// never through here directly.
type TenderManager struct {
	mu      sync.RWMutex
	tenders map[string]*model.Tender
	order   []string
	catalog *CatalogStore

	// linkMu guards nonOpenRefs and is never held while taking another
	// lock, so the catalog's revert guard can call in safely.
	linkMu      sync.Mutex
	nonOpenRefs map[string]int // job id → count of referencing non-open tenders
}

// NewTenderManager creates a tender manager over the given catalog and
// registers the job-reversion guard with it.
func NewTenderManager(catalog *CatalogStore) *TenderManager {
	m := &TenderManager{
		tenders:     make(map[string]*model.Tender),
		catalog:     catalog,
		nonOpenRefs: make(map[string]int),
	}
	catalog.SetRevertGuard(m.jobRevertBlocked)
	return m
}

// CreateTender validates the job set, freezes each job's line structure and
// opens the tender. Referenced jobs move to tender_created.
func (m *TenderManager) CreateTender(spec TenderSpec) (*model.Tender, error) {
	if spec.Name == "" {
		return nil, invalidArgument("tender", "name", "name is required")
	}
	if len(spec.JobIDs) == 0 {
		return nil, invalidArgument("tender", "job_ids", "a tender must reference at least one job")
	}
	if !spec.Visibility.Valid() {
		return nil, invalidArgument("tender", "visibility", "visibility must be public or private")
	}
	if spec.EndDate.Before(spec.StartDate) {
		return nil, invalidArgument("tender", "end_date", "end date must not precede start date")
	}
	seen := make(map[string]bool, len(spec.JobIDs))
	for _, id := range spec.JobIDs {
		if seen[id] {
			return nil, invalidArgument("tender", "job_ids", fmt.Sprintf("duplicate job id %s", id))
		}
		seen[id] = true
	}

	snapshots, err := m.catalog.FreezeJobsForTender(spec.JobIDs, model.JobTenderCreated)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	t := &model.Tender{
		ID:          uuid.New().String(),
		Name:        spec.Name,
		Description: spec.Description,
		Visibility:  spec.Visibility,
		Status:      model.TenderOpen,
		StartDate:   spec.StartDate,
		EndDate:     spec.EndDate,
		JobIDs:      append([]string(nil), spec.JobIDs...),
		Snapshot:    snapshots,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tenders[t.ID] = t
	m.order = append(m.order, t.ID)

	slog.Info("tender created", "tender_id", t.ID, "name", t.Name, "jobs", len(t.JobIDs))
	return t, nil
}

// AddJobs extends an open tender with further ready jobs, which move to
// linked_to_tender. Once a tender has left open its job set is fixed.
func (m *TenderManager) AddJobs(tenderID string, jobIDs []string) (*model.Tender, error) {
	if len(jobIDs) == 0 {
		return nil, invalidArgument("tender", "job_ids", "no jobs given")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[tenderID]
	if !ok {
		return nil, notFound("tender", tenderID)
	}
	if t.Status != model.TenderOpen {
		return nil, invalidState("tender", tenderID, string(t.Status), "jobs can only be added while open")
	}

	snapshots, err := m.catalog.FreezeJobsForTender(jobIDs, model.JobLinkedToTender)
	if err != nil {
		return nil, err
	}

	t.JobIDs = append(t.JobIDs, jobIDs...)
	t.Snapshot = append(t.Snapshot, snapshots...)
	t.UpdatedAt = time.Now()

	slog.Info("jobs added to tender", "tender_id", tenderID, "added", len(jobIDs))
	return t, nil
}

// Tenders lists tenders in creation order. Private tenders are omitted
// unless includePrivate is set.
func (m *TenderManager) Tenders(includePrivate bool) []*model.Tender {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Tender, 0, len(m.order))
	for _, id := range m.order {
		t := m.tenders[id]
		if t.Visibility == model.VisibilityPrivate && !includePrivate {
			continue
		}
		result = append(result, t)
	}
	return result
}

// Tender returns a tender by id
func (m *TenderManager) Tender(id string) (*model.Tender, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenders[id]
	if !ok {
		return nil, notFound("tender", id)
	}
	return t, nil
}

// CloseTender closes an open or in-progress tender without awarding
func (m *TenderManager) CloseTender(id string) (*model.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[id]
	if !ok {
		return nil, notFound("tender", id)
	}
	if !t.Status.CanTransition(model.TenderClosed) {
		return nil, invalidState("tender", id, string(t.Status), "only open or in-progress tenders can close")
	}

	m.leaveOpen(t)
	t.Status = model.TenderClosed
	t.UpdatedAt = time.Now()

	slog.Info("tender closed", "tender_id", id)
	return t, nil
}

// noteBidActivity flips an open tender to in_progress on the first bid
// submission. A no-op in any other state.
func (m *TenderManager) noteBidActivity(tenderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[tenderID]
	if !ok || t.Status != model.TenderOpen {
		return
	}
	m.leaveOpen(t)
	t.Status = model.TenderInProgress
	t.UpdatedAt = time.Now()

	slog.Info("tender in progress", "tender_id", tenderID)
}

// completeAward performs the compare-and-set to awarded. Only the award
// coordinator calls this; a tender that already left the biddable states
// is reported as already_awarded or invalid_state.
func (m *TenderManager) completeAward(tenderID, bidID string) (*model.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[tenderID]
	if !ok {
		return nil, notFound("tender", tenderID)
	}
	if t.Status == model.TenderAwarded {
		return nil, alreadyAwarded(tenderID)
	}
	if !t.Status.CanTransition(model.TenderAwarded) {
		return nil, invalidState("tender", tenderID, string(t.Status), "tender can no longer be awarded")
	}

	m.leaveOpen(t)
	t.Status = model.TenderAwarded
	t.AwardedBidID = bidID
	t.UpdatedAt = time.Now()

	slog.Info("tender awarded", "tender_id", tenderID, "bid_id", bidID)
	return t, nil
}

// leaveOpen records that the tender's jobs are now referenced by a
// non-open tender, which blocks reverting them to draft.
// Must be called with mu held, before the status change.
func (m *TenderManager) leaveOpen(t *model.Tender) {
	if t.Status != model.TenderOpen {
		return
	}
	m.linkMu.Lock()
	defer m.linkMu.Unlock()
	for _, jobID := range t.JobIDs {
		m.nonOpenRefs[jobID]++
	}
}

// jobRevertBlocked is the guard registered with the catalog: reverting a
// job to draft is disallowed once any referencing tender has left open.
func (m *TenderManager) jobRevertBlocked(jobID string) error {
	m.linkMu.Lock()
	defer m.linkMu.Unlock()
	if m.nonOpenRefs[jobID] > 0 {
		return invalidState("job", jobID, string(model.JobReady),
			"job is referenced by a tender that is no longer open")
	}
	return nil
}
