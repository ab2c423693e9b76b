package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/structiq/soqtender/model"
)

// newTestTender builds a catalog with one ready job and opens a tender over it
func newTestTender(t *testing.T) (*CatalogStore, *TenderManager, *model.Tender, *model.Job) {
	t.Helper()

	s, _, job := newTestCatalog(t)
	_, err := s.SetJobStatus(job.ID, model.JobReady)
	require.NoError(t, err)

	m := NewTenderManager(s)
	tender, err := m.CreateTender(TenderSpec{
		Name:       "Phase 1 groundwork",
		JobIDs:     []string{job.ID},
		Visibility: model.VisibilityPublic,
		StartDate:  time.Now(),
		EndDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	return s, m, tender, job
}

func TestCreateTenderValidation(t *testing.T) {
	s, _, job := newTestCatalog(t)
	_, err := s.SetJobStatus(job.ID, model.JobReady)
	require.NoError(t, err)
	m := NewTenderManager(s)

	now := time.Now()
	later := now.AddDate(0, 1, 0)

	tests := []struct {
		name string
		spec TenderSpec
	}{
		{"empty name", TenderSpec{JobIDs: []string{job.ID}, Visibility: model.VisibilityPublic, StartDate: now, EndDate: later}},
		{"no jobs", TenderSpec{Name: "t", Visibility: model.VisibilityPublic, StartDate: now, EndDate: later}},
		{"bad visibility", TenderSpec{Name: "t", JobIDs: []string{job.ID}, Visibility: "hidden", StartDate: now, EndDate: later}},
		{"end before start", TenderSpec{Name: "t", JobIDs: []string{job.ID}, Visibility: model.VisibilityPublic, StartDate: later, EndDate: now}},
		{"duplicate job ids", TenderSpec{Name: "t", JobIDs: []string{job.ID, job.ID}, Visibility: model.VisibilityPublic, StartDate: now, EndDate: later}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateTender(tt.spec)
			require.Equal(t, KindInvalidArgument, KindOf(err))
		})
	}

	// a failed create must not freeze anything
	require.Equal(t, model.JobReady, job.Status)
}

func TestCreateTenderRequiresReadyJobs(t *testing.T) {
	s, _, job := newTestCatalog(t)
	m := NewTenderManager(s)

	_, err := m.CreateTender(TenderSpec{
		Name:       "too early",
		JobIDs:     []string{job.ID},
		Visibility: model.VisibilityPublic,
		StartDate:  time.Now(),
		EndDate:    time.Now().AddDate(0, 1, 0),
	})
	require.Equal(t, KindInvalidState, KindOf(err))
	require.Equal(t, model.JobDraft, job.Status)
}

func TestCreateTenderFreezesJobs(t *testing.T) {
	s, _, tender, job := newTestTender(t)

	require.Equal(t, model.TenderOpen, tender.Status)
	require.Equal(t, model.JobTenderCreated, job.Status)
	require.Len(t, tender.Snapshot, 1)
	require.Len(t, tender.Snapshot[0].Lines, 2)
	require.Equal(t, model.Money(15_000), tender.Snapshot[0].Lines[0].UnitRate)

	// the frozen job can no longer be edited in the catalog
	_, err := s.AddMaterial(job.ID, MaterialSpec{Description: "Rebar", Unit: model.UnitWeight}, 0)
	require.Equal(t, KindInvalidState, KindOf(err))
}

func TestAddJobs(t *testing.T) {
	s, m, tender, _ := newTestTender(t)

	cat, err := s.CreateCategory("Structure", "")
	require.NoError(t, err)
	extra, err := s.CreateJob(cat.ID, "Framing", "")
	require.NoError(t, err)
	_, err = s.AddLabor(extra.ID, LaborSpec{Description: "Framers", EstimatedStaff: 3, EstimatedHours: 8_000, HourlyRate: 3_000}, 0)
	require.NoError(t, err)
	_, err = s.SetJobStatus(extra.ID, model.JobReady)
	require.NoError(t, err)

	updated, err := m.AddJobs(tender.ID, []string{extra.ID})
	require.NoError(t, err)
	require.Len(t, updated.JobIDs, 2)
	require.Len(t, updated.Snapshot, 2)
	require.Equal(t, model.JobLinkedToTender, extra.Status)

	_, err = m.AddJobs(tender.ID, nil)
	require.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestAddJobsRequiresOpenTender(t *testing.T) {
	s, m, tender, _ := newTestTender(t)

	cat, err := s.CreateCategory("Structure", "")
	require.NoError(t, err)
	extra, err := s.CreateJob(cat.ID, "Framing", "")
	require.NoError(t, err)
	_, err = s.SetJobStatus(extra.ID, model.JobReady)
	require.NoError(t, err)

	_, err = m.CloseTender(tender.ID)
	require.NoError(t, err)

	_, err = m.AddJobs(tender.ID, []string{extra.ID})
	require.Equal(t, KindInvalidState, KindOf(err))
	require.Equal(t, model.JobReady, extra.Status)
}

func TestCloseTender(t *testing.T) {
	_, m, tender, _ := newTestTender(t)

	closed, err := m.CloseTender(tender.ID)
	require.NoError(t, err)
	require.Equal(t, model.TenderClosed, closed.Status)

	// closed is terminal
	_, err = m.CloseTender(tender.ID)
	require.Equal(t, KindInvalidState, KindOf(err))

	_, err = m.CloseTender("missing")
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestPrivateTenderListing(t *testing.T) {
	s, m, _, _ := newTestTender(t)

	cat, err := s.CreateCategory("Structure", "")
	require.NoError(t, err)
	job, err := s.CreateJob(cat.ID, "Framing", "")
	require.NoError(t, err)
	_, err = s.SetJobStatus(job.ID, model.JobReady)
	require.NoError(t, err)

	private, err := m.CreateTender(TenderSpec{
		Name:       "invited bidders only",
		JobIDs:     []string{job.ID},
		Visibility: model.VisibilityPrivate,
		StartDate:  time.Now(),
		EndDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	public := m.Tenders(false)
	require.Len(t, public, 1)

	all := m.Tenders(true)
	require.Len(t, all, 2)
	require.Equal(t, private.ID, all[1].ID)
}

func TestNoteBidActivityFlipsOpenOnly(t *testing.T) {
	_, m, tender, _ := newTestTender(t)

	m.noteBidActivity(tender.ID)
	require.Equal(t, model.TenderInProgress, tender.Status)

	// in_progress stays put on further activity
	m.noteBidActivity(tender.ID)
	require.Equal(t, model.TenderInProgress, tender.Status)
}

func TestJobRevertBlockedAfterTenderLeavesOpen(t *testing.T) {
	_, m, tender, job := newTestTender(t)

	// while the tender is open, nothing blocks reversion
	require.NoError(t, m.jobRevertBlocked(job.ID))

	_, err := m.CloseTender(tender.ID)
	require.NoError(t, err)

	err = m.jobRevertBlocked(job.ID)
	require.Equal(t, KindInvalidState, KindOf(err))
	require.NoError(t, m.jobRevertBlocked("unrelated-job"))
}
