package service

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/structiq/soqtender/model"
)

// MaterialSpec is the input for a new material line
type MaterialSpec struct {
	Description       string
	Unit              model.UnitOfMeasure
	EstimatedQuantity model.Quantity
	UnitRate          model.Money
	ProductLink       string
	Attachments       []string
}

// LaborSpec is the input for a new labor line
type LaborSpec struct {
	Description    string
	EstimatedStaff int64
	EstimatedHours model.Quantity
	HourlyRate     model.Money
	Notes          []string
	Attachments    []string
}

// LinePatch holds partial updates for a line; nil fields are left unchanged
type LinePatch struct {
	Description       *string
	Unit              *model.UnitOfMeasure
	EstimatedQuantity *model.Quantity
	UnitRate          *model.Money
	ProductLink       *string
	EstimatedStaff    *int64
	EstimatedHours    *model.Quantity
	HourlyRate        *model.Money
}

// CatalogStore owns the canonical estimate: categories, jobs and their
// material/labor lines. It is an in-memory arena keyed by generated ids;
// persistence is an external collaborator.
//
// Every mutation recomputes the owning job's cached total before returning,
// so readers never observe stale aggregates. Writers may pass the job
// version they read; a mismatch fails with conflict instead of silently
// overwriting.
type CatalogStore struct {
	mu         sync.RWMutex
	categories map[string]*model.Category
	jobs       map[string]*model.Job
	order      []string // category insertion order

	// revertGuard vetoes ready→draft reversion for jobs referenced by a
	// tender that already left open. Registered by the tender manager.
	revertGuard func(jobID string) error
}

// NewCatalogStore creates an empty catalog
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		categories: make(map[string]*model.Category),
		jobs:       make(map[string]*model.Job),
	}
}

// SetRevertGuard registers the tender-side veto for job reversion
func (s *CatalogStore) SetRevertGuard(guard func(jobID string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revertGuard = guard
}

// CreateCategory creates an empty category
func (s *CatalogStore) CreateCategory(name, description string) (*model.Category, error) {
	if name == "" {
		return nil, invalidArgument("category", "name", "name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cat := &model.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
	s.categories[cat.ID] = cat
	s.order = append(s.order, cat.ID)

	slog.Info("category created", "category_id", cat.ID, "name", name)
	return cat, nil
}

// Categories returns all categories in insertion order
func (s *CatalogStore) Categories() []*model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Category, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.categories[id])
	}
	return result
}

// Category returns a category by id
func (s *CatalogStore) Category(id string) (*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, ok := s.categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return cat, nil
}

// CreateJob creates a draft job in a category. The human-readable number is
// assigned sequentially within the category.
func (s *CatalogStore) CreateJob(categoryID, name, description string) (*model.Job, error) {
	if name == "" {
		return nil, invalidArgument("job", "name", "name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.categories[categoryID]
	if !ok {
		return nil, notFound("category", categoryID)
	}

	now := time.Now()
	job := &model.Job{
		ID:          uuid.New().String(),
		CategoryID:  categoryID,
		Number:      fmt.Sprintf("%03d", len(cat.JobIDs)+1),
		Name:        name,
		Description: description,
		Status:      model.JobDraft,
		Materials:   []*model.Material{},
		Labor:       []*model.Labor{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.jobs[job.ID] = job
	cat.JobIDs = append(cat.JobIDs, job.ID)

	slog.Info("job created", "job_id", job.ID, "category_id", categoryID, "number", job.Number)
	return job, nil
}

// Job returns a job by id
func (s *CatalogStore) Job(id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, notFound("job", id)
	}
	return job, nil
}

// JobsByCategory returns a category's jobs in insertion order
func (s *CatalogStore) JobsByCategory(categoryID string) ([]*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, ok := s.categories[categoryID]
	if !ok {
		return nil, notFound("category", categoryID)
	}
	jobs := make([]*model.Job, 0, len(cat.JobIDs))
	for _, id := range cat.JobIDs {
		jobs = append(jobs, s.jobs[id])
	}
	return jobs, nil
}

// AddMaterial appends a material line to a draft job
func (s *CatalogStore) AddMaterial(jobID string, spec MaterialSpec, baseVersion int) (*model.Material, error) {
	if spec.Description == "" {
		return nil, invalidArgument("material", "description", "description is required")
	}
	if !spec.Unit.Valid() {
		return nil, invalidArgument("material", "unit", "unknown unit of measure")
	}
	if spec.EstimatedQuantity < 0 {
		return nil, invalidArgument("material", "estimated_quantity", "must not be negative")
	}
	if spec.UnitRate < 0 {
		return nil, invalidArgument("material", "unit_rate", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.writableJob(jobID, baseVersion)
	if err != nil {
		return nil, err
	}

	m := &model.Material{
		ID:                uuid.New().String(),
		Description:       spec.Description,
		Unit:              spec.Unit,
		EstimatedQuantity: spec.EstimatedQuantity,
		UnitRate:          spec.UnitRate,
		ProductLink:       spec.ProductLink,
		Attachments:       spec.Attachments,
	}
	job.Materials = append(job.Materials, m)
	s.recompute(job)

	return m, nil
}

// AddLabor appends a labor line to a draft job
func (s *CatalogStore) AddLabor(jobID string, spec LaborSpec, baseVersion int) (*model.Labor, error) {
	if spec.Description == "" {
		return nil, invalidArgument("labor", "description", "description is required")
	}
	if spec.EstimatedStaff < 0 {
		return nil, invalidArgument("labor", "estimated_staff", "must not be negative")
	}
	if spec.EstimatedHours < 0 {
		return nil, invalidArgument("labor", "estimated_hours", "must not be negative")
	}
	if spec.HourlyRate < 0 {
		return nil, invalidArgument("labor", "hourly_rate", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.writableJob(jobID, baseVersion)
	if err != nil {
		return nil, err
	}

	l := &model.Labor{
		ID:             uuid.New().String(),
		Description:    spec.Description,
		EstimatedStaff: spec.EstimatedStaff,
		EstimatedHours: spec.EstimatedHours,
		HourlyRate:     spec.HourlyRate,
		Notes:          spec.Notes,
		Attachments:    spec.Attachments,
	}
	job.Labor = append(job.Labor, l)
	s.recompute(job)

	return l, nil
}

// UpdateLine patches a material or labor line on a draft job
func (s *CatalogStore) UpdateLine(jobID, lineID string, patch LinePatch, baseVersion int) (*model.Job, error) {
	if patch.EstimatedQuantity != nil && *patch.EstimatedQuantity < 0 {
		return nil, invalidArgument("line", "estimated_quantity", "must not be negative")
	}
	if patch.UnitRate != nil && *patch.UnitRate < 0 {
		return nil, invalidArgument("line", "unit_rate", "must not be negative")
	}
	if patch.EstimatedStaff != nil && *patch.EstimatedStaff < 0 {
		return nil, invalidArgument("line", "estimated_staff", "must not be negative")
	}
	if patch.EstimatedHours != nil && *patch.EstimatedHours < 0 {
		return nil, invalidArgument("line", "estimated_hours", "must not be negative")
	}
	if patch.HourlyRate != nil && *patch.HourlyRate < 0 {
		return nil, invalidArgument("line", "hourly_rate", "must not be negative")
	}
	if patch.Unit != nil && !patch.Unit.Valid() {
		return nil, invalidArgument("line", "unit", "unknown unit of measure")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.writableJob(jobID, baseVersion)
	if err != nil {
		return nil, err
	}

	material, labor := job.Line(lineID)
	switch {
	case material != nil:
		if patch.Description != nil {
			material.Description = *patch.Description
		}
		if patch.Unit != nil {
			material.Unit = *patch.Unit
		}
		if patch.EstimatedQuantity != nil {
			material.EstimatedQuantity = *patch.EstimatedQuantity
		}
		if patch.UnitRate != nil {
			material.UnitRate = *patch.UnitRate
		}
		if patch.ProductLink != nil {
			material.ProductLink = *patch.ProductLink
		}
	case labor != nil:
		if patch.Description != nil {
			labor.Description = *patch.Description
		}
		if patch.EstimatedStaff != nil {
			labor.EstimatedStaff = *patch.EstimatedStaff
		}
		if patch.EstimatedHours != nil {
			labor.EstimatedHours = *patch.EstimatedHours
		}
		if patch.HourlyRate != nil {
			labor.HourlyRate = *patch.HourlyRate
		}
	default:
		return nil, notFound("line", lineID)
	}

	s.recompute(job)
	return job, nil
}

// DeleteLine removes a material or labor line from a draft job
func (s *CatalogStore) DeleteLine(jobID, lineID string, baseVersion int) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.writableJob(jobID, baseVersion)
	if err != nil {
		return nil, err
	}

	for i, m := range job.Materials {
		if m.ID == lineID {
			job.Materials = append(job.Materials[:i], job.Materials[i+1:]...)
			s.recompute(job)
			return job, nil
		}
	}
	for i, l := range job.Labor {
		if l.ID == lineID {
			job.Labor = append(job.Labor[:i], job.Labor[i+1:]...)
			s.recompute(job)
			return job, nil
		}
	}
	return nil, notFound("line", lineID)
}

// AttachToLine appends an attachment reference to a draft job's line
func (s *CatalogStore) AttachToLine(jobID, lineID, ref string, baseVersion int) error {
	if ref == "" {
		return invalidArgument("line", "attachment", "attachment reference is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.writableJob(jobID, baseVersion)
	if err != nil {
		return err
	}

	material, labor := job.Line(lineID)
	switch {
	case material != nil:
		material.Attachments = append(material.Attachments, ref)
	case labor != nil:
		labor.Attachments = append(labor.Attachments, ref)
	default:
		return notFound("line", lineID)
	}

	s.recompute(job)
	return nil
}

// SetJobStatus moves a job between draft and ready. Tender-linked statuses
// are assigned internally by the tender manager and never through here.
func (s *CatalogStore) SetJobStatus(jobID string, to model.JobStatus) (*model.Job, error) {
	if to != model.JobDraft && to != model.JobReady {
		return nil, invalidArgument("job", "status", "status must be draft or ready")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound("job", jobID)
	}
	if !job.Status.CanTransition(to) {
		return nil, invalidState("job", jobID, string(job.Status),
			fmt.Sprintf("cannot transition to %s", to))
	}
	if to == model.JobDraft && s.revertGuard != nil {
		if err := s.revertGuard(jobID); err != nil {
			return nil, err
		}
	}

	job.Status = to
	job.Version++
	job.UpdatedAt = time.Now()

	slog.Info("job status changed", "job_id", jobID, "status", to)
	return job, nil
}

// FreezeJobsForTender validates that every job exists and is ready, marks
// them with the given linked status and returns frozen line snapshots.
// All-or-nothing: a single bad job leaves the catalog untouched.
func (s *CatalogStore) FreezeJobsForTender(jobIDs []string, linked model.JobStatus) ([]model.JobSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*model.Job, 0, len(jobIDs))
	for _, id := range jobIDs {
		job, ok := s.jobs[id]
		if !ok {
			return nil, notFound("job", id)
		}
		if job.Status != model.JobReady {
			return nil, invalidState("job", id, string(job.Status), "job must be ready to join a tender")
		}
		jobs = append(jobs, job)
	}

	snapshots := make([]model.JobSnapshot, 0, len(jobs))
	for _, job := range jobs {
		snap := model.JobSnapshot{
			JobID:  job.ID,
			Number: job.Number,
			Name:   job.Name,
			Lines:  make([]model.LineSnapshot, 0, len(job.Materials)+len(job.Labor)),
		}
		for _, m := range job.Materials {
			snap.Lines = append(snap.Lines, model.LineSnapshot{
				LineID:            m.ID,
				Kind:              model.LineMaterial,
				Description:       m.Description,
				Unit:              m.Unit,
				EstimatedQuantity: m.EstimatedQuantity,
				UnitRate:          m.UnitRate,
			})
		}
		for _, l := range job.Labor {
			snap.Lines = append(snap.Lines, model.LineSnapshot{
				LineID:         l.ID,
				Kind:           model.LineLabor,
				Description:    l.Description,
				EstimatedStaff: l.EstimatedStaff,
				EstimatedHours: l.EstimatedHours,
				HourlyRate:     l.HourlyRate,
			})
		}
		job.Status = linked
		job.Version++
		job.UpdatedAt = time.Now()
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// ApplyActual records an actual cost on a line for variance reporting.
// Actuals are not structural, so frozen jobs accept them.
func (s *CatalogStore) ApplyActual(jobID, lineID string, actual model.Money) error {
	if actual < 0 {
		return invalidArgument("line", "actual_cost", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return notFound("job", jobID)
	}

	material, labor := job.Line(lineID)
	switch {
	case material != nil:
		material.ActualCost = &actual
	case labor != nil:
		labor.ActualCost = &actual
	default:
		return notFound("line", lineID)
	}

	job.UpdatedAt = time.Now()
	return nil
}

// Report builds the cost rollup across the whole catalog
func (s *CatalogStore) Report() CostReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]*model.Category, 0, len(s.order))
	for _, id := range s.order {
		categories = append(categories, s.categories[id])
	}
	return BuildCostReport(categories, s.jobs)
}

// writableJob fetches a job that may be structurally mutated.
// Must be called with the lock held.
func (s *CatalogStore) writableJob(jobID string, baseVersion int) (*model.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound("job", jobID)
	}
	if job.Status.Frozen() {
		return nil, invalidState("job", jobID, string(job.Status), "job is not editable unless draft")
	}
	if baseVersion != 0 && baseVersion != job.Version {
		return nil, conflict("job", jobID,
			fmt.Sprintf("version %d does not match current %d", baseVersion, job.Version))
	}
	return job, nil
}

// recompute refreshes the job's cached total and bumps its version.
// Must be called with the lock held.
func (s *CatalogStore) recompute(job *model.Job) {
	job.EstimatedTotal = JobTotal(job)
	job.Version++
	job.UpdatedAt = time.Now()
}
