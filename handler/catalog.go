package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/structiq/soqtender/model"
	"github.com/structiq/soqtender/service"
)

// CatalogHandler exposes the schedule-of-quantities catalog: categories,
// jobs and their material/labor lines.
type CatalogHandler struct {
	catalog *service.CatalogStore
}

func NewCatalogHandler(catalog *service.CatalogStore) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateCategory handles POST /api/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	cat, err := h.catalog.CreateCategory(req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cat)
}

// ListCategories handles GET /api/categories, returning each category with
// its derived total
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories := h.catalog.Categories()

	result := make([]gin.H, len(categories))
	for i, cat := range categories {
		jobs, _ := h.catalog.JobsByCategory(cat.ID)
		result[i] = gin.H{
			"id":              cat.ID,
			"name":            cat.Name,
			"description":     cat.Description,
			"job_count":       len(cat.JobIDs),
			"estimated_total": service.CategoryTotal(jobs),
		}
	}

	c.JSON(http.StatusOK, gin.H{"categories": result})
}

// GetCategory handles GET /api/categories/:id, returning the category with
// its jobs
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	cat, err := h.catalog.Category(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	jobs, err := h.catalog.JobsByCategory(cat.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              cat.ID,
		"name":            cat.Name,
		"description":     cat.Description,
		"jobs":            jobs,
		"estimated_total": service.CategoryTotal(jobs),
	})
}

type CreateJobRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateJob handles POST /api/categories/:id/jobs
func (h *CatalogHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	job, err := h.catalog.CreateJob(c.Param("id"), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob handles GET /api/jobs/:id
func (h *CatalogHandler) GetJob(c *gin.Context) {
	job, err := h.catalog.Job(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

type AddMaterialRequest struct {
	Description       string         `json:"description" binding:"required"`
	Unit              string         `json:"unit" binding:"required"`
	EstimatedQuantity model.Quantity `json:"estimated_quantity"`
	UnitRate          model.Money    `json:"unit_rate"`
	ProductLink       string         `json:"product_link"`
	Attachments       []string       `json:"attachments"`
	Version           int            `json:"version"`
}

// AddMaterial handles POST /api/jobs/:id/materials
func (h *CatalogHandler) AddMaterial(c *gin.Context) {
	var req AddMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	m, err := h.catalog.AddMaterial(c.Param("id"), service.MaterialSpec{
		Description:       req.Description,
		Unit:              model.UnitOfMeasure(req.Unit),
		EstimatedQuantity: req.EstimatedQuantity,
		UnitRate:          req.UnitRate,
		ProductLink:       req.ProductLink,
		Attachments:       req.Attachments,
	}, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

type AddLaborRequest struct {
	Description    string         `json:"description" binding:"required"`
	EstimatedStaff int64          `json:"estimated_staff"`
	EstimatedHours model.Quantity `json:"estimated_hours"`
	HourlyRate     model.Money    `json:"hourly_rate"`
	Notes          []string       `json:"notes"`
	Attachments    []string       `json:"attachments"`
	Version        int            `json:"version"`
}

// AddLabor handles POST /api/jobs/:id/labor
func (h *CatalogHandler) AddLabor(c *gin.Context) {
	var req AddLaborRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	l, err := h.catalog.AddLabor(c.Param("id"), service.LaborSpec{
		Description:    req.Description,
		EstimatedStaff: req.EstimatedStaff,
		EstimatedHours: req.EstimatedHours,
		HourlyRate:     req.HourlyRate,
		Notes:          req.Notes,
		Attachments:    req.Attachments,
	}, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, l)
}

type UpdateLineRequest struct {
	Description       *string              `json:"description"`
	Unit              *model.UnitOfMeasure `json:"unit"`
	EstimatedQuantity *model.Quantity      `json:"estimated_quantity"`
	UnitRate          *model.Money         `json:"unit_rate"`
	ProductLink       *string              `json:"product_link"`
	EstimatedStaff    *int64               `json:"estimated_staff"`
	EstimatedHours    *model.Quantity      `json:"estimated_hours"`
	HourlyRate        *model.Money         `json:"hourly_rate"`
	Version           int                  `json:"version"`
}

// UpdateLine handles PATCH /api/jobs/:id/lines/:lineId
func (h *CatalogHandler) UpdateLine(c *gin.Context) {
	var req UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	job, err := h.catalog.UpdateLine(c.Param("id"), c.Param("lineId"), service.LinePatch{
		Description:       req.Description,
		Unit:              req.Unit,
		EstimatedQuantity: req.EstimatedQuantity,
		UnitRate:          req.UnitRate,
		ProductLink:       req.ProductLink,
		EstimatedStaff:    req.EstimatedStaff,
		EstimatedHours:    req.EstimatedHours,
		HourlyRate:        req.HourlyRate,
	}, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// DeleteLine handles DELETE /api/jobs/:id/lines/:lineId
func (h *CatalogHandler) DeleteLine(c *gin.Context) {
	job, err := h.catalog.DeleteLine(c.Param("id"), c.Param("lineId"), 0)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

type SetJobStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetJobStatus handles PATCH /api/jobs/:id/status
func (h *CatalogHandler) SetJobStatus(c *gin.Context) {
	var req SetJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	job, err := h.catalog.SetJobStatus(c.Param("id"), model.JobStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

type AttachRequest struct {
	Ref     string `json:"ref" binding:"required"`
	Version int    `json:"version"`
}

// AttachToLine handles POST /api/jobs/:id/lines/:lineId/attachments
func (h *CatalogHandler) AttachToLine(c *gin.Context) {
	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.catalog.AttachToLine(c.Param("id"), c.Param("lineId"), req.Ref, req.Version); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attachment linked"})
}

// CostReport handles GET /api/reports/costs
func (h *CatalogHandler) CostReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Report())
}
