package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/structiq/soqtender/config"
	"github.com/structiq/soqtender/middleware"
	"github.com/structiq/soqtender/model"
	"github.com/structiq/soqtender/service"
)

// TenderHandler exposes tender packaging, closing and awarding
type TenderHandler struct {
	tenders *service.TenderManager
	bids    *service.BidEngine
	awards  *service.AwardCoordinator
}

func NewTenderHandler(tenders *service.TenderManager, bids *service.BidEngine, awards *service.AwardCoordinator) *TenderHandler {
	return &TenderHandler{tenders: tenders, bids: bids, awards: awards}
}

type CreateTenderRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	JobIDs      []string `json:"job_ids" binding:"required"`
	Visibility  string   `json:"visibility" binding:"required"`
	StartDate   string   `json:"start_date" binding:"required"`
	EndDate     string   `json:"end_date" binding:"required"`
}

// CreateTender handles POST /api/tenders
func (h *TenderHandler) CreateTender(c *gin.Context) {
	var req CreateTenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}

	t, err := h.tenders.CreateTender(service.TenderSpec{
		Name:        req.Name,
		Description: req.Description,
		JobIDs:      req.JobIDs,
		Visibility:  model.Visibility(req.Visibility),
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

// ListTenders handles GET /api/tenders. Owners see private tenders too.
func (h *TenderHandler) ListTenders(c *gin.Context) {
	includePrivate := middleware.GetRole(c) == config.RoleOwner
	c.JSON(http.StatusOK, gin.H{"tenders": h.tenders.Tenders(includePrivate)})
}

// GetTender handles GET /api/tenders/:id
func (h *TenderHandler) GetTender(c *gin.Context) {
	t, err := h.tenders.Tender(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if t.Visibility == model.VisibilityPrivate && middleware.GetRole(c) != config.RoleOwner {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tender not found"})
		return
	}

	c.JSON(http.StatusOK, t)
}

type AddJobsRequest struct {
	JobIDs []string `json:"job_ids" binding:"required"`
}

// AddJobs handles POST /api/tenders/:id/jobs
func (h *TenderHandler) AddJobs(c *gin.Context) {
	var req AddJobsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	t, err := h.tenders.AddJobs(c.Param("id"), req.JobIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// CloseTender handles POST /api/tenders/:id/close
func (h *TenderHandler) CloseTender(c *gin.Context) {
	t, err := h.tenders.CloseTender(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// ListBids handles GET /api/tenders/:id/bids; the owner reviews the
// competition with derived totals
func (h *TenderHandler) ListBids(c *gin.Context) {
	if _, err := h.tenders.Tender(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	bids := h.bids.BidsForTender(c.Param("id"))
	result := make([]gin.H, len(bids))
	for i, bid := range bids {
		result[i] = gin.H{
			"id":            bid.ID,
			"bidder":        bid.Bidder,
			"status":        bid.Status,
			"duration_days": bid.DurationDays,
			"total":         bid.Total(),
			"awarded":       bid.Awarded,
			"created_at":    bid.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"bids": result})
}

type AwardRequest struct {
	BidID string `json:"bid_id" binding:"required"`
}

// Award handles POST /api/tenders/:id/award
func (h *TenderHandler) Award(c *gin.Context) {
	var req AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	t, award, err := h.awards.AwardBid(c.Param("id"), req.BidID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tender": t, "award": award})
}

// GetAward handles GET /api/tenders/:id/award
func (h *TenderHandler) GetAward(c *gin.Context) {
	award, err := h.awards.Award(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, award)
}

// ApplyActuals handles POST /api/tenders/:id/actuals, copying the winning
// bid's costs onto the catalog for variance reporting
func (h *TenderHandler) ApplyActuals(c *gin.Context) {
	if err := h.awards.ApplyAwardActuals(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Actuals applied"})
}
