package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/structiq/soqtender/config"
	"github.com/structiq/soqtender/middleware"
	"github.com/structiq/soqtender/model"
	"github.com/structiq/soqtender/service"
)

// BidHandler exposes the bidder-facing bid lifecycle
type BidHandler struct {
	bids *service.BidEngine
}

func NewBidHandler(bids *service.BidEngine) *BidHandler {
	return &BidHandler{bids: bids}
}

type CreateBidRequest struct {
	DurationDays int `json:"duration_days"`
}

// CreateBid handles POST /api/tenders/:id/bids. The bidder identity comes
// from the token, never the payload.
func (h *BidHandler) CreateBid(c *gin.Context) {
	var req CreateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	bid, err := h.bids.CreateBid(c.Param("id"), middleware.GetUsername(c), req.DurationDays)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bidView(bid))
}

// MyBids handles GET /api/bids/my
func (h *BidHandler) MyBids(c *gin.Context) {
	bids := h.bids.BidsByBidder(middleware.GetUsername(c))
	result := make([]gin.H, len(bids))
	for i, bid := range bids {
		result[i] = bidView(bid)
	}

	c.JSON(http.StatusOK, gin.H{"bids": result})
}

// GetBid handles GET /api/bids/:id. Bidders only see their own bids;
// the owner sees all of them.
func (h *BidHandler) GetBid(c *gin.Context) {
	bid, err := h.ownBid(c)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bidView(bid))
}

type UpdateBidLineRequest struct {
	Quantity   *model.Quantity `json:"quantity"`
	UnitRate   *model.Money    `json:"unit_rate"`
	Staff      *int64          `json:"staff"`
	Hours      *model.Quantity `json:"hours"`
	HourlyRate *model.Money    `json:"hourly_rate"`
	Version    int             `json:"version"`
}

// UpdateBidLine handles PATCH /api/bids/:id/lines/:lineId
func (h *BidHandler) UpdateBidLine(c *gin.Context) {
	if _, err := h.ownBid(c); err != nil {
		respondError(c, err)
		return
	}

	var req UpdateBidLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	bid, err := h.bids.UpdateBidLine(c.Param("id"), c.Param("lineId"), service.BidLinePatch{
		Quantity:   req.Quantity,
		UnitRate:   req.UnitRate,
		Staff:      req.Staff,
		Hours:      req.Hours,
		HourlyRate: req.HourlyRate,
	}, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bidView(bid))
}

// SubmitBid handles POST /api/bids/:id/submit
func (h *BidHandler) SubmitBid(c *gin.Context) {
	if _, err := h.ownBid(c); err != nil {
		respondError(c, err)
		return
	}

	bid, err := h.bids.SubmitBid(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bidView(bid))
}

// WithdrawBid handles POST /api/bids/:id/withdraw
func (h *BidHandler) WithdrawBid(c *gin.Context) {
	if _, err := h.ownBid(c); err != nil {
		respondError(c, err)
		return
	}

	bid, err := h.bids.WithdrawBid(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bidView(bid))
}

// AttachToBid handles POST /api/bids/:id/attachments
func (h *BidHandler) AttachToBid(c *gin.Context) {
	if _, err := h.ownBid(c); err != nil {
		respondError(c, err)
		return
	}

	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	bid, err := h.bids.AttachToBid(c.Param("id"), req.Ref, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bidView(bid))
}

// ownBid loads the bid and hides other bidders' bids behind not_found
func (h *BidHandler) ownBid(c *gin.Context) (*model.Bid, error) {
	bid, err := h.bids.Bid(c.Param("id"))
	if err != nil {
		return nil, err
	}
	if middleware.GetRole(c) != config.RoleOwner && bid.Bidder != middleware.GetUsername(c) {
		return nil, &service.Error{Kind: service.KindNotFound, Entity: "bid", ID: bid.ID, Msg: "does not exist"}
	}
	return bid, nil
}

// bidView serializes a bid with its derived total
func bidView(bid *model.Bid) gin.H {
	return gin.H{
		"id":            bid.ID,
		"tender_id":     bid.TenderID,
		"bidder":        bid.Bidder,
		"status":        bid.Status,
		"duration_days": bid.DurationDays,
		"lines":         bid.Lines,
		"attachments":   bid.Attachments,
		"awarded":       bid.Awarded,
		"total":         bid.Total(),
		"version":       bid.Version,
		"created_at":    bid.CreatedAt,
		"updated_at":    bid.UpdatedAt,
	}
}
