package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/structiq/soqtender/config"
	"github.com/structiq/soqtender/model"
	"github.com/structiq/soqtender/service"
)

// testStack wires the full engine with one ready job, ready to tender
type testStack struct {
	catalog *service.CatalogStore
	tenders *service.TenderManager
	bids    *service.BidEngine
	awards  *service.AwardCoordinator
	jobID   string
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	catalog := service.NewCatalogStore()
	cat, err := catalog.CreateCategory("Foundation", "")
	if err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	job, err := catalog.CreateJob(cat.ID, "Excavation", "")
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	if _, err := catalog.AddMaterial(job.ID, service.MaterialSpec{
		Description:       "Concrete C25",
		Unit:              model.UnitVolume,
		EstimatedQuantity: 100_000,
		UnitRate:          15_000,
	}, 0); err != nil {
		t.Fatalf("Failed to add material: %v", err)
	}
	if _, err := catalog.AddLabor(job.ID, service.LaborSpec{
		Description:    "Excavation crew",
		EstimatedStaff: 5,
		EstimatedHours: 40_000,
		HourlyRate:     2_500,
	}, 0); err != nil {
		t.Fatalf("Failed to add labor: %v", err)
	}
	if _, err := catalog.SetJobStatus(job.ID, model.JobReady); err != nil {
		t.Fatalf("Failed to ready job: %v", err)
	}

	tenders := service.NewTenderManager(catalog)
	bids := service.NewBidEngine(tenders)
	awards := service.NewAwardCoordinator(tenders, bids, catalog)
	return &testStack{catalog: catalog, tenders: tenders, bids: bids, awards: awards, jobID: job.ID}
}

// router builds the tender/bid routes with the given identity injected,
// standing in for the auth middleware
func (s *testStack) router(username, role string) *gin.Engine {
	th := NewTenderHandler(s.tenders, s.bids, s.awards)
	bh := NewBidHandler(s.bids)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", username)
		c.Set("role", role)
	})
	r.POST("/api/tenders", th.CreateTender)
	r.GET("/api/tenders", th.ListTenders)
	r.GET("/api/tenders/:id", th.GetTender)
	r.POST("/api/tenders/:id/close", th.CloseTender)
	r.GET("/api/tenders/:id/bids", th.ListBids)
	r.POST("/api/tenders/:id/award", th.Award)
	r.GET("/api/tenders/:id/award", th.GetAward)
	r.POST("/api/tenders/:id/actuals", th.ApplyActuals)
	r.POST("/api/tenders/:id/bids", bh.CreateBid)
	r.GET("/api/bids/my", bh.MyBids)
	r.GET("/api/bids/:id", bh.GetBid)
	r.PATCH("/api/bids/:id/lines/:lineId", bh.UpdateBidLine)
	r.POST("/api/bids/:id/submit", bh.SubmitBid)
	r.POST("/api/bids/:id/withdraw", bh.WithdrawBid)
	return r
}

func (s *testStack) openTender(t *testing.T, visibility model.Visibility) *model.Tender {
	t.Helper()

	tender, err := s.tenders.CreateTender(service.TenderSpec{
		Name:       "Phase 1 groundwork",
		JobIDs:     []string{s.jobID},
		Visibility: visibility,
		StartDate:  time.Now(),
		EndDate:    time.Now().AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("Failed to create tender: %v", err)
	}
	return tender
}

func TestCreateTenderHandler(t *testing.T) {
	s := newTestStack(t)
	router := s.router("owner1", config.RoleOwner)

	w := doJSON(router, "POST", "/api/tenders", map[string]any{
		"name":       "Phase 1 groundwork",
		"job_ids":    []string{s.jobID},
		"visibility": "public",
		"start_date": "2026-09-01",
		"end_date":   "2026-10-01",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var tender model.Tender
	json.Unmarshal(w.Body.Bytes(), &tender)
	if tender.Status != model.TenderOpen {
		t.Errorf("Expected status 'open', got '%s'", tender.Status)
	}
	if len(tender.Snapshot) != 1 || len(tender.Snapshot[0].Lines) != 2 {
		t.Errorf("Expected a snapshot with 2 lines, got %+v", tender.Snapshot)
	}

	w = doJSON(router, "POST", "/api/tenders", map[string]any{
		"name":       "bad dates",
		"job_ids":    []string{s.jobID},
		"visibility": "public",
		"start_date": "September 1st",
		"end_date":   "2026-10-01",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTenderVisibility(t *testing.T) {
	s := newTestStack(t)
	tender := s.openTender(t, model.VisibilityPrivate)

	// bidders see neither the listing entry nor the tender itself
	bidderRouter := s.router("acme-builders", config.RoleBidder)
	w := doJSON(bidderRouter, "GET", "/api/tenders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var listing struct {
		Tenders []model.Tender `json:"tenders"`
	}
	json.Unmarshal(w.Body.Bytes(), &listing)
	if len(listing.Tenders) != 0 {
		t.Errorf("Expected no visible tenders, got %d", len(listing.Tenders))
	}

	w = doJSON(bidderRouter, "GET", "/api/tenders/"+tender.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	// the owner sees everything
	ownerRouter := s.router("owner1", config.RoleOwner)
	w = doJSON(ownerRouter, "GET", "/api/tenders/"+tender.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestAwardHandler(t *testing.T) {
	s := newTestStack(t)
	tender := s.openTender(t, model.VisibilityPublic)

	first, err := s.bids.CreateBid(tender.ID, "acme-builders", 90)
	if err != nil {
		t.Fatalf("Failed to create bid: %v", err)
	}
	second, err := s.bids.CreateBid(tender.ID, "northside-construction", 60)
	if err != nil {
		t.Fatalf("Failed to create bid: %v", err)
	}
	for _, id := range []string{first.ID, second.ID} {
		if _, err := s.bids.SubmitBid(id); err != nil {
			t.Fatalf("Failed to submit bid: %v", err)
		}
	}

	router := s.router("owner1", config.RoleOwner)

	w := doJSON(router, "GET", "/api/tenders/"+tender.ID+"/bids", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var review struct {
		Bids []struct {
			Total int64 `json:"total"`
		} `json:"bids"`
	}
	json.Unmarshal(w.Body.Bytes(), &review)
	if len(review.Bids) != 2 || review.Bids[0].Total != 2000000 {
		t.Errorf("Expected 2 bids with derived totals, got %+v", review.Bids)
	}

	w = doJSON(router, "POST", "/api/tenders/"+tender.ID+"/award", map[string]string{"bid_id": second.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// the award is one-shot
	w = doJSON(router, "POST", "/api/tenders/"+tender.ID+"/award", map[string]string{"bid_id": first.ID})
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", w.Code)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["kind"] != "already_awarded" {
		t.Errorf("Expected kind 'already_awarded', got '%v'", body["kind"])
	}

	w = doJSON(router, "GET", "/api/tenders/"+tender.ID+"/award", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var award model.Award
	json.Unmarshal(w.Body.Bytes(), &award)
	if award.BidID != second.ID {
		t.Errorf("Expected awarded bid '%s', got '%s'", second.ID, award.BidID)
	}

	w = doJSON(router, "POST", "/api/tenders/"+tender.ID+"/actuals", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}
