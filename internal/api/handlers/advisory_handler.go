package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/advisor"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/service"
)

const defaultDaysAhead = 30

// Advisory is the service surface the handlers call.
type Advisory interface {
	Predict(ctx context.Context, productID string, daysAhead int) ([]domain.PredictionPoint, error)
	Advise(ctx context.Context, productID string, currentStock int) (domain.QuickAdvice, error)
	RunBatch(ctx context.Context, req service.BatchRequest) (*pipeline.BatchResult, error)
}

type AdvisoryHandler struct {
	service Advisory
}

func NewAdvisoryHandler(service Advisory) *AdvisoryHandler {
	return &AdvisoryHandler{service: service}
}

type predictRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	DaysAhead int    `json:"days_ahead"`
}

type predictResponse struct {
	ProductID   string                   `json:"product_id"`
	Predictions []domain.PredictionPoint `json:"predictions"`
}

type adviceRequest struct {
	ProductID    string `json:"product_id" binding:"required"`
	CurrentStock *int   `json:"current_stock" binding:"required"`
}

// adviceResponse reports an infinite days_of_stock as null.
type adviceResponse struct {
	ProductID     string         `json:"product_id"`
	Advice        string         `json:"advice"`
	OrderQuantity int            `json:"order_quantity"`
	ReorderPoint  int            `json:"reorder_point"`
	DaysOfStock   *float64       `json:"days_of_stock"`
	Urgency       domain.Urgency `json:"urgency"`
}

type batchRequest struct {
	ProductIDs []string        `json:"product_ids"`
	Horizon    int             `json:"horizon"`
	Policy     *advisor.Policy `json:"policy"`
}

type batchAdvice struct {
	ProductID       string         `json:"product_id"`
	CurrentStock    float64        `json:"current_stock"`
	ReorderPoint    float64        `json:"reorder_point"`
	OrderQuantity   int            `json:"order_quantity"`
	AvgDailyDemand  float64        `json:"avg_daily_demand"`
	DaysOfStock     *float64       `json:"days_of_stock"`
	Urgency         domain.Urgency `json:"urgency"`
	ConfidenceWidth float64        `json:"confidence_width"`
	NeedsOrder      bool           `json:"needs_order"`
	Advice          string         `json:"advice"`
	Reason          string         `json:"reason"`
}

type batchResponse struct {
	RunID   int64                 `json:"run_id,omitempty"`
	Horizon int                   `json:"horizon"`
	Policy  advisor.Policy        `json:"policy"`
	Summary domain.BatchSummary   `json:"summary"`
	Advices []batchAdvice         `json:"advices"`
	Skipped []pipeline.SkipRecord `json:"skipped"`
}

func (h *AdvisoryHandler) PredictDemand(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if req.DaysAhead == 0 {
		req.DaysAhead = defaultDaysAhead
	}

	points, err := h.service.Predict(c.Request.Context(), req.ProductID, req.DaysAhead)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, predictResponse{ProductID: req.ProductID, Predictions: points})
}

func (h *AdvisoryHandler) InventoryAdvice(c *gin.Context) {
	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	advice, err := h.service.Advise(c.Request.Context(), req.ProductID, *req.CurrentStock)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, adviceResponse{
		ProductID:     advice.ProductID,
		Advice:        advice.Advice,
		OrderQuantity: advice.OrderQuantity,
		ReorderPoint:  advice.ReorderPoint,
		DaysOfStock:   finiteOrNil(pipeline.Round1Float(advice.DaysOfStock)),
		Urgency:       advice.Urgency,
	})
}

func (h *AdvisoryHandler) RunBatch(c *gin.Context) {
	var req batchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}
	}

	result, err := h.service.RunBatch(c.Request.Context(), service.BatchRequest{
		ProductIDs: req.ProductIDs,
		Horizon:    req.Horizon,
		Policy:     req.Policy,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := batchResponse{
		RunID:   result.RunID,
		Horizon: result.Horizon,
		Policy:  result.Policy,
		Summary: result.Summary,
		Advices: make([]batchAdvice, len(result.Advices)),
		Skipped: result.Skipped,
	}
	if resp.Skipped == nil {
		resp.Skipped = make([]pipeline.SkipRecord, 0)
	}
	for i, a := range result.Advices {
		resp.Advices[i] = batchAdvice{
			ProductID:       a.ProductID,
			CurrentStock:    a.CurrentStock,
			ReorderPoint:    a.ReorderPoint,
			OrderQuantity:   a.OrderQuantity,
			AvgDailyDemand:  pipeline.Round1Float(a.AvgDailyDemand),
			DaysOfStock:     finiteOrNil(pipeline.Round1Float(a.DaysOfStock)),
			Urgency:         a.Urgency,
			ConfidenceWidth: pipeline.Round1Float(a.ConfidenceWidth),
			NeedsOrder:      a.NeedsOrder,
			Advice:          a.Advice,
			Reason:          a.Reason,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// writeError maps lookup failures to 404, rejected input to 400 and hides
// every other failure behind a generic 500.
func writeError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInsufficientHorizon):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrBatchDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
