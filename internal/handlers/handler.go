package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nam-ha/human-detection-app/internal/models"
	"github.com/nam-ha/human-detection-app/internal/query"
)

// Predictor runs a prediction request end to end
type Predictor interface {
	Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error)
}

// HistoryReader pages through stored predictions
type HistoryReader interface {
	Query(ctx context.Context, q query.HistoryQuery) ([]models.PredictionRecord, int64, error)
}

type Handler struct {
	predictor Predictor
	history   HistoryReader
}

func New(predictor Predictor, history HistoryReader) *Handler {
	return &Handler{
		predictor: predictor,
		history:   history,
	}
}

// Router builds the gin engine with every route and middleware attached
func (h *Handler) Router() *gin.Engine {
	eng := gin.New()
	eng.Use(gin.Recovery(), requestLogger(), cors())

	eng.GET("/", h.HandleRoot)
	eng.GET("/healthcheck", h.HandleHealthcheck)

	apiV1 := eng.Group("/api/v1")
	apiV1.POST("/predict", h.HandlePredict)
	apiV1.GET("/history", h.HandleHistory)

	return eng
}

func (h *Handler) HandleRoot(c *gin.Context) {
	h.writeJSON(c, gin.H{"message": "Hello World"})
}

func (h *Handler) HandleHealthcheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (h *Handler) HandlePredict(c *gin.Context) {
	var req models.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, msgInvalidBody, http.StatusUnprocessableEntity)
		return
	}

	resp, err := h.predictor.Predict(c.Request.Context(), req)
	if err != nil {
		h.writeFailure(c, err)
		return
	}

	h.writeJSON(c, resp)
}

func (h *Handler) HandleHistory(c *gin.Context) {
	q, err := query.ParseHistory(c.Request.URL.Query())
	if err != nil {
		h.writeFailure(c, err)
		return
	}

	records, total, err := h.history.Query(c.Request.Context(), q)
	if err != nil {
		h.writeFailure(c, err)
		return
	}

	page := models.HistoryPage{
		Total:   total,
		Records: make([]models.HistoryEntry, 0, len(records)),
	}
	for _, rec := range records {
		page.Records = append(page.Records, rec.Entry())
	}

	h.writeJSON(c, page)
}
