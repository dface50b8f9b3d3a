package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nam-ha/human-detection-app/internal/detection"
	"github.com/nam-ha/human-detection-app/internal/handlers"
	"github.com/nam-ha/human-detection-app/internal/models"
	"github.com/nam-ha/human-detection-app/internal/query"
)

type stubPredictor struct {
	err error
}

func (s stubPredictor) Predict(_ context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.PredictResponse{B64Image: req.B64Image + "-annotated", NumHumans: 1}, nil
}

type stubHistory struct {
	got query.HistoryQuery
}

func (s *stubHistory) Query(_ context.Context, q query.HistoryQuery) ([]models.PredictionRecord, int64, error) {
	s.got = q
	return []models.PredictionRecord{{QueryID: 3, Time: time.Now(), NumHumans: 2}}, 7, nil
}

func newServer(t *testing.T, p handlers.Predictor, h handlers.HistoryReader) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(handlers.New(p, h).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestPredict(t *testing.T) {
	srv := newServer(t, stubPredictor{}, &stubHistory{})
	c := New(srv.URL+"/", time.Second)

	resp, err := c.Predict(context.Background(), "img", 0.5)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if resp.B64Image != "img-annotated" || resp.NumHumans != 1 {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestPredictAPIError(t *testing.T) {
	srv := newServer(t, stubPredictor{err: detection.ErrModelNotReady}, &stubHistory{})
	c := New(srv.URL, time.Second)

	_, err := c.Predict(context.Background(), "img", 0.5)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", apiErr.Status)
	}
	if len(apiErr.Messages) != 1 || apiErr.Messages[0] != "Model not ready." {
		t.Errorf("Unexpected messages %v", apiErr.Messages)
	}
}

func TestHistory(t *testing.T) {
	hist := &stubHistory{}
	srv := newServer(t, stubPredictor{}, hist)
	c := New(srv.URL, time.Second)

	q := query.NewHistoryQuery()
	q.PageIndex = 2
	q.NumHumansMin = query.Some(1)

	page, err := c.History(context.Background(), q)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if page.Total != 7 || len(page.Records) != 1 || page.Records[0].QueryID != 3 {
		t.Errorf("Unexpected page %+v", page)
	}
	if hist.got.PageIndex != 2 || !hist.got.NumHumansMin.Set || hist.got.NumHumansMin.Value != 1 {
		t.Errorf("Expected filters to reach the server, got %+v", hist.got)
	}
}
