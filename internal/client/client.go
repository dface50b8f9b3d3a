// Package client talks to a running human detection server.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nam-ha/human-detection-app/internal/models"
	"github.com/nam-ha/human-detection-app/internal/query"
)

const DefaultTimeout = 60 * time.Second

// APIError is a non-2xx reply from the server
type APIError struct {
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

type errorBody struct {
	Detail []struct {
		Msg string `json:"msg"`
	} `json:"detail"`
}

type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Predict submits an image and returns the annotated result
func (c *Client) Predict(ctx context.Context, b64image string, threshold float64) (*models.PredictResponse, error) {
	var result models.PredictResponse
	var failure errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(models.PredictRequest{B64Image: b64image, ConfidenceThreshold: &threshold}).
		SetResult(&result).
		SetError(&failure).
		Post("/api/v1/predict")
	if err != nil {
		return nil, fmt.Errorf("failed to call predict: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp.StatusCode(), failure)
	}

	return &result, nil
}

// History fetches one page of prediction history
func (c *Client) History(ctx context.Context, q query.HistoryQuery) (*models.HistoryPage, error) {
	var result models.HistoryPage
	var failure errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(q.Values()).
		SetResult(&result).
		SetError(&failure).
		Get("/api/v1/history")
	if err != nil {
		return nil, fmt.Errorf("failed to call history: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp.StatusCode(), failure)
	}

	return &result, nil
}

func apiError(status int, body errorBody) *APIError {
	e := &APIError{Status: status}
	for _, d := range body.Detail {
		e.Messages = append(e.Messages, d.Msg)
	}
	return e
}
