// Package api is the REST boundary of the editor core: recipe saves, the
// model price list and combinatorial cost requests.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/vk/nodeflow/internal/cost"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/persist"
	"github.com/vk/nodeflow/internal/pricing"
	"resty.dev/v3"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// HTTPStatus exposes the status code to callers that classify failures.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the workflow backend.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var (
	_ persist.Saver   = (*Client)(nil)
	_ pricing.Fetcher = (*Client)(nil)
)

// New creates a client. Close releases its connections.
func New(ctx context.Context, cfg Config) *Client {
	logger := ctxlog.FromContext(ctx).With("component", "api")

	h := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger})
	if cfg.Token != "" {
		h.SetAuthToken(cfg.Token)
	}
	if cfg.Timeout > 0 {
		h.SetTimeout(cfg.Timeout)
	}
	return &Client{http: h, logger: logger}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

type saveResponse struct {
	UpdatedAt time.Time `json:"updatedAt"`
}

// SaveRecipe implements persist.Saver.
func (c *Client) SaveRecipe(ctx context.Context, recipeID string, body []byte) (time.Time, error) {
	var out saveResponse
	err := c.do(ctx, "POST", "/recipes/{id}/save", map[string]string{"id": recipeID}, body, &out)
	if err != nil {
		return time.Time{}, err
	}
	if out.UpdatedAt.IsZero() {
		return time.Time{}, fmt.Errorf("save response for recipe %s has no updatedAt", recipeID)
	}
	return out.UpdatedAt, nil
}

// GetModelPrices implements pricing.Fetcher.
func (c *Client) GetModelPrices(ctx context.Context) ([]pricing.ModelPrice, error) {
	var out []pricing.ModelPrice
	if err := c.do(ctx, "GET", "/models/prices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type costIterator struct {
	NodeID string `json:"nodeId"`
	Values []any  `json:"values"`
}

type costRequest struct {
	NodeIDs   []string       `json:"nodeIds"`
	Runs      int            `json:"runs"`
	Iterators []costIterator `json:"iterators"`
}

type costResponse struct {
	Cost float64 `json:"cost"`
}

// CostCalculator returns a cost.CalculateFunc that prices selections of the
// given recipe on the backend.
func (c *Client) CostCalculator(recipeID string) cost.CalculateFunc {
	return func(ctx context.Context, req cost.Request) (float64, error) {
		body := costRequest{NodeIDs: req.NodeIDs, Runs: req.Runs, Iterators: make([]costIterator, 0, len(req.Iterators))}
		for _, it := range req.Iterators {
			ci := costIterator{NodeID: it.IteratorNode.ID}
			if it.IteratorNode.Data != nil {
				ci.Values = it.IteratorNode.Data.Values
			}
			body.Iterators = append(body.Iterators, ci)
		}
		buf, err := sonic.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode cost request: %w", err)
		}

		var out costResponse
		if err := c.do(ctx, "POST", "/recipes/{id}/cost", map[string]string{"id": recipeID}, buf, &out); err != nil {
			return 0, err
		}
		return out.Cost, nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body []byte, out any) error {
	req := c.http.R().SetContext(ctx)
	for k, v := range params {
		req.SetPathParam(k, v)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	var (
		resp *resty.Response
		err  error
	)
	switch method {
	case "GET":
		resp, err = req.Get(path)
	case "POST":
		resp, err = req.Post(path)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.logger.Debug("API response received.", "method", method, "path", path, "status", resp.StatusCode())
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(resp.Bytes(), out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
