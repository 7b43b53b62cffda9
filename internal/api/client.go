package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/internal/scenario"
	"go.uber.org/zap"
)

// Client talks to the plan server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// GetPlan fetches a plan.
func (c *Client) GetPlan(ctx context.Context, planID string, opts RequestOptions) (plan.Plan, error) {
	var p plan.Plan
	err := c.do(ctx, http.MethodGet, planPath(planID, ""), nil, opts, &p)
	return p, err
}

// PatchPlan updates the given plan fields and returns the stored plan.
func (c *Client) PatchPlan(ctx context.Context, planID string, patch PlanPatch, opts RequestOptions) (plan.Plan, error) {
	var p plan.Plan
	err := c.do(ctx, http.MethodPatch, planPath(planID, ""), patch, opts, &p)
	return p, err
}

// CreatePlan creates a plan seeded from the server's brand defaults.
func (c *Client) CreatePlan(ctx context.Context, req CreatePlanRequest, opts RequestOptions) (plan.Plan, error) {
	var p plan.Plan
	err := c.do(ctx, http.MethodPost, "/plans", req, opts, &p)
	return p, err
}

// GetOutputs fetches the base projection of a plan.
func (c *Client) GetOutputs(ctx context.Context, planID string, opts RequestOptions) (engine.Output, error) {
	var out engine.Output
	err := c.do(ctx, http.MethodGet, planPath(planID, "outputs"), nil, opts, &out)
	return out, err
}

// GetScenarios fetches all three scenario projections of a plan.
func (c *Client) GetScenarios(ctx context.Context, planID string, opts RequestOptions) (scenario.Outputs, error) {
	var out scenario.Outputs
	err := c.do(ctx, http.MethodGet, planPath(planID, "scenarios"), nil, opts, &out)
	return out, err
}

// PutStartupCosts replaces the full startup cost list.
func (c *Client) PutStartupCosts(ctx context.Context, planID string, items []plan.StartupCostLineItem, opts RequestOptions) ([]plan.StartupCostLineItem, error) {
	var out []plan.StartupCostLineItem
	err := c.do(ctx, http.MethodPut, planPath(planID, "startup-costs"), items, opts, &out)
	return out, err
}

// ResetStartupCosts restores the brand's default startup costs.
func (c *Client) ResetStartupCosts(ctx context.Context, planID string, opts RequestOptions) ([]plan.StartupCostLineItem, error) {
	var out []plan.StartupCostLineItem
	err := c.do(ctx, http.MethodPost, planPath(planID, "startup-costs/reset"), nil, opts, &out)
	return out, err
}

func planPath(planID, sub string) string {
	p := "/plans/" + url.PathEscape(planID)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts RequestOptions, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	opts.apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb ErrorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		c.logger.Debug("plan server rejected request",
			zap.String("op", "api.do"),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.New("response has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}
