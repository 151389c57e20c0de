package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// LiveBase is the production REST endpoint.
	LiveBase = "https://api-m.paypal.com"
	// SandboxBase is the sandbox REST endpoint.
	SandboxBase = "https://api-m.sandbox.paypal.com"
)

// Client calls the PayPal REST API with client-credentials auth. Access
// tokens are cached until shortly before expiry.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(baseURL, clientID, clientSecret string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// GetSubscription fetches a billing subscription by id.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := c.get(ctx, "/v1/billing/subscriptions/"+url.PathEscape(id), &sub); err != nil {
		return nil, err
	}
	if plan, err := c.GetPlan(ctx, sub.PlanID); err == nil {
		sub.BillingInterval = regularIntervalUnit(plan)
	} else {
		c.logger.Warn("failed to fetch plan for subscription, assuming monthly",
			"subscription_id", id, "plan_id", sub.PlanID, "error", err)
	}
	return &sub, nil
}

// GetPlan fetches a billing plan by id.
func (c *Client) GetPlan(ctx context.Context, id string) (*Plan, error) {
	var plan Plan
	if err := c.get(ctx, "/v1/billing/plans/"+url.PathEscape(id), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetCapture fetches a payment capture by id.
func (c *Client) GetCapture(ctx context.Context, id string) (*Capture, error) {
	var cap Capture
	if err := c.get(ctx, "/v2/payments/captures/"+url.PathEscape(id), &cap); err != nil {
		return nil, err
	}
	return &cap, nil
}

func regularIntervalUnit(plan *Plan) string {
	for _, cycle := range plan.BillingCycles {
		if strings.EqualFold(cycle.TenureType, "REGULAR") {
			return cycle.Frequency.IntervalUnit
		}
	}
	return ""
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("paypal: GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("paypal: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("paypal: fetch token: status %d: %s", resp.StatusCode, body)
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("paypal: decode token: %w", err)
	}

	c.token = tr.AccessToken
	// Refresh a minute early to avoid using a token at the expiry edge.
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}
