package paymentspring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIBase is the PaymentSpring REST endpoint.
const APIBase = "https://api.paymentspring.com/api/v1"

// Client calls the PaymentSpring REST API with basic auth (private key as
// username, empty password).
type Client struct {
	baseURL    string
	privateKey string
	httpClient *http.Client
}

func NewClient(baseURL, privateKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetCustomer fetches a customer record by id.
func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var cust Customer
	if err := c.get(ctx, "/customers/"+url.PathEscape(id), &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

// GetSubscription fetches a customer's plan subscription.
func (c *Client) GetSubscription(ctx context.Context, customerID, planID string) (*Subscription, error) {
	var sub Subscription
	path := "/customers/" + url.PathEscape(customerID) + "/subscriptions/" + url.PathEscape(planID)
	if err := c.get(ctx, path, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("paymentspring: build request: %w", err)
	}
	req.SetBasicAuth(c.privateKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paymentspring: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("paymentspring: GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("paymentspring: decode %s: %w", path, err)
	}
	return nil
}
