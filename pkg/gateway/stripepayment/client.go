package stripepayment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Client wraps the Stripe API calls the engine needs: enrichment lookups
// for webhook events and list traversals for replay and payout handling.
type Client struct {
	sc     *stripe.Client
	logger *slog.Logger
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		sc:     stripe.NewClient(apiKey),
		logger: logger,
	}
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	cust, err := c.sc.V1Customers.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve customer %s: %w", id, err)
	}
	return cust, nil
}

func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	sub, err := c.sc.V1Subscriptions.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve subscription %s: %w", id, err)
	}
	return sub, nil
}

func (c *Client) GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	inv, err := c.sc.V1Invoices.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve invoice %s: %w", id, err)
	}
	return inv, nil
}

func (c *Client) GetBalanceTransaction(ctx context.Context, id string) (*stripe.BalanceTransaction, error) {
	bt, err := c.sc.V1BalanceTransactions.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve balance transaction %s: %w", id, err)
	}
	return bt, nil
}

// ListCharges returns all charges created in [from, to], newest first.
func (c *Client) ListCharges(ctx context.Context, from, to time.Time) ([]*stripe.Charge, error) {
	params := &stripe.ChargeListParams{
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: from.Unix(),
			LesserThanOrEqual:  to.Unix(),
		},
	}
	var charges []*stripe.Charge
	for ch, err := range c.sc.V1Charges.List(ctx, params) {
		if err != nil {
			return nil, fmt.Errorf("stripe: list charges: %w", err)
		}
		charges = append(charges, ch)
	}
	return charges, nil
}

// ListPayouts returns the payouts that arrived in [from, to].
func (c *Client) ListPayouts(ctx context.Context, from, to time.Time) ([]*stripe.Payout, error) {
	params := &stripe.PayoutListParams{
		ArrivalDateRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: from.Unix(),
			LesserThanOrEqual:  to.Unix(),
		},
	}
	var payouts []*stripe.Payout
	for po, err := range c.sc.V1Payouts.List(ctx, params) {
		if err != nil {
			return nil, fmt.Errorf("stripe: list payouts: %w", err)
		}
		payouts = append(payouts, po)
	}
	return payouts, nil
}

// PayoutBalanceTransactions returns the balance transactions settled in a
// payout, with sources expanded so charge ids are available.
func (c *Client) PayoutBalanceTransactions(ctx context.Context, payoutID string) ([]*stripe.BalanceTransaction, error) {
	params := &stripe.BalanceTransactionListParams{
		Payout: stripe.String(payoutID),
	}
	params.AddExpand("data.source")

	var bts []*stripe.BalanceTransaction
	for bt, err := range c.sc.V1BalanceTransactions.List(ctx, params) {
		if err != nil {
			return nil, fmt.Errorf("stripe: list payout %s transactions: %w", payoutID, err)
		}
		bts = append(bts, bt)
	}
	return bts, nil
}
