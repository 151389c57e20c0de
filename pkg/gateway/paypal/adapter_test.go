package paypal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const captureJSON = `{
	"id": "CAP123",
	"status": "COMPLETED",
	"amount": {"currency_code": "USD", "value": "25.00"},
	"custom_id": "Spring Gala",
	"create_time": "2024-03-01T12:00:00Z",
	"seller_receivable_breakdown": {
		"gross_amount": {"currency_code": "USD", "value": "25.00"},
		"paypal_fee": {"currency_code": "USD", "value": "1.03"},
		"net_amount": {"currency_code": "USD", "value": "23.97"}
	},
	"supplementary_data": {"related_ids": {"order_id": "ORD1", "subscription_id": "I-SUB1"}},
	"payer": {
		"payer_id": "PAYER1",
		"email_address": "brett@example.com",
		"name": {"given_name": "Brett", "surname": "Meyer"}
	}
}`

func TestFromCapture(t *testing.T) {
	t.Parallel()
	var cap Capture
	require.NoError(t, json.Unmarshal([]byte(captureJSON), &cap))

	ev, err := FromCapture(&cap, nil, money.USD)
	require.NoError(t, err)

	assert.Equal(t, event.GatewayWallet, ev.Gateway)
	assert.Equal(t, event.KindCharge, ev.Kind)
	assert.Equal(t, "CAP123", ev.TransactionID)
	assert.True(t, ev.TransactionSuccess)
	assert.True(t, ev.TransactionAmount.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, ev.TransactionNetAmount.Equal(decimal.RequireFromString("23.97")))
	assert.Equal(t, money.USD, ev.TransactionOriginalCurrency)
	assert.Nil(t, ev.TransactionExchangeRate)

	assert.Equal(t, "Brett", ev.FirstName)
	assert.Equal(t, "Meyer", ev.LastName)
	assert.Equal(t, "brett@example.com", ev.Email)
	assert.Equal(t, "I-SUB1", ev.SubscriptionID)
	assert.Equal(t, "SpringGala", ev.CampaignID)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ev.TransactionDate)
}

func TestFromCaptureForeignCurrency(t *testing.T) {
	t.Parallel()
	var cap Capture
	require.NoError(t, json.Unmarshal([]byte(captureJSON), &cap))
	cap.Amount = Amount{CurrencyCode: "EUR", Value: decimal.RequireFromString("20.00")}
	cap.SellerReceivableBreakdown.GrossAmount = Amount{CurrencyCode: "USD", Value: decimal.RequireFromString("21.80")}
	cap.SellerReceivableBreakdown.NetAmount = Amount{CurrencyCode: "USD", Value: decimal.RequireFromString("21.05")}
	require.NoError(t, json.Unmarshal(
		[]byte(`{"source_currency":"EUR","target_currency":"USD","value":"1.09"}`),
		&cap.SellerReceivableBreakdown.ExchangeRate,
	))

	ev, err := FromCapture(&cap, nil, money.USD)
	require.NoError(t, err)

	assert.Equal(t, money.EUR, ev.TransactionOriginalCurrency)
	assert.True(t, ev.TransactionOriginalAmount.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, ev.TransactionAmount.Equal(decimal.RequireFromString("21.80")))
	require.NotNil(t, ev.TransactionExchangeRate)
	assert.True(t, ev.TransactionExchangeRate.Equal(decimal.RequireFromString("1.09")))
}

func TestFromCaptureFailed(t *testing.T) {
	t.Parallel()
	var cap Capture
	require.NoError(t, json.Unmarshal([]byte(captureJSON), &cap))
	cap.Status = "DECLINED"

	ev, err := FromCapture(&cap, nil, money.USD)
	require.NoError(t, err)
	assert.False(t, ev.TransactionSuccess)
}

func TestFromSubscriptionCreated(t *testing.T) {
	t.Parallel()
	sub := &Subscription{
		ID:              "I-SUB1",
		Status:          "ACTIVE",
		PlanID:          "P-1",
		StartTime:       "2024-03-01T00:00:00Z",
		CustomID:        "camp-77",
		BillingInterval: "MONTH",
		Subscriber: &Subscriber{
			PayerID:      "PAYER1",
			EmailAddress: "brett@example.com",
			Name:         &Name{GivenName: "Brett", Surname: "Meyer"},
		},
		BillingInfo: &BillingInfo{
			NextBillingTime: "2024-04-01T00:00:00Z",
			LastPayment: &struct {
				Amount Amount `json:"amount"`
				Time   string `json:"time"`
			}{Amount: Amount{CurrencyCode: "usd", Value: decimal.RequireFromString("25.00")}},
			CycleExecutions: []CycleExecution{
				{TenureType: "TRIAL", Sequence: 1, CyclesRemaining: 1},
			},
		},
	}

	ev, err := FromSubscriptionCreated(sub, money.USD)
	require.NoError(t, err)
	assert.Equal(t, event.KindSubscriptionCreated, ev.Kind)
	assert.Equal(t, "I-SUB1", ev.SubscriptionID)
	assert.Equal(t, "PAYER1", ev.CustomerID)
	assert.True(t, ev.SubscriptionTrialing)
	assert.Equal(t, event.IntervalMonth, ev.SubscriptionInterval)
	assert.Equal(t, money.USD, ev.SubscriptionCurrency)
	assert.Equal(t, "camp77", ev.CampaignID)
	require.NotNil(t, ev.SubscriptionNextDate)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *ev.SubscriptionNextDate)
	assert.Equal(t, "Meyer", ev.LastName)
}

func TestFromSubscriptionCanceled(t *testing.T) {
	t.Parallel()
	ev, err := FromSubscriptionCanceled(&Subscription{ID: "I-SUB1"})
	require.NoError(t, err)
	assert.Equal(t, event.KindSubscriptionClosed, ev.Kind)
	assert.Equal(t, "I-SUB1", ev.SubscriptionID)
}

func TestFromRefund(t *testing.T) {
	t.Parallel()
	refundTime := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	ev, err := FromRefund("REF1", "CAP123", refundTime)
	require.NoError(t, err)
	assert.Equal(t, event.KindRefund, ev.Kind)
	assert.Equal(t, "CAP123", ev.TransactionID)
	assert.Equal(t, "REF1", ev.RefundID)
	require.NotNil(t, ev.RefundDate)
	assert.True(t, refundTime.Equal(*ev.RefundDate))

	_, err = FromRefund("REF1", "", refundTime)
	var adaptErr *event.AdaptationError
	assert.ErrorAs(t, err, &adaptErr)
}
