package paymentspring

import (
	"testing"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settledTx() *Transaction {
	return &Transaction{
		ID:            "txn_1",
		CustomerID:    "cust_1",
		AmountSettled: 2500,
		CreatedAt:     "2024-03-01T12:00:00Z",
		Email:         "brett@example.com",
		FirstName:     "Brett",
		LastName:      "Meyer",
		Address1:      "123 Main St",
		City:          "Fishers",
		State:         "IN",
		Zip:           "46038",
		Country:       "US",
	}
}

func TestFromTransactionSettled(t *testing.T) {
	t.Parallel()
	ev, err := FromTransaction(settledTx(), nil, nil, money.USD)
	require.NoError(t, err)

	assert.Equal(t, event.GatewayACH, ev.Gateway)
	assert.Equal(t, "txn_1", ev.TransactionID)
	assert.Equal(t, "cust_1", ev.CustomerID)
	assert.True(t, ev.TransactionSuccess)
	assert.True(t, ev.TransactionAmount.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, money.USD, ev.TransactionOriginalCurrency)
	assert.Equal(t, "Meyer", ev.LastName)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ev.TransactionDate)
}

func TestFromTransactionFailed(t *testing.T) {
	t.Parallel()
	tx := settledTx()
	tx.AmountSettled = 0
	tx.AmountFailed = 2500

	ev, err := FromTransaction(tx, nil, nil, money.USD)
	require.NoError(t, err)
	assert.False(t, ev.TransactionSuccess)
	assert.True(t, ev.TransactionAmount.Equal(decimal.RequireFromString("25")))
}

func TestFromTransactionNameFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Transaction)
		wantFirst string
		wantLast  string
	}{
		{
			name:      "card owner name split",
			mutate:    func(tx *Transaction) { tx.FirstName, tx.LastName = "", ""; tx.CardOwnerName = "Brett The Dork Meyer" },
			wantFirst: "Brett The Dork",
			wantLast:  "Meyer",
		},
		{
			name:      "account holder name",
			mutate:    func(tx *Transaction) { tx.FirstName, tx.LastName = "", ""; tx.AccountHolder = "Ada Lovelace" },
			wantFirst: "Ada",
			wantLast:  "Lovelace",
		},
		{
			name:      "no name anywhere",
			mutate:    func(tx *Transaction) { tx.FirstName, tx.LastName = "", "" },
			wantFirst: "Anonymous",
			wantLast:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tx := settledTx()
			tt.mutate(tx)
			ev, err := FromTransaction(tx, nil, nil, money.USD)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFirst, ev.FirstName)
			assert.Equal(t, tt.wantLast, ev.LastName)
		})
	}
}

func TestFromTransactionCampaignPrecedence(t *testing.T) {
	t.Parallel()
	tx := settledTx()
	tx.Metadata = map[string]string{"campaign": "tx-camp"}
	cust := &Customer{ID: "cust_1", Metadata: map[string]string{"campaign": "cust-camp"}}

	ev, err := FromTransaction(tx, cust, nil, money.USD)
	require.NoError(t, err)
	assert.Equal(t, "custcamp", ev.CampaignID)

	cust.Metadata = nil
	ev, err = FromTransaction(tx, cust, nil, money.USD)
	require.NoError(t, err)
	assert.Equal(t, "txcamp", ev.CampaignID)
}

func TestFromTransactionWithSubscription(t *testing.T) {
	t.Parallel()
	sub := &Subscription{ID: "plan_sub_1", CustomerID: "cust_1", Frequency: "annually", Amount: 2500}

	ev, err := FromTransaction(settledTx(), nil, sub, money.USD)
	require.NoError(t, err)
	assert.Equal(t, "plan_sub_1", ev.SubscriptionID)
	assert.True(t, ev.Recurring())
	assert.Equal(t, event.IntervalYear, ev.SubscriptionInterval)
	assert.True(t, ev.SubscriptionAmount.Equal(decimal.RequireFromString("25")))
}

func TestFromTransactionRefunded(t *testing.T) {
	t.Parallel()
	tx := settledTx()
	ev, err := FromTransactionRefunded(tx)
	require.NoError(t, err)

	assert.Equal(t, event.KindRefund, ev.Kind)
	assert.Equal(t, "txn_1", ev.TransactionID)
	assert.Equal(t, "txn_1", ev.RefundID)
	assert.Equal(t, "cust_1", ev.CustomerID)
	require.NotNil(t, ev.RefundDate)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), *ev.RefundDate)

	_, err = FromTransactionRefunded(&Transaction{})
	var adaptErr *event.AdaptationError
	assert.ErrorAs(t, err, &adaptErr)
}

func TestFromSubscriptionCanceled(t *testing.T) {
	t.Parallel()
	ev, err := FromSubscriptionCanceled(&Subscription{ID: "plan_sub_1", CustomerID: "cust_1"})
	require.NoError(t, err)
	assert.Equal(t, event.KindSubscriptionClosed, ev.Kind)
	assert.Equal(t, "plan_sub_1", ev.SubscriptionID)
}
