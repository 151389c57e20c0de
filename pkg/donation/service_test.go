package donation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm/memory"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(store crm.Service) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func chargeEvent(txID string) *event.CanonicalEvent {
	return &event.CanonicalEvent{
		Gateway:                     event.GatewayCard,
		Kind:                        event.KindCharge,
		TransactionID:               txID,
		CustomerID:                  "cus_1",
		TransactionAmount:           decimal.NewFromInt(25),
		TransactionNetAmount:        decimal.RequireFromString("23.97"),
		TransactionOriginalCurrency: money.USD,
		TransactionSuccess:          true,
		TransactionDate:             time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ResolvedAccountID:           "acc_1",
		ResolvedContactID:           "con_1",
	}
}

func TestCreateDonationIdempotent(t *testing.T) {
	t.Parallel()
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.CreateDonation(ctx, chargeEvent("ch_1")))
	// redelivery of the same charge is a silent no-op
	require.NoError(t, svc.CreateDonation(ctx, chargeEvent("ch_1")))

	all, err := store.FindDonationsByCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, crm.DonationSuccessful, all[0].Status)
	assert.True(t, all[0].Amount.Equal(decimal.NewFromInt(25)))
}

func TestCreateDonationRetriedChargeUpdatesFailure(t *testing.T) {
	t.Parallel()
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	failed := chargeEvent("ch_1")
	failed.TransactionSuccess = false
	require.NoError(t, svc.CreateDonation(ctx, failed))

	d, err := store.FindDonationByTransactionID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, crm.DonationFailed, d.Status)

	require.NoError(t, svc.CreateDonation(ctx, chargeEvent("ch_1")))
	d, err = store.FindDonationByTransactionID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, crm.DonationSuccessful, d.Status)

	all, err := store.FindDonationsByCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateDonationLazilyCreatesRecurring(t *testing.T) {
	t.Parallel()
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	ev := chargeEvent("ch_1")
	ev.SubscriptionID = "sub_1"
	ev.SubscriptionAmount = decimal.NewFromInt(25)
	ev.SubscriptionCurrency = money.USD
	ev.SubscriptionInterval = event.IntervalMonth
	require.NoError(t, svc.CreateDonation(ctx, ev))

	r, err := store.FindRecurringDonationBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, crm.RecurringActive, r.Status)

	d, err := store.FindDonationByTransactionID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, d.RecurringDonationID)

	// second charge on the same schedule reuses the record
	ev2 := chargeEvent("ch_2")
	ev2.SubscriptionID = "sub_1"
	require.NoError(t, svc.CreateDonation(ctx, ev2))
	d2, err := store.FindDonationByTransactionID(ctx, "ch_2")
	require.NoError(t, err)
	assert.Equal(t, r.ID, d2.RecurringDonationID)
}

func TestRefundDonation(t *testing.T) {
	t.Parallel()
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.CreateDonation(ctx, chargeEvent("ch_1")))

	refundDate := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	refund := &event.CanonicalEvent{
		Kind:          event.KindRefund,
		TransactionID: "ch_1",
		RefundID:      "re_1",
		RefundDate:    &refundDate,
	}
	require.NoError(t, svc.RefundDonation(ctx, refund))

	d, err := store.FindDonationByTransactionID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, crm.DonationRefunded, d.Status)
	assert.Equal(t, "re_1", d.RefundID)
	require.NotNil(t, d.RefundDate)
	assert.True(t, refundDate.Equal(*d.RefundDate))

	// redelivery is suppressed
	require.NoError(t, svc.RefundDonation(ctx, refund))
}

func TestRefundUnknownTransactionIsConflict(t *testing.T) {
	t.Parallel()
	svc := newService(memory.New())

	err := svc.RefundDonation(context.Background(), &event.CanonicalEvent{
		Kind:          event.KindRefund,
		TransactionID: "ch_missing",
		RefundID:      "re_1",
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "refund", conflict.Op)
}

func TestProcessSubscriptionIdempotent(t *testing.T) {
	t.Parallel()
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	ev := &event.CanonicalEvent{
		Kind:                  event.KindSubscriptionCreated,
		SubscriptionID:        "sub_trial",
		SubscriptionAmount:    decimal.NewFromInt(10),
		SubscriptionCurrency:  money.USD,
		SubscriptionInterval:  event.IntervalMonth,
		SubscriptionStartDate: &start,
		SubscriptionTrialing:  true,
		ResolvedAccountID:     "acc_1",
		ResolvedContactID:     "con_1",
	}
	require.NoError(t, svc.ProcessSubscription(ctx, ev))
	require.NoError(t, svc.ProcessSubscription(ctx, ev))

	r, err := store.FindRecurringDonationBySubscriptionID(ctx, "sub_trial")
	require.NoError(t, err)
	assert.Equal(t, crm.RecurringActive, r.Status)
}

func TestCloseRecurringDonation(t *testing.T) {
	t.Parallel()
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	_, err := store.CreateRecurringDonation(ctx, &crm.RecurringDonation{
		SubscriptionID: "sub_1",
		Status:         crm.RecurringActive,
	})
	require.NoError(t, err)

	closeEv := &event.CanonicalEvent{Kind: event.KindSubscriptionClosed, SubscriptionID: "sub_1"}
	require.NoError(t, svc.CloseRecurringDonation(ctx, closeEv))

	r, err := store.FindRecurringDonationBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, crm.RecurringClosed, r.Status)

	// unknown subscription is dropped, not errored
	require.NoError(t, svc.CloseRecurringDonation(ctx, &event.CanonicalEvent{
		Kind:           event.KindSubscriptionClosed,
		SubscriptionID: "sub_unknown",
	}))
}

func TestChargeDeposited(t *testing.T) {
	t.Parallel()
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.CreateDonation(ctx, chargeEvent("ch_1")))

	depositDate := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	ev := &event.CanonicalEvent{
		Kind:          event.KindChargeDeposited,
		TransactionID: "ch_1",
		DepositID:     "po_1",
		DepositDate:   &depositDate,
	}
	require.NoError(t, svc.ChargeDeposited(ctx, ev))

	d, err := store.FindDonationByTransactionID(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, "po_1", d.DepositID)
	require.NotNil(t, d.DepositDate)
	assert.True(t, depositDate.Equal(*d.DepositDate))

	// deposit for a transaction never ingested is a conflict
	err = svc.ChargeDeposited(ctx, &event.CanonicalEvent{
		Kind:          event.KindChargeDeposited,
		TransactionID: "ch_missing",
		DepositID:     "po_1",
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "deposit", conflict.Op)
}
