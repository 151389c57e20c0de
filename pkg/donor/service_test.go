package donor

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm/memory"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveByEmail(t *testing.T) {
	t.Parallel()
	store := memory.New()
	ctx := context.Background()

	accountID, err := store.CreateAccount(ctx, &crm.Account{Name: "Meyer"})
	require.NoError(t, err)
	contactID, err := store.CreateContact(ctx, &crm.Contact{
		AccountID: accountID,
		Email:     "brett@example.com",
		LastName:  "Meyer",
	})
	require.NoError(t, err)

	svc := NewService(store, testLogger())
	ev := &event.CanonicalEvent{Email: "brett@example.com", LastName: "Meyer"}
	require.NoError(t, svc.Resolve(ctx, ev))

	assert.Equal(t, accountID, ev.ResolvedAccountID)
	assert.Equal(t, contactID, ev.ResolvedContactID)
}

func TestResolveBySubscriptionLineage(t *testing.T) {
	t.Parallel()
	store := memory.New()
	ctx := context.Background()

	accountID, _ := store.CreateAccount(ctx, &crm.Account{Name: "Lovelace"})
	contactID, _ := store.CreateContact(ctx, &crm.Contact{AccountID: accountID, LastName: "Lovelace"})
	_, err := store.CreateRecurringDonation(ctx, &crm.RecurringDonation{
		AccountID:      accountID,
		ContactID:      contactID,
		SubscriptionID: "sub_1",
		Status:         crm.RecurringActive,
	})
	require.NoError(t, err)

	svc := NewService(store, testLogger())
	// no email on the event, lineage must carry it
	ev := &event.CanonicalEvent{SubscriptionID: "sub_1"}
	require.NoError(t, svc.Resolve(ctx, ev))

	assert.Equal(t, accountID, ev.ResolvedAccountID)
	assert.Equal(t, contactID, ev.ResolvedContactID)
}

func TestResolveCustomerLineageRequiresNameAgreement(t *testing.T) {
	t.Parallel()
	store := memory.New()
	ctx := context.Background()

	accountID, _ := store.CreateAccount(ctx, &crm.Account{Name: "Meyer"})
	contactID, _ := store.CreateContact(ctx, &crm.Contact{AccountID: accountID, LastName: "Meyer"})
	_, err := store.CreateDonation(ctx, &crm.Donation{
		AccountID:     accountID,
		ContactID:     contactID,
		TransactionID: "ch_prior",
		CustomerID:    "cus_1",
		Status:        crm.DonationSuccessful,
	})
	require.NoError(t, err)

	svc := NewService(store, testLogger())

	// same customer, matching last name (case-insensitive)
	ev := &event.CanonicalEvent{CustomerID: "cus_1", LastName: "MEYER"}
	require.NoError(t, svc.Resolve(ctx, ev))
	assert.Equal(t, contactID, ev.ResolvedContactID)

	// same customer, different last name: a new donor is created
	ev2 := &event.CanonicalEvent{CustomerID: "cus_1", FirstName: "Jane", LastName: "Smith"}
	require.NoError(t, svc.Resolve(ctx, ev2))
	assert.NotEmpty(t, ev2.ResolvedContactID)
	assert.NotEqual(t, contactID, ev2.ResolvedContactID)
}

func TestResolveCreatesWhenNothingMatches(t *testing.T) {
	t.Parallel()
	store := memory.New()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	ev := &event.CanonicalEvent{
		Email:     "new@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Address:   event.Address{City: "London", Country: "GB"},
	}
	require.NoError(t, svc.Resolve(ctx, ev))
	require.NotEmpty(t, ev.ResolvedAccountID)
	require.NotEmpty(t, ev.ResolvedContactID)

	c, err := store.FindContactByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, ev.ResolvedContactID, c.ID)
	assert.Equal(t, "London", c.Address.City)

	// a second event for the same donor reuses the records
	ev2 := &event.CanonicalEvent{Email: "new@example.com", LastName: "Lovelace"}
	require.NoError(t, svc.Resolve(ctx, ev2))
	assert.Equal(t, ev.ResolvedContactID, ev2.ResolvedContactID)
}
