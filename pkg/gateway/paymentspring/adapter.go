// Package paymentspring adapts PaymentSpring (ACH and card) records into
// canonical payment events.
package paymentspring

import (
	"time"

	"github.com/go-playground/validator"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
)

var validate = validator.New()

// FromTransaction builds a charge event. cust is the optional customer
// record; its metadata outranks the transaction's for campaign
// attribution because PaymentSpring forms attach attribution at signup.
func FromTransaction(tx *Transaction, cust *Customer, sub *Subscription, base money.Code) (*event.CanonicalEvent, error) {
	if tx == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayACH, Reason: "transaction is nil"}
	}
	if err := validate.Struct(tx); err != nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayACH, Reason: err.Error()}
	}

	failed := tx.AmountFailed > 0
	amountCents := tx.AmountSettled
	if failed {
		amountCents = tx.AmountFailed
	}
	amount := money.FromMinorUnits(amountCents, base)

	ev := &event.CanonicalEvent{
		Gateway:                     event.GatewayACH,
		Kind:                        event.KindCharge,
		TransactionID:               tx.ID,
		DepositTransactionID:        tx.ID,
		CustomerID:                  tx.CustomerID,
		TransactionSuccess:          !failed,
		TransactionAmount:           amount,
		TransactionOriginalAmount:   amount,
		TransactionOriginalCurrency: base,
		TransactionDescription:      tx.Description,
	}
	if t, err := time.Parse(time.RFC3339, tx.CreatedAt); err == nil {
		ev.TransactionDate = t.UTC()
	}

	applyDonor(ev, tx, cust)
	if sub != nil {
		applySubscription(ev, sub, base)
	}

	if cust != nil {
		if c := event.CampaignFromMetadata(cust.Metadata); c != "" {
			ev.CampaignID = c
		}
	}
	if ev.CampaignID == "" {
		ev.CampaignID = event.CampaignFromMetadata(tx.Metadata)
	}

	return ev, ev.Validate()
}

// FromTransactionRefunded builds a refund event. PaymentSpring reports a
// refund as a status change on the original transaction record, so the
// transaction id doubles as the refund id.
func FromTransactionRefunded(tx *Transaction) (*event.CanonicalEvent, error) {
	if tx == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayACH, Reason: "transaction is nil"}
	}
	if err := validate.Struct(tx); err != nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayACH, Reason: err.Error()}
	}

	ev := &event.CanonicalEvent{
		Gateway:       event.GatewayACH,
		Kind:          event.KindRefund,
		TransactionID: tx.ID,
		RefundID:      tx.ID,
		CustomerID:    tx.CustomerID,
	}
	if t, err := time.Parse(time.RFC3339, tx.CreatedAt); err == nil {
		refunded := t.UTC()
		ev.RefundDate = &refunded
	}
	return ev, ev.Validate()
}

// FromSubscriptionCanceled builds a subscription-closed event.
func FromSubscriptionCanceled(sub *Subscription) (*event.CanonicalEvent, error) {
	if sub == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayACH, Reason: "subscription is nil"}
	}
	if err := validate.Struct(sub); err != nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayACH, Reason: err.Error()}
	}
	ev := &event.CanonicalEvent{
		Gateway:        event.GatewayACH,
		Kind:           event.KindSubscriptionClosed,
		SubscriptionID: sub.ID,
		CustomerID:     sub.CustomerID,
	}
	return ev, ev.Validate()
}

func applyDonor(ev *event.CanonicalEvent, tx *Transaction, cust *Customer) {
	first, last := tx.FirstName, tx.LastName
	if first == "" && last == "" && cust != nil {
		first, last = cust.FirstName, cust.LastName
	}
	// Card and bank records only carry the owner's full name.
	if first == "" && last == "" {
		owner := tx.CardOwnerName
		if owner == "" {
			owner = tx.AccountHolder
		}
		first, last = event.SplitFullName(owner)
	}
	if first == "" && last == "" {
		first = "Anonymous"
	}
	ev.FirstName = first
	ev.LastName = last
	ev.FullName = event.JoinName(first, last)

	ev.Email = tx.Email
	ev.Phone = tx.Phone
	street := tx.Address1
	if tx.Address2 != "" {
		street += ", " + tx.Address2
	}
	addr := event.Address{
		Street:     street,
		City:       tx.City,
		State:      tx.State,
		PostalCode: tx.Zip,
		Country:    tx.Country,
	}
	if cust != nil {
		if ev.Email == "" {
			ev.Email = cust.Email
		}
		if ev.Phone == "" {
			ev.Phone = cust.Phone
		}
		if addr.Street == "" && addr.City == "" {
			custStreet := cust.Address1
			if cust.Address2 != "" {
				custStreet += ", " + cust.Address2
			}
			addr = event.Address{
				Street:     custStreet,
				City:       cust.City,
				State:      cust.State,
				PostalCode: cust.Zip,
				Country:    cust.Country,
			}
		}
	}
	ev.Address = addr
}

func applySubscription(ev *event.CanonicalEvent, sub *Subscription, base money.Code) {
	ev.SubscriptionID = sub.ID
	ev.SubscriptionAmount = money.FromMinorUnits(sub.Amount, base)
	ev.SubscriptionCurrency = base
	switch sub.Frequency {
	case "annually", "yearly":
		ev.SubscriptionInterval = event.IntervalYear
	case "weekly":
		ev.SubscriptionInterval = event.IntervalWeek
	default:
		ev.SubscriptionInterval = event.IntervalMonth
	}
}
