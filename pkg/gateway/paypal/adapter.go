// Package paypal adapts PayPal webhook payloads into canonical payment
// events and provides the REST client used to enrich them.
package paypal

import (
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
)

var validate = validator.New()

// FromCapture builds a charge event from a payment capture. sub is the
// owning subscription when the capture belongs to one; nil for one-time
// payments.
func FromCapture(cap *Capture, sub *Subscription, base money.Code) (*event.CanonicalEvent, error) {
	if cap == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayWallet, Reason: "capture is nil"}
	}
	if err := validate.Struct(cap); err != nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayWallet, Reason: err.Error()}
	}

	ev := &event.CanonicalEvent{
		Gateway:              event.GatewayWallet,
		Kind:                 event.KindCharge,
		TransactionID:        cap.ID,
		DepositTransactionID: cap.ID,
		TransactionSuccess:   strings.EqualFold(cap.Status, "COMPLETED"),
		CampaignID:           event.SanitizeMetadataID(cap.CustomID),
	}
	if t, err := time.Parse(time.RFC3339, cap.CreateTime); err == nil {
		ev.TransactionDate = t.UTC()
	}

	captureCurrency := money.Normalize(cap.Amount.CurrencyCode)
	ev.TransactionOriginalAmount = cap.Amount.Value
	ev.TransactionOriginalCurrency = captureCurrency

	if captureCurrency == base {
		ev.TransactionAmount = cap.Amount.Value
		if b := cap.SellerReceivableBreakdown; b != nil {
			ev.TransactionNetAmount = b.NetAmount.Value
		}
	} else if b := cap.SellerReceivableBreakdown; b != nil {
		// The receivable breakdown is already in the merchant currency.
		ev.TransactionAmount = b.GrossAmount.Value
		ev.TransactionNetAmount = b.NetAmount.Value
		if b.ExchangeRate != nil {
			rate := b.ExchangeRate.Value
			ev.TransactionExchangeRate = &rate
		}
	}

	if cap.Payer != nil {
		applyPayer(ev, cap.Payer.EmailAddress, cap.Payer.Name, nil)
	}
	if cap.SupplementaryData != nil {
		ev.SubscriptionID = cap.SupplementaryData.RelatedIDs.SubscriptionID
	}
	if sub != nil {
		applySubscription(ev, sub)
		if ev.CampaignID == "" {
			ev.CampaignID = event.SanitizeMetadataID(sub.CustomID)
		}
	}

	return ev, ev.Validate()
}

// FromSubscriptionCreated builds a subscription-created event. PayPal
// activates subscriptions on approval, so only a plan whose current cycle
// is a trial marks the event trialing.
func FromSubscriptionCreated(sub *Subscription, base money.Code) (*event.CanonicalEvent, error) {
	if sub == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayWallet, Reason: "subscription is nil"}
	}
	if err := validate.Struct(sub); err != nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayWallet, Reason: err.Error()}
	}

	ev := &event.CanonicalEvent{
		Gateway:    event.GatewayWallet,
		Kind:       event.KindSubscriptionCreated,
		CampaignID: event.SanitizeMetadataID(sub.CustomID),
	}
	applySubscription(ev, sub)
	if sub.Subscriber != nil {
		applyPayer(ev, sub.Subscriber.EmailAddress, sub.Subscriber.Name, sub.Subscriber.ShippingAddress)
		ev.CustomerID = sub.Subscriber.PayerID
	}
	return ev, ev.Validate()
}

// FromSubscriptionCanceled builds a subscription-closed event.
func FromSubscriptionCanceled(sub *Subscription) (*event.CanonicalEvent, error) {
	if sub == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayWallet, Reason: "subscription is nil"}
	}
	ev := &event.CanonicalEvent{
		Gateway:        event.GatewayWallet,
		Kind:           event.KindSubscriptionClosed,
		SubscriptionID: sub.ID,
	}
	if sub.Subscriber != nil {
		ev.CustomerID = sub.Subscriber.PayerID
	}
	return ev, ev.Validate()
}

// FromRefund builds a refund event from a PAYMENT.CAPTURE.REFUNDED
// payload. PayPal reports the refund as its own capture-like resource
// whose related order points at the refunded capture.
func FromRefund(refundID, captureID string, refundTime time.Time) (*event.CanonicalEvent, error) {
	ev := &event.CanonicalEvent{
		Gateway:       event.GatewayWallet,
		Kind:          event.KindRefund,
		TransactionID: captureID,
		RefundID:      refundID,
	}
	if !refundTime.IsZero() {
		t := refundTime.UTC()
		ev.RefundDate = &t
	}
	return ev, ev.Validate()
}

func applyPayer(ev *event.CanonicalEvent, email string, name *Name, addr *ShippingAddress) {
	if ev.Email == "" {
		ev.Email = email
	}
	if name != nil && ev.FullName == "" {
		ev.FirstName = name.GivenName
		ev.LastName = name.Surname
		ev.FullName = event.JoinName(name.GivenName, name.Surname)
	}
	if ev.FullName == "" {
		ev.FullName = "Anonymous"
		ev.FirstName = "Anonymous"
	}
	if addr != nil {
		street := addr.Address.AddressLine1
		if addr.Address.AddressLine2 != "" {
			street += ", " + addr.Address.AddressLine2
		}
		ev.Address = event.Address{
			Street:     street,
			City:       addr.Address.AdminArea2,
			State:      addr.Address.AdminArea1,
			PostalCode: addr.Address.PostalCode,
			Country:    addr.Address.CountryCode,
		}
	}
}

func applySubscription(ev *event.CanonicalEvent, sub *Subscription) {
	ev.SubscriptionID = sub.ID
	ev.SubscriptionTrialing = inTrialCycle(sub)
	ev.SubscriptionInterval = intervalFromUnit(sub.BillingInterval)

	if t, err := time.Parse(time.RFC3339, sub.StartTime); err == nil {
		start := t.UTC()
		ev.SubscriptionStartDate = &start
	}
	if sub.BillingInfo != nil {
		if t, err := time.Parse(time.RFC3339, sub.BillingInfo.NextBillingTime); err == nil {
			next := t.UTC()
			ev.SubscriptionNextDate = &next
		}
		if lp := sub.BillingInfo.LastPayment; lp != nil {
			ev.SubscriptionAmount = lp.Amount.Value
			ev.SubscriptionCurrency = money.Normalize(lp.Amount.CurrencyCode)
		}
	}
}

func inTrialCycle(sub *Subscription) bool {
	if sub.BillingInfo == nil {
		return false
	}
	for _, c := range sub.BillingInfo.CycleExecutions {
		if strings.EqualFold(c.TenureType, "TRIAL") && c.CyclesRemaining > 0 {
			return true
		}
	}
	return false
}

func intervalFromUnit(unit string) event.Interval {
	switch strings.ToUpper(unit) {
	case "YEAR":
		return event.IntervalYear
	case "WEEK":
		return event.IntervalWeek
	case "DAY":
		return event.IntervalDay
	default:
		return event.IntervalMonth
	}
}
