// Package stripepayment adapts Stripe webhook objects into canonical
// payment events. The adapter is pure: every Stripe object it needs
// (customer, subscription, balance transaction) is fetched by the caller
// and passed in, which keeps event construction testable without a live
// client.
package stripepayment

import (
	"regexp"
	"strings"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

// anonymousName stands in when neither the charge nor the customer carries
// a usable donor name.
const anonymousName = "Anonymous"

// FromCharge builds a charge event. cust, sub, and bt are optional
// enrichments; pass what the webhook burst provided. Foreign-currency
// charges take their base-currency amount and exchange rate from bt; a
// failed foreign charge has no balance transaction, so those fields stay
// unset.
func FromCharge(ch *stripe.Charge, cust *stripe.Customer, sub *stripe.Subscription, bt *stripe.BalanceTransaction, base money.Code) (*event.CanonicalEvent, error) {
	if ch == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayCard, Reason: "charge is nil"}
	}

	ev := &event.CanonicalEvent{
		Gateway:                event.GatewayCard,
		Kind:                   event.KindCharge,
		TransactionID:          ch.ID,
		DepositTransactionID:   ch.ID,
		TransactionDate:        time.Unix(ch.Created, 0).UTC(),
		TransactionSuccess:     strings.EqualFold(string(ch.Status), "succeeded"),
		TransactionDescription: ch.Description,
	}
	if ch.Customer != nil {
		ev.CustomerID = ch.Customer.ID
	}

	applyAmounts(ev, ch, bt, base)
	applyDonor(ev, ch, cust)
	if sub != nil {
		applySubscription(ev, sub)
	}
	ev.CampaignID = campaignFor(ch, sub, cust)

	return ev, ev.Validate()
}

// FromPaymentIntent builds a charge event from a payment intent, using its
// latest charge for billing and settlement detail. The intent id is the
// transaction id so refunds resolved through the intent line up.
func FromPaymentIntent(pi *stripe.PaymentIntent, cust *stripe.Customer, sub *stripe.Subscription, bt *stripe.BalanceTransaction, base money.Code) (*event.CanonicalEvent, error) {
	if pi == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayCard, Reason: "payment intent is nil"}
	}

	ev := &event.CanonicalEvent{
		Gateway:                event.GatewayCard,
		Kind:                   event.KindCharge,
		TransactionID:          pi.ID,
		TransactionDate:        time.Unix(pi.Created, 0).UTC(),
		TransactionSuccess:     strings.EqualFold(string(pi.Status), "succeeded"),
		TransactionDescription: pi.Description,
	}
	if pi.Customer != nil {
		ev.CustomerID = pi.Customer.ID
	}

	ch := pi.LatestCharge
	if ch != nil {
		ev.DepositTransactionID = ch.ID
		applyAmounts(ev, ch, bt, base)
		applyDonor(ev, ch, cust)
	} else {
		applyDonor(ev, nil, cust)
	}
	if sub != nil {
		applySubscription(ev, sub)
	}
	ev.CampaignID = campaignFor(ch, sub, cust)

	return ev, ev.Validate()
}

// FromRefund builds a refund event. The payment intent id takes precedence
// over the charge id so that intents and their charges dedupe to the same
// donation.
func FromRefund(re *stripe.Refund) (*event.CanonicalEvent, error) {
	if re == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayCard, Reason: "refund is nil"}
	}

	ev := &event.CanonicalEvent{
		Gateway:  event.GatewayCard,
		Kind:     event.KindRefund,
		RefundID: re.ID,
	}
	if re.PaymentIntent != nil && re.PaymentIntent.ID != "" {
		ev.TransactionID = re.PaymentIntent.ID
	} else if re.Charge != nil {
		ev.TransactionID = re.Charge.ID
	}
	if re.Created > 0 {
		t := time.Unix(re.Created, 0).UTC()
		ev.RefundDate = &t
	}
	return ev, ev.Validate()
}

// FromSubscriptionCreated builds a subscription-created event. Trialing is
// read off the subscription's own status, never inferred downstream.
func FromSubscriptionCreated(sub *stripe.Subscription, cust *stripe.Customer, base money.Code) (*event.CanonicalEvent, error) {
	if sub == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayCard, Reason: "subscription is nil"}
	}

	ev := &event.CanonicalEvent{
		Gateway: event.GatewayCard,
		Kind:    event.KindSubscriptionCreated,
	}
	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	applyDonor(ev, nil, cust)
	applySubscription(ev, sub)
	ev.CampaignID = campaignFor(nil, sub, cust)

	return ev, ev.Validate()
}

// FromSubscriptionCanceled builds a subscription-closed event.
func FromSubscriptionCanceled(sub *stripe.Subscription) (*event.CanonicalEvent, error) {
	if sub == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayCard, Reason: "subscription is nil"}
	}

	ev := &event.CanonicalEvent{
		Gateway:        event.GatewayCard,
		Kind:           event.KindSubscriptionClosed,
		SubscriptionID: sub.ID,
	}
	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	return ev, ev.Validate()
}

// DepositEvents builds charge-deposited events for every charge settled in
// a payout. Non-charge entries (fees, refunds, adjustments) carry no
// donation and are skipped, as are reversal refunds, which surface as
// charges with no customer.
func DepositEvents(po *stripe.Payout, bts []*stripe.BalanceTransaction) []*event.CanonicalEvent {
	var events []*event.CanonicalEvent
	for _, bt := range bts {
		kind := string(bt.Type)
		if !strings.EqualFold(kind, "charge") && !strings.EqualFold(kind, "payment") {
			continue
		}
		if bt.Source != nil && bt.Source.Charge != nil {
			ch := bt.Source.Charge
			if ch.Customer == nil || ch.Customer.ID == "" {
				continue
			}
		}
		ev, err := FromPayoutTransaction(bt, po)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// FromPayoutTransaction builds a charge-deposited event for one settled
// transaction within a payout.
func FromPayoutTransaction(bt *stripe.BalanceTransaction, po *stripe.Payout) (*event.CanonicalEvent, error) {
	if bt == nil || bt.Source == nil || po == nil {
		return nil, &event.AdaptationError{Gateway: event.GatewayCard, Reason: "payout transaction missing source"}
	}

	arrival := time.Unix(po.ArrivalDate, 0).UTC()
	ev := &event.CanonicalEvent{
		Gateway:       event.GatewayCard,
		Kind:          event.KindChargeDeposited,
		TransactionID: bt.Source.ID,
		DepositID:     po.ID,
		DepositDate:   &arrival,
	}
	return ev, ev.Validate()
}

func applyAmounts(ev *event.CanonicalEvent, ch *stripe.Charge, bt *stripe.BalanceTransaction, base money.Code) {
	chargeCurrency := money.Normalize(string(ch.Currency))
	ev.TransactionOriginalAmount = money.FromMinorUnits(ch.Amount, chargeCurrency)
	ev.TransactionOriginalCurrency = chargeCurrency

	if chargeCurrency == base {
		ev.TransactionAmount = ev.TransactionOriginalAmount
		if bt != nil {
			ev.TransactionNetAmount = money.FromMinorUnits(bt.Net, base)
		}
		return
	}

	// Settlement detail only exists once the charge succeeded; a failed
	// foreign charge keeps the base amount and rate unset.
	if bt != nil {
		ev.TransactionAmount = money.FromMinorUnits(bt.Amount, base)
		ev.TransactionNetAmount = money.FromMinorUnits(bt.Net, base)
		rate := decimal.NewFromFloat(bt.ExchangeRate)
		ev.TransactionExchangeRate = &rate
	}
}

var (
	firstNameKey = regexp.MustCompile(`(?i)first.*name`)
	lastNameKey  = regexp.MustCompile(`(?i)last.*name`)
)

func applyDonor(ev *event.CanonicalEvent, ch *stripe.Charge, cust *stripe.Customer) {
	var name, email, phone string

	if ch != nil && ch.BillingDetails != nil {
		name = ch.BillingDetails.Name
		email = ch.BillingDetails.Email
		phone = ch.BillingDetails.Phone
	}
	var metaFirst, metaLast string
	if cust != nil {
		if name == "" {
			name = cust.Name
		}
		if email == "" {
			email = cust.Email
		}
		if phone == "" {
			phone = cust.Phone
		}
		if name == "" {
			name = event.MetadataValue(cust.Metadata, "name", "full_name", "donor_name")
		}
		metaFirst = event.MetadataValueMatching(cust.Metadata, firstNameKey.MatchString)
		metaLast = event.MetadataValueMatching(cust.Metadata, lastNameKey.MatchString)
	}
	if name == "" && metaFirst == "" && metaLast == "" {
		name = anonymousName
	}

	// Explicit first/last metadata beats splitting a combined name.
	if metaFirst != "" || metaLast != "" {
		ev.FirstName, ev.LastName = metaFirst, metaLast
	} else {
		ev.FirstName, ev.LastName = event.SplitFullName(name)
	}
	if name == "" {
		name = event.JoinName(ev.FirstName, ev.LastName)
	}
	ev.FullName = name
	ev.Email = email
	ev.Phone = phone

	if addr := donorAddress(ch, cust); addr != nil {
		ev.Address = *addr
	}
}

// donorAddress picks the donor's postal address: the customer's own
// address, then the first non-default card source, then the charge's
// billing details. Cards the customer typed an address into outrank
// whatever the charge form captured.
func donorAddress(ch *stripe.Charge, cust *stripe.Customer) *event.Address {
	if cust != nil && cust.Address != nil && (cust.Address.Line1 != "" || cust.Address.City != "") {
		return stripeAddress(cust.Address)
	}
	if addr := cardSourceAddress(cust); addr != nil {
		return addr
	}
	if ch != nil && ch.BillingDetails != nil && ch.BillingDetails.Address != nil {
		return stripeAddress(ch.BillingDetails.Address)
	}
	return nil
}

func cardSourceAddress(cust *stripe.Customer) *event.Address {
	if cust == nil || cust.Sources == nil {
		return nil
	}
	var defaultID string
	if cust.DefaultSource != nil {
		defaultID = cust.DefaultSource.ID
	}
	for _, src := range cust.Sources.Data {
		if src.Card == nil || src.ID == defaultID {
			continue
		}
		card := src.Card
		if card.AddressLine1 == "" && card.AddressCity == "" {
			continue
		}
		street := card.AddressLine1
		if card.AddressLine2 != "" {
			street += ", " + card.AddressLine2
		}
		return &event.Address{
			Street:     street,
			City:       card.AddressCity,
			State:      card.AddressState,
			PostalCode: card.AddressZip,
			Country:    card.AddressCountry,
		}
	}
	return nil
}

func stripeAddress(addr *stripe.Address) *event.Address {
	street := addr.Line1
	if addr.Line2 != "" {
		street += ", " + addr.Line2
	}
	return &event.Address{
		Street:     street,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
}

func applySubscription(ev *event.CanonicalEvent, sub *stripe.Subscription) {
	ev.SubscriptionID = sub.ID
	ev.SubscriptionTrialing = strings.EqualFold(string(sub.Status), "trialing")

	if sub.TrialEnd > 0 {
		// Billing begins when the trial ends, so the schedule is dated
		// from the trial end, not from signup.
		trialEnd := time.Unix(sub.TrialEnd, 0).UTC()
		start, next := trialEnd, trialEnd
		ev.SubscriptionStartDate = &start
		ev.SubscriptionNextDate = &next
	} else {
		start := time.Unix(sub.StartDate, 0).UTC()
		ev.SubscriptionStartDate = &start
	}

	ev.SubscriptionInterval = event.IntervalMonth
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if ev.SubscriptionNextDate == nil && item.CurrentPeriodEnd > 0 {
			next := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			ev.SubscriptionNextDate = &next
		}
		if item.Price != nil {
			currency := money.Normalize(string(item.Price.Currency))
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			ev.SubscriptionAmount = money.FromMinorUnits(item.Price.UnitAmount*qty, currency)
			ev.SubscriptionCurrency = currency
			if item.Price.Recurring != nil && item.Price.Recurring.Interval != "" {
				ev.SubscriptionInterval = event.Interval(string(item.Price.Recurring.Interval))
			}
		}
	}
}

func campaignFor(ch *stripe.Charge, sub *stripe.Subscription, cust *stripe.Customer) string {
	if ch != nil {
		if c := event.CampaignFromMetadata(ch.Metadata); c != "" {
			return c
		}
	}
	if sub != nil {
		if c := event.CampaignFromMetadata(sub.Metadata); c != "" {
			return c
		}
	}
	if cust != nil {
		if c := event.CampaignFromMetadata(cust.Metadata); c != "" {
			return c
		}
	}
	return ""
}
