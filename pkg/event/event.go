// Package event defines the canonical, gateway-agnostic representation of a
// single payment occurrence. Adapters in pkg/gateway populate a
// CanonicalEvent from gateway-native payloads; the reconciliation stages
// consume it without knowing which gateway produced it.
//
// Invariants:
//   - TransactionID is non-empty for every charge and refund event.
//   - SubscriptionID is non-empty for every subscription-lifecycle event.
//   - Amounts are decimals, never floating-point cents.
//   - The reconciliation-context fields are populated by later stages,
//     never by adapters.
package event

import (
	"fmt"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
	"github.com/shopspring/decimal"
)

// Gateway identifies the class of payment processor an event came from.
type Gateway string

const (
	// GatewayCard is a card-charge processor (Stripe).
	GatewayCard Gateway = "card"
	// GatewayACH is an ACH processor (PaymentSpring).
	GatewayACH Gateway = "ach"
	// GatewayWallet is a wallet-based processor (PayPal).
	GatewayWallet Gateway = "wallet"
)

// Kind is the tagged-union discriminator for a canonical event.
type Kind string

const (
	// KindCharge is a charge attempt, successful or failed.
	KindCharge Kind = "charge"
	// KindRefund is a refund of a previously recorded charge.
	KindRefund Kind = "refund"
	// KindSubscriptionCreated is a new recurring schedule.
	KindSubscriptionCreated Kind = "subscription_created"
	// KindSubscriptionClosed is a canceled recurring schedule.
	KindSubscriptionClosed Kind = "subscription_closed"
	// KindChargeDeposited links a settled charge to a bank payout.
	KindChargeDeposited Kind = "charge_deposited"
)

// Interval is a recurring schedule's billing interval.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
	IntervalWeek  Interval = "week"
	IntervalDay   Interval = "day"
)

// Address is a postal address as reported by a gateway.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// CanonicalEvent is the unit of work for one gateway notification. It is
// constructed per delivery and discarded after reconciliation returns; it
// carries no persistence of its own.
type CanonicalEvent struct {
	Gateway Gateway
	Kind    Kind

	// TransactionID is the gateway-scoped charge/capture identifier and the
	// primary dedup key.
	TransactionID string
	RefundID      string
	// DepositTransactionID links the charge to the settlement record that
	// will later appear in a payout.
	DepositTransactionID string
	CustomerID           string

	Email     string
	FirstName string
	LastName  string
	FullName  string
	Phone     string
	Address   Address

	TransactionDate time.Time
	// TransactionAmount is in the org's base currency. For foreign-currency
	// charges with no settlement record yet, it stays zero and
	// TransactionExchangeRate stays nil (accepted gap, not an error).
	TransactionAmount           decimal.Decimal
	TransactionOriginalAmount   decimal.Decimal
	TransactionOriginalCurrency money.Code
	TransactionExchangeRate     *decimal.Decimal
	TransactionNetAmount        decimal.Decimal
	TransactionSuccess          bool
	TransactionDescription      string

	SubscriptionID        string
	SubscriptionAmount    decimal.Decimal
	SubscriptionCurrency  money.Code
	SubscriptionInterval  Interval
	SubscriptionStartDate *time.Time
	SubscriptionNextDate  *time.Time
	// SubscriptionTrialing is stamped by the adapter from the gateway's
	// authoritative status field. It is the only input to the trial gate;
	// later stages never re-derive it.
	SubscriptionTrialing bool

	CampaignID string

	RefundDate *time.Time

	// Reconciliation context. Populated by the donor/donation stages.
	ResolvedAccountID           string
	ResolvedContactID           string
	ResolvedRecurringDonationID string
	DepositID                   string
	DepositDate                 *time.Time
}

// Recurring reports whether the event is tied to a recurring schedule.
func (e *CanonicalEvent) Recurring() bool {
	return e.SubscriptionID != ""
}

// Validate checks the per-kind identifier invariants.
func (e *CanonicalEvent) Validate() error {
	switch e.Kind {
	case KindCharge, KindChargeDeposited:
		if e.TransactionID == "" {
			return &AdaptationError{Gateway: e.Gateway, Reason: "transaction id is required"}
		}
	case KindRefund:
		if e.TransactionID == "" {
			return &AdaptationError{Gateway: e.Gateway, Reason: "refund carries no originating transaction id"}
		}
		if e.RefundID == "" {
			return &AdaptationError{Gateway: e.Gateway, Reason: "refund id is required"}
		}
	case KindSubscriptionCreated, KindSubscriptionClosed:
		if e.SubscriptionID == "" {
			return &AdaptationError{Gateway: e.Gateway, Reason: "subscription id is required"}
		}
	default:
		return &AdaptationError{Gateway: e.Gateway, Reason: fmt.Sprintf("unknown event kind %q", e.Kind)}
	}
	return nil
}

// AdaptationError reports a gateway payload with missing or malformed
// required data. No partial CanonicalEvent is ever returned alongside it,
// and it is not retried.
type AdaptationError struct {
	Gateway Gateway
	Reason  string
}

func (e *AdaptationError) Error() string {
	return fmt.Sprintf("%s gateway payload: %s", e.Gateway, e.Reason)
}
