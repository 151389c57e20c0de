// Package crm defines the external CRM surface the engine reconciles into.
// The records here are consumed, not owned: the CRM persists them, the
// engine only reads, creates, and updates them through the Service
// interface. Concrete CRM clients (field mapping, bulk upserts) live
// outside this module and implement Service.
package crm

import (
	"context"
	"errors"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by lookups when no record matches the key.
var ErrNotFound = errors.New("crm: record not found")

// DonationStatus is the lifecycle state of a donation record.
type DonationStatus string

const (
	DonationSuccessful DonationStatus = "successful"
	DonationFailed     DonationStatus = "failed"
	DonationRefunded   DonationStatus = "refunded"
)

// RecurringStatus is the lifecycle state of a recurring donation record.
type RecurringStatus string

const (
	RecurringActive RecurringStatus = "active"
	RecurringClosed RecurringStatus = "closed"
)

// Account is the grouping entity (household or organization) a contact
// belongs to.
type Account struct {
	ID      string
	Name    string
	Address event.Address
}

// Contact is the individual donor under an account.
type Contact struct {
	ID        string
	AccountID string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Address   event.Address
}

// Donation is a single financial transaction tied to a donor. There is at
// most one per gateway transaction id.
type Donation struct {
	ID                  string
	AccountID           string
	ContactID           string
	RecurringDonationID string

	TransactionID        string
	CustomerID           string
	DepositTransactionID string
	Gateway              event.Gateway

	Status      DonationStatus
	Amount      decimal.Decimal
	NetAmount   decimal.Decimal
	Currency    money.Code
	CampaignID  string
	Date        time.Time
	Description string

	DepositID   string
	DepositDate *time.Time

	RefundID   string
	RefundDate *time.Time
}

// RecurringDonation is the schedule-level record a series of donations
// rolls up to, keyed by the gateway subscription id.
type RecurringDonation struct {
	ID        string
	AccountID string
	ContactID string

	SubscriptionID string
	CustomerID     string
	Gateway        event.Gateway

	Amount    decimal.Decimal
	Currency  money.Code
	Interval  event.Interval
	StartDate *time.Time
	NextDate  *time.Time

	Status     RecurringStatus
	CampaignID string
}

// Service is the CRM interface consumed by the reconciliation stages.
// All methods must be safe to call concurrently for different keys.
// Lookups return ErrNotFound when no record matches.
type Service interface {
	FindContactByEmail(ctx context.Context, email string) (*Contact, error)
	FindContactByID(ctx context.Context, id string) (*Contact, error)
	FindDonationByTransactionID(ctx context.Context, transactionID string) (*Donation, error)
	FindDonationsByCustomerID(ctx context.Context, customerID string) ([]*Donation, error)
	FindRecurringDonationBySubscriptionID(ctx context.Context, subscriptionID string) (*RecurringDonation, error)

	CreateAccount(ctx context.Context, a *Account) (string, error)
	CreateContact(ctx context.Context, c *Contact) (string, error)
	CreateDonation(ctx context.Context, d *Donation) (string, error)
	UpdateDonation(ctx context.Context, d *Donation) error
	CreateRecurringDonation(ctx context.Context, r *RecurringDonation) (string, error)
	CloseRecurringDonation(ctx context.Context, id string) error
}
