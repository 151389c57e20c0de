// Package donation applies canonical payment events to CRM donation and
// recurring donation records. Every operation is idempotent: redelivering
// the same gateway event reproduces the existing record instead of a
// duplicate.
package donation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
)

// ConflictError reports an event that references a record the CRM does not
// have, usually from out-of-order delivery. Callers treat it as
// non-retryable.
type ConflictError struct {
	Op     string
	Key    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("donation conflict: %s %q: %s", e.Op, e.Key, e.Reason)
}

// Service reconciles events into the CRM.
type Service struct {
	crm    crm.Service
	logger *slog.Logger
}

func NewService(c crm.Service, logger *slog.Logger) *Service {
	return &Service{crm: c, logger: logger}
}

// CreateDonation records a charge event. The gateway transaction id is the
// idempotency key: an existing successful donation makes this a no-op, an
// existing failed one is updated in place (a retried charge reuses the
// transaction id at some gateways). Recurring charges are attached to
// their schedule, creating it lazily when the charge arrives first.
func (s *Service) CreateDonation(ctx context.Context, ev *event.CanonicalEvent) error {
	existing, err := s.crm.FindDonationByTransactionID(ctx, ev.TransactionID)
	if err != nil && !errors.Is(err, crm.ErrNotFound) {
		return err
	}
	if existing != nil {
		if existing.Status == crm.DonationSuccessful {
			s.logger.Debug("duplicate successful donation suppressed",
				"transaction_id", ev.TransactionID)
			return nil
		}
		s.applyCharge(existing, ev)
		return s.crm.UpdateDonation(ctx, existing)
	}

	d := &crm.Donation{
		AccountID:  ev.ResolvedAccountID,
		ContactID:  ev.ResolvedContactID,
		CustomerID: ev.CustomerID,
		Gateway:    ev.Gateway,
	}
	s.applyCharge(d, ev)

	if ev.Recurring() {
		recurringID, err := s.findOrCreateRecurring(ctx, ev)
		if err != nil {
			return err
		}
		d.RecurringDonationID = recurringID
	}

	id, err := s.crm.CreateDonation(ctx, d)
	if err != nil {
		return err
	}
	s.logger.Info("donation created",
		"donation_id", id,
		"transaction_id", ev.TransactionID,
		"status", d.Status,
		"amount", d.Amount,
	)
	return nil
}

func (s *Service) applyCharge(d *crm.Donation, ev *event.CanonicalEvent) {
	d.TransactionID = ev.TransactionID
	d.DepositTransactionID = ev.DepositTransactionID
	d.Amount = ev.TransactionAmount
	d.NetAmount = ev.TransactionNetAmount
	d.Currency = ev.TransactionOriginalCurrency
	d.CampaignID = ev.CampaignID
	d.Date = ev.TransactionDate
	d.Description = ev.TransactionDescription
	if ev.TransactionSuccess {
		d.Status = crm.DonationSuccessful
	} else {
		d.Status = crm.DonationFailed
	}
}

// RefundDonation marks the refunded donation. A refund for a transaction
// the CRM never saw is a conflict, not an error to retry.
func (s *Service) RefundDonation(ctx context.Context, ev *event.CanonicalEvent) error {
	d, err := s.crm.FindDonationByTransactionID(ctx, ev.TransactionID)
	if errors.Is(err, crm.ErrNotFound) {
		return &ConflictError{Op: "refund", Key: ev.TransactionID, Reason: "no donation for refunded transaction"}
	}
	if err != nil {
		return err
	}
	if d.Status == crm.DonationRefunded {
		s.logger.Debug("duplicate refund suppressed", "transaction_id", ev.TransactionID)
		return nil
	}
	d.Status = crm.DonationRefunded
	d.RefundID = ev.RefundID
	d.RefundDate = ev.RefundDate
	if err := s.crm.UpdateDonation(ctx, d); err != nil {
		return err
	}
	s.logger.Info("donation refunded", "donation_id", d.ID, "refund_id", ev.RefundID)
	return nil
}

// ProcessSubscription handles a subscription-created event. Only trialing
// subscriptions are recorded at creation time; paid subscriptions wait for
// their first charge, which avoids racing the charge event that usually
// arrives in the same webhook burst.
func (s *Service) ProcessSubscription(ctx context.Context, ev *event.CanonicalEvent) error {
	_, err := s.crm.FindRecurringDonationBySubscriptionID(ctx, ev.SubscriptionID)
	if err == nil {
		s.logger.Debug("recurring donation already exists", "subscription_id", ev.SubscriptionID)
		return nil
	}
	if !errors.Is(err, crm.ErrNotFound) {
		return err
	}
	_, err = s.createRecurring(ctx, ev)
	return err
}

// CloseRecurringDonation ends the schedule for a canceled subscription. A
// close for an unknown subscription is logged and dropped, the gateway may
// cancel subscriptions this system never ingested.
func (s *Service) CloseRecurringDonation(ctx context.Context, ev *event.CanonicalEvent) error {
	r, err := s.crm.FindRecurringDonationBySubscriptionID(ctx, ev.SubscriptionID)
	if errors.Is(err, crm.ErrNotFound) {
		s.logger.Warn("close for unknown subscription skipped", "subscription_id", ev.SubscriptionID)
		return nil
	}
	if err != nil {
		return err
	}
	if r.Status == crm.RecurringClosed {
		return nil
	}
	if err := s.crm.CloseRecurringDonation(ctx, r.ID); err != nil {
		return err
	}
	s.logger.Info("recurring donation closed", "recurring_id", r.ID, "subscription_id", ev.SubscriptionID)
	return nil
}

// ChargeDeposited stamps payout details onto the matching donation.
func (s *Service) ChargeDeposited(ctx context.Context, ev *event.CanonicalEvent) error {
	d, err := s.crm.FindDonationByTransactionID(ctx, ev.TransactionID)
	if errors.Is(err, crm.ErrNotFound) {
		return &ConflictError{Op: "deposit", Key: ev.TransactionID, Reason: "no donation for deposited transaction"}
	}
	if err != nil {
		return err
	}
	if d.DepositID == ev.DepositID {
		return nil
	}
	d.DepositID = ev.DepositID
	d.DepositDate = ev.DepositDate
	return s.crm.UpdateDonation(ctx, d)
}

func (s *Service) findOrCreateRecurring(ctx context.Context, ev *event.CanonicalEvent) (string, error) {
	r, err := s.crm.FindRecurringDonationBySubscriptionID(ctx, ev.SubscriptionID)
	if err == nil {
		return r.ID, nil
	}
	if !errors.Is(err, crm.ErrNotFound) {
		return "", err
	}
	return s.createRecurring(ctx, ev)
}

func (s *Service) createRecurring(ctx context.Context, ev *event.CanonicalEvent) (string, error) {
	id, err := s.crm.CreateRecurringDonation(ctx, &crm.RecurringDonation{
		AccountID:      ev.ResolvedAccountID,
		ContactID:      ev.ResolvedContactID,
		SubscriptionID: ev.SubscriptionID,
		CustomerID:     ev.CustomerID,
		Gateway:        ev.Gateway,
		Amount:         ev.SubscriptionAmount,
		Currency:       ev.SubscriptionCurrency,
		Interval:       ev.SubscriptionInterval,
		StartDate:      ev.SubscriptionStartDate,
		NextDate:       ev.SubscriptionNextDate,
		Status:         crm.RecurringActive,
		CampaignID:     ev.CampaignID,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("recurring donation created",
		"recurring_id", id,
		"subscription_id", ev.SubscriptionID,
		"interval", ev.SubscriptionInterval,
	)
	return id, nil
}
