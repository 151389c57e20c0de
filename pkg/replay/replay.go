// Package replay walks a gateway's historical charges and re-ingests the
// ones the CRM is missing. It is the recovery path for dropped webhooks.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/engine"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/gateway/stripepayment"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
	"github.com/stripe/stripe-go/v82"
)

// ChargeSource lists historical charges and the lookups needed to enrich
// them. *stripepayment.Client satisfies it.
type ChargeSource interface {
	ListCharges(ctx context.Context, from, to time.Time) ([]*stripe.Charge, error)
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	GetBalanceTransaction(ctx context.Context, id string) (*stripe.BalanceTransaction, error)
}

// Report summarizes one replay pass.
type Report struct {
	Checked    int
	Missing    int
	Replayed   int
	MissingIDs []string
}

// Replayer compares gateway history against the CRM.
type Replayer struct {
	source ChargeSource
	crm    crm.Service
	engine *engine.Engine
	base   money.Code
	dryRun bool
	logger *slog.Logger
}

// New builds a replayer. With dryRun set it only reports what is missing.
func New(source ChargeSource, c crm.Service, eng *engine.Engine, base money.Code, dryRun bool, logger *slog.Logger) *Replayer {
	return &Replayer{
		source: source,
		crm:    c,
		engine: eng,
		base:   base,
		dryRun: dryRun,
		logger: logger,
	}
}

// Replay checks every charge created in [from, to] against the CRM and
// re-ingests the missing ones.
func (r *Replayer) Replay(ctx context.Context, from, to time.Time) (*Report, error) {
	charges, err := r.source.ListCharges(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("replay: list charges: %w", err)
	}

	report := &Report{}
	for _, ch := range charges {
		report.Checked++
		_, err := r.crm.FindDonationByTransactionID(ctx, ch.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, crm.ErrNotFound) {
			return nil, fmt.Errorf("replay: lookup %s: %w", ch.ID, err)
		}

		report.Missing++
		report.MissingIDs = append(report.MissingIDs, ch.ID)
		if r.dryRun {
			r.logger.Info("charge missing from CRM", "charge_id", ch.ID)
			continue
		}

		ev, err := r.adapt(ctx, ch)
		if err != nil {
			r.logger.Error("failed to adapt charge, skipping", "charge_id", ch.ID, "error", err)
			continue
		}
		if err := r.engine.Process(ctx, ev); err != nil {
			return report, fmt.Errorf("replay: process %s: %w", ch.ID, err)
		}
		report.Replayed++
		r.logger.Info("charge replayed", "charge_id", ch.ID)
	}

	r.logger.Info("replay finished",
		"checked", report.Checked,
		"missing", report.Missing,
		"replayed", report.Replayed,
		"dry_run", r.dryRun,
	)
	return report, nil
}

func (r *Replayer) adapt(ctx context.Context, ch *stripe.Charge) (*event.CanonicalEvent, error) {
	var cust *stripe.Customer
	if ch.Customer != nil && ch.Customer.ID != "" {
		c, err := r.source.GetCustomer(ctx, ch.Customer.ID)
		if err != nil {
			r.logger.Warn("customer lookup failed, adapting without it",
				"charge_id", ch.ID, "customer_id", ch.Customer.ID, "error", err)
		} else {
			cust = c
		}
	}

	var bt *stripe.BalanceTransaction
	if ch.BalanceTransaction != nil && ch.BalanceTransaction.ID != "" {
		b, err := r.source.GetBalanceTransaction(ctx, ch.BalanceTransaction.ID)
		if err != nil {
			r.logger.Warn("balance transaction lookup failed, adapting without it",
				"charge_id", ch.ID, "balance_transaction_id", ch.BalanceTransaction.ID, "error", err)
		} else {
			bt = b
		}
	}

	return stripepayment.FromCharge(ch, cust, nil, bt, r.base)
}
