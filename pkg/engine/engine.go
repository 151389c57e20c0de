// Package engine routes canonical events to the reconciliation stages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/donation"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/donor"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
)

// Engine is the per-event pipeline: validate, resolve the donor, apply the
// event to the CRM. One Engine serves all gateways; the adapters have
// already erased gateway-specific shape by the time an event arrives here.
type Engine struct {
	donors    *donor.Service
	donations *donation.Service
	logger    *slog.Logger
}

func New(donors *donor.Service, donations *donation.Service, logger *slog.Logger) *Engine {
	return &Engine{donors: donors, donations: donations, logger: logger}
}

// Process applies one event. Conflicts (out-of-order deliveries referencing
// records that don't exist) are logged and absorbed so the caller does not
// retry them; any other error is returned for retry.
func (e *Engine) Process(ctx context.Context, ev *event.CanonicalEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := e.process(ctx, ev); err != nil {
		var conflict *donation.ConflictError
		if errors.As(err, &conflict) {
			e.logger.Warn("event conflicts with CRM state, dropping",
				"kind", ev.Kind,
				"op", conflict.Op,
				"key", conflict.Key,
				"reason", conflict.Reason,
			)
			return nil
		}
		return err
	}
	return nil
}

func (e *Engine) process(ctx context.Context, ev *event.CanonicalEvent) error {
	switch ev.Kind {
	case event.KindCharge:
		if err := e.donors.Resolve(ctx, ev); err != nil {
			return err
		}
		return e.donations.CreateDonation(ctx, ev)

	case event.KindRefund:
		return e.donations.RefundDonation(ctx, ev)

	case event.KindSubscriptionCreated:
		// Paid subscriptions are recorded by their first charge. Only a
		// trialing subscription has no charge coming, so only it is
		// recorded here.
		if !ev.SubscriptionTrialing {
			e.logger.Debug("subscription creation deferred to first charge",
				"subscription_id", ev.SubscriptionID)
			return nil
		}
		if err := e.donors.Resolve(ctx, ev); err != nil {
			return err
		}
		return e.donations.ProcessSubscription(ctx, ev)

	case event.KindSubscriptionClosed:
		return e.donations.CloseRecurringDonation(ctx, ev)

	case event.KindChargeDeposited:
		return e.donations.ChargeDeposited(ctx, ev)

	default:
		return fmt.Errorf("engine: unhandled event kind %q", ev.Kind)
	}
}
