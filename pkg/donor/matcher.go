package donor

import (
	"context"
	"errors"
	"strings"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
)

// Match identifies the existing CRM records an event belongs to.
type Match struct {
	AccountID string
	ContactID string
}

// Matcher attempts one resolution strategy. A nil result with a nil error
// means the strategy found nothing and the cascade moves on.
type Matcher interface {
	Match(ctx context.Context, ev *event.CanonicalEvent) (*Match, error)
}

// emailMatcher resolves the donor by exact contact email.
type emailMatcher struct {
	crm crm.Service
}

func (m *emailMatcher) Match(ctx context.Context, ev *event.CanonicalEvent) (*Match, error) {
	if ev.Email == "" {
		return nil, nil
	}
	c, err := m.crm.FindContactByEmail(ctx, ev.Email)
	if errors.Is(err, crm.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Match{AccountID: c.AccountID, ContactID: c.ID}, nil
}

// lineageMatcher resolves the donor through prior gateway activity: the
// recurring donation owning the event's subscription, or earlier donations
// from the same gateway customer. Customer lineage is constrained by a
// case-insensitive last-name comparison so a shared card (spouse, employer)
// does not collapse two donors into one.
type lineageMatcher struct {
	crm crm.Service
}

func (m *lineageMatcher) Match(ctx context.Context, ev *event.CanonicalEvent) (*Match, error) {
	if ev.SubscriptionID != "" {
		r, err := m.crm.FindRecurringDonationBySubscriptionID(ctx, ev.SubscriptionID)
		if err == nil {
			return &Match{AccountID: r.AccountID, ContactID: r.ContactID}, nil
		}
		if !errors.Is(err, crm.ErrNotFound) {
			return nil, err
		}
	}

	if ev.CustomerID == "" {
		return nil, nil
	}
	donations, err := m.crm.FindDonationsByCustomerID(ctx, ev.CustomerID)
	if err != nil {
		return nil, err
	}
	for _, d := range donations {
		if d.ContactID == "" {
			continue
		}
		c, err := m.crm.FindContactByID(ctx, d.ContactID)
		if errors.Is(err, crm.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if ev.LastName == "" || strings.EqualFold(c.LastName, ev.LastName) {
			return &Match{AccountID: d.AccountID, ContactID: d.ContactID}, nil
		}
	}
	return nil, nil
}
