// Package donor resolves the person behind a payment event to CRM account
// and contact records, creating them when no existing record matches.
package donor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
)

// ResolutionError wraps a CRM failure during donor resolution.
type ResolutionError struct {
	Op  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("donor resolution: %s: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Service runs an ordered matcher cascade and falls back to creating a
// fresh account and contact, so Resolve never leaves an event ownerless.
type Service struct {
	crm      crm.Service
	matchers []Matcher
	logger   *slog.Logger
}

// NewService builds the default cascade: email match first, then gateway
// lineage.
func NewService(c crm.Service, logger *slog.Logger) *Service {
	return &Service{
		crm: c,
		matchers: []Matcher{
			&emailMatcher{crm: c},
			&lineageMatcher{crm: c},
		},
		logger: logger,
	}
}

// Resolve finds or creates the donor for ev and stamps the resolved ids
// onto the event.
func (s *Service) Resolve(ctx context.Context, ev *event.CanonicalEvent) error {
	for _, m := range s.matchers {
		match, err := m.Match(ctx, ev)
		if err != nil {
			return &ResolutionError{Op: "match", Err: err}
		}
		if match != nil {
			ev.ResolvedAccountID = match.AccountID
			ev.ResolvedContactID = match.ContactID
			return nil
		}
	}
	return s.create(ctx, ev)
}

func (s *Service) create(ctx context.Context, ev *event.CanonicalEvent) error {
	accountName := ev.LastName
	if accountName == "" {
		accountName = ev.FullName
	}
	accountID, err := s.crm.CreateAccount(ctx, &crm.Account{
		Name:    accountName,
		Address: ev.Address,
	})
	if err != nil {
		return &ResolutionError{Op: "create account", Err: err}
	}

	contactID, err := s.crm.CreateContact(ctx, &crm.Contact{
		AccountID: accountID,
		Email:     ev.Email,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
		Phone:     ev.Phone,
		Address:   ev.Address,
	})
	if err != nil {
		return &ResolutionError{Op: "create contact", Err: err}
	}

	s.logger.Info("created new donor",
		"account_id", accountID,
		"contact_id", contactID,
		"email", ev.Email,
	)
	ev.ResolvedAccountID = accountID
	ev.ResolvedContactID = contactID
	return nil
}
