// Package memory provides an in-memory crm.Service used by tests and the
// replay tool's dry-run mode. Records are copied on the way in and out so
// callers can't mutate the store through returned pointers.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm"
)

// Store implements crm.Service backed by process memory.
type Store struct {
	mu sync.RWMutex

	accounts   map[string]*crm.Account
	contacts   map[string]*crm.Contact
	donations  map[string]*crm.Donation
	recurrings map[string]*crm.RecurringDonation

	contactByEmail          map[string]string
	donationByTransaction   map[string]string
	recurringBySubscription map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts:                make(map[string]*crm.Account),
		contacts:                make(map[string]*crm.Contact),
		donations:               make(map[string]*crm.Donation),
		recurrings:              make(map[string]*crm.RecurringDonation),
		contactByEmail:          make(map[string]string),
		donationByTransaction:   make(map[string]string),
		recurringBySubscription: make(map[string]string),
	}
}

var _ crm.Service = (*Store)(nil)

func (s *Store) FindContactByEmail(_ context.Context, email string) (*crm.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.contactByEmail[strings.ToLower(email)]
	if !ok {
		return nil, crm.ErrNotFound
	}
	return copyContact(s.contacts[id]), nil
}

func (s *Store) FindContactByID(_ context.Context, id string) (*crm.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, crm.ErrNotFound
	}
	return copyContact(c), nil
}

func (s *Store) FindDonationByTransactionID(_ context.Context, transactionID string) (*crm.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.donationByTransaction[transactionID]
	if !ok {
		return nil, crm.ErrNotFound
	}
	return copyDonation(s.donations[id]), nil
}

func (s *Store) FindDonationsByCustomerID(_ context.Context, customerID string) ([]*crm.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*crm.Donation
	for _, d := range s.donations {
		if d.CustomerID == customerID {
			out = append(out, copyDonation(d))
		}
	}
	return out, nil
}

func (s *Store) FindRecurringDonationBySubscriptionID(_ context.Context, subscriptionID string) (*crm.RecurringDonation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.recurringBySubscription[subscriptionID]
	if !ok {
		return nil, crm.ErrNotFound
	}
	return copyRecurring(s.recurrings[id]), nil
}

func (s *Store) CreateAccount(_ context.Context, a *crm.Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	cp.ID = uuid.NewString()
	s.accounts[cp.ID] = &cp
	return cp.ID, nil
}

func (s *Store) CreateContact(_ context.Context, c *crm.Contact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.ID = uuid.NewString()
	s.contacts[cp.ID] = &cp
	if cp.Email != "" {
		s.contactByEmail[strings.ToLower(cp.Email)] = cp.ID
	}
	return cp.ID, nil
}

func (s *Store) CreateDonation(_ context.Context, d *crm.Donation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyDonation(d)
	cp.ID = uuid.NewString()
	s.donations[cp.ID] = cp
	if cp.TransactionID != "" {
		s.donationByTransaction[cp.TransactionID] = cp.ID
	}
	return cp.ID, nil
}

func (s *Store) UpdateDonation(_ context.Context, d *crm.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.donations[d.ID]
	if !ok {
		return crm.ErrNotFound
	}
	if old.TransactionID != d.TransactionID {
		delete(s.donationByTransaction, old.TransactionID)
		if d.TransactionID != "" {
			s.donationByTransaction[d.TransactionID] = d.ID
		}
	}
	s.donations[d.ID] = copyDonation(d)
	return nil
}

func (s *Store) CreateRecurringDonation(_ context.Context, r *crm.RecurringDonation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyRecurring(r)
	cp.ID = uuid.NewString()
	s.recurrings[cp.ID] = cp
	if cp.SubscriptionID != "" {
		s.recurringBySubscription[cp.SubscriptionID] = cp.ID
	}
	return cp.ID, nil
}

func (s *Store) CloseRecurringDonation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurrings[id]
	if !ok {
		return crm.ErrNotFound
	}
	r.Status = crm.RecurringClosed
	return nil
}

// RecurringDonationCount reports how many recurring donation records the
// store holds, including any no longer reachable through the subscription
// index.
func (s *Store) RecurringDonationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recurrings)
}

func copyContact(c *crm.Contact) *crm.Contact {
	cp := *c
	return &cp
}

func copyDonation(d *crm.Donation) *crm.Donation {
	cp := *d
	if d.DepositDate != nil {
		t := *d.DepositDate
		cp.DepositDate = &t
	}
	if d.RefundDate != nil {
		t := *d.RefundDate
		cp.RefundDate = &t
	}
	return &cp
}

func copyRecurring(r *crm.RecurringDonation) *crm.RecurringDonation {
	cp := *r
	if r.StartDate != nil {
		t := *r.StartDate
		cp.StartDate = &t
	}
	if r.NextDate != nil {
		t := *r.NextDate
		cp.NextDate = &t
	}
	return &cp
}
