// Package memory provides an in-memory implementation of storage.Store.
// It backs unit tests and runs the server without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"partnerledger/internal/errs"
	"partnerledger/internal/models"
	"partnerledger/internal/storage"
)

// Compile-time check: Store implements storage.Store.
var _ storage.Store = (*Store)(nil)

// Store is a mutex-guarded in-memory store, safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction
	seq          map[string]int64 // insertion order, breaks CreatedAt ties
	nextSeq      int64
	users        map[string]*models.User
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		transactions: make(map[string]*models.Transaction),
		seq:          make(map[string]int64),
		users:        make(map[string]*models.User),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// CreateTransaction stores a copy of the record, assigning ID and
// CreatedAt when unset.
func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UnixMilli()
	}

	s.nextSeq++
	s.seq[t.ID] = s.nextSeq
	s.transactions[t.ID] = t.Clone()
	return nil
}

// GetTransaction returns a copy of the record with the given id.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, errs.NotFoundf("transaction %s", id)
	}
	return t.Clone(), nil
}

// UpdateTransaction applies the non-nil patch fields in place.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch models.TransactionPatch) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, errs.NotFoundf("transaction %s", id)
	}

	patch.ApplyTo(t)
	if patch.TotalExpenses != nil {
		t.TotalExpenses = *patch.TotalExpenses
	}
	if patch.NetProfit != nil {
		t.NetProfit = *patch.NetProfit
	}
	if patch.PartnerShare != nil {
		t.PartnerShare = *patch.PartnerShare
	}
	if patch.CounterpartyShare != nil {
		t.CounterpartyShare = *patch.CounterpartyShare
	}
	return t.Clone(), nil
}

// DeleteTransaction removes the record with the given id.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return errs.NotFoundf("transaction %s", id)
	}
	delete(s.transactions, id)
	delete(s.seq, id)
	return nil
}

// ListTransactions returns copies of matching records, newest first.
func (s *Store) ListTransactions(ctx context.Context, q storage.TransactionQuery) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, t := range s.transactions {
		if q.PartnerID != "" && t.PartnerID != q.PartnerID {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

// CreateUser stores a copy of the account, assigning ID and CreatedAt
// when unset.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().UnixMilli()
	}

	dup := *user
	s.users[user.ID] = &dup
	return nil
}

// GetUserByEmail returns the account with the given login email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			dup := *u
			return &dup, nil
		}
	}
	return nil, errs.NotFoundf("user %s", email)
}

// GetUserByID returns the account with the given id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errs.NotFoundf("user %s", id)
	}
	dup := *u
	return &dup, nil
}

// ListUsersByRole returns all accounts holding the given role.
func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}
