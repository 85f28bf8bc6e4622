// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"partnerledger/internal/models"
)

// TransactionQuery narrows a transaction listing. The zero value matches
// everything. Results are always ordered most-recently-created first.
type TransactionQuery struct {
	// PartnerID, when non-empty, restricts results to records owned by
	// that partner. Role scoping is the service layer's job; the store
	// only filters.
	PartnerID string
}

// Store defines the persistence contract for transactions and the user
// directory. Two SQL backends (sqlite, postgres) and an in-memory one
// implement it; the service layer never depends on a concrete backend's
// query semantics.
//
// Implementations map backend failures to errs.ErrPersistence and missing
// rows to errs.ErrNotFound.
type Store interface {
	// CreateTransaction persists a new record, assigning ID and
	// CreatedAt when unset.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// GetTransaction retrieves a record by id.
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)

	// UpdateTransaction applies the non-nil patch fields to an existing
	// record and returns the updated record. CreatedAt is never touched.
	UpdateTransaction(ctx context.Context, id string, patch models.TransactionPatch) (*models.Transaction, error)

	// DeleteTransaction removes a record by id.
	DeleteTransaction(ctx context.Context, id string) error

	// ListTransactions returns records matching the query, newest first.
	ListTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error)

	// CreateUser persists a new directory account, assigning ID and
	// CreatedAt when unset.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves an account by login email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves an account by id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// ListUsersByRole returns all accounts holding the given role, in
	// retrieval order.
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
