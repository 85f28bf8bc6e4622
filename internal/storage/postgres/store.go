// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface, interchangeable with the sqlite backend.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver

	"partnerledger/internal/errs"
	"partnerledger/internal/models"
	"partnerledger/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// schema mirrors the sqlite layout. seq orders records created within the
// same millisecond; NUMERIC keeps the decimal values exact.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    role TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL,
    partner_id TEXT NOT NULL,
    partner_name TEXT NOT NULL,
    counterparty_id TEXT NOT NULL,
    counterparty_name TEXT NOT NULL,
    customer_name TEXT NOT NULL,
    tx_date TEXT NOT NULL,
    total_revenue NUMERIC NOT NULL,
    total_expenses NUMERIC NOT NULL,
    net_profit NUMERIC NOT NULL,
    partner_percentage BIGINT NOT NULL,
    counterparty_percentage BIGINT NOT NULL,
    partner_share NUMERIC NOT NULL,
    counterparty_share NUMERIC NOT NULL,
    is_paid_to_partner BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    amount NUMERIC NOT NULL,
    position BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_partner_id ON transactions(partner_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
CREATE INDEX IF NOT EXISTS idx_expenses_transaction_id ON expenses(transaction_id);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New connects to the database at dsn and ensures the schema exists.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.Persistencef("open database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.Persistencef("ping database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.Persistencef("run migrations", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const transactionColumns = `id, partner_id, partner_name, counterparty_id, counterparty_name,
	customer_name, tx_date, total_revenue, total_expenses, net_profit,
	partner_percentage, counterparty_percentage, partner_share, counterparty_share,
	is_paid_to_partner, created_at`

// CreateTransaction persists a new transaction and its expense snapshot.
func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UnixMilli()
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Persistencef("begin transaction", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		t.ID, t.PartnerID, t.PartnerName, t.CounterpartyID, t.CounterpartyName,
		t.CustomerName, t.Date, t.TotalRevenue, t.TotalExpenses, t.NetProfit,
		t.PartnerPercentage, t.CounterpartyPercentage, t.PartnerShare, t.CounterpartyShare,
		t.IsPaidToPartner, t.CreatedAt,
	)
	if err != nil {
		return errs.Persistencef("insert transaction", err)
	}

	if err := insertExpenses(ctx, dbTx, t.ID, t.Expenses); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return errs.Persistencef("commit transaction", err)
	}
	return nil
}

func insertExpenses(ctx context.Context, dbTx *sql.Tx, transactionID string, expenses []models.ExpenseItem) error {
	for i := range expenses {
		e := &expenses[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		_, err := dbTx.ExecContext(ctx,
			"INSERT INTO expenses (id, transaction_id, name, amount, position) VALUES ($1, $2, $3, $4, $5)",
			e.ID, transactionID, e.Name, e.Amount, i,
		)
		if err != nil {
			return errs.Persistencef("insert expense", err)
		}
	}
	return nil
}

// GetTransaction retrieves a transaction by id, including its expenses.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	).Scan(
		&t.ID, &t.PartnerID, &t.PartnerName, &t.CounterpartyID, &t.CounterpartyName,
		&t.CustomerName, &t.Date, &t.TotalRevenue, &t.TotalExpenses, &t.NetProfit,
		&t.PartnerPercentage, &t.CounterpartyPercentage, &t.PartnerShare, &t.CounterpartyShare,
		&t.IsPaidToPartner, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("transaction %s", id)
	}
	if err != nil {
		return nil, errs.Persistencef("get transaction", err)
	}

	if t.Expenses, err = s.loadExpenses(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) loadExpenses(ctx context.Context, transactionID string) ([]models.ExpenseItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, amount FROM expenses WHERE transaction_id = $1 ORDER BY position",
		transactionID,
	)
	if err != nil {
		return nil, errs.Persistencef("get expenses", err)
	}
	defer rows.Close()

	var expenses []models.ExpenseItem
	for rows.Next() {
		var e models.ExpenseItem
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount); err != nil {
			return nil, errs.Persistencef("scan expense", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistencef("iterate expenses", err)
	}
	return expenses, nil
}

// UpdateTransaction applies the non-nil patch fields. CreatedAt and ID are
// never written; an expense patch replaces the whole snapshot.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch models.TransactionPatch) (*models.Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Persistencef("begin transaction", err)
	}
	defer dbTx.Rollback()

	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.PartnerID != nil {
		set("partner_id", *patch.PartnerID)
	}
	if patch.PartnerName != nil {
		set("partner_name", *patch.PartnerName)
	}
	if patch.CounterpartyID != nil {
		set("counterparty_id", *patch.CounterpartyID)
	}
	if patch.CounterpartyName != nil {
		set("counterparty_name", *patch.CounterpartyName)
	}
	if patch.CustomerName != nil {
		set("customer_name", *patch.CustomerName)
	}
	if patch.Date != nil {
		set("tx_date", *patch.Date)
	}
	if patch.TotalRevenue != nil {
		set("total_revenue", *patch.TotalRevenue)
	}
	if patch.TotalExpenses != nil {
		set("total_expenses", *patch.TotalExpenses)
	}
	if patch.NetProfit != nil {
		set("net_profit", *patch.NetProfit)
	}
	if patch.PartnerPercentage != nil {
		set("partner_percentage", *patch.PartnerPercentage)
	}
	if patch.CounterpartyPercentage != nil {
		set("counterparty_percentage", *patch.CounterpartyPercentage)
	}
	if patch.PartnerShare != nil {
		set("partner_share", *patch.PartnerShare)
	}
	if patch.CounterpartyShare != nil {
		set("counterparty_share", *patch.CounterpartyShare)
	}
	if patch.IsPaidToPartner != nil {
		set("is_paid_to_partner", *patch.IsPaidToPartner)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := fmt.Sprintf("UPDATE transactions SET %s WHERE id = $%d",
			strings.Join(sets, ", "), len(args))
		res, err := dbTx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, errs.Persistencef("update transaction", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, errs.Persistencef("update transaction", err)
		}
		if affected == 0 {
			return nil, errs.NotFoundf("transaction %s", id)
		}
	} else {
		var exists int
		err := dbTx.QueryRowContext(ctx, "SELECT 1 FROM transactions WHERE id = $1", id).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, errs.NotFoundf("transaction %s", id)
		}
		if err != nil {
			return nil, errs.Persistencef("check transaction", err)
		}
	}

	if patch.Expenses != nil {
		if _, err := dbTx.ExecContext(ctx, "DELETE FROM expenses WHERE transaction_id = $1", id); err != nil {
			return nil, errs.Persistencef("clear expenses", err)
		}
		if err := insertExpenses(ctx, dbTx, id, *patch.Expenses); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, errs.Persistencef("commit transaction", err)
	}
	return s.GetTransaction(ctx, id)
}

// DeleteTransaction removes a transaction and, via cascade, its expenses.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return errs.Persistencef("delete transaction", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errs.Persistencef("delete transaction", err)
	}
	if affected == 0 {
		return errs.NotFoundf("transaction %s", id)
	}
	return nil
}

// ListTransactions returns matching transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, q storage.TransactionQuery) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var args []any
	if q.PartnerID != "" {
		query += " WHERE partner_id = $1"
		args = append(args, q.PartnerID)
	}
	query += " ORDER BY created_at DESC, seq DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Persistencef("list transactions", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID, &t.PartnerID, &t.PartnerName, &t.CounterpartyID, &t.CounterpartyName,
			&t.CustomerName, &t.Date, &t.TotalRevenue, &t.TotalExpenses, &t.NetProfit,
			&t.PartnerPercentage, &t.CounterpartyPercentage, &t.PartnerShare, &t.CounterpartyShare,
			&t.IsPaidToPartner, &t.CreatedAt,
		); err != nil {
			return nil, errs.Persistencef("scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistencef("iterate transactions", err)
	}

	for i := range out {
		expenses, err := s.loadExpenses(ctx, out[i].ID)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", out[i].ID, err)
		}
		out[i].Expenses = expenses
	}
	return out, nil
}

// CreateUser inserts a new directory account.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return errs.Persistencef("create user", err)
	}
	return nil
}

// GetUserByEmail retrieves an account by its login email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = $1", email)
}

// GetUserByID retrieves an account by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("user %v", arg)
	}
	if err != nil {
		return nil, errs.Persistencef("get user", err)
	}
	return user, nil
}

// ListUsersByRole returns all accounts holding the given role.
func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM users WHERE role = $1",
		role,
	)
	if err != nil {
		return nil, errs.Persistencef("list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, errs.Persistencef("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistencef("iterate users", err)
	}
	return users, nil
}
