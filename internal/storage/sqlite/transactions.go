package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"partnerledger/internal/errs"
	"partnerledger/internal/models"
	"partnerledger/internal/storage"
)

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
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
			"INSERT INTO expenses (id, transaction_id, name, amount, position) VALUES (?, ?, ?, ?, ?)",
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
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id,
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
		"SELECT id, name, amount FROM expenses WHERE transaction_id = ? ORDER BY position",
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
		sets = append(sets, column+" = ?")
		args = append(args, value)
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
		query := "UPDATE transactions SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		args = append(args, id)
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
		err := dbTx.QueryRowContext(ctx, "SELECT 1 FROM transactions WHERE id = ?", id).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, errs.NotFoundf("transaction %s", id)
		}
		if err != nil {
			return nil, errs.Persistencef("check transaction", err)
		}
	}

	if patch.Expenses != nil {
		if _, err := dbTx.ExecContext(ctx, "DELETE FROM expenses WHERE transaction_id = ?", id); err != nil {
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
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
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

// ListTransactions returns matching transactions, newest first. Rowid
// breaks ties between records created in the same millisecond.
func (s *Store) ListTransactions(ctx context.Context, q storage.TransactionQuery) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var args []any
	if q.PartnerID != "" {
		query += " WHERE partner_id = ?"
		args = append(args, q.PartnerID)
	}
	query += " ORDER BY created_at DESC, rowid DESC"

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
