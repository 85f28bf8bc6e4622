package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database. These run on
// startup to ensure tables exist. Monetary columns are TEXT holding exact
// decimal strings; timestamps are Unix milliseconds.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    role TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    partner_id TEXT NOT NULL,
    partner_name TEXT NOT NULL,
    counterparty_id TEXT NOT NULL,
    counterparty_name TEXT NOT NULL,
    customer_name TEXT NOT NULL,
    tx_date TEXT NOT NULL,
    total_revenue TEXT NOT NULL,
    total_expenses TEXT NOT NULL,
    net_profit TEXT NOT NULL,
    partner_percentage INTEGER NOT NULL,
    counterparty_percentage INTEGER NOT NULL,
    partner_share TEXT NOT NULL,
    counterparty_share TEXT NOT NULL,
    is_paid_to_partner INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    name TEXT NOT NULL,
    amount TEXT NOT NULL,
    position INTEGER NOT NULL,
    FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_transactions_partner_id ON transactions(partner_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
CREATE INDEX IF NOT EXISTS idx_expenses_transaction_id ON expenses(transaction_id);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
