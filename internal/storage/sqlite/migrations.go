package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Timestamps are RFC 3339 TEXT, booleans INTEGER 0/1 and amounts INTEGER
// minor currency units.
const schema = `
CREATE TABLE IF NOT EXISTS chamas (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT '',
    is_private INTEGER NOT NULL DEFAULT 0,
    owner_id TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chama_members (
    chama_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('admin', 'member')),
    penalty_points INTEGER NOT NULL DEFAULT 0,
    joined_at TEXT NOT NULL,
    PRIMARY KEY (chama_id, user_id),
    FOREIGN KEY (chama_id) REFERENCES chamas(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS cycles (
    id TEXT PRIMARY KEY,
    chama_id TEXT NOT NULL,
    contribution_amount INTEGER NOT NULL,
    payout_amount INTEGER NOT NULL,
    savings_amount INTEGER NOT NULL,
    service_fee INTEGER NOT NULL,
    frequency TEXT NOT NULL,
    start_date TEXT NOT NULL,
    period_number INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL,
    started_at TEXT,
    completed_at TEXT,
    CHECK (contribution_amount = payout_amount + savings_amount + service_fee),
    FOREIGN KEY (chama_id) REFERENCES chamas(id)
);

CREATE TABLE IF NOT EXISTS cycle_members (
    id TEXT PRIMARY KEY,
    cycle_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    UNIQUE (cycle_id, user_id),
    UNIQUE (cycle_id, ordinal),
    FOREIGN KEY (cycle_id) REFERENCES cycles(id)
);

CREATE TABLE IF NOT EXISTS contributions (
    id TEXT PRIMARY KEY,
    cycle_id TEXT NOT NULL,
    cycle_member_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    period_number INTEGER NOT NULL,
    amount_due INTEGER NOT NULL,
    amount_paid INTEGER NOT NULL DEFAULT 0,
    due_date TEXT NOT NULL,
    paid_at TEXT,
    confirmed_by TEXT,
    confirmed_at TEXT,
    status TEXT NOT NULL,
    UNIQUE (cycle_member_id, period_number),
    FOREIGN KEY (cycle_id) REFERENCES cycles(id),
    FOREIGN KEY (cycle_member_id) REFERENCES cycle_members(id)
);

CREATE TABLE IF NOT EXISTS payouts (
    id TEXT PRIMARY KEY,
    cycle_id TEXT NOT NULL,
    cycle_member_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    period_number INTEGER NOT NULL,
    amount INTEGER NOT NULL,
    scheduled_date TEXT NOT NULL,
    paid_at TEXT,
    confirmed_by_member INTEGER NOT NULL DEFAULT 0,
    confirmed_at TEXT,
    status TEXT NOT NULL,
    UNIQUE (cycle_id, period_number),
    FOREIGN KEY (cycle_id) REFERENCES cycles(id),
    FOREIGN KEY (cycle_member_id) REFERENCES cycle_members(id)
);

-- Defaults are permanent history. The RESTRICT keeps their contribution alive.
CREATE TABLE IF NOT EXISTS defaults (
    id TEXT PRIMARY KEY,
    chama_id TEXT NOT NULL,
    cycle_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    contribution_id TEXT NOT NULL UNIQUE,
    period_number INTEGER NOT NULL,
    shortfall INTEGER NOT NULL,
    penalty_amount INTEGER NOT NULL,
    penalty_points INTEGER NOT NULL,
    resolved INTEGER NOT NULL DEFAULT 0,
    resolved_by TEXT,
    resolved_at TEXT,
    created_at TEXT NOT NULL,
    FOREIGN KEY (contribution_id) REFERENCES contributions(id) ON DELETE RESTRICT
);

CREATE TABLE IF NOT EXISTS loans (
    id TEXT PRIMARY KEY,
    chama_id TEXT NOT NULL,
    borrower_id TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount > 0),
    amount_paid INTEGER NOT NULL DEFAULT 0,
    amount_recovered INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    approved_by TEXT,
    approved_at TEXT,
    defaulted_at TEXT,
    created_at TEXT NOT NULL,
    FOREIGN KEY (chama_id) REFERENCES chamas(id)
);

CREATE TABLE IF NOT EXISTS guarantees (
    id TEXT PRIMARY KEY,
    loan_id TEXT NOT NULL,
    guarantor_id TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount > 0),
    seized INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    UNIQUE (loan_id, guarantor_id),
    FOREIGN KEY (loan_id) REFERENCES loans(id)
);

-- Append-only. Balances are always derived from this table.
CREATE TABLE IF NOT EXISTS wallet_transactions (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    owner TEXT NOT NULL,
    account TEXT NOT NULL,
    type TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount != 0),
    counter_owner TEXT,
    counter_account TEXT,
    reference_id TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chama_members_user_id ON chama_members(user_id);
CREATE INDEX IF NOT EXISTS idx_cycles_status ON cycles(status);
CREATE INDEX IF NOT EXISTS idx_contributions_cycle_period ON contributions(cycle_id, period_number);
CREATE INDEX IF NOT EXISTS idx_contributions_due ON contributions(cycle_id, due_date);
CREATE INDEX IF NOT EXISTS idx_defaults_cycle_id ON defaults(cycle_id);
CREATE INDEX IF NOT EXISTS idx_guarantees_guarantor ON guarantees(guarantor_id);
CREATE INDEX IF NOT EXISTS idx_wallet_transactions_account ON wallet_transactions(owner, account);
CREATE INDEX IF NOT EXISTS idx_wallet_transactions_counter ON wallet_transactions(counter_owner, counter_account);
CREATE INDEX IF NOT EXISTS idx_wallet_transactions_reference ON wallet_transactions(reference_id);

CREATE TRIGGER IF NOT EXISTS wallet_transactions_no_update
BEFORE UPDATE ON wallet_transactions
BEGIN
    SELECT RAISE(ABORT, 'wallet_transactions is append-only');
END;

CREATE TRIGGER IF NOT EXISTS wallet_transactions_no_delete
BEFORE DELETE ON wallet_transactions
BEGIN
    SELECT RAISE(ABORT, 'wallet_transactions is append-only');
END;
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
