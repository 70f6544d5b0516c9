package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// household_members is owned by the household service; it is created here
// only so a fresh database can be used for local development.
const schema = `
CREATE TABLE IF NOT EXISTS household_members (
    household_id UUID NOT NULL,
    user_id TEXT NOT NULL,
    joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (household_id, user_id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id UUID PRIMARY KEY,
    household_id UUID NOT NULL,
    description TEXT NOT NULL,
    amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
    currency CHAR(3) NOT NULL,
    paid_by_user_id TEXT NOT NULL,
    split_type TEXT NOT NULL,
    notes TEXT,
    receipt_url TEXT,
    created_by_user_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_edited_by_user_id TEXT,
    last_edited_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id UUID NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    amount_cents BIGINT NOT NULL CHECK (amount_cents >= 0),
    percentage DOUBLE PRECISION,
    shares BIGINT,
    PRIMARY KEY (expense_id, user_id)
);

CREATE TABLE IF NOT EXISTS settlements (
    id UUID PRIMARY KEY,
    household_id UUID NOT NULL,
    from_user_id TEXT NOT NULL,
    to_user_id TEXT NOT NULL,
    amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
    currency CHAR(3) NOT NULL,
    notes TEXT,
    created_by_user_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (from_user_id <> to_user_id)
);

CREATE INDEX IF NOT EXISTS idx_household_members_user_id ON household_members(user_id);
CREATE INDEX IF NOT EXISTS idx_expenses_household_created ON expenses(household_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_settlements_household_created ON settlements(household_id, created_at DESC);
`

// Migrate creates the ledger tables when they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	zap.L().Info("Database schema is up to date")
	return nil
}
