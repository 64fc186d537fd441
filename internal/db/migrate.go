package db

import (
	"context"
)

const accountMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    email text NOT NULL,
    email_verified boolean NOT NULL DEFAULT false,
    status text NOT NULL DEFAULT 'active',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_unique
ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS profiles (
    user_id uuid PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    subject text NOT NULL,
    national_id text NOT NULL DEFAULT '',
    full_name text NOT NULL DEFAULT '',
    given_name text NOT NULL DEFAULT '',
    family_name text NOT NULL DEFAULT '',
    birth_date text NOT NULL DEFAULT '',
    phone text NOT NULL DEFAULT '',
    ssn text NOT NULL DEFAULT '',
    verified boolean NOT NULL DEFAULT false,
    verified_at timestamptz NOT NULL DEFAULT NOW(),
    last_login_at timestamptz NOT NULL DEFAULT NOW(),
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT profiles_subject_key UNIQUE (subject)
);
`

// Migrate creates the users and profiles tables when missing.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.ExecContext(ctx, accountMigration)
	return err
}
