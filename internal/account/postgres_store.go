package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	uniqueViolation   = "23505"
	subjectConstraint = "profiles_subject_key"
	userPKConstraint  = "profiles_pkey"
)

const selectProfile = `
	SELECT p.user_id, p.subject, u.email, p.national_id, p.full_name,
	       p.given_name, p.family_name, p.birth_date, p.phone, p.ssn,
	       p.verified, p.verified_at, p.last_login_at, p.created_at, p.updated_at
	FROM public.profiles p
	JOIN public.users u ON u.id = p.user_id
`

const (
	selectBySubject = selectProfile + `WHERE p.subject = $1`
	selectByEmail   = selectProfile + `WHERE LOWER(u.email) = LOWER($1)`

	upsertUser = `
	INSERT INTO public.users (email, email_verified, created_at, updated_at)
	VALUES ($1, true, $2, $2)
	ON CONFLICT ((LOWER(email))) DO UPDATE
	SET email_verified = true, updated_at = EXCLUDED.updated_at
	RETURNING id`

	insertProfile = `
	INSERT INTO public.profiles (
	    user_id, subject, national_id, full_name, given_name, family_name,
	    birth_date, phone, ssn, verified, verified_at, last_login_at,
	    created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (subject) DO NOTHING
	RETURNING user_id`

	updateProfile = `
	UPDATE public.profiles
	SET full_name = $2, given_name = $3, family_name = $4, birth_date = $5,
	    phone = $6, last_login_at = $7, updated_at = $8
	WHERE subject = $1`
)

// PostgresStore persists profiles in the users and profiles tables.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindBySubject(ctx context.Context, subject string) (*Profile, error) {
	return s.get(ctx, selectBySubject, subject)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.get(ctx, selectByEmail, email)
}

func (s *PostgresStore) get(ctx context.Context, query, arg string) (*Profile, error) {
	var p Profile
	err := s.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create writes the user and the profile in one transaction.
func (s *PostgresStore) Create(ctx context.Context, p *Profile) (*Profile, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := *p
	if err := tx.QueryRowxContext(ctx, upsertUser, row.Email, row.CreatedAt).Scan(&row.UserID); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	var inserted string
	err = tx.QueryRowxContext(ctx, insertProfile,
		row.UserID,
		row.Subject,
		row.NationalID,
		row.FullName,
		row.GivenName,
		row.FamilyName,
		row.BirthDate,
		row.Phone,
		row.SSN,
		row.Verified,
		row.VerifiedAt,
		row.LastLoginAt,
		row.CreatedAt,
		row.UpdatedAt,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		// another writer committed this subject first
		return nil, ErrDuplicateSubject
	}
	if err != nil {
		return nil, classify(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *Profile) error {
	res, err := s.db.ExecContext(ctx, updateProfile,
		p.Subject,
		p.FullName,
		p.GivenName,
		p.FamilyName,
		p.BirthDate,
		p.Phone,
		p.LastLoginAt,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return fmt.Errorf("insert profile: %w", err)
	}
	switch pqErr.Constraint {
	case subjectConstraint:
		return ErrDuplicateSubject
	case userPKConstraint:
		return ErrEmailTaken
	}
	return fmt.Errorf("insert profile: %w", err)
}
