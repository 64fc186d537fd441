// Package account stores the local profile linked to a broker subject.
package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("account: not found")

	// ErrDuplicateSubject is returned by Create when another writer
	// inserted the same subject first.
	ErrDuplicateSubject = errors.New("account: subject already exists")

	// ErrEmailTaken is returned by Create when the email or its backing
	// user is already linked to a profile. Callers re-read by subject to
	// tell a concurrent insert of the same subject from a real clash.
	ErrEmailTaken = errors.New("account: email linked to another subject")
)

// Profile is the local account row, one per distinct broker subject.
type Profile struct {
	UserID      string    `db:"user_id" json:"user_id"`
	Subject     string    `db:"subject" json:"subject"`
	Email       string    `db:"email" json:"email"`
	NationalID  string    `db:"national_id" json:"national_id,omitempty"`
	FullName    string    `db:"full_name" json:"full_name"`
	GivenName   string    `db:"given_name" json:"given_name"`
	FamilyName  string    `db:"family_name" json:"family_name"`
	BirthDate   string    `db:"birth_date" json:"birth_date,omitempty"`
	Phone       string    `db:"phone" json:"phone,omitempty"`
	SSN         string    `db:"ssn" json:"-"`
	Verified    bool      `db:"verified" json:"verified"`
	VerifiedAt  time.Time `db:"verified_at" json:"verified_at"`
	LastLoginAt time.Time `db:"last_login_at" json:"last_login_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Store is the persistence contract for profiles. Create must insert the
// backing user and the profile as one atomic unit, with Subject unique.
type Store interface {
	FindBySubject(ctx context.Context, subject string) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)

	// Create assigns UserID and returns the stored profile.
	Create(ctx context.Context, p *Profile) (*Profile, error)

	// Update writes the mutable profile fields, LastLoginAt and UpdatedAt
	// of the profile identified by Subject.
	Update(ctx context.Context, p *Profile) error
}
