package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eid-auth-service/internal/account"
	"eid-auth-service/internal/auth"
	"eid-auth-service/internal/logger"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

const DefaultEmailDomain = "bankid.local"

var braces = strings.NewReplacer("{", "", "}", "")

// SyntheticEmail builds the placeholder address used when the broker
// releases no email claim.
func SyntheticEmail(subject, domain string) string {
	return braces.Replace(subject) + "@" + domain
}

// AccountResolver upserts a profile keyed by the broker subject.
type AccountResolver struct {
	store       account.Store
	clock       clockwork.Clock
	emailDomain string

	// concurrent callbacks for one subject share a single resolution
	inflight singleflight.Group
}

func NewAccountResolver(store account.Store, clock clockwork.Clock, emailDomain string) *AccountResolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if emailDomain == "" {
		emailDomain = DefaultEmailDomain
	}
	return &AccountResolver{store: store, clock: clock, emailDomain: emailDomain}
}

func (r *AccountResolver) Resolve(ctx context.Context, identity *auth.Identity) (*account.Profile, error) {
	if identity == nil {
		return nil, fmt.Errorf("%w: identity is nil", auth.ErrProtocolViolation)
	}
	if identity.Subject == "" {
		return nil, fmt.Errorf("%w: identity has no subject", auth.ErrProtocolViolation)
	}

	v, err, _ := r.inflight.Do(identity.Subject, func() (any, error) {
		return r.resolve(ctx, identity)
	})
	if err != nil {
		return nil, err
	}

	p := *v.(*account.Profile)
	return &p, nil
}

func (r *AccountResolver) resolve(ctx context.Context, identity *auth.Identity) (*account.Profile, error) {
	existing, err := r.store.FindBySubject(ctx, identity.Subject)
	switch {
	case err == nil:
		return r.touch(ctx, existing, identity)
	case !errors.Is(err, account.ErrNotFound):
		return nil, fmt.Errorf("%w: find profile: %v", auth.ErrPersistence, err)
	}

	created, err := r.create(ctx, identity)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, account.ErrDuplicateSubject) && !errors.Is(err, account.ErrEmailTaken) {
		return nil, err
	}

	// Any uniqueness conflict may mean another instance won the insert
	// for this subject; the row it wrote decides.
	existing, findErr := r.store.FindBySubject(ctx, identity.Subject)
	if findErr != nil {
		if errors.Is(findErr, account.ErrNotFound) {
			return nil, fmt.Errorf("%w: create profile: %v", auth.ErrPersistence, err)
		}
		return nil, fmt.Errorf("%w: find profile after conflict: %v", auth.ErrPersistence, findErr)
	}
	return r.touch(ctx, existing, identity)
}

func (r *AccountResolver) create(ctx context.Context, identity *auth.Identity) (*account.Profile, error) {
	now := r.clock.Now().UTC()

	email := identity.Email
	if email == "" {
		email = SyntheticEmail(identity.Subject, r.emailDomain)
	}

	p, err := r.store.Create(ctx, &account.Profile{
		Subject:     identity.Subject,
		Email:       email,
		NationalID:  identity.NationalID,
		FullName:    identity.FullName,
		GivenName:   identity.GivenName,
		FamilyName:  identity.FamilyName,
		BirthDate:   identity.BirthDate,
		Phone:       identity.Phone,
		SSN:         identity.SSN,
		Verified:    true,
		VerifiedAt:  now,
		LastLoginAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if errors.Is(err, account.ErrDuplicateSubject) || errors.Is(err, account.ErrEmailTaken) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create profile: %v", auth.ErrPersistence, err)
	}

	logger.Info("profile created", map[string]any{
		"user_id": p.UserID,
	})
	return p, nil
}

func (r *AccountResolver) touch(ctx context.Context, p *account.Profile, identity *auth.Identity) (*account.Profile, error) {
	now := r.clock.Now().UTC()
	if !now.After(p.LastLoginAt) {
		now = p.LastLoginAt.Add(time.Microsecond)
	}

	p.FullName = identity.FullName
	p.GivenName = identity.GivenName
	p.FamilyName = identity.FamilyName
	p.BirthDate = identity.BirthDate
	p.Phone = identity.Phone
	p.LastLoginAt = now
	p.UpdatedAt = now

	if err := r.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: update profile: %v", auth.ErrPersistence, err)
	}
	return p, nil
}
