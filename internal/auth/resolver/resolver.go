package resolver

import (
	"context"

	"eid-auth-service/internal/account"
	"eid-auth-service/internal/auth"
)

// Resolver determines which local account a verified identity belongs to.
// It is the only place where subject-to-account mapping lives.
type Resolver interface {
	Resolve(ctx context.Context, identity *auth.Identity) (*account.Profile, error)
}
