package store

import (
	"context"
	"errors"

	"github.com/paybackfitness/authapi/internal/authapi/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface backed by the ORM driver. It
// exposes sub-repositories to keep concerns tidy and testable.
type Store interface {
	Users() Users
	Referrals() Referrals

	// WithTx executes fn against a transaction-scoped Store. If fn returns
	// an error the transaction is rolled back, otherwise it is committed.
	// Multi-step writes that must be atomic (the referral claim) go through
	// here; nothing else may observe a half-applied claim.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Migrate creates or updates the schema.
	Migrate() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close() error
}

type Users interface {
	// GetByID returns a user by the provider-issued id.
	GetByID(ctx context.Context, id string) (domain.User, error)

	// GetByEmail looks up a user by normalized email.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// GetByReferralCode resolves a referral code to its owner.
	GetByReferralCode(ctx context.Context, code string) (domain.User, error)

	// Create inserts a new user row. The id and referral code are assigned
	// by the caller and never change afterwards.
	Create(ctx context.Context, u domain.User) error

	// SetEmailVerified flips email_verified to true and returns the updated row.
	SetEmailVerified(ctx context.Context, id string) (domain.User, error)

	// SetReferredBy records who referred the user. First writer wins; the
	// service rejects later claims before ever calling this.
	SetReferredBy(ctx context.Context, id, referrerID string) error
}

type Referrals interface {
	// Create inserts a referral edge.
	Create(ctx context.Context, r domain.Referral) error

	// GetByPair returns the edge for (referrer, referred) if one exists.
	GetByPair(ctx context.Context, referrerID, referredID string) (domain.Referral, error)
}
