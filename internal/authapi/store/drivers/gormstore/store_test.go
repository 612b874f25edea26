package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"github.com/paybackfitness/authapi/internal/authapi/store"
	"github.com/paybackfitness/authapi/pkg/idx"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUser(email, code string) domain.User {
	return domain.User{
		ID:                 uuid.New().String(),
		Email:              domain.NormalizeEmail(email),
		Name:               "Test User",
		ReferralCode:       code,
		SubscriptionStatus: "free",
	}
}

func TestUsersCreateAndLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := newUser("ann@x.com", "CODE1234")
	require.NoError(t, s.Users().Create(ctx, u))

	byID, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)
	require.False(t, byID.EmailVerified)

	byEmail, err := s.Users().GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byCode, err := s.Users().GetByReferralCode(ctx, "CODE1234")
	require.NoError(t, err)
	require.Equal(t, u.ID, byCode.ID)

	_, err = s.Users().GetByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersUniqueEmailAndReferralCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users().Create(ctx, newUser("dup@x.com", "AAAA1111")))

	err := s.Users().Create(ctx, newUser("dup@x.com", "BBBB2222"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	err = s.Users().Create(ctx, newUser("other@x.com", "AAAA1111"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestSetEmailVerified(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := newUser("verify@x.com", "VRFY0001")
	require.NoError(t, s.Users().Create(ctx, u))

	updated, err := s.Users().SetEmailVerified(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, updated.EmailVerified)

	_, err = s.Users().SetEmailVerified(ctx, "missing-id")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReferralPairUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	referrer := newUser("ref@x.com", "REFR0001")
	referred := newUser("new@x.com", "NEWU0001")
	require.NoError(t, s.Users().Create(ctx, referrer))
	require.NoError(t, s.Users().Create(ctx, referred))

	edge := domain.Referral{
		ID:             idx.New().String(),
		ReferrerUserID: referrer.ID,
		ReferredUserID: referred.ID,
	}
	require.NoError(t, s.Referrals().Create(ctx, edge))

	dup := edge
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Referrals().Create(ctx, dup), store.ErrAlreadyExists)

	got, err := s.Referrals().GetByPair(ctx, referrer.ID, referred.ID)
	require.NoError(t, err)
	require.Zero(t, got.RewardAmount)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	referrer := newUser("r@x.com", "RRRR0001")
	claimer := newUser("c@x.com", "CCCC0001")
	require.NoError(t, s.Users().Create(ctx, referrer))
	require.NoError(t, s.Users().Create(ctx, claimer))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Users().SetReferredBy(ctx, claimer.ID, referrer.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := s.Users().GetByID(ctx, claimer.ID)
	require.NoError(t, err)
	require.Nil(t, after.ReferredByUserID)
}

func TestWithTxCommitsBothWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	referrer := newUser("r2@x.com", "RRRR0002")
	claimer := newUser("c2@x.com", "CCCC0002")
	require.NoError(t, s.Users().Create(ctx, referrer))
	require.NoError(t, s.Users().Create(ctx, claimer))

	err := s.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Users().SetReferredBy(ctx, claimer.ID, referrer.ID); err != nil {
			return err
		}
		return tx.Referrals().Create(ctx, domain.Referral{
			ID:             idx.New().String(),
			ReferrerUserID: referrer.ID,
			ReferredUserID: claimer.ID,
		})
	})
	require.NoError(t, err)

	after, err := s.Users().GetByID(ctx, claimer.ID)
	require.NoError(t, err)
	require.NotNil(t, after.ReferredByUserID)
	require.Equal(t, referrer.ID, *after.ReferredByUserID)

	_, err = s.Referrals().GetByPair(ctx, referrer.ID, claimer.ID)
	require.NoError(t, err)
}

func TestTranslateErrUnwrapsSentinels(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"not found", gorm.ErrRecordNotFound, store.ErrNotFound},
		{"wrapped not found", fmt.Errorf("users lookup: %w", gorm.ErrRecordNotFound), store.ErrNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, store.ErrAlreadyExists},
		{"wrapped duplicated key", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), store.ErrAlreadyExists},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), store.ErrAlreadyExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translateErr(tc.in)
			if tc.want == nil {
				require.NoError(t, got)
				return
			}
			require.ErrorIs(t, got, tc.want)
		})
	}
}

func TestTranslateErrPassesThroughUnknown(t *testing.T) {
	boom := errors.New("disk I/O error")
	require.Equal(t, boom, translateErr(boom))
}
