package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"github.com/paybackfitness/authapi/internal/authapi/store"
	"github.com/paybackfitness/authapi/pkg/idx"
	"github.com/paybackfitness/authapi/pkg/slogx"
)

type ReferralService struct {
	Store store.Store
}

// ClaimReferral attributes a user to the owner of referralCode. A user can
// be referred at most once, and the pointer on the user row and the
// referral edge are written atomically.
func (s *ReferralService) ClaimReferral(ctx context.Context, userID, referralCode string) (string, error) {
	log := slogx.FromContext(ctx)

	// 1. The claiming user must exist.
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", NotFound("User not found")
		}
		return "", err
	}

	// 2. One referral per user, ever.
	if user.ReferredByUserID != nil {
		return "", Conflict("You have already claimed a referral code")
	}

	// 3. The code must belong to someone.
	referrer, err := s.Store.Users().GetByReferralCode(ctx, referralCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", BadRequest("Invalid referral code")
		}
		return "", err
	}

	// 4. No self-referral.
	if referrer.ID == user.ID {
		return "", BadRequest("You cannot use your own referral code")
	}

	// 5. The edge itself must not already exist.
	_, err = s.Store.Referrals().GetByPair(ctx, referrer.ID, user.ID)
	if err == nil {
		return "", Conflict("Referral relationship already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	// 6. Write the back-pointer and the edge together or not at all.
	err = s.Store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Users().SetReferredBy(ctx, user.ID, referrer.ID); err != nil {
			return err
		}
		edge := domain.Referral{
			ID:             idx.New().String(),
			ReferrerUserID: referrer.ID,
			ReferredUserID: user.ID,
		}
		return tx.Referrals().Create(ctx, edge)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", Conflict("Referral relationship already exists")
		}
		log.Error("failed to record referral",
			slog.String("user_id", user.ID),
			slog.String("referrer_id", referrer.ID),
			slog.Any("error", err),
		)
		return "", err
	}

	return "Referral code claimed successfully", nil
}
