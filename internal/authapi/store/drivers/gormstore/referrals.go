package gormstore

import (
	"context"

	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"gorm.io/gorm"
)

type referrals struct {
	db *gorm.DB
}

func (r referrals) Create(ctx context.Context, referral domain.Referral) error {
	return translateErr(r.db.WithContext(ctx).Create(&referral).Error)
}

func (r referrals) GetByPair(ctx context.Context, referrerID, referredID string) (domain.Referral, error) {
	var referral domain.Referral
	err := r.db.WithContext(ctx).
		First(&referral, "referrer_user_id = ? AND referred_user_id = ?", referrerID, referredID).Error
	return referral, translateErr(err)
}
