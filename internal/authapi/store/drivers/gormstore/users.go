package gormstore

import (
	"context"

	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"gorm.io/gorm"
)

type users struct {
	db *gorm.DB
}

func (u users) GetByID(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error
	return user, translateErr(err)
}

func (u users) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := u.db.WithContext(ctx).First(&user, "email = ?", email).Error
	return user, translateErr(err)
}

func (u users) GetByReferralCode(ctx context.Context, code string) (domain.User, error) {
	var user domain.User
	err := u.db.WithContext(ctx).First(&user, "referral_code = ?", code).Error
	return user, translateErr(err)
}

func (u users) Create(ctx context.Context, user domain.User) error {
	return translateErr(u.db.WithContext(ctx).Create(&user).Error)
}

func (u users) SetEmailVerified(ctx context.Context, id string) (domain.User, error) {
	res := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("email_verified", true)
	if res.Error != nil {
		return domain.User{}, translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.User{}, translateErr(gorm.ErrRecordNotFound)
	}
	return u.GetByID(ctx, id)
}

func (u users) SetReferredBy(ctx context.Context, id, referrerID string) error {
	res := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("referred_by_user_id", referrerID)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return translateErr(gorm.ErrRecordNotFound)
	}
	return nil
}
