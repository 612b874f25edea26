package domain

import "time"

// SubscriptionFree is the plan every account starts on. Billing state is
// owned elsewhere; this record only mirrors it.
const SubscriptionFree = "free"

// User is the application-side record of an account. The primary key is the
// id issued by the identity provider at credential creation, so the two
// stores share one identifier.
type User struct {
	ID                 string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email              string    `gorm:"uniqueIndex;not null" json:"email"`
	Name               string    `json:"name"`
	EmailVerified      bool      `gorm:"not null;default:false" json:"emailVerified"`
	ReferralCode       string    `gorm:"uniqueIndex;not null" json:"referralCode"`
	ReferredByUserID   *string   `gorm:"type:varchar(36);index" json:"referredByUserId,omitempty"`
	PFCoinBalance      int64     `gorm:"not null;default:0" json:"pfCoinBalance"`
	SubscriptionStatus string    `gorm:"not null;default:free" json:"subscriptionStatus"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
