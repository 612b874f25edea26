package domain

import "time"

// Referral is a claimed (referrer, referred) edge. The pair is unique: a user
// can be referred at most once and an edge is never duplicated.
type Referral struct {
	ID             string    `gorm:"type:varchar(26);primaryKey" json:"id"`
	ReferrerUserID string    `gorm:"type:varchar(36);uniqueIndex:idx_referral_pair;not null" json:"referrerUserId"`
	ReferredUserID string    `gorm:"type:varchar(36);uniqueIndex:idx_referral_pair;not null" json:"referredUserId"`
	RewardAmount   int64     `gorm:"not null;default:0" json:"rewardAmount"`
	CreatedAt      time.Time `json:"createdAt"`
}
