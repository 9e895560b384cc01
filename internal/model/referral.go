package model

import (
	"time"
)

const (
	ReferralStatusActive  = "ACTIVE"
	ReferralStatusExpired = "EXPIRED"
	ReferralStatusRevoked = "REVOKED"
)

// Referral 邀请关系表
// referred_id 唯一：一个用户只能被邀请一次。
// 本身不是余额实体，但在发奖时决定是否给邀请人抽佣
type Referral struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID     int64     `gorm:"index;not null" json:"referrer_id"`
	ReferredID     int64     `gorm:"uniqueIndex;not null" json:"referred_id"`
	Code           string    `gorm:"type:varchar(32);index;not null" json:"code"`
	Status         string    `gorm:"type:varchar(16);not null" json:"status"`
	CommissionRate int       `gorm:"not null" json:"commission_rate"` // 抽佣比例，万分制
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Referral) TableName() string {
	return "referral"
}

// IsActive 邀请关系是否仍可产生抽佣
func (r *Referral) IsActive(now time.Time) bool {
	return r.Status == ReferralStatusActive && now.Before(r.ExpiresAt)
}
