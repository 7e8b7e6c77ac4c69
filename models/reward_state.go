package models

import "time"

// RewardState tracks how much a user has accrued for one calendar day.
// LastAccrualDate is a plain YYYY-MM-DD string, not a DATE column: the
// executor's compare-and-set guard binds the value read back, so it must
// round-trip byte for byte on every driver.
// DailyAmountEarned is only meaningful relative to LastAccrualDate: when
// the date being credited differs, the stored amount is stale and counts
// as zero. Rows are created lazily on a user's first accrual attempt and
// mutated only through the accrual executor's compare-and-set transaction.
type RewardState struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	DailyAmountEarned int64     `gorm:"not null;default:0" json:"daily_amount_earned"`
	LastAccrualDate   string    `gorm:"size:10;not null" json:"last_accrual_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (RewardState) TableName() string {
	return "reward_states"
}
