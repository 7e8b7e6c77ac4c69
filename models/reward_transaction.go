package models

import (
	"time"

	"gorm.io/gorm"
)

// Currency kinds a reward credit can carry.
const (
	CurrencyXP   = "xp"
	CurrencyGems = "gems"
)

// Sources a reward credit can originate from.
const (
	SourceScheduled   = "scheduled"
	SourceManualAdmin = "manual_admin"
	SourceBackfill    = "retroactive_backfill"
)

// Settlement classes group sources for the uniqueness backstop: the
// scheduled and manual-admin paths must never both credit the same
// (user, date, currency), so they share one class; backfill settles
// independently.
const (
	SettlementRegular  = "regular"
	SettlementBackfill = "backfill"
)

// SettlementClassFor maps a credit source onto its settlement class.
func SettlementClassFor(source string) string {
	if source == SourceBackfill {
		return SettlementBackfill
	}
	return SettlementRegular
}

// RewardTransaction is the append-only record of one credit attempt that
// reached settlement, including zero-amount credits clamped by the cap.
// Rows are never updated or deleted; the presence of a row for a
// (user, accrual date, currency) is the durable idempotency marker. The
// composite unique index is keyed by settlement class rather than the
// raw source, so two racing non-backfill credits collide at the storage
// layer no matter which trigger fired them. AccrualDate is a plain
// YYYY-MM-DD string for the same round-trip reason as RewardState.
type RewardTransaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TransactionID   string    `gorm:"size:36;not null;uniqueIndex" json:"transaction_id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_reward_tx_settlement;index" json:"user_id"`
	AccrualDate     string    `gorm:"size:10;not null;uniqueIndex:idx_reward_tx_settlement" json:"accrual_date"`
	AmountCredited  int64     `gorm:"not null" json:"amount_credited"`
	CurrencyKind    string    `gorm:"size:8;not null;uniqueIndex:idx_reward_tx_settlement" json:"currency_kind"`
	SettlementClass string    `gorm:"size:12;not null;uniqueIndex:idx_reward_tx_settlement" json:"-"`
	Source          string    `gorm:"size:24;not null" json:"source"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (RewardTransaction) TableName() string {
	return "reward_transactions"
}

// BeforeCreate derives the settlement class from the source so direct
// inserts can never bypass the uniqueness backstop.
func (t *RewardTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.SettlementClass == "" {
		t.SettlementClass = SettlementClassFor(t.Source)
	}
	return nil
}
