package models

import (
	"time"

	"gorm.io/gorm"
)

// Membership tiers understood by the reward cap policy.
const (
	TierStandard = "standard"
	TierPremium  = "premium"
)

// User represents a site account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Username       string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email          string         `gorm:"size:255" json:"email"`
	PasswordHash   string         `gorm:"size:255" json:"-"`
	MembershipTier string         `gorm:"size:16;not null;default:standard" json:"membership_tier"`
	Active         bool           `gorm:"not null;default:true" json:"active"`
	XP             int64          `gorm:"not null;default:0" json:"xp"`
	Gems           int64          `gorm:"not null;default:0" json:"gems"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps and tier are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.MembershipTier == "" {
		u.MembershipTier = TierStandard
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
