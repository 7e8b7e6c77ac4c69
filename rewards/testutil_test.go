package rewards

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/rewards.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB failed: %v", err)
	}
	// Single connection keeps concurrent workers from tripping over
	// sqlite's writer lock.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.RewardState{}, &models.RewardTransaction{}); err != nil {
		t.Fatalf("automigrate failed: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username, tier string, active bool) models.User {
	t.Helper()
	user := models.User{
		Username:       username,
		MembershipTier: tier,
		Active:         active,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", username, err)
	}
	return user
}

func countTransactions(t *testing.T, db *gorm.DB, userID uint, date string) int64 {
	t.Helper()
	query := db.Model(&models.RewardTransaction{})
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	if date != "" {
		query = query.Where("accrual_date = ?", date)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	return count
}

func loadState(t *testing.T, db *gorm.DB, userID uint) models.RewardState {
	t.Helper()
	var state models.RewardState
	if err := db.Where("user_id = ?", userID).First(&state).Error; err != nil {
		t.Fatalf("load state for user %d failed: %v", userID, err)
	}
	return state
}

func mustDate(t *testing.T, value string) AccrualDate {
	t.Helper()
	date, err := ParseAccrualDate(value)
	if err != nil {
		t.Fatalf("parse date %s failed: %v", value, err)
	}
	return date
}
