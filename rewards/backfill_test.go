package rewards

import (
	"context"
	"testing"

	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
)

func TestBackfillRerunDoesNotDuplicate(t *testing.T) {
	db := newTestDB(t)
	u1 := createUser(t, db, "bf1", models.TierStandard, true)
	u2 := createUser(t, db, "bf2", models.TierStandard, true)

	exec := NewExecutor(db, ExecutorOptions{}).WithClock(fixedClock("2024-07-10"))
	backfiller := NewBackfiller(db, exec, BackfillOptions{Workers: 2})
	dates := []AccrualDate{mustDate(t, "2024-07-01"), mustDate(t, "2024-07-02")}

	first, err := backfiller.Backfill(context.Background(), dates, 500)
	if err != nil {
		t.Fatalf("first backfill failed: %v", err)
	}
	if first.Succeeded != 4 || first.FailedCount() != 0 {
		t.Fatalf("first backfill result = %+v, want 4 pairs credited", first)
	}

	second, err := backfiller.Backfill(context.Background(), dates, 500)
	if err != nil {
		t.Fatalf("second backfill failed: %v", err)
	}
	if second.Succeeded != 0 || second.FailedCount() != 0 {
		t.Errorf("second backfill result = %+v, want everything skipped", second)
	}

	if got := countTransactions(t, db, 0, ""); got != 4 {
		t.Errorf("transaction rows = %d, want 4 after rerun", got)
	}

	for _, id := range []uint{u1.ID, u2.ID} {
		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			t.Fatalf("reload user %d failed: %v", id, err)
		}
		if user.XP != 1000 {
			t.Errorf("user %d xp = %d, want 500 per date once", id, user.XP)
		}
	}
}

func TestBackfillSkipsAlreadySettledDates(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "partial", models.TierStandard, true)

	exec := NewExecutor(db, ExecutorOptions{}).WithClock(fixedClock("2024-07-10"))

	// 2024-07-01 was settled by the regular daily path.
	if _, err := exec.Credit(context.Background(), CreditRequest{
		UserID: user.ID, Date: mustDate(t, "2024-07-01"), Amount: 1000,
		Kind: models.CurrencyXP, Source: models.SourceScheduled,
	}); err != nil {
		t.Fatalf("seeding scheduled credit failed: %v", err)
	}

	backfiller := NewBackfiller(db, exec, BackfillOptions{Workers: 1})
	result, err := backfiller.Backfill(context.Background(),
		[]AccrualDate{mustDate(t, "2024-07-01"), mustDate(t, "2024-07-02")}, 500)
	if err != nil {
		t.Fatalf("backfill failed: %v", err)
	}
	if result.Succeeded != 1 {
		t.Errorf("succeeded = %d, want only the unsettled date", result.Succeeded)
	}

	if got := countTransactions(t, db, user.ID, "2024-07-01"); got != 1 {
		t.Errorf("2024-07-01 rows = %d, want the original row only", got)
	}
	var row models.RewardTransaction
	err = db.Where("user_id = ? AND accrual_date = ?", user.ID, "2024-07-02").First(&row).Error
	if err != nil {
		t.Fatalf("backfilled row missing: %v", err)
	}
	if row.Source != models.SourceBackfill || row.AmountCredited != 500 {
		t.Errorf("backfilled row = %+v", row)
	}
}

func TestBackfillRespectsTierCap(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "smallcap", models.TierStandard, true)

	exec := NewExecutor(db, ExecutorOptions{Caps: NewCapPolicy(10000, 20000)}).
		WithClock(fixedClock("2024-07-10"))
	backfiller := NewBackfiller(db, exec, BackfillOptions{Workers: 1})

	result, err := backfiller.Backfill(context.Background(),
		[]AccrualDate{mustDate(t, "2024-07-03")}, 15000)
	if err != nil {
		t.Fatalf("backfill failed: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("result = %+v", result)
	}

	var row models.RewardTransaction
	if err := db.Where("user_id = ?", user.ID).First(&row).Error; err != nil {
		t.Fatalf("backfilled row missing: %v", err)
	}
	if row.AmountCredited != 10000 {
		t.Errorf("credited = %d, want cap 10000", row.AmountCredited)
	}
}

func TestBackfillValidation(t *testing.T) {
	db := newTestDB(t)
	backfiller := NewBackfiller(db, NewExecutor(db, ExecutorOptions{}), BackfillOptions{})

	if _, err := backfiller.Backfill(context.Background(), nil, 500); !IsInvalidInput(err) {
		t.Errorf("empty dates error = %v, want invalid input", err)
	}
	if _, err := backfiller.Backfill(context.Background(),
		[]AccrualDate{mustDate(t, "2024-07-01")}, -1); !IsInvalidInput(err) {
		t.Errorf("negative amount error = %v, want invalid input", err)
	}
	future := Today(nil).AddDays(1)
	if _, err := backfiller.Backfill(context.Background(),
		[]AccrualDate{future}, 500); !IsInvalidInput(err) {
		t.Errorf("future date error = %v, want invalid input", err)
	}
}
