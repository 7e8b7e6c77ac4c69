package rewards

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
)

// BackfillOptions configures a Backfiller. Zero values fall back to defaults.
type BackfillOptions struct {
	Workers  int
	Location *time.Location
	Logger   *zap.SugaredLogger
}

// Backfiller retroactively credits past dates that were never settled,
// typically after an outage or a missed scheduler trigger. Which dates
// still need work is derived purely from the append-only transaction
// log, never from in-memory state, so a backfill can be re-run or
// interrupted at any point without double-crediting.
type Backfiller struct {
	db       *gorm.DB
	creditor Creditor
	workers  int
	loc      *time.Location
	log      *zap.SugaredLogger
}

// NewBackfiller wires a Backfiller.
func NewBackfiller(db *gorm.DB, creditor Creditor, opts BackfillOptions) *Backfiller {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Backfiller{
		db:       db,
		creditor: creditor,
		workers:  opts.Workers,
		loc:      opts.Location,
		log:      opts.Logger,
	}
}

type backfillJob struct {
	userID uint
	date   AccrualDate
}

// Backfill credits amountPerDay of XP for every (user, date) pair in
// the cross-product of the eligible population and dates that has no
// existing transaction row for that date. The flat amount still passes
// through the cap-respecting executor path, so caps hold retroactively.
func (b *Backfiller) Backfill(ctx context.Context, dates []AccrualDate, amountPerDay int64) (BatchResult, error) {
	if len(dates) == 0 {
		return BatchResult{}, invalidInput("no dates to backfill")
	}
	if amountPerDay < 0 {
		return BatchResult{}, invalidInput("negative backfill amount %d", amountPerDay)
	}
	today := Today(b.loc)
	for _, date := range dates {
		if date.IsZero() {
			return BatchResult{}, invalidInput("missing accrual date")
		}
		if date.After(today) {
			return BatchResult{}, invalidInput("accrual date %s is in the future", date)
		}
	}

	var userIDs []uint
	err := b.db.WithContext(ctx).
		Model(&models.User{}).
		Where("active = ?", true).
		Order("id").
		Pluck("id", &userIDs).Error
	if err != nil {
		return BatchResult{}, transient(err, "enumerating eligible users")
	}

	jobs, skipped, err := b.pendingPairs(ctx, userIDs, dates)
	if err != nil {
		return BatchResult{}, err
	}

	b.log.Infow("backfill starting",
		"dates", len(dates), "users", len(userIDs),
		"pending_pairs", len(jobs), "already_settled", skipped,
		"amount_per_day", amountPerDay)

	result := b.fanOut(ctx, jobs, amountPerDay)

	b.log.Infow("backfill finished",
		"succeeded", result.Succeeded, "failed", result.FailedCount(), "skipped", skipped)
	return result, nil
}

// pendingPairs filters the (user, date) cross-product down to pairs
// with no transaction row of any source for that date.
func (b *Backfiller) pendingPairs(ctx context.Context, userIDs []uint, dates []AccrualDate) ([]backfillJob, int, error) {
	var jobs []backfillJob
	skipped := 0
	for _, date := range dates {
		var settledIDs []uint
		err := b.db.WithContext(ctx).
			Model(&models.RewardTransaction{}).
			Where("accrual_date = ?", date.String()).
			Distinct().
			Pluck("user_id", &settledIDs).Error
		if err != nil {
			return nil, 0, transient(err, "reading settled users for %s", date)
		}
		settled := make(map[uint]struct{}, len(settledIDs))
		for _, id := range settledIDs {
			settled[id] = struct{}{}
		}
		for _, userID := range userIDs {
			if _, ok := settled[userID]; ok {
				skipped++
				continue
			}
			jobs = append(jobs, backfillJob{userID: userID, date: date})
		}
	}
	return jobs, skipped, nil
}

func (b *Backfiller) fanOut(ctx context.Context, jobs []backfillJob, amountPerDay int64) BatchResult {
	jobCh := make(chan backfillJob)
	var (
		mu     sync.Mutex
		result BatchResult
		wg     sync.WaitGroup
	)

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				_, err := b.creditor.Credit(ctx, CreditRequest{
					UserID: job.userID,
					Date:   job.date,
					Amount: amountPerDay,
					Kind:   models.CurrencyXP,
					Source: models.SourceBackfill,
				})
				mu.Lock()
				if err != nil {
					result.Failed = append(result.Failed, UserFailure{
						UserID: job.userID,
						Reason: fmt.Sprintf("%s: %v", job.date, err),
					})
				} else {
					result.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		select {
		case jobCh <- job:
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return result
		}
	}
	close(jobCh)
	wg.Wait()
	return result
}
