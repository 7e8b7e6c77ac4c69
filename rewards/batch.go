package rewards

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
)

// How long a daily-run lock lives if the holder dies without releasing it.
const runLockTTL = 10 * time.Minute

// BatchOptions configures a BatchRunner. Zero values fall back to defaults.
type BatchOptions struct {
	Workers   int
	DailyXP   int64
	DailyGems int64
	Location  *time.Location
	// Lock, when set, guards against two full-population runs for the
	// same day racing each other. Correctness never depends on it; the
	// executor's idempotency is the real guarantee.
	Lock   *redis.Client
	Logger *zap.SugaredLogger
}

// BatchRunner fans the accrual executor out across the eligible user
// population for today's date. Per-user failures are collected without
// aborting the batch; re-running for the same day only touches users
// not yet settled.
type BatchRunner struct {
	db        *gorm.DB
	creditor  Creditor
	workers   int
	dailyXP   int64
	dailyGems int64
	loc       *time.Location
	lock      *redis.Client
	log       *zap.SugaredLogger
}

// NewBatchRunner wires a BatchRunner.
func NewBatchRunner(db *gorm.DB, creditor Creditor, opts BatchOptions) *BatchRunner {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.DailyXP <= 0 {
		opts.DailyXP = 1000
	}
	if opts.DailyGems < 0 {
		opts.DailyGems = 0
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &BatchRunner{
		db:        db,
		creditor:  creditor,
		workers:   opts.Workers,
		dailyXP:   opts.DailyXP,
		dailyGems: opts.DailyGems,
		loc:       opts.Location,
		lock:      opts.Lock,
		log:       opts.Logger,
	}
}

// RunDaily credits today's rewards to every eligible user. source must
// be the scheduled or manual-admin source tag; the engine has no notion
// of wall-clock scheduling beyond the date it computes here.
func (b *BatchRunner) RunDaily(ctx context.Context, source string) (BatchResult, error) {
	switch source {
	case models.SourceScheduled, models.SourceManualAdmin:
	default:
		return BatchResult{}, invalidInput("unknown trigger source %q", source)
	}

	today := Today(b.loc)

	release, err := b.acquireRunLock(ctx, today, source)
	if err != nil {
		return BatchResult{}, err
	}
	defer release()

	userIDs, err := b.eligibleUserIDs(ctx)
	if err != nil {
		return BatchResult{}, transient(err, "enumerating eligible users")
	}

	b.log.Infow("daily reward run starting",
		"accrual_date", today.String(), "source", source, "users", len(userIDs), "workers", b.workers)

	result := b.fanOut(ctx, userIDs, func(ctx context.Context, userID uint) error {
		return b.creditUser(ctx, userID, today, source)
	})

	b.log.Infow("daily reward run finished",
		"accrual_date", today.String(), "source", source,
		"succeeded", result.Succeeded, "failed", result.FailedCount())
	return result, nil
}

// creditUser applies the XP credit and, when configured, the gem credit
// for one user. Both pass through the same idempotent executor path.
func (b *BatchRunner) creditUser(ctx context.Context, userID uint, date AccrualDate, source string) error {
	if _, err := b.creditor.Credit(ctx, CreditRequest{
		UserID: userID,
		Date:   date,
		Amount: b.dailyXP,
		Kind:   models.CurrencyXP,
		Source: source,
	}); err != nil {
		return fmt.Errorf("xp credit: %w", err)
	}
	if b.dailyGems > 0 {
		if _, err := b.creditor.Credit(ctx, CreditRequest{
			UserID: userID,
			Date:   date,
			Amount: b.dailyGems,
			Kind:   models.CurrencyGems,
			Source: source,
		}); err != nil {
			return fmt.Errorf("gem credit: %w", err)
		}
	}
	return nil
}

// eligibleUserIDs enumerates active accounts fresh at invocation time.
func (b *BatchRunner) eligibleUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := b.db.WithContext(ctx).
		Model(&models.User{}).
		Where("active = ?", true).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// fanOut runs work for every user id through a bounded worker pool,
// collecting per-user outcomes. A cancelled context stops dispatching
// new users; credits already applied stay applied and a restarted run
// re-derives remaining work from the transaction log.
func (b *BatchRunner) fanOut(ctx context.Context, userIDs []uint, work func(context.Context, uint) error) BatchResult {
	jobs := make(chan uint)
	var (
		mu     sync.Mutex
		result BatchResult
		wg     sync.WaitGroup
	)

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range jobs {
				err := work(ctx, userID)
				mu.Lock()
				if err != nil {
					result.Failed = append(result.Failed, UserFailure{UserID: userID, Reason: err.Error()})
				} else {
					result.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}

	for _, userID := range userIDs {
		select {
		case jobs <- userID:
		case <-ctx.Done():
			b.log.Warnw("batch dispatch cancelled", "dispatched", result.Succeeded+result.FailedCount())
			close(jobs)
			wg.Wait()
			return result
		}
	}
	close(jobs)
	wg.Wait()
	return result
}

// acquireRunLock takes a best-effort distributed lock for (date, source).
// Redis being down degrades to lock-free operation; a held lock reports
// ErrRunInProgress so callers can back off instead of duplicating work.
func (b *BatchRunner) acquireRunLock(ctx context.Context, date AccrualDate, source string) (func(), error) {
	if b.lock == nil {
		return func() {}, nil
	}
	key := "rewards:run:" + date.String() + ":" + source
	ok, err := b.lock.SetNX(ctx, key, "1", runLockTTL).Result()
	if err != nil {
		b.log.Warnw("run lock unavailable, continuing without it", "key", key, "err", err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := b.lock.Del(releaseCtx, key).Err(); err != nil {
			b.log.Warnw("run lock release failed, will expire via TTL", "key", key, "err", err)
		}
	}, nil
}
