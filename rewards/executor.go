package rewards

import (
	"context"
	"errors"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
)

const mysqlDuplicateEntryCode = 1062

const sqliteConstraintCode = 19

// Creditor applies one credit for one user and one calendar day.
// Implemented by Executor; batch components depend on this interface
// so fan-out logic stays independent of storage details.
type Creditor interface {
	Credit(ctx context.Context, req CreditRequest) (CreditResult, error)
}

// CreditRequest describes one accrual attempt.
type CreditRequest struct {
	UserID uint
	Date   AccrualDate
	Amount int64
	Kind   string
	Source string
}

// CreditResult reports the outcome of a credit attempt. AlreadySettled
// means an earlier attempt already produced the transaction row for
// this (user, date, currency); it is a normal idempotent outcome, not
// an error, and carries a zero credited amount.
type CreditResult struct {
	Credited       int64  `json:"credited"`
	AlreadySettled bool   `json:"already_settled"`
	TransactionID  string `json:"transaction_id,omitempty"`
}

// ExecutorOptions configures an Executor. Zero values fall back to
// defaults, so tests and callers only set what they care about.
type ExecutorOptions struct {
	Caps     CapPolicy
	Retry    RetryPolicy
	Location *time.Location
	Timeout  time.Duration
	Logger   *zap.SugaredLogger
}

// Executor credits one user for one calendar day at most once,
// respecting the tier cap and appending an audit transaction. All state
// mutation happens inside a single database transaction guarded by a
// compare-and-set on the user's reward state row; a lost race rolls the
// whole attempt back and retries with fresh reads.
type Executor struct {
	db      *gorm.DB
	caps    CapPolicy
	retry   RetryPolicy
	loc     *time.Location
	timeout time.Duration
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewExecutor wires an Executor over the given database handle.
func NewExecutor(db *gorm.DB, opts ExecutorOptions) *Executor {
	if opts.Caps == (CapPolicy{}) {
		opts.Caps = NewCapPolicy(0, 0)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Executor{
		db:      db,
		caps:    opts.Caps,
		retry:   opts.Retry,
		loc:     opts.Location,
		timeout: opts.Timeout,
		log:     opts.Logger,
		now:     time.Now,
	}
}

// WithClock overrides the wall clock used to reject future accrual dates.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	if now != nil {
		e.now = now
	}
	return e
}

// Internal transaction-scope sentinels; both abort the enclosing
// database transaction so no partial write survives.
var (
	errWriteConflict = errors.New("concurrent state update")
	errSettledRace   = errors.New("settlement row already present")
)

// Credit applies req once. Storage conflicts and timeouts are retried
// within the policy budget; the surviving error is either invalid input
// or a transient storage failure.
func (e *Executor) Credit(ctx context.Context, req CreditRequest) (CreditResult, error) {
	if err := e.validate(req); err != nil {
		return CreditResult{}, err
	}

	var result CreditResult
	err := e.retry.Do(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		r, err := e.creditOnce(attemptCtx, req)
		if err != nil {
			return classifyStorageError(err)
		}
		result = r
		return nil
	})
	if err != nil {
		return CreditResult{}, err
	}

	if result.AlreadySettled {
		e.log.Debugw("credit already settled",
			"user_id", req.UserID, "accrual_date", req.Date.String(), "currency", req.Kind)
	} else {
		e.log.Infow("credit applied",
			"user_id", req.UserID, "accrual_date", req.Date.String(),
			"currency", req.Kind, "source", req.Source,
			"requested", req.Amount, "credited", result.Credited)
	}
	return result, nil
}

func (e *Executor) validate(req CreditRequest) error {
	if req.UserID == 0 {
		return invalidInput("missing user id")
	}
	if req.Amount < 0 {
		return invalidInput("negative amount %d", req.Amount)
	}
	if req.Date.IsZero() {
		return invalidInput("missing accrual date")
	}
	switch req.Kind {
	case models.CurrencyXP, models.CurrencyGems:
	default:
		return invalidInput("unknown currency kind %q", req.Kind)
	}
	switch req.Source {
	case models.SourceScheduled, models.SourceManualAdmin, models.SourceBackfill:
	default:
		return invalidInput("unknown source %q", req.Source)
	}
	if today := DateOf(e.now(), e.loc); req.Date.After(today) {
		return invalidInput("accrual date %s is in the future", req.Date)
	}
	return nil
}

// creditOnce performs one full attempt: settled check, fresh reads, and
// the atomic state-update-plus-transaction-append.
func (e *Executor) creditOnce(ctx context.Context, req CreditRequest) (CreditResult, error) {
	dateStr := req.Date.String()

	settled, err := e.settledFromLog(ctx, req)
	if err != nil {
		return CreditResult{}, err
	}
	if settled {
		return CreditResult{AlreadySettled: true}, nil
	}

	// Fresh read of the mutable state row; the values read here become
	// the compare-and-set guard below.
	var state models.RewardState
	haveState := true
	err = e.db.WithContext(ctx).Where("user_id = ?", req.UserID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		haveState = false
	} else if err != nil {
		return CreditResult{}, err
	}

	effectivePrior := int64(0)
	if haveState && state.LastAccrualDate == dateStr {
		// Amounts recorded for a different date are stale and count as zero.
		effectivePrior = state.DailyAmountEarned
	}

	tier, userExists, err := e.lookupTier(ctx, req.UserID)
	if err != nil {
		return CreditResult{}, err
	}

	dayCap := e.caps.DailyCap(tier)
	credited := req.Amount
	if room := dayCap - effectivePrior; credited > room {
		credited = room
	}
	if credited < 0 {
		credited = 0
	}

	txnID := uuid.NewString()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if haveState {
			update := tx.Model(&models.RewardState{}).
				Where("user_id = ? AND daily_amount_earned = ? AND last_accrual_date = ?",
					req.UserID, state.DailyAmountEarned, state.LastAccrualDate).
				Updates(map[string]interface{}{
					"daily_amount_earned": effectivePrior + credited,
					"last_accrual_date":   dateStr,
					"updated_at":          time.Now(),
				})
			if update.Error != nil {
				return update.Error
			}
			if update.RowsAffected == 0 {
				return errWriteConflict
			}
		} else {
			// Lazy creation on first accrual; a racing creator surfaces
			// as a duplicate key and the whole attempt is retried.
			fresh := models.RewardState{
				UserID:            req.UserID,
				DailyAmountEarned: credited,
				LastAccrualDate:   dateStr,
			}
			if err := tx.Create(&fresh).Error; err != nil {
				if isDuplicateKey(err) {
					return errWriteConflict
				}
				return err
			}
		}

		// The transaction row is appended even when the cap clamps the
		// credit to zero, so settlement is durable on its own.
		txn := models.RewardTransaction{
			TransactionID:  txnID,
			UserID:         req.UserID,
			AccrualDate:    dateStr,
			AmountCredited: credited,
			CurrencyKind:   req.Kind,
			Source:         req.Source,
		}
		if err := tx.Create(&txn).Error; err != nil {
			if isDuplicateKey(err) {
				return errSettledRace
			}
			return err
		}

		if userExists && credited > 0 {
			balanceColumn := "xp"
			if req.Kind == models.CurrencyGems {
				balanceColumn = "gems"
			}
			if err := tx.Model(&models.User{}).
				Where("id = ?", req.UserID).
				Update(balanceColumn, gorm.Expr(balanceColumn+" + ?", credited)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errSettledRace) {
		return CreditResult{AlreadySettled: true}, nil
	}
	if errors.Is(err, errWriteConflict) {
		return CreditResult{}, transient(err, "concurrent credit for user %d on %s", req.UserID, dateStr)
	}
	if err != nil {
		return CreditResult{}, err
	}
	return CreditResult{Credited: credited, TransactionID: txnID}, nil
}

// settledFromLog consults the append-only transaction log. The regular
// paths settle per (user, date, currency) on regular-class rows; a
// backfill is blocked by any existing row for the date regardless of
// source or currency. This read is a fast path only: a racer that
// commits after it still collides with the class-scoped unique index
// inside the write transaction.
func (e *Executor) settledFromLog(ctx context.Context, req CreditRequest) (bool, error) {
	query := e.db.WithContext(ctx).
		Model(&models.RewardTransaction{}).
		Where("user_id = ? AND accrual_date = ?", req.UserID, req.Date.String())
	if req.Source != models.SourceBackfill {
		query = query.Where("currency_kind = ? AND settlement_class = ?", req.Kind, models.SettlementRegular)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// lookupTier reads the user's membership tier. Unknown users accrue
// with the standard tier and no balance to update.
func (e *Executor) lookupTier(ctx context.Context, userID uint) (string, bool, error) {
	var user models.User
	err := e.db.WithContext(ctx).Select("id", "membership_tier").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TierStandard, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.MembershipTier, true, nil
}

// classifyStorageError keeps invalid-input and already-classified
// errors as-is and treats everything else from the storage layer,
// timeouts included, as transient.
func classifyStorageError(err error) error {
	if err == nil {
		return nil
	}
	if IsInvalidInput(err) || IsTransient(err) {
		return err
	}
	return transient(err, "storage operation failed")
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntryCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
