package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Kevin69007/appli-interne-cuspide-sub007/config"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/middleware"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/rewards"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/utils"
)

// Trigger actions accepted by the run endpoint.
const (
	actionDailyRewards = "daily_rewards"
	actionManualAdmin  = "manual_admin"
)

// RewardController exposes the accrual engine's trigger, backfill and
// read endpoints. The external scheduler and admin UI both call the same
// run endpoint and differ only in the action tag they send.
type RewardController struct {
	db            *gorm.DB
	runner        *rewards.BatchRunner
	backfiller    *rewards.Backfiller
	caps          rewards.CapPolicy
	loc           *time.Location
	defaultPerDay int64
}

// NewRewardController wires the engine from loaded configuration.
func NewRewardController(db *gorm.DB) *RewardController {
	cfg := config.Get()

	loc, err := time.LoadLocation(cfg.RewardTimezone)
	if err != nil {
		utils.Sugar.Warnf("invalid reward timezone %q, falling back to UTC: %v", cfg.RewardTimezone, err)
		loc = time.UTC
	}

	caps := rewards.NewCapPolicy(cfg.RewardStandardCap, cfg.RewardPremiumCap)
	executor := rewards.NewExecutor(db, rewards.ExecutorOptions{
		Caps: caps,
		Retry: rewards.RetryPolicy{
			MaxAttempts:    cfg.RewardCreditAttempts,
			InitialBackoff: time.Duration(cfg.RewardRetryBaseMillis) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.RewardRetryMaxMillis) * time.Millisecond,
		},
		Location: loc,
		Timeout:  time.Duration(cfg.RewardCreditTimeoutMS) * time.Millisecond,
		Logger:   utils.Sugar,
	})

	return &RewardController{
		db: db,
		runner: rewards.NewBatchRunner(db, executor, rewards.BatchOptions{
			Workers:   cfg.RewardBatchWorkers,
			DailyXP:   cfg.RewardDailyXP,
			DailyGems: cfg.RewardDailyGems,
			Location:  loc,
			Lock:      utils.GetRedis(),
			Logger:    utils.Sugar,
		}),
		backfiller: rewards.NewBackfiller(db, executor, rewards.BackfillOptions{
			Workers:  cfg.RewardBatchWorkers,
			Location: loc,
			Logger:   utils.Sugar,
		}),
		caps:          caps,
		loc:           loc,
		defaultPerDay: cfg.RewardBackfillAmount,
	}
}

type runRequest struct {
	Action string `json:"action" binding:"required"`
	Source string `json:"source"`
}

type batchResponse struct {
	Success  bool                  `json:"success"`
	Credited int                   `json:"credited"`
	Failed   int                   `json:"failed"`
	Errors   []rewards.UserFailure `json:"errors"`
}

func toBatchResponse(result rewards.BatchResult) batchResponse {
	errs := result.Failed
	if errs == nil {
		errs = []rewards.UserFailure{}
	}
	return batchResponse{
		Success:  result.FailedCount() == 0,
		Credited: result.Succeeded,
		Failed:   result.FailedCount(),
		Errors:   errs,
	}
}

// Run fires the daily accrual batch for today's date. Invoked by the
// external cron trigger or by an administrator; re-running for the same
// day only touches users not yet settled.
func (r *RewardController) Run(ctx *gin.Context) {
	var req runRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "action is required")
		return
	}

	var source string
	switch req.Action {
	case actionDailyRewards:
		source = models.SourceScheduled
	case actionManualAdmin:
		source = models.SourceManualAdmin
	default:
		utils.Error(ctx, http.StatusBadRequest, 40011, "unknown action")
		return
	}

	utils.Sugar.Infow("reward run triggered",
		"action", req.Action, "trigger", req.Source, "by", ctx.GetString(middleware.ContextUsernameKey))

	result, err := r.runner.RunDaily(ctx.Request.Context(), source)
	if err != nil {
		if errors.Is(err, rewards.ErrRunInProgress) {
			utils.Error(ctx, http.StatusConflict, 40901, "a run for today is already in progress")
			return
		}
		if rewards.IsInvalidInput(err) {
			utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
			return
		}
		utils.Error(ctx, http.StatusBadGateway, 50210, "reward run failed to start")
		return
	}

	utils.Success(ctx, toBatchResponse(result))
}

type backfillRequest struct {
	Dates        []string `json:"dates" binding:"required"`
	AmountPerDay int64    `json:"amount_per_day"`
}

// Backfill retroactively credits the given historical dates. Dates with
// an existing transaction are skipped; the endpoint is safe to re-run.
func (r *RewardController) Backfill(ctx *gin.Context) {
	var req backfillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "dates are required")
		return
	}

	dates := make([]rewards.AccrualDate, 0, len(req.Dates))
	for _, raw := range req.Dates {
		date, err := rewards.ParseAccrualDate(raw)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40014, "invalid date: "+raw)
			return
		}
		dates = append(dates, date)
	}

	amount := req.AmountPerDay
	if amount == 0 {
		amount = r.defaultPerDay
	}

	utils.Sugar.Infow("reward backfill triggered",
		"dates", req.Dates, "amount_per_day", amount, "by", ctx.GetString(middleware.ContextUsernameKey))

	result, err := r.backfiller.Backfill(ctx.Request.Context(), dates, amount)
	if err != nil {
		if rewards.IsInvalidInput(err) {
			utils.Error(ctx, http.StatusBadRequest, 40015, err.Error())
			return
		}
		utils.Error(ctx, http.StatusBadGateway, 50211, "backfill failed to start")
		return
	}

	utils.Success(ctx, toBatchResponse(result))
}

// Status returns the signed-in user's accrual position for today.
func (r *RewardController) Status(ctx *gin.Context) {
	userID := ctx.GetUint(middleware.ContextUserIDKey)
	if userID == 0 {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := r.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to load user")
		return
	}

	today := rewards.Today(r.loc)

	var state models.RewardState
	earnedToday := int64(0)
	if err := r.db.Where("user_id = ?", userID).First(&state).Error; err == nil {
		if state.LastAccrualDate == today.String() {
			earnedToday = state.DailyAmountEarned
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load reward state")
		return
	}

	var recent []models.RewardTransaction
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(10).
		Find(&recent).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load transactions")
		return
	}

	settledToday := false
	for _, txn := range recent {
		if txn.AccrualDate == today.String() && txn.Source != models.SourceBackfill {
			settledToday = true
			break
		}
	}

	utils.Success(ctx, gin.H{
		"accrual_date":        today.String(),
		"daily_amount_earned": earnedToday,
		"daily_cap":           r.caps.DailyCap(user.MembershipTier),
		"membership_tier":     user.MembershipTier,
		"settled_today":       settledToday,
		"xp":                  user.XP,
		"gems":                user.Gems,
		"recent_transactions": recent,
	})
}

// Transactions lists audit rows for reconciliation, filtered by user
// and/or date. Admin only.
func (r *RewardController) Transactions(ctx *gin.Context) {
	query := r.db.Model(&models.RewardTransaction{})

	if raw := ctx.Query("user_id"); raw != "" {
		query = query.Where("user_id = ?", raw)
	}
	if raw := ctx.Query("date"); raw != "" {
		date, err := rewards.ParseAccrualDate(raw)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40016, "invalid date: "+raw)
			return
		}
		query = query.Where("accrual_date = ?", date.String())
	}

	var txns []models.RewardTransaction
	if err := query.Order("created_at DESC").Limit(100).Find(&txns).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to load transactions")
		return
	}

	utils.Success(ctx, gin.H{"transactions": txns})
}
