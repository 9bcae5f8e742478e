package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/ranking"
)

// MonthlyAwardLimit is the number of attendees rewarded by a monthly pass.
const MonthlyAwardLimit = 100

// pointValue is the discount, in currency units, of one credit point.
var pointValue = decimal.RequireFromString("0.10")

// Discount converts credit points into a currency discount.
func Discount(points int) decimal.Decimal {
	if points <= 0 {
		return decimal.Zero
	}
	return pointValue.Mul(decimal.NewFromInt(int64(points)))
}

// PointsForDiscount returns the points needed to cover amount, rounded up.
func PointsForDiscount(amount decimal.Decimal) int {
	if !amount.IsPositive() {
		return 0
	}
	return int(amount.Div(pointValue).Ceil().IntPart())
}

// AwardSummary reports a daily or monthly reward pass.
type AwardSummary struct {
	Period  string                   `json:"period"`
	Awarded int                      `json:"awarded"`
	Points  int                      `json:"points"`
	Entries []model.LeaderboardEntry `json:"entries"`
}

// CreditService manages credit point balances and the reward passes.
type CreditService struct {
	accounts AccountLedger
	ranking  *ranking.Engine
	notifier Notifier
}

// NewCreditService wires a CreditService.
func NewCreditService(accounts AccountLedger, rank *ranking.Engine, notifier Notifier) *CreditService {
	if accounts == nil || rank == nil || notifier == nil {
		panic("nil dependency passed to NewCreditService")
	}
	return &CreditService{accounts: accounts, ranking: rank, notifier: notifier}
}

// Account returns the credit ledger of username.  Unknown users have an
// empty ledger.
func (s *CreditService) Account(ctx context.Context, username string) (model.Account, error) {
	acc, err := s.accounts.GetAccount(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return model.Account{Username: username, MonthlySpent: decimal.Zero}, nil
	}
	return acc, err
}

// Balance returns the current credit points of username.
func (s *CreditService) Balance(ctx context.Context, username string) (int, error) {
	acc, err := s.Account(ctx, username)
	if err != nil {
		return 0, err
	}
	return acc.CreditPoints, nil
}

// AwardPoints grants points to username and records the reason in the
// user's inbox.
func (s *CreditService) AwardPoints(ctx context.Context, username string, points int, reason string) error {
	if username == "" {
		return model.Validation("username is required")
	}
	if points <= 0 {
		return model.Validation("points must be positive")
	}
	if err := s.grant(ctx, username, points); err != nil {
		return err
	}
	s.notifier.Notify(ctx, username, fmt.Sprintf("You received %d credit points! Reason: %s", points, reason))
	log.Printf("credit: awarded %d points to %s (%s)", points, username, reason)
	return nil
}

// Redeem spends points and returns the discount they are worth.  The
// balance never goes negative.
func (s *CreditService) Redeem(ctx context.Context, username string, points int) (decimal.Decimal, error) {
	if points <= 0 {
		return decimal.Zero, model.Validation("points must be positive")
	}
	ok, err := s.accounts.DeductPoints(ctx, username, points)
	if err != nil {
		return decimal.Zero, model.Storage("deduct points", err)
	}
	if !ok {
		balance, _ := s.Balance(ctx, username)
		return decimal.Zero, model.InsufficientPoints(balance, points)
	}
	s.notifier.Notify(ctx, username, fmt.Sprintf("You redeemed %d credit points for a discount!", points))
	return Discount(points), nil
}

// AwardDaily ranks the attendees of today's local calendar day and gives
// each the points of their rank.
func (s *CreditService) AwardDaily(ctx context.Context, today time.Time) (AwardSummary, error) {
	entries, err := s.ranking.DailyTopAttendees(ctx, today)
	if err != nil {
		return AwardSummary{}, err
	}
	sum := AwardSummary{Period: model.StartOfDay(today, s.ranking.Location()).Format("2006-01-02"), Entries: entries}
	for _, en := range entries {
		if err := s.grant(ctx, en.Username, en.Points); err != nil {
			log.Printf("credit: daily award for %s failed: %v", en.Username, err)
			continue
		}
		sum.Awarded++
		sum.Points += en.Points
		s.notifier.Notify(ctx, en.Username, fmt.Sprintf("Daily Reward! You ranked #%d today and earned %d credit points!", en.Rank, en.Points))
	}
	log.Printf("credit: daily rewards for %s: %d attendees, %d points", sum.Period, sum.Awarded, sum.Points)
	return sum, nil
}

// AwardMonthly rewards the top limit attendees of the month containing
// monthStart and then resets every account's monthly counters.  The
// reset runs even when some awards failed.
func (s *CreditService) AwardMonthly(ctx context.Context, monthStart time.Time, limit int) (AwardSummary, error) {
	if limit <= 0 {
		limit = MonthlyAwardLimit
	}
	entries, err := s.ranking.MonthlyTopAttendees(ctx, monthStart, limit)
	if err != nil {
		return AwardSummary{}, err
	}
	sum := AwardSummary{Period: model.StartOfMonth(monthStart, s.ranking.Location()).Format("2006-01"), Entries: entries}
	for _, en := range entries {
		if err := s.grant(ctx, en.Username, en.Points); err != nil {
			log.Printf("credit: monthly award for %s failed: %v", en.Username, err)
			continue
		}
		sum.Awarded++
		sum.Points += en.Points
		acc, err := s.Account(ctx, en.Username)
		if err != nil {
			acc = model.Account{Username: en.Username}
		}
		s.notifier.MonthlyCredits(ctx, acc, en.Rank, en.Points, en.Tickets)
		s.notifier.Notify(ctx, en.Username, fmt.Sprintf("Monthly Rewards! You ranked #%d and earned %d credit points!", en.Rank, en.Points))
	}
	if err := s.accounts.ResetMonthly(ctx); err != nil {
		log.Printf("credit: monthly reset failed: %v", err)
		return sum, model.Storage("reset monthly counters", err)
	}
	log.Printf("credit: monthly rewards for %s: %d attendees, %d points", sum.Period, sum.Awarded, sum.Points)
	return sum, nil
}

// TopAttendees ranks attendees over all active bookings.
func (s *CreditService) TopAttendees(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.ranking.TopAttendees(ctx, limit)
}

func (s *CreditService) grant(ctx context.Context, username string, points int) error {
	if err := s.accounts.EnsureAccount(ctx, username, ""); err != nil {
		return model.Storage("ensure account", err)
	}
	if err := s.accounts.AddPoints(ctx, username, points); err != nil {
		return model.Storage("add points", err)
	}
	return nil
}
