package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking-engine/internal/middleware"
	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/ranking"
	"github.com/iliyamo/event-booking-engine/internal/scheduler"
	"github.com/iliyamo/event-booking-engine/internal/service"
)

const defaultBoardSize = 10

// CreditHandler serves credit balances, leaderboards, reward passes and
// reports.
type CreditHandler struct {
	Credits   *service.CreditService
	Ranking   *ranking.Engine
	Scheduler *scheduler.RewardScheduler // optional; daily awards bypass the watermark without it
	now       func() time.Time
}

// NewCreditHandler panics if credits or rank is nil.
func NewCreditHandler(credits *service.CreditService, rank *ranking.Engine, sched *scheduler.RewardScheduler) *CreditHandler {
	if credits == nil || rank == nil {
		panic("nil dependency passed to NewCreditHandler")
	}
	return &CreditHandler{Credits: credits, Ranking: rank, Scheduler: sched, now: time.Now}
}

func (h *CreditHandler) today() time.Time {
	return model.StartOfDay(h.now(), h.Ranking.Location())
}

// GetCredits handles GET /v1/credits.
func (h *CreditHandler) GetCredits(c echo.Context) error {
	acc, err := h.Credits.Account(c.Request().Context(), middleware.Username(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"account":        acc,
		"discount_value": service.Discount(acc.CreditPoints),
	})
}

// Redeem handles POST /v1/credits/redeem.
func (h *CreditHandler) Redeem(c echo.Context) error {
	var body struct {
		Points int `json:"points"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	user := middleware.Username(c)
	discount, err := h.Credits.Redeem(ctx, user, body.Points)
	if err != nil {
		return respondError(c, err)
	}
	balance, err := h.Credits.Balance(ctx, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"redeemed": body.Points, "discount": discount, "balance": balance})
}

// AwardPoints handles POST /v1/admin/credits/award.
func (h *CreditHandler) AwardPoints(c echo.Context) error {
	var body struct {
		Username string `json:"username"`
		Points   int    `json:"points"`
		Reason   string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		reason = "Manual award"
	}
	ctx := c.Request().Context()
	user := strings.TrimSpace(body.Username)
	if err := h.Credits.AwardPoints(ctx, user, body.Points, reason); err != nil {
		return respondError(c, err)
	}
	balance, err := h.Credits.Balance(ctx, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"username": user, "awarded": body.Points, "balance": balance})
}

// DailyRewards handles POST /v1/admin/rewards/daily?date=YYYY-MM-DD.  It
// goes through the scheduler so a day is never rewarded twice.
func (h *CreditHandler) DailyRewards(c echo.Context) error {
	day, err := parseDay(c.QueryParam("date"), h.Ranking.Location(), h.today())
	if err != nil {
		return respondError(c, err)
	}
	var sum service.AwardSummary
	if h.Scheduler != nil {
		sum, err = h.Scheduler.RunNow(c.Request().Context(), day)
	} else {
		sum, err = h.Credits.AwardDaily(c.Request().Context(), day)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// MonthlyRewards handles POST /v1/admin/rewards/monthly?month=YYYY-MM&limit=.
func (h *CreditHandler) MonthlyRewards(c echo.Context) error {
	loc := h.Ranking.Location()
	month, err := parseMonth(c.QueryParam("month"), loc, model.StartOfMonth(h.now(), loc))
	if err != nil {
		return respondError(c, err)
	}
	limit, err := queryInt(c, "limit", service.MonthlyAwardLimit)
	if err != nil {
		return respondError(c, err)
	}
	sum, err := h.Credits.AwardMonthly(c.Request().Context(), month, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// DailyLeaderboard handles GET /v1/leaderboard/daily?date=.
func (h *CreditHandler) DailyLeaderboard(c echo.Context) error {
	day, err := parseDay(c.QueryParam("date"), h.Ranking.Location(), h.today())
	if err != nil {
		return respondError(c, err)
	}
	entries, err := h.Ranking.DailyTopAttendees(c.Request().Context(), day)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": day.Format("2006-01-02"), "entries": nonNil(entries)})
}

// MonthlyLeaderboard handles GET /v1/leaderboard/monthly?month=&limit=.
func (h *CreditHandler) MonthlyLeaderboard(c echo.Context) error {
	loc := h.Ranking.Location()
	month, err := parseMonth(c.QueryParam("month"), loc, model.StartOfMonth(h.now(), loc))
	if err != nil {
		return respondError(c, err)
	}
	limit, err := queryInt(c, "limit", defaultBoardSize)
	if err != nil {
		return respondError(c, err)
	}
	entries, err := h.Ranking.MonthlyTopAttendees(c.Request().Context(), month, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"month": month.Format("2006-01"), "entries": nonNil(entries)})
}

// TopEvents handles GET /v1/admin/reports/top-events?limit=.
func (h *CreditHandler) TopEvents(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultBoardSize)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := h.Ranking.TopEventsByRevenue(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	if rows == nil {
		rows = []model.EventRevenue{}
	}
	return c.JSON(http.StatusOK, echo.Map{"events": rows})
}

// TopAttendees handles GET /v1/admin/reports/top-attendees?limit=.
func (h *CreditHandler) TopAttendees(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultBoardSize)
	if err != nil {
		return respondError(c, err)
	}
	entries, err := h.Credits.TopAttendees(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"attendees": nonNil(entries)})
}

func nonNil(entries []model.LeaderboardEntry) []model.LeaderboardEntry {
	if entries == nil {
		return []model.LeaderboardEntry{}
	}
	return entries
}
