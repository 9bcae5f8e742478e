package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// AccountRepo stores credit balances and activity counters.
type AccountRepo struct {
	db      *sqlx.DB
	dialect dialect
}

// NewAccountRepo returns a new AccountRepo bound to the given database.
func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db, dialect: dialectOf(db)} }

type accountRecord struct {
	Username       string          `db:"username"`
	Email          string          `db:"email"`
	CreditPoints   int             `db:"credit_points"`
	TicketsBought  int             `db:"tickets_bought"`
	EventsAttended int             `db:"events_attended"`
	MonthlyTickets int             `db:"monthly_tickets"`
	MonthlyEvents  int             `db:"monthly_events"`
	MonthlySpent   decimal.Decimal `db:"monthly_spent"`
}

const accountColumns = `username, email, credit_points, tickets_bought, events_attended, monthly_tickets, monthly_events, monthly_spent`

func (r accountRecord) toModel() model.Account {
	return model.Account{
		Username:       r.Username,
		Email:          r.Email,
		CreditPoints:   r.CreditPoints,
		TicketsBought:  r.TicketsBought,
		EventsAttended: r.EventsAttended,
		MonthlyTickets: r.MonthlyTickets,
		MonthlyEvents:  r.MonthlyEvents,
		MonthlySpent:   r.MonthlySpent.Round(2),
	}
}

// EnsureAccount creates the account if needed and fills in a missing
// email address.  An existing email is never overwritten.
func (r *AccountRepo) EnsureAccount(ctx context.Context, username, email string) error {
	if _, err := r.db.ExecContext(ctx,
		r.dialect.insertIgnore()+` accounts (username, email) VALUES (?, ?)`, username, email); err != nil {
		return storageErr("ensure account", err)
	}
	if email == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET email = ? WHERE username = ? AND email = ''`, email, username); err != nil {
		return storageErr("ensure account", err)
	}
	return nil
}

// GetAccount returns the account of username or a NotFound error.
func (r *AccountRepo) GetAccount(ctx context.Context, username string) (model.Account, error) {
	var rec accountRecord
	if err := r.db.GetContext(ctx, &rec, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username); err != nil {
		return model.Account{}, notFoundOr("get account", "account", username, err)
	}
	return rec.toModel(), nil
}

// ListAccounts returns accounts by credit points descending.  A limit of
// zero or less returns every account.
func (r *AccountRepo) ListAccounts(ctx context.Context, limit int) ([]model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts ORDER BY credit_points DESC, username`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	var recs []accountRecord
	if err := r.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, storageErr("list accounts", err)
	}
	out := make([]model.Account, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// AddActivity applies d to the lifetime and monthly counters.  Ticket and
// event counters are clamped at zero.
func (r *AccountRepo) AddActivity(ctx context.Context, username string, d model.ActivityDelta) error {
	const q = `UPDATE accounts SET
		tickets_bought  = CASE WHEN tickets_bought + ? < 0 THEN 0 ELSE tickets_bought + ? END,
		monthly_tickets = CASE WHEN monthly_tickets + ? < 0 THEN 0 ELSE monthly_tickets + ? END,
		events_attended = CASE WHEN events_attended + ? < 0 THEN 0 ELSE events_attended + ? END,
		monthly_events  = CASE WHEN monthly_events + ? < 0 THEN 0 ELSE monthly_events + ? END,
		monthly_spent   = monthly_spent + ?
		WHERE username = ?`
	res, err := r.db.ExecContext(ctx, q,
		d.Tickets, d.Tickets, d.Tickets, d.Tickets, d.Events, d.Events, d.Events, d.Events, d.Spent, username)
	if err != nil {
		return storageErr("record activity", err)
	}
	return r.touched(ctx, res.RowsAffected, username)
}

// AddPoints credits points to username.
func (r *AccountRepo) AddPoints(ctx context.Context, username string, points int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET credit_points = credit_points + ? WHERE username = ?`, points, username)
	if err != nil {
		return storageErr("add points", err)
	}
	return r.touched(ctx, res.RowsAffected, username)
}

// DeductPoints removes points only when the balance covers them.
func (r *AccountRepo) DeductPoints(ctx context.Context, username string, points int) (bool, error) {
	if points <= 0 {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET credit_points = credit_points - ? WHERE username = ? AND credit_points >= ?`,
		points, username, points)
	if err != nil {
		return false, storageErr("deduct points", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("deduct points", err)
	}
	return n == 1, nil
}

// ResetMonthly zeroes every account's monthly counters.
func (r *AccountRepo) ResetMonthly(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET monthly_tickets = 0, monthly_events = 0, monthly_spent = 0`); err != nil {
		return storageErr("reset monthly counters", err)
	}
	return nil
}

// touched turns a zero-row update into NotFound when the account does not
// exist.  MySQL also reports zero rows for updates that change nothing.
func (r *AccountRepo) touched(ctx context.Context, rowsAffected func() (int64, error), username string) error {
	n, err := rowsAffected()
	if err != nil {
		return storageErr("update account", err)
	}
	if n > 0 {
		return nil
	}
	_, err = r.GetAccount(ctx, username)
	return err
}
