package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/eligibility"
)

// GTLRepository persists GTL lock state. It also serves the account-limit
// and loan-activity reads the inside gate needs, so one repository backs the
// whole gate pair.
type GTLRepository struct {
	pool *pgxpool.Pool
}

func NewGTLRepository(pool *pgxpool.Pool) *GTLRepository {
	return &GTLRepository{pool: pool}
}

func (r *GTLRepository) GetStatus(ctx context.Context, accountID int64) (*eligibility.GTLStatus, error) {
	q := `
SELECT is_gtl_inside, is_gtl_outside, is_maybe_gtl_inside, inside_cleared, COALESCE(outside_blocked_until, 'epoch'::timestamptz)
FROM account_gtl WHERE account_id = $1`
	status := &eligibility.GTLStatus{}
	err := r.pool.QueryRow(ctx, q, accountID).Scan(
		&status.IsGTLInside, &status.IsGTLOutside, &status.IsMaybeGTLInside,
		&status.InsideCleared, &status.OutsideBlockedUntil,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (r *GTLRepository) LockInside(ctx context.Context, accountID, loanAmount int64, reason string) error {
	return r.lock(ctx, accountID, loanAmount, reason, `
INSERT INTO account_gtl (account_id, is_gtl_inside, udate)
VALUES ($1, TRUE, NOW())
ON CONFLICT (account_id) DO UPDATE SET is_gtl_inside = TRUE, udate = NOW()`, nil)
}

func (r *GTLRepository) LockOutside(ctx context.Context, accountID, loanAmount int64, reason string, blockedUntil time.Time) error {
	return r.lock(ctx, accountID, loanAmount, reason, `
INSERT INTO account_gtl (account_id, is_gtl_outside, outside_blocked_until, udate)
VALUES ($1, TRUE, $2, NOW())
ON CONFLICT (account_id) DO UPDATE SET is_gtl_outside = TRUE, outside_blocked_until = $2, udate = NOW()`, &blockedUntil)
}

// lock writes the account_gtl upsert, the loan_fail_gtl audit row and the CRM
// notification event in one transaction.
func (r *GTLRepository) lock(ctx context.Context, accountID, loanAmount int64, reason, upsert string, blockedUntil *time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if blockedUntil != nil {
		_, err = tx.Exec(ctx, upsert, accountID, *blockedUntil)
	} else {
		_, err = tx.Exec(ctx, upsert, accountID)
	}
	if err != nil {
		return fmt.Errorf("upsert account_gtl: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO account_gtl_history (account_id, field_name, value_old, value_new, change_reason)
		 VALUES ($1, $2, 'false', 'true', $3)`,
		accountID, historyField(blockedUntil), reason,
	); err != nil {
		return fmt.Errorf("insert account_gtl_history: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO loan_fail_gtl (account_id, loan_amount_request, block_reason)
		 VALUES ($1, $2, $3)`,
		accountID, loanAmount, reason,
	); err != nil {
		return fmt.Errorf("insert loan_fail_gtl: %w", err)
	}

	payload := fmt.Sprintf(`{"account_id": %d, "reason": %q}`, accountID, reason)
	if _, err := tx.Exec(ctx,
		`INSERT INTO outbox_jobs (topic, payload, status) VALUES ('notify_gtl_blocked', $1::jsonb, 'pending')`,
		payload,
	); err != nil {
		return fmt.Errorf("enqueue gtl notification: %w", err)
	}

	return tx.Commit(ctx)
}

func historyField(blockedUntil *time.Time) string {
	if blockedUntil != nil {
		return "is_gtl_outside"
	}
	return "is_gtl_inside"
}

func (r *GTLRepository) GetLimit(ctx context.Context, accountID int64) (*eligibility.AccountLimit, error) {
	q := `SELECT set_limit, used_limit, available_limit FROM account_limit WHERE account_id = $1`
	limit := &eligibility.AccountLimit{}
	err := r.pool.QueryRow(ctx, q, accountID).Scan(&limit.SetLimit, &limit.UsedLimit, &limit.AvailableLimit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return limit, nil
}

func (r *GTLRepository) HasPaidOffNotOnTime(ctx context.Context, accountID int64, since time.Time) (bool, error) {
	q := `
SELECT EXISTS (
  SELECT 1 FROM loans l
  JOIN loan_history h ON h.loan_id = l.id
  WHERE l.account_id = $1
    AND h.status_new = 250
    AND h.cdate >= $2
    AND l.paid_late = TRUE
)`
	var found bool
	if err := r.pool.QueryRow(ctx, q, accountID, since).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
