package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/loan"
)

type LoanRepository struct {
	pool *pgxpool.Pool
}

func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `
id, account_id, application_id, customer_id, loan_amount, loan_duration,
first_installment_amount, installment_amount, loan_disbursement_amount,
interest_rate_monthly, provision_amount, tax_amount, loan_status,
transaction_method, credit_matrix_id, request_hash, cdate, udate`

func scanLoan(row pgx.Row) (*loan.Entity, error) {
	out := &loan.Entity{}
	var status int
	err := row.Scan(
		&out.ID, &out.AccountID, &out.ApplicationID, &out.CustomerID, &out.LoanAmount, &out.Tenor,
		&out.FirstInstallment, &out.Installment, &out.DisbursementAmount,
		&out.MonthlyInterestRate, &out.ProvisionAmount, &out.TaxAmount, &status,
		&out.TransactionMethod, &out.CreditMatrixID, &out.RequestHash, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	out.Status = loan.Status(status)
	return out, nil
}

// CreateWithSchedule persists the aggregate in one transaction: loan row,
// payment rows, the initial history entry, the transaction detail and the
// adjusted-rate record when the max-fee rule fired.
func (r *LoanRepository) CreateWithSchedule(ctx context.Context, in loan.CreateInput) (*loan.Entity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	loanID := uuid.NewString()
	q := `
INSERT INTO loans (
  id, account_id, application_id, customer_id, loan_amount, loan_duration,
  first_installment_amount, installment_amount, loan_disbursement_amount,
  interest_rate_monthly, provision_amount, tax_amount, loan_status,
  transaction_method, credit_matrix_id, request_hash
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING ` + loanColumns
	created, err := scanLoan(tx.QueryRow(ctx, q,
		loanID, in.AccountID, in.ApplicationID, in.CustomerID, in.LoanAmount, in.Tenor,
		in.FirstInstallment, in.Installment, in.DisbursementAmount,
		in.MonthlyInterestRate, in.ProvisionAmount, in.TaxAmount, int(in.Status),
		in.TransactionMethod, in.CreditMatrixID, in.RequestHash,
	))
	if err != nil {
		return nil, fmt.Errorf("insert loan: %w", err)
	}

	paymentQ := `
INSERT INTO payments (id, loan_id, payment_number, due_date, due_amount, installment_principal, installment_interest)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	for _, p := range in.Payments {
		if _, err := tx.Exec(ctx, paymentQ,
			uuid.NewString(), loanID, p.Number, p.DueDate, p.DueAmount, p.Principal, p.Interest,
		); err != nil {
			return nil, fmt.Errorf("insert payment %d: %w", p.Number, err)
		}
	}

	historyQ := `
INSERT INTO loan_history (loan_id, status_old, status_new, change_reason, changed_by)
VALUES ($1, 0, $2, 'loan created', 'system')`
	if _, err := tx.Exec(ctx, historyQ, loanID, int(in.Status)); err != nil {
		return nil, fmt.Errorf("insert loan history: %w", err)
	}

	detailQ := `
INSERT INTO loan_transaction_detail (loan_id, request_hash, transaction_method)
VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, detailQ, loanID, in.RequestHash, in.TransactionMethod); err != nil {
		return nil, fmt.Errorf("insert transaction detail: %w", err)
	}

	if in.AdjustedRate != nil {
		adjustedQ := `
INSERT INTO loan_adjusted_rate (loan_id, adjusted_monthly_interest_rate, adjusted_first_month_interest_rate, max_fee, simple_fee)
VALUES ($1,$2,$3,$4,$5)`
		if _, err := tx.Exec(ctx, adjustedQ, loanID,
			in.AdjustedRate.AdjustedMonthlyRate, in.AdjustedRate.AdjustedFirstPeriodRate,
			in.AdjustedRate.MaxFeeRate, in.AdjustedRate.TotalFeeRate,
		); err != nil {
			return nil, fmt.Errorf("insert adjusted rate: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*loan.Entity, error) {
	q := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return scanLoan(r.pool.QueryRow(ctx, q, id))
}

func (r *LoanRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int32) ([]loan.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + loanColumns + ` FROM loans WHERE account_id = $1 ORDER BY cdate DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Entity, 0)
	for rows.Next() {
		item, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatusTx serializes concurrent transitions on one loan: the row lock
// is taken before the old status is read, and the status update, history row
// and outbox events commit together.
func (r *LoanRepository) UpdateStatusTx(ctx context.Context, loanID string, decide func(current loan.Status) (*loan.TransitionRecord, error)) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current int
	if err := tx.QueryRow(ctx, `SELECT loan_status FROM loans WHERE id = $1 FOR UPDATE`, loanID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("loan %s not found", loanID)
		}
		return err
	}

	record, err := decide(loan.Status(current))
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE loans SET loan_status = $2, udate = NOW() WHERE id = $1`,
		loanID, int(record.NewStatus),
	); err != nil {
		return fmt.Errorf("update loan status: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO loan_history (loan_id, status_old, status_new, change_reason, changed_by)
		 VALUES ($1,$2,$3,$4,$5)`,
		loanID, current, int(record.NewStatus), record.ChangeReason, record.ChangedBy,
	); err != nil {
		return fmt.Errorf("insert loan history: %w", err)
	}

	for _, effect := range record.Effects {
		if _, err := tx.Exec(ctx,
			`INSERT INTO outbox_jobs (topic, payload, status) VALUES ($1, $2::jsonb, 'pending')`,
			effect.Topic, effect.Payload,
		); err != nil {
			return fmt.Errorf("enqueue effect %s: %w", effect.Topic, err)
		}
	}

	return tx.Commit(ctx)
}
