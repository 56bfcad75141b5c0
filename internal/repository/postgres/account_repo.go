package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/loan"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetSnapshot joins the account, application, limit and risk-attribute rows
// into the single read the origination flow performs per request.
func (r *AccountRepository) GetSnapshot(ctx context.Context, applicationID int64) (*loan.AccountSnapshot, error) {
	q := `
SELECT
  a.id, a.customer_id, app.id,
  app.application_status, app.product_line_code, a.cycle_day,
  al.set_limit, al.available_limit,
  COALESCE(ra.score, ''), COALESCE(ra.is_premium_area, FALSE), COALESCE(ra.is_salaried, FALSE),
  COALESCE(ra.is_fdc_risky, FALSE), COALESCE(ra.is_repeat_user, FALSE), ra.b_score,
  COALESCE(ra.is_revive_semi_good, FALSE), COALESCE(ra.is_goldfish, FALSE),
  EXISTS (
    SELECT 1 FROM application_tag t
    WHERE t.application_id = app.id AND t.tag = 'name_bank_mismatch' AND t.is_active
  ),
  EXISTS (
    SELECT 1 FROM application_tag t
    WHERE t.application_id = app.id AND t.tag = 'fraud_block' AND t.is_active
  ),
  COALESCE(fp.insurance_premium_rate, 0), COALESCE(fp.delayed_disbursement_premium_rate, 0),
  COALESCE(fp.digisign_fee, 0), COALESCE(fp.registration_fee, 0)
FROM applications app
JOIN accounts a ON a.id = app.account_id
JOIN account_limit al ON al.account_id = a.id
LEFT JOIN account_risk_attribute ra ON ra.account_id = a.id
LEFT JOIN account_fee_profile fp ON fp.account_id = a.id
WHERE app.id = $1`

	s := &loan.AccountSnapshot{}
	err := r.pool.QueryRow(ctx, q, applicationID).Scan(
		&s.AccountID, &s.CustomerID, &s.ApplicationID,
		&s.ApplicationStatus, &s.ProductLineCode, &s.CycleDay,
		&s.SetLimit, &s.AvailableLimit,
		&s.Score, &s.IsPremiumArea, &s.IsSalaried,
		&s.IsFDCRisky, &s.IsRepeatUser, &s.BScore,
		&s.IsReviveSemiGood, &s.IsGoldfish,
		&s.HasNameBankMismatchTag,
		&s.HasFraudBlockTag,
		&s.InsurancePremiumRate, &s.DelayedDisbursementPremiumRate,
		&s.DigisignFee, &s.RegistrationFee,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RecalculateAvailableLimit recomputes used and available limit from loans
// still holding limit (active statuses; failed and paid-off loans release it).
func (r *AccountRepository) RecalculateAvailableLimit(ctx context.Context, accountID int64) error {
	q := `
UPDATE account_limit al
SET used_limit = sub.used,
    available_limit = al.set_limit - sub.used,
    udate = NOW()
FROM (
  SELECT COALESCE(SUM(loan_amount), 0) AS used
  FROM loans
  WHERE account_id = $1 AND loan_status IN (210, 211, 212, 220)
) sub
WHERE al.account_id = $1`
	_, err := r.pool.Exec(ctx, q, accountID)
	return err
}
