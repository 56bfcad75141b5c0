package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/creditmatrix"
)

type CreditMatrixRepository struct {
	pool *pgxpool.Pool
}

func NewCreditMatrixRepository(pool *pgxpool.Pool) *CreditMatrixRepository {
	return &CreditMatrixRepository{pool: pool}
}

// Find matches the newest matrix row for the risk tuple plus the product line
// bounds. Rows carry an optional parameter tag; an empty params.Parameter
// matches only untagged rows.
func (r *CreditMatrixRepository) Find(ctx context.Context, p creditmatrix.Params) (*creditmatrix.Matrix, *creditmatrix.ProductLineRow, error) {
	matrixQ := `
SELECT id, monthly_interest_rate, provision_rate, min_threshold, max_threshold,
       COALESCE(parameter, ''), transaction_type
FROM credit_matrix
WHERE score = $1
  AND is_premium_area = $2
  AND is_salaried = $3
  AND is_fdc_risky = $4
  AND transaction_type = $5
  AND product_line_code = $6
  AND COALESCE(parameter, '') = $7
  AND is_active = TRUE
ORDER BY cdate DESC
LIMIT 1`
	m := &creditmatrix.Matrix{}
	err := r.pool.QueryRow(ctx, matrixQ,
		p.Score, p.IsPremiumArea, p.IsSalaried, p.IsFDCRisky,
		p.TransactionType, p.ProductLineCode, p.Parameter,
	).Scan(&m.ID, &m.MonthlyInterestRate, &m.ProvisionRate,
		&m.MinThreshold, &m.MaxThreshold, &m.Parameter, &m.TransactionType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, creditmatrix.ErrMatrixNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query credit_matrix: %w", err)
	}

	lineQ := `
SELECT product_line_code, min_loan_amount, max_loan_amount, min_duration, max_duration, max_interest_rate
FROM product_line
WHERE product_line_code = $1`
	line := &creditmatrix.ProductLineRow{}
	err = r.pool.QueryRow(ctx, lineQ, p.ProductLineCode).Scan(
		&line.ProductLineCode, &line.MinLoanAmount, &line.MaxLoanAmount,
		&line.MinDuration, &line.MaxDuration, &line.MaxInterestRate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, creditmatrix.ErrMatrixNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query product_line: %w", err)
	}
	return m, line, nil
}

// GenerationRepository reads the limit-generation experiment parameter used
// by the v2 matrix lookup.
type GenerationRepository struct {
	pool *pgxpool.Pool
}

func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepository {
	return &GenerationRepository{pool: pool}
}

func (r *GenerationRepository) LatestParameter(ctx context.Context, applicationID int64) (string, error) {
	q := `
SELECT COALESCE(parameter, '')
FROM credit_limit_generation
WHERE application_id = $1
ORDER BY cdate DESC
LIMIT 1`
	var parameter string
	err := r.pool.QueryRow(ctx, q, applicationID).Scan(&parameter)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return parameter, nil
}
