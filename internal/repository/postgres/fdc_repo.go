package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/eligibility"
)

// FDCRepository reads the ingested bureau feed. Only the latest inquiry per
// customer matters for the outside gate.
type FDCRepository struct {
	pool *pgxpool.Pool
}

func NewFDCRepository(pool *pgxpool.Pool) *FDCRepository {
	return &FDCRepository{pool: pool}
}

func (r *FDCRepository) LatestLoans(ctx context.Context, customerID int64) ([]eligibility.FDCLoan, error) {
	q := `
SELECT l.max_dpd, l.reported_date
FROM fdc_inquiry_loan l
JOIN fdc_inquiry i ON i.id = l.fdc_inquiry_id
WHERE i.customer_id = $1
  AND i.id = (SELECT id FROM fdc_inquiry WHERE customer_id = $1 ORDER BY cdate DESC LIMIT 1)`
	rows, err := r.pool.Query(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]eligibility.FDCLoan, 0)
	for rows.Next() {
		var l eligibility.FDCLoan
		if err := rows.Scan(&l.MaxDPD, &l.ReportedDate); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
