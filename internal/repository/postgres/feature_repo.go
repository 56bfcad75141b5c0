package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/eligibility"
)

type FeatureRepository struct {
	pool *pgxpool.Pool
}

func NewFeatureRepository(pool *pgxpool.Pool) *FeatureRepository {
	return &FeatureRepository{pool: pool}
}

func (r *FeatureRepository) Get(ctx context.Context, name string) (*eligibility.FeatureSetting, error) {
	q := `SELECT feature_name, is_active, COALESCE(app_version_constraint, '') FROM feature_setting WHERE feature_name = $1`
	setting := &eligibility.FeatureSetting{}
	err := r.pool.QueryRow(ctx, q, name).Scan(&setting.Name, &setting.IsActive, &setting.AppVersionConstraint)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return setting, nil
}
