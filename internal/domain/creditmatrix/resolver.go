package creditmatrix

import (
	"context"
	"fmt"
)

// Experiment cohorts that steer matrix selection. Under the legacy strategy
// they override the score parameter; under v2 they arrive as first-class
// parameter tags on the matrix row itself.
const (
	ParameterReviveSemiGood = "feature:revive_semi_good_customer"
	ParameterGoldfish       = "feature:goldfish"

	scoreReviveSemiGood = "B--"
	scoreGoldfish       = "C+"
)

type ResolveInput struct {
	ApplicationID   int64
	Score           string
	IsPremiumArea   bool
	IsSalaried      bool
	IsFDCRisky      bool
	TransactionType string
	ProductLineCode string

	IsReviveSemiGood bool
	IsGoldfish       bool
}

type Resolver struct {
	repo    Repository
	genRepo GenerationRepository
	useV2   bool
}

func NewResolver(repo Repository, genRepo GenerationRepository, useV2 bool) *Resolver {
	return &Resolver{repo: repo, genRepo: genRepo, useV2: useV2}
}

// Resolve selects the applicable matrix and product-line rows. A missing row
// is ErrMatrixNotFound; callers must surface "cannot process" rather than
// invent a rate.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*Matrix, *ProductLineRow, error) {
	params := Params{
		Score:           in.Score,
		IsPremiumArea:   in.IsPremiumArea,
		IsSalaried:      in.IsSalaried,
		IsFDCRisky:      in.IsFDCRisky,
		TransactionType: in.TransactionType,
		ProductLineCode: in.ProductLineCode,
	}

	if r.useV2 {
		parameter, err := r.genRepo.LatestParameter(ctx, in.ApplicationID)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve matrix parameter for application %d: %w", in.ApplicationID, err)
		}
		params.Parameter = parameter
	} else {
		// Goldfish takes precedence when an account sits in both cohorts.
		switch {
		case in.IsGoldfish:
			params.Score = scoreGoldfish
		case in.IsReviveSemiGood:
			params.Score = scoreReviveSemiGood
		}
	}

	matrix, productLine, err := r.repo.Find(ctx, params)
	if err != nil {
		return nil, nil, fmt.Errorf("find credit matrix: %w", err)
	}
	if matrix == nil || productLine == nil {
		return nil, nil, ErrMatrixNotFound
	}
	return matrix, productLine, nil
}
