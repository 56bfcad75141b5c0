package creditmatrix

import (
	"context"
	"errors"
)

// ErrMatrixNotFound is a hard stop: there is no safe default rate to fall
// back to when no matrix row matches the account's risk parameters.
var ErrMatrixNotFound = errors.New("credit matrix not found")

// Matrix is an immutable rate/fee reference row selected per request.
type Matrix struct {
	ID                  int64
	MonthlyInterestRate float64
	ProvisionRate       float64
	MinThreshold        float64
	MaxThreshold        float64
	Parameter           string
	TransactionType     string
}

// ProductLineRow bounds the offer for one product line.
type ProductLineRow struct {
	ProductLineCode string
	MinLoanAmount   int64
	MaxLoanAmount   int64
	MinDuration     int
	MaxDuration     int
	MaxInterestRate float64
}

const (
	ProductLineJ1      = "J1"
	ProductLineStarter = "JTURBO"
)

// Params is the lookup tuple a repository matches matrix rows against.
type Params struct {
	Score           string
	IsPremiumArea   bool
	IsSalaried      bool
	IsFDCRisky      bool
	TransactionType string
	ProductLineCode string
	// Parameter is the v2 secondary filter sourced from the latest credit
	// limit generation; empty means "rows without a parameter tag".
	Parameter string
}

type Repository interface {
	Find(ctx context.Context, p Params) (*Matrix, *ProductLineRow, error)
}

// GenerationRepository reads the experiment parameter recorded when the
// account's credit limit was generated.
type GenerationRepository interface {
	LatestParameter(ctx context.Context, applicationID int64) (string, error)
}
