// Package maxfee enforces the regulatory ceiling on total cost of credit.
// Exceeding the ceiling is not an error: the adjuster recomputes a compliant
// effective rate (and, when the provision is re-capped, grosses the principal
// back up so the net disbursement the customer asked for is preserved).
package maxfee

import (
	"github.com/sajinavi2006/julomvp-sub022/internal/currency"
	"github.com/shopspring/decimal"
)

const ratePlaces = 7

type Config struct {
	// DailyMaxFeeRate is the regulator-capped cost of credit per day,
	// as a fraction of principal.
	DailyMaxFeeRate float64
	// TaxRate is the VAT applied on the provision + flat fee base.
	TaxRate      float64
	DayCountBase int
}

// LoanRequest is the immutable input to one adjustment pass. Percentage
// fields are decimal fractions in [0, 1]; flat fees are integer rupiah.
type LoanRequest struct {
	LoanAmount          int64
	Tenor               int
	MonthlyInterestRate float64

	ProvisionRate                  float64
	InsurancePremiumRate           float64
	DelayedDisbursementPremiumRate float64
	DigisignFee                    int64
	RegistrationFee                int64

	IsSelfDisbursement bool
	IsConsolidation    bool
	IsZeroInterest     bool
}

// Result carries the (possibly adjusted) economics the schedule is built
// from. When Exceeded is false every field echoes the request.
type Result struct {
	Exceeded bool

	LoanAmount              int64
	MonthlyInterestRate     float64
	FirstPeriodInterestRate float64
	ProvisionRate           float64

	AdjustedTotalInterestRate float64
	TotalFeeRate              float64
	MaxFeeRate                float64

	ProvisionAmount    int64
	TaxAmount          int64
	DisbursementAmount int64
}

type Adjuster struct {
	cfg Config
}

func NewAdjuster(cfg Config) *Adjuster {
	if cfg.DayCountBase <= 0 {
		cfg.DayCountBase = 30
	}
	return &Adjuster{cfg: cfg}
}

// Adjust compares the request's total cost of credit to the ceiling for its
// total loan days and, when exceeded, re-derives a compliant rate/provision
// pair. deltaDays is the prorated first-period day count.
func (a *Adjuster) Adjust(req LoanRequest, deltaDays int) Result {
	base := float64(a.cfg.DayCountBase)
	totalDays := float64(deltaDays) + float64(req.Tenor-1)*base
	maxFeeRate := currency.Py2Round(a.cfg.DailyMaxFeeRate*totalDays, ratePlaces)

	firstRate := req.MonthlyInterestRate * float64(deltaDays) / base
	totalInterestRate := currency.Py2Round(firstRate+req.MonthlyInterestRate*float64(req.Tenor-1), ratePlaces)
	if req.IsZeroInterest {
		totalInterestRate = 0
		firstRate = 0
	}

	flatFeeRate := flatRate(req.DigisignFee+req.RegistrationFee, req.LoanAmount)
	simpleFeeRate := req.ProvisionRate + req.InsurancePremiumRate + req.DelayedDisbursementPremiumRate + flatFeeRate
	totalFeeRate := currency.Py2Round(simpleFeeRate+totalInterestRate, ratePlaces)

	out := Result{
		LoanAmount:              req.LoanAmount,
		MonthlyInterestRate:     req.MonthlyInterestRate,
		FirstPeriodInterestRate: currency.Py2Round(firstRate, ratePlaces),
		ProvisionRate:           req.ProvisionRate,
		TotalFeeRate:            totalFeeRate,
		MaxFeeRate:              maxFeeRate,
	}

	if totalFeeRate <= maxFeeRate {
		a.settleAmounts(&out, req)
		return out
	}

	out.Exceeded = true
	provisionChanged := false

	switch {
	case req.DelayedDisbursementPremiumRate > 0:
		// Divergent product path: the premium holds the nominal term
		// fixed instead of solving back from the ceiling.
		out.AdjustedTotalInterestRate = currency.Py2Round(req.MonthlyInterestRate*float64(req.Tenor), ratePlaces)
	case simpleFeeRate >= maxFeeRate:
		otherFees := simpleFeeRate - req.ProvisionRate
		newProvision := currency.Py2Round(maxFeeRate-otherFees, ratePlaces)
		if newProvision < 0 {
			newProvision = 0
		}
		out.ProvisionRate = newProvision
		out.AdjustedTotalInterestRate = 0
		provisionChanged = newProvision != req.ProvisionRate
	default:
		out.AdjustedTotalInterestRate = currency.Py2Round(maxFeeRate-simpleFeeRate, ratePlaces)
	}

	monthlyFactor := float64(deltaDays)/base + float64(req.Tenor-1)
	if monthlyFactor <= 0 {
		// Single-period loan due immediately: the whole term is one period.
		monthlyFactor = 1
	}
	out.MonthlyInterestRate = currency.Py2Round(out.AdjustedTotalInterestRate/monthlyFactor, ratePlaces)
	out.FirstPeriodInterestRate = currency.Py2Round(out.MonthlyInterestRate*float64(deltaDays)/base, ratePlaces)

	if provisionChanged && !req.IsSelfDisbursement {
		// Gross up so the net disbursement matches the amount the
		// customer originally asked for.
		grossed := decimal.NewFromInt(req.LoanAmount).
			Div(decimal.NewFromFloat(1).Sub(decimal.NewFromFloat(out.ProvisionRate))).
			Round(0)
		out.LoanAmount = grossed.IntPart()
	}

	a.settleAmounts(&out, req)
	return out
}

func (a *Adjuster) settleAmounts(out *Result, req LoanRequest) {
	out.ProvisionAmount = currency.FloorInt(float64(out.LoanAmount) * out.ProvisionRate)
	flatFees := req.DigisignFee + req.RegistrationFee
	if !req.IsConsolidation {
		out.TaxAmount = currency.FloorInt(a.cfg.TaxRate * float64(out.ProvisionAmount+flatFees))
	}
	out.DisbursementAmount = out.LoanAmount - out.ProvisionAmount - out.TaxAmount - flatFees
}

func flatRate(fee, amount int64) float64 {
	if amount <= 0 || fee <= 0 {
		return 0
	}
	return currency.Py2Round(float64(fee)/float64(amount), ratePlaces)
}
