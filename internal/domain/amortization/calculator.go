// Package amortization produces principal-conserving installment schedules.
// One calculator covers the cash-loan, merchant-financing and rentee variants
// through Options; the arithmetic is shared.
package amortization

import (
	"time"

	"github.com/sajinavi2006/julomvp-sub022/internal/currency"
)

const defaultDayCountBase = 30

type Options struct {
	// DayCountBase is the number of days treated as one interest month
	// when prorating the first period.
	DayCountBase int
	// ZeroInterest forces every period's interest to zero regardless of
	// the requested rate.
	ZeroInterest bool
}

type Calculator struct {
	opts Options
}

func NewCalculator(opts Options) *Calculator {
	if opts.DayCountBase <= 0 {
		opts.DayCountBase = defaultDayCountBase
	}
	return &Calculator{opts: opts}
}

type ScheduleInput struct {
	LoanAmount          int64
	Tenor               int
	MonthlyInterestRate float64
	StartDate           time.Time
	FirstDueDate        time.Time
}

type Payment struct {
	Number   int
	DueDate  time.Time
	Principal int64
	Interest  int64
	Due       int64
}

type Schedule struct {
	Payments         []Payment
	FirstInstallment int64
	Installment      int64
}

// Installment holds one period's split. Due is always Principal + Interest.
type Installment struct {
	Principal int64
	Interest  int64
	Due       int64
}

// ComputeInstallment returns the steady-state split for periods 2..N.
// Rounding to the nearest thousand is skipped for tenor 1 and zero-rate
// loans: rounding there would manufacture interest out of nothing. When
// rounding raises the installment, the excess is booked as interest so the
// principal column still sums to the loan amount.
func (c *Calculator) ComputeInstallment(loanAmount int64, tenor int, monthlyRate float64) Installment {
	principal := loanAmount / int64(tenor)
	interest := currency.FloorInt(float64(loanAmount) * monthlyRate)
	return c.finishInstallment(principal, interest, tenor, monthlyRate)
}

// ComputeFirstInstallment prorates the first period's interest by elapsed
// days over the day-count base instead of charging a full month.
func (c *Calculator) ComputeFirstInstallment(loanAmount int64, tenor int, monthlyRate float64, start, due time.Time) Installment {
	days := DeltaDays(start, due)
	basicInterest := float64(loanAmount) * monthlyRate
	prorated := currency.FloorInt(float64(days) / float64(c.opts.DayCountBase) * basicInterest)
	principal := loanAmount / int64(tenor)
	return c.finishInstallment(principal, prorated, tenor, monthlyRate)
}

func (c *Calculator) finishInstallment(principal, interest int64, tenor int, monthlyRate float64) Installment {
	if c.opts.ZeroInterest {
		interest = 0
	}
	due := principal + interest
	if tenor != 1 && monthlyRate != 0 && !c.opts.ZeroInterest {
		rounded := currency.RoundToNearestThousand(due)
		if rounded >= principal {
			due = rounded
		}
	}
	// Rounding excess (or shortfall) lands on interest, never principal.
	return Installment{Principal: principal, Interest: due - principal, Due: due}
}

// BuildSchedule materializes the full N-period schedule. The floor-division
// residual is added to the last period's principal and taken back out of its
// interest, so the principal column reconciles to the loan amount exactly.
func (c *Calculator) BuildSchedule(in ScheduleInput) Schedule {
	first := c.ComputeFirstInstallment(in.LoanAmount, in.Tenor, in.MonthlyInterestRate, in.StartDate, in.FirstDueDate)
	steady := c.ComputeInstallment(in.LoanAmount, in.Tenor, in.MonthlyInterestRate)

	payments := make([]Payment, 0, in.Tenor)
	dueDate := in.FirstDueDate
	for n := 1; n <= in.Tenor; n++ {
		split := steady
		if n == 1 {
			split = first
		}
		payments = append(payments, Payment{
			Number:    n,
			DueDate:   dueDate,
			Principal: split.Principal,
			Interest:  split.Interest,
			Due:       split.Due,
		})
		dueDate = dueDate.AddDate(0, 1, 0)
	}

	deviation := in.LoanAmount - (first.Principal + int64(in.Tenor-1)*steady.Principal)
	last := &payments[in.Tenor-1]
	last.Principal += deviation
	if last.Interest == 0 {
		// Zero-interest row: the installment follows the corrected principal.
		last.Due = last.Principal
	} else {
		last.Interest -= deviation
	}

	return Schedule{
		Payments:         payments,
		FirstInstallment: first.Due,
		Installment:      steady.Due,
	}
}

// DeltaDays is the whole-day difference between two dates, floored at zero.
func DeltaDays(start, due time.Time) int {
	d := int(due.Sub(start).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
