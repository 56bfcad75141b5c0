package eligibility

import (
	"context"
	"fmt"
	"time"
)

// GTLStatus mirrors the account_gtl row. A nil status means the account has
// never been evaluated.
type GTLStatus struct {
	IsGTLInside      bool
	IsGTLOutside     bool
	IsMaybeGTLInside bool
	// InsideCleared is set when ops manually clears an inside block; the
	// gate must not re-lock a cleared account.
	InsideCleared       bool
	OutsideBlockedUntil time.Time
}

// GTLRepository persists lock decisions. Lock methods are transactional:
// the account_gtl upsert, the loan_fail_gtl audit row and the CRM outbox
// event commit or roll back together.
type GTLRepository interface {
	GetStatus(ctx context.Context, accountID int64) (*GTLStatus, error)
	LockInside(ctx context.Context, accountID, loanAmount int64, reason string) error
	LockOutside(ctx context.Context, accountID, loanAmount int64, reason string, blockedUntil time.Time) error
}

type AccountLimit struct {
	SetLimit       int64
	UsedLimit      int64
	AvailableLimit int64
}

type AccountLimitRepository interface {
	GetLimit(ctx context.Context, accountID int64) (*AccountLimit, error)
}

// LoanActivityRepository answers the lookback question: did the account pay
// off a loan (late, not on time) within the window.
type LoanActivityRepository interface {
	HasPaidOffNotOnTime(ctx context.Context, accountID int64, since time.Time) (bool, error)
}

type FDCLoan struct {
	MaxDPD       int
	ReportedDate time.Time
}

type FDCRepository interface {
	LatestLoans(ctx context.Context, customerID int64) ([]FDCLoan, error)
}

type GTLConfig struct {
	InsideUtilizationThreshold float64
	InsideLookback             time.Duration
	OutsideBScoreThreshold     float64
	OutsideCooldown            time.Duration
	OutsideBypassDigits        []int
}

// GTLInsideGate vetoes concentration risk inside the platform: near-full
// limit utilization right after a late pay-off signals limit cycling.
type GTLInsideGate struct {
	gtlRepo      GTLRepository
	limitRepo    AccountLimitRepository
	activityRepo LoanActivityRepository
	cfg          GTLConfig
	now          func() time.Time
}

func NewGTLInsideGate(gtlRepo GTLRepository, limitRepo AccountLimitRepository, activityRepo LoanActivityRepository, cfg GTLConfig) *GTLInsideGate {
	return &GTLInsideGate{
		gtlRepo:      gtlRepo,
		limitRepo:    limitRepo,
		activityRepo: activityRepo,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (g *GTLInsideGate) Name() string { return "gtl_inside" }

func (g *GTLInsideGate) Check(ctx context.Context, in CheckInput) (Decision, error) {
	status, err := g.gtlRepo.GetStatus(ctx, in.AccountID)
	if err != nil {
		return Decision{}, fmt.Errorf("gtl inside status for account %d: %w", in.AccountID, err)
	}
	maybeFlagged := false
	if status != nil {
		if status.InsideCleared {
			return pass(), nil
		}
		if status.IsGTLInside {
			// Already locked: re-evaluation is a read, no re-persist.
			return lock(ReasonGTLInside), nil
		}
		maybeFlagged = status.IsMaybeGTLInside
	}

	// A maybe-flagged account was shortlisted by the risk batch; the
	// lookback decides it regardless of current utilization.
	if !maybeFlagged {
		limit, err := g.limitRepo.GetLimit(ctx, in.AccountID)
		if err != nil {
			return Decision{}, fmt.Errorf("account limit for account %d: %w", in.AccountID, err)
		}
		if limit == nil || limit.SetLimit <= 0 {
			return pass(), nil
		}

		utilization := float64(limit.UsedLimit+in.LoanAmountRequest) / float64(limit.SetLimit)
		if utilization < g.cfg.InsideUtilizationThreshold {
			return pass(), nil
		}
	}

	since := g.now().Add(-g.cfg.InsideLookback)
	latePaidOff, err := g.activityRepo.HasPaidOffNotOnTime(ctx, in.AccountID, since)
	if err != nil {
		return Decision{}, fmt.Errorf("paid-off lookback for account %d: %w", in.AccountID, err)
	}
	if !latePaidOff {
		return pass(), nil
	}

	if err := g.gtlRepo.LockInside(ctx, in.AccountID, in.LoanAmountRequest, string(ReasonGTLInside)); err != nil {
		return Decision{}, fmt.Errorf("persist gtl inside lock for account %d: %w", in.AccountID, err)
	}
	return lock(ReasonGTLInside), nil
}

// GTLOutsideGate vetoes cross-platform concentration risk using the FDC
// bureau feed: low B-score repeat users with DPD hits observed on month
// boundaries are blocked for a cooldown.
type GTLOutsideGate struct {
	gtlRepo GTLRepository
	fdcRepo FDCRepository
	cfg     GTLConfig
	now     func() time.Time
}

func NewGTLOutsideGate(gtlRepo GTLRepository, fdcRepo FDCRepository, cfg GTLConfig) *GTLOutsideGate {
	return &GTLOutsideGate{
		gtlRepo: gtlRepo,
		fdcRepo: fdcRepo,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (g *GTLOutsideGate) Name() string { return "gtl_outside" }

func (g *GTLOutsideGate) Check(ctx context.Context, in CheckInput) (Decision, error) {
	now := g.now()

	status, err := g.gtlRepo.GetStatus(ctx, in.AccountID)
	if err != nil {
		return Decision{}, fmt.Errorf("gtl outside status for account %d: %w", in.AccountID, err)
	}
	if status != nil && status.IsGTLOutside && now.Before(status.OutsideBlockedUntil) {
		return lock(ReasonGTLOutside), nil
	}

	// Experiment cohort keyed on the application id's last digit.
	lastDigit := int(in.ApplicationID % 10)
	for _, d := range g.cfg.OutsideBypassDigits {
		if d == lastDigit {
			return pass(), nil
		}
	}

	if in.BScore == nil || *in.BScore >= g.cfg.OutsideBScoreThreshold || !in.IsRepeatUser {
		return pass(), nil
	}

	loans, err := g.fdcRepo.LatestLoans(ctx, in.CustomerID)
	if err != nil {
		return Decision{}, fmt.Errorf("fdc loans for customer %d: %w", in.CustomerID, err)
	}
	if !hasBoundaryDPD(loans, now) {
		return pass(), nil
	}

	blockedUntil := now.Add(g.cfg.OutsideCooldown)
	if err := g.gtlRepo.LockOutside(ctx, in.AccountID, in.LoanAmountRequest, string(ReasonGTLOutside), blockedUntil); err != nil {
		return Decision{}, fmt.Errorf("persist gtl outside lock for account %d: %w", in.AccountID, err)
	}
	return lock(ReasonGTLOutside), nil
}

// hasBoundaryDPD reports whether any bureau loan shows days-past-due at a
// 1-month-boundary day diff (30/60/90 days before now).
func hasBoundaryDPD(loans []FDCLoan, now time.Time) bool {
	for _, l := range loans {
		if l.MaxDPD <= 0 {
			continue
		}
		diff := int(now.Sub(l.ReportedDate).Hours() / 24)
		if diff >= 30 && diff <= 90 && diff%30 == 0 {
			return true
		}
	}
	return false
}
