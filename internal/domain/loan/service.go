package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/sajinavi2006/julomvp-sub022/internal/domain/amortization"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/creditmatrix"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/eligibility"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/maxfee"
)

var (
	ErrInvalidRequest    = errors.New("invalid loan request")
	ErrAmountOutOfRange  = errors.New("loan amount outside product line range")
	ErrAccountNotFound   = errors.New("account not found")
	ErrDurationOutOfRange = errors.New("loan duration outside product line range")
)

// RejectionError is an eligibility veto: a structured, user-facing rejection
// rather than a processing failure.
type RejectionError struct {
	Reason eligibility.Reason
	Popup  *eligibility.ErrorPopup
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("loan request rejected: %s", e.Reason)
}

// CreateLoanInput is the inbound loan-creation request.
type CreateLoanInput struct {
	ApplicationID       int64
	LoanAmountRequest   int64
	LoanDurationRequest int
	TransactionMethod   eligibility.TransactionMethod
	IsSelfBankAccount   bool
	AppVersion          string

	IsZeroInterest  bool
	IsConsolidation bool
}

// Offer is the response payload: a persisted loan plus its headline numbers.
type Offer struct {
	LoanID             string  `json:"loan_id"`
	LoanStatus         string  `json:"loan_status"`
	LoanAmount         int64   `json:"loan_amount"`
	Tenor              int     `json:"loan_duration"`
	FirstInstallment   int64   `json:"first_installment_amount"`
	Installment        int64   `json:"installment_amount"`
	DisbursementAmount int64   `json:"disbursement_amount"`
	MonthlyInterest    float64 `json:"monthly_interest"`
	MaxFeeExceeded     bool    `json:"-"`
}

type Service struct {
	engine   *eligibility.Engine
	resolver *creditmatrix.Resolver
	adjuster *maxfee.Adjuster

	repo        Repository
	accountRepo AccountRepository
	paths       *PathChecker
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(
	engine *eligibility.Engine,
	resolver *creditmatrix.Resolver,
	adjuster *maxfee.Adjuster,
	repo Repository,
	accountRepo AccountRepository,
	paths *PathChecker,
	logger *slog.Logger,
) *Service {
	return &Service{
		engine:      engine,
		resolver:    resolver,
		adjuster:    adjuster,
		repo:        repo,
		accountRepo: accountRepo,
		paths:       paths,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateLoan runs the full origination pipeline: eligibility, matrix
// resolution, max-fee adjustment, amortization, then one transactional
// persist. Not idempotent: callers must check for a committed loan before
// retrying after a transient failure.
func (s *Service) CreateLoan(ctx context.Context, in CreateLoanInput) (*Offer, error) {
	if in.LoanAmountRequest <= 0 || in.LoanDurationRequest < 1 {
		return nil, ErrInvalidRequest
	}

	snapshot, err := s.accountRepo.GetSnapshot(ctx, in.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("account snapshot for application %d: %w", in.ApplicationID, err)
	}
	if snapshot == nil {
		return nil, ErrAccountNotFound
	}

	decision, err := s.engine.Evaluate(ctx, eligibility.CheckInput{
		CustomerID:             snapshot.CustomerID,
		AccountID:              snapshot.AccountID,
		ApplicationID:          in.ApplicationID,
		ApplicationStatus:      snapshot.ApplicationStatus,
		ProductLineCode:        snapshot.ProductLineCode,
		TransactionMethod:      in.TransactionMethod,
		LoanAmountRequest:      in.LoanAmountRequest,
		IsSelfBankAccount:      in.IsSelfBankAccount,
		AppVersion:             in.AppVersion,
		BScore:                 snapshot.BScore,
		IsRepeatUser:           snapshot.IsRepeatUser,
		HasNameBankMismatchTag: snapshot.HasNameBankMismatchTag,
		HasFraudBlockTag:       snapshot.HasFraudBlockTag,
	})
	if err != nil {
		return nil, err
	}
	if decision.Locked {
		return nil, &RejectionError{Reason: decision.Reason, Popup: decision.Popup}
	}

	matrix, productLine, err := s.resolver.Resolve(ctx, creditmatrix.ResolveInput{
		ApplicationID:    in.ApplicationID,
		Score:            snapshot.Score,
		IsPremiumArea:    snapshot.IsPremiumArea,
		IsSalaried:       snapshot.IsSalaried,
		IsFDCRisky:       snapshot.IsFDCRisky,
		TransactionType:  string(in.TransactionMethod),
		ProductLineCode:  snapshot.ProductLineCode,
		IsReviveSemiGood: snapshot.IsReviveSemiGood,
		IsGoldfish:       snapshot.IsGoldfish,
	})
	if err != nil {
		return nil, err
	}
	if in.LoanAmountRequest < productLine.MinLoanAmount || in.LoanAmountRequest > productLine.MaxLoanAmount {
		return nil, ErrAmountOutOfRange
	}
	if in.LoanDurationRequest > productLine.MaxDuration ||
		(productLine.MinDuration > 0 && in.LoanDurationRequest < productLine.MinDuration) {
		return nil, ErrDurationOutOfRange
	}

	start := s.now()
	firstDue := firstDueDate(start, snapshot.CycleDay)
	deltaDays := amortization.DeltaDays(start, firstDue)

	adjusted := s.adjuster.Adjust(maxfee.LoanRequest{
		LoanAmount:                     in.LoanAmountRequest,
		Tenor:                          in.LoanDurationRequest,
		MonthlyInterestRate:            matrix.MonthlyInterestRate,
		ProvisionRate:                  matrix.ProvisionRate,
		InsurancePremiumRate:           snapshot.InsurancePremiumRate,
		DelayedDisbursementPremiumRate: snapshot.DelayedDisbursementPremiumRate,
		DigisignFee:                    snapshot.DigisignFee,
		RegistrationFee:                snapshot.RegistrationFee,
		IsSelfDisbursement:             in.TransactionMethod == eligibility.MethodSelf,
		IsConsolidation:                in.IsConsolidation,
		IsZeroInterest:                 in.IsZeroInterest,
	}, deltaDays)

	calc := amortization.NewCalculator(amortization.Options{ZeroInterest: in.IsZeroInterest})
	schedule := calc.BuildSchedule(amortization.ScheduleInput{
		LoanAmount:          adjusted.LoanAmount,
		Tenor:               in.LoanDurationRequest,
		MonthlyInterestRate: adjusted.MonthlyInterestRate,
		StartDate:           start,
		FirstDueDate:        firstDue,
	})

	createIn := CreateInput{
		AccountID:           snapshot.AccountID,
		ApplicationID:       in.ApplicationID,
		CustomerID:          snapshot.CustomerID,
		LoanAmount:          adjusted.LoanAmount,
		Tenor:               in.LoanDurationRequest,
		FirstInstallment:    schedule.FirstInstallment,
		Installment:         schedule.Installment,
		DisbursementAmount:  adjusted.DisbursementAmount,
		MonthlyInterestRate: adjusted.MonthlyInterestRate,
		ProvisionAmount:     adjusted.ProvisionAmount,
		TaxAmount:           adjusted.TaxAmount,
		Status:              StatusInactive,
		TransactionMethod:   string(in.TransactionMethod),
		CreditMatrixID:      matrix.ID,
		RequestHash:         requestHash(in),
		Payments:            toPaymentRecords(schedule),
	}
	if adjusted.Exceeded {
		createIn.AdjustedRate = &AdjustedRateRecord{
			AdjustedMonthlyRate:     adjusted.MonthlyInterestRate,
			AdjustedFirstPeriodRate: adjusted.FirstPeriodInterestRate,
			MaxFeeRate:              adjusted.MaxFeeRate,
			TotalFeeRate:            adjusted.TotalFeeRate,
		}
	}

	created, err := s.repo.CreateWithSchedule(ctx, createIn)
	if err != nil {
		return nil, fmt.Errorf("persist loan for application %d: %w", in.ApplicationID, err)
	}

	s.logger.Info("loan created",
		"loan_id", created.ID,
		"application_id", in.ApplicationID,
		"loan_amount", created.LoanAmount,
		"tenor", created.Tenor,
		"max_fee_exceeded", adjusted.Exceeded,
	)

	return &Offer{
		LoanID:             created.ID,
		LoanStatus:         created.Status.String(),
		LoanAmount:         created.LoanAmount,
		Tenor:              created.Tenor,
		FirstInstallment:   created.FirstInstallment,
		Installment:        created.Installment,
		DisbursementAmount: created.DisbursementAmount,
		MonthlyInterest:    created.MonthlyInterestRate,
		MaxFeeExceeded:     adjusted.Exceeded,
	}, nil
}

// UpdateStatus serializes concurrent transitions on the loan row lock and
// enqueues the effect events atomically with the history write. force skips
// the workflow path check.
func (s *Service) UpdateStatus(ctx context.Context, loanID string, newStatus Status, changeReason, changedBy string, force bool) error {
	return s.repo.UpdateStatusTx(ctx, loanID, func(current Status) (*TransitionRecord, error) {
		if current == newStatus {
			return nil, ErrStatusUnchanged
		}
		if err := s.paths.Validate(current, newStatus, force); err != nil {
			return nil, err
		}
		entity, err := s.repo.GetByID(ctx, loanID)
		if err != nil {
			return nil, err
		}
		change := StatusChange{
			LoanID:       loanID,
			AccountID:    entity.AccountID,
			CustomerID:   entity.CustomerID,
			Old:          current,
			New:          newStatus,
			ChangeReason: changeReason,
		}
		return &TransitionRecord{
			NewStatus:    newStatus,
			ChangeReason: changeReason,
			ChangedBy:    changedBy,
			Effects:      EffectsFor(change),
		}, nil
	})
}

// SimulateLoan prices a request without persisting anything: same matrix,
// max-fee and amortization pipeline, no eligibility side effects.
func (s *Service) SimulateLoan(ctx context.Context, in CreateLoanInput) (*Offer, error) {
	if in.LoanAmountRequest <= 0 || in.LoanDurationRequest < 1 {
		return nil, ErrInvalidRequest
	}
	snapshot, err := s.accountRepo.GetSnapshot(ctx, in.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("account snapshot for application %d: %w", in.ApplicationID, err)
	}
	if snapshot == nil {
		return nil, ErrAccountNotFound
	}

	matrix, productLine, err := s.resolver.Resolve(ctx, creditmatrix.ResolveInput{
		ApplicationID:    in.ApplicationID,
		Score:            snapshot.Score,
		IsPremiumArea:    snapshot.IsPremiumArea,
		IsSalaried:       snapshot.IsSalaried,
		IsFDCRisky:       snapshot.IsFDCRisky,
		TransactionType:  string(in.TransactionMethod),
		ProductLineCode:  snapshot.ProductLineCode,
		IsReviveSemiGood: snapshot.IsReviveSemiGood,
		IsGoldfish:       snapshot.IsGoldfish,
	})
	if err != nil {
		return nil, err
	}
	if in.LoanAmountRequest < productLine.MinLoanAmount || in.LoanAmountRequest > productLine.MaxLoanAmount {
		return nil, ErrAmountOutOfRange
	}

	start := s.now()
	firstDue := firstDueDate(start, snapshot.CycleDay)
	deltaDays := amortization.DeltaDays(start, firstDue)

	adjusted := s.adjuster.Adjust(maxfee.LoanRequest{
		LoanAmount:                     in.LoanAmountRequest,
		Tenor:                          in.LoanDurationRequest,
		MonthlyInterestRate:            matrix.MonthlyInterestRate,
		ProvisionRate:                  matrix.ProvisionRate,
		InsurancePremiumRate:           snapshot.InsurancePremiumRate,
		DelayedDisbursementPremiumRate: snapshot.DelayedDisbursementPremiumRate,
		DigisignFee:                    snapshot.DigisignFee,
		RegistrationFee:                snapshot.RegistrationFee,
		IsSelfDisbursement:             in.TransactionMethod == eligibility.MethodSelf,
		IsConsolidation:                in.IsConsolidation,
		IsZeroInterest:                 in.IsZeroInterest,
	}, deltaDays)

	calc := amortization.NewCalculator(amortization.Options{ZeroInterest: in.IsZeroInterest})
	schedule := calc.BuildSchedule(amortization.ScheduleInput{
		LoanAmount:          adjusted.LoanAmount,
		Tenor:               in.LoanDurationRequest,
		MonthlyInterestRate: adjusted.MonthlyInterestRate,
		StartDate:           start,
		FirstDueDate:        firstDue,
	})

	return &Offer{
		LoanStatus:         StatusDraft.String(),
		LoanAmount:         adjusted.LoanAmount,
		Tenor:              in.LoanDurationRequest,
		FirstInstallment:   schedule.FirstInstallment,
		Installment:        schedule.Installment,
		DisbursementAmount: adjusted.DisbursementAmount,
		MonthlyInterest:    adjusted.MonthlyInterestRate,
		MaxFeeExceeded:     adjusted.Exceeded,
	}, nil
}

// DurationOptions lists the tenors offerable for an amount, bounded by the
// account's product line and capped by the configured tenure ranges.
func (s *Service) DurationOptions(ctx context.Context, applicationID, amount int64, ranges []TenureRange) ([]int, error) {
	if amount <= 0 {
		return nil, ErrInvalidRequest
	}
	snapshot, err := s.accountRepo.GetSnapshot(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("account snapshot for application %d: %w", applicationID, err)
	}
	if snapshot == nil {
		return nil, ErrAccountNotFound
	}

	_, productLine, err := s.resolver.Resolve(ctx, creditmatrix.ResolveInput{
		ApplicationID:    applicationID,
		Score:            snapshot.Score,
		IsPremiumArea:    snapshot.IsPremiumArea,
		IsSalaried:       snapshot.IsSalaried,
		IsFDCRisky:       snapshot.IsFDCRisky,
		TransactionType:  string(eligibility.MethodSelf),
		ProductLineCode:  snapshot.ProductLineCode,
		IsReviveSemiGood: snapshot.IsReviveSemiGood,
		IsGoldfish:       snapshot.IsGoldfish,
	})
	if err != nil {
		return nil, err
	}
	if amount < productLine.MinLoanAmount || amount > productLine.MaxLoanAmount {
		return nil, ErrAmountOutOfRange
	}

	return AvailableDurations(amount, snapshot.SetLimit, productLine.MinDuration, productLine.MaxDuration, ranges), nil
}

func (s *Service) GetLoan(ctx context.Context, loanID string) (*Entity, error) {
	return s.repo.GetByID(ctx, loanID)
}

func (s *Service) ListLoans(ctx context.Context, accountID int64, limit, offset int32) ([]Entity, error) {
	return s.repo.ListByAccount(ctx, accountID, limit, offset)
}

// firstDueDate picks the account's next cycle day, pushed a month out when
// it would land under 10 days from the start (too short to bill).
func firstDueDate(start time.Time, cycleDay int) time.Time {
	if cycleDay < 1 || cycleDay > 28 {
		cycleDay = 1
	}
	due := time.Date(start.Year(), start.Month(), cycleDay, 0, 0, 0, 0, start.Location())
	for due.Sub(start).Hours() < 10*24 {
		due = due.AddDate(0, 1, 0)
	}
	return due
}

func requestHash(in CreateLoanInput) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "%d:%d:%d:%s", in.ApplicationID, in.LoanAmountRequest, in.LoanDurationRequest, in.TransactionMethod)
	return h.Sum(nil)
}

func toPaymentRecords(schedule amortization.Schedule) []PaymentRecord {
	out := make([]PaymentRecord, 0, len(schedule.Payments))
	for _, p := range schedule.Payments {
		out = append(out, PaymentRecord{
			Number:    p.Number,
			DueDate:   p.DueDate,
			DueAmount: p.Due,
			Principal: p.Principal,
			Interest:  p.Interest,
		})
	}
	return out
}
