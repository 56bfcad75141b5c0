package loan

import (
	"context"
	"time"
)

// Status is the loan lifecycle code. Codes below 220 are early lifecycle and
// subject to the workflow path check.
type Status int

const (
	StatusDraft                Status = 209
	StatusInactive             Status = 210
	StatusLenderApproval       Status = 211
	StatusFundDisbursalOngoing Status = 212
	StatusTransactionFailed    Status = 215
	StatusCancelledByCustomer  Status = 216
	StatusSphpExpired          Status = 217
	StatusFundDisbursalFailed  Status = 218
	StatusLenderReject         Status = 219
	StatusCurrent              Status = 220
	StatusPaidOff              Status = 250
)

var statusNames = map[Status]string{
	StatusDraft:                "DRAFT",
	StatusInactive:             "INACTIVE",
	StatusLenderApproval:       "LENDER_APPROVAL",
	StatusFundDisbursalOngoing: "FUND_DISBURSAL_ONGOING",
	StatusTransactionFailed:    "TRANSACTION_FAILED",
	StatusCancelledByCustomer:  "CANCELLED_BY_CUSTOMER",
	StatusSphpExpired:          "SPHP_EXPIRED",
	StatusFundDisbursalFailed:  "FUND_DISBURSAL_FAILED",
	StatusLenderReject:         "LENDER_REJECT",
	StatusCurrent:              "CURRENT",
	StatusPaidOff:              "PAID_OFF",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s Status) IsFailState() bool {
	switch s {
	case StatusTransactionFailed, StatusCancelledByCustomer, StatusSphpExpired,
		StatusFundDisbursalFailed, StatusLenderReject:
		return true
	}
	return false
}

// Entity is the persisted loan aggregate root.
type Entity struct {
	ID            string
	AccountID     int64
	ApplicationID int64
	CustomerID    int64

	LoanAmount          int64
	Tenor               int
	FirstInstallment    int64
	Installment         int64
	DisbursementAmount  int64
	MonthlyInterestRate float64
	ProvisionAmount     int64
	TaxAmount           int64

	Status            Status
	TransactionMethod string
	CreditMatrixID    int64
	RequestHash       []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentRecord is one Payment row; created atomically with its loan.
type PaymentRecord struct {
	ID        string
	LoanID    string
	Number    int
	DueDate   time.Time
	DueAmount int64
	Principal int64
	Interest  int64
}

// HistoryEntry is the immutable audit record of one status change.
type HistoryEntry struct {
	LoanID       string
	StatusOld    Status
	StatusNew    Status
	ChangeReason string
	ChangedBy    string
	CreatedAt    time.Time
}

// AdjustedRateRecord is persisted only when the max-fee rule fired.
type AdjustedRateRecord struct {
	AdjustedMonthlyRate     float64
	AdjustedFirstPeriodRate float64
	MaxFeeRate              float64
	TotalFeeRate            float64
}

// EffectEvent is one deferred side effect enqueued atomically with its
// transition and dispatched after commit.
type EffectEvent struct {
	Topic   string
	Payload []byte
}

// TransitionRecord is what a decided status change writes: the status
// assignment, exactly one history row and the post-commit effect events.
type TransitionRecord struct {
	NewStatus    Status
	ChangeReason string
	ChangedBy    string
	Effects      []EffectEvent
}

// CreateInput is everything the repository persists in the single
// create-loan transaction.
type CreateInput struct {
	AccountID     int64
	ApplicationID int64
	CustomerID    int64

	LoanAmount          int64
	Tenor               int
	FirstInstallment    int64
	Installment         int64
	DisbursementAmount  int64
	MonthlyInterestRate float64
	ProvisionAmount     int64
	TaxAmount           int64

	Status            Status
	TransactionMethod string
	CreditMatrixID    int64
	RequestHash       []byte

	Payments     []PaymentRecord
	AdjustedRate *AdjustedRateRecord
}

type Repository interface {
	// CreateWithSchedule persists the loan, its payments, the initial
	// history row, the transaction detail and (when present) the adjusted
	// rate record in one transaction.
	CreateWithSchedule(ctx context.Context, in CreateInput) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int32) ([]Entity, error)
	// UpdateStatusTx locks the loan row (SELECT ... FOR UPDATE), hands the
	// current status to decide, and atomically applies the returned record:
	// status update, history insert and effect enqueue commit together.
	UpdateStatusTx(ctx context.Context, loanID string, decide func(current Status) (*TransitionRecord, error)) error
}

// AccountSnapshot is the account/application risk view the origination flow
// reads once per request.
type AccountSnapshot struct {
	AccountID     int64
	CustomerID    int64
	ApplicationID int64

	ApplicationStatus int
	ProductLineCode   string
	CycleDay          int

	SetLimit       int64
	AvailableLimit int64

	Score            string
	IsPremiumArea    bool
	IsSalaried       bool
	IsFDCRisky       bool
	IsRepeatUser     bool
	BScore           *float64
	IsReviveSemiGood bool
	IsGoldfish       bool

	HasNameBankMismatchTag bool
	HasFraudBlockTag       bool

	InsurancePremiumRate           float64
	DelayedDisbursementPremiumRate float64
	DigisignFee                    int64
	RegistrationFee                int64
}

type AccountRepository interface {
	GetSnapshot(ctx context.Context, applicationID int64) (*AccountSnapshot, error)
}
