package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/creditmatrix"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/eligibility"
	loandomain "github.com/sajinavi2006/julomvp-sub022/internal/domain/loan"
)

type LoanService interface {
	CreateLoan(ctx context.Context, in loandomain.CreateLoanInput) (*loandomain.Offer, error)
	SimulateLoan(ctx context.Context, in loandomain.CreateLoanInput) (*loandomain.Offer, error)
	DurationOptions(ctx context.Context, applicationID, amount int64, ranges []loandomain.TenureRange) ([]int, error)
	GetLoan(ctx context.Context, loanID string) (*loandomain.Entity, error)
	ListLoans(ctx context.Context, accountID int64, limit, offset int32) ([]loandomain.Entity, error)
	UpdateStatus(ctx context.Context, loanID string, newStatus loandomain.Status, changeReason, changedBy string, force bool) error
}

type LoanHandler struct {
	loanService  LoanService
	tenureRanges []loandomain.TenureRange
}

func NewLoanHandler(loanService LoanService, tenureRanges []loandomain.TenureRange) *LoanHandler {
	return &LoanHandler{loanService: loanService, tenureRanges: tenureRanges}
}

type createLoanRequest struct {
	ApplicationID     int64  `json:"application_id"`
	LoanAmountRequest int64  `json:"loan_amount_request"`
	LoanDuration      int    `json:"loan_duration"`
	TransactionMethod string `json:"transaction_method"`
	IsSelfBankAccount bool   `json:"self_bank_account"`
	AppVersion        string `json:"app_version"`
	IsZeroInterest    bool   `json:"is_zero_interest"`
	IsConsolidation   bool   `json:"is_consolidation"`
}

func (r createLoanRequest) toInput() loandomain.CreateLoanInput {
	return loandomain.CreateLoanInput{
		ApplicationID:       r.ApplicationID,
		LoanAmountRequest:   r.LoanAmountRequest,
		LoanDurationRequest: r.LoanDuration,
		TransactionMethod:   eligibility.TransactionMethod(r.TransactionMethod),
		IsSelfBankAccount:   r.IsSelfBankAccount,
		AppVersion:          strings.TrimSpace(r.AppVersion),
		IsZeroInterest:      r.IsZeroInterest,
		IsConsolidation:     r.IsConsolidation,
	}
}

func (h *LoanHandler) CreateLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	offer, err := h.loanService.CreateLoan(c.Request.Context(), req.toInput())
	if err != nil {
		writeLoanError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

func (h *LoanHandler) SimulateLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	offer, err := h.loanService.SimulateLoan(c.Request.Context(), req.toInput())
	if err != nil {
		writeLoanError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

func (h *LoanHandler) GetDurationOptions(c *gin.Context) {
	applicationID, _ := strconv.ParseInt(strings.TrimSpace(c.Query("application_id")), 10, 64)
	amount, _ := strconv.ParseInt(strings.TrimSpace(c.Query("loan_amount")), 10, 64)
	if applicationID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_application_id"})
		return
	}

	durations, err := h.loanService.DurationOptions(c.Request.Context(), applicationID, amount, h.tenureRanges)
	if err != nil {
		writeLoanError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available_durations": durations})
}

func (h *LoanHandler) GetLoan(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}
	item, err := h.loanService.GetLoan(c.Request.Context(), loanID)
	if err != nil || item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *LoanHandler) ListLoans(c *gin.Context) {
	accountID, _ := strconv.ParseInt(strings.TrimSpace(c.Query("account_id")), 10, 64)
	if accountID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_account_id"})
		return
	}
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)

	items, err := h.loanService.ListLoans(c.Request.Context(), accountID, int32(limit), int32(offset))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_loans_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanHandler) UpdateStatus(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	var req struct {
		NewStatus    int    `json:"new_status"`
		ChangeReason string `json:"change_reason"`
		ChangedBy    string `json:"changed_by"`
		Force        bool   `json:"force"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.ChangedBy == "" {
		req.ChangedBy = "system"
	}

	err := h.loanService.UpdateStatus(c.Request.Context(), loanID,
		loandomain.Status(req.NewStatus), req.ChangeReason, req.ChangedBy, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, loandomain.ErrStatusUnchanged):
			c.JSON(http.StatusConflict, gin.H{"error": "status_unchanged"})
		case errors.Is(err, loandomain.ErrInvalidStatusPath):
			c.JSON(http.StatusConflict, gin.H{"error": "invalid_status_path"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status_update_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan_id": loanID, "new_status": req.NewStatus})
}

// writeLoanError maps domain errors onto status codes. An eligibility veto
// carries the user-facing popup through unchanged.
func writeLoanError(c *gin.Context, err error) {
	var rejection *loandomain.RejectionError
	if errors.As(err, &rejection) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":       string(rejection.Reason),
			"error_popup": rejection.Popup,
		})
		return
	}
	switch {
	case errors.Is(err, loandomain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	case errors.Is(err, loandomain.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account_not_found"})
	case errors.Is(err, loandomain.ErrAmountOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_out_of_range"})
	case errors.Is(err, loandomain.ErrDurationOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_out_of_range"})
	case errors.Is(err, creditmatrix.ErrMatrixNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "credit_matrix_not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loan_request_failed"})
	}
}
