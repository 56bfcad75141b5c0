package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/eligibility"
	loandomain "github.com/sajinavi2006/julomvp-sub022/internal/domain/loan"
)

type fakeLoanService struct {
	offer     *loandomain.Offer
	err       error
	entity    *loandomain.Entity
	durations []int
	statusErr error

	lastStatus loandomain.Status
	lastForce  bool
}

func (s *fakeLoanService) CreateLoan(_ context.Context, _ loandomain.CreateLoanInput) (*loandomain.Offer, error) {
	return s.offer, s.err
}

func (s *fakeLoanService) SimulateLoan(_ context.Context, _ loandomain.CreateLoanInput) (*loandomain.Offer, error) {
	return s.offer, s.err
}

func (s *fakeLoanService) DurationOptions(_ context.Context, _, _ int64, _ []loandomain.TenureRange) ([]int, error) {
	return s.durations, s.err
}

func (s *fakeLoanService) GetLoan(_ context.Context, _ string) (*loandomain.Entity, error) {
	return s.entity, s.err
}

func (s *fakeLoanService) ListLoans(_ context.Context, _ int64, _, _ int32) ([]loandomain.Entity, error) {
	if s.entity == nil {
		return nil, s.err
	}
	return []loandomain.Entity{*s.entity}, s.err
}

func (s *fakeLoanService) UpdateStatus(_ context.Context, _ string, newStatus loandomain.Status, _, _ string, force bool) error {
	s.lastStatus = newStatus
	s.lastForce = force
	return s.statusErr
}

func newTestRouter(svc *fakeLoanService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewLoanHandler(svc, []loandomain.TenureRange{
		{MinAmount: 300_000, MaxAmount: 1_000_000, MaxDuration: 4},
	})
	r := gin.New()
	r.POST("/v1/loans", h.CreateLoan)
	r.POST("/v1/loans/simulate", h.SimulateLoan)
	r.GET("/v1/loans/duration-options", h.GetDurationOptions)
	r.GET("/v1/loans/:loanId", h.GetLoan)
	r.POST("/v1/loans/:loanId/status", h.UpdateStatus)
	return r
}

func TestCreateLoanReturnsOffer(t *testing.T) {
	svc := &fakeLoanService{offer: &loandomain.Offer{
		LoanID:     "loan-1",
		LoanStatus: "INACTIVE",
		LoanAmount: 1_200_000,
		Tenor:      12,
	}}
	r := newTestRouter(svc)

	body := `{"application_id": 2001, "loan_amount_request": 1200000, "loan_duration": 12, "transaction_method": "self"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/loans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var got loandomain.Offer
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.LoanID != "loan-1" || got.Tenor != 12 {
		t.Fatalf("unexpected offer %+v", got)
	}
}

func TestCreateLoanRejectionCarriesPopup(t *testing.T) {
	svc := &fakeLoanService{err: &loandomain.RejectionError{
		Reason: eligibility.ReasonGTLInside,
		Popup: &eligibility.ErrorPopup{
			Title:     "Transaksi Tidak Dapat Diproses",
			ErrorCode: "GTL_01",
		},
	}}
	r := newTestRouter(svc)

	body := `{"application_id": 2001, "loan_amount_request": 1200000, "loan_duration": 12, "transaction_method": "self"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/loans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	var got struct {
		Error string `json:"error"`
		Popup struct {
			ErrorCode string `json:"error_code"`
		} `json:"error_popup"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Error != "GTL_INSIDE" || got.Popup.ErrorCode != "GTL_01" {
		t.Fatalf("unexpected rejection body %s", w.Body.String())
	}
}

func TestCreateLoanBadJSON(t *testing.T) {
	r := newTestRouter(&fakeLoanService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/loans", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetDurationOptions(t *testing.T) {
	svc := &fakeLoanService{durations: []int{2, 3, 4}}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/loans/duration-options?application_id=2001&loan_amount=800000", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got struct {
		AvailableDurations []int `json:"available_durations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.AvailableDurations) != 3 || got.AvailableDurations[2] != 4 {
		t.Fatalf("unexpected durations %v", got.AvailableDurations)
	}
}

func TestGetLoanNotFound(t *testing.T) {
	r := newTestRouter(&fakeLoanService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/loans/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateStatusInvalidPath(t *testing.T) {
	svc := &fakeLoanService{statusErr: loandomain.ErrInvalidStatusPath}
	r := newTestRouter(svc)

	body := `{"new_status": 220, "change_reason": "activated"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/loans/loan-1/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if svc.lastStatus != loandomain.StatusCurrent {
		t.Fatalf("expected status 220 passed through, got %d", svc.lastStatus)
	}
}
