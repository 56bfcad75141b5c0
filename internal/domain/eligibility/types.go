// Package eligibility is the veto-gate chain run before any loan is created.
// The engine evaluates a fixed sequence and stops at the first lock. Order is
// load-bearing: the GTL gates run first so their lock persistence and audit
// trail are never skipped by a cheaper veto, and the reported reason on a
// multi-veto account is the earliest gate's.
package eligibility

import (
	"context"
)

type Reason string

const (
	ReasonGTLInside          Reason = "GTL_INSIDE"
	ReasonGTLOutside         Reason = "GTL_OUTSIDE"
	ReasonApplicationStatus  Reason = "APPLICATION_STATUS"
	ReasonBankNameMismatch   Reason = "BANK_NAME_MISMATCH"
	ReasonProductLock        Reason = "PRODUCT_LOCKED"
	ReasonEntryLevelLimit    Reason = "ENTRY_LEVEL_LIMIT"
	ReasonCustomerTier       Reason = "CUSTOMER_TIER"
	ReasonFraudBlock         Reason = "FRAUD_BLOCK"
	ReasonQRISNotWhitelisted Reason = "QRIS_NOT_WHITELISTED"
)

// ErrorPopup is the user-facing rejection payload returned to the app.
type ErrorPopup struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Button    string `json:"button"`
	ErrorCode string `json:"error_code"`
}

type Decision struct {
	Locked bool
	Reason Reason
	Popup  *ErrorPopup
}

func pass() Decision { return Decision{} }

func lock(reason Reason) Decision {
	return Decision{Locked: true, Reason: reason, Popup: popupFor(reason)}
}

var popups = map[Reason]ErrorPopup{
	ReasonGTLInside: {
		Title:     "Transaksi Belum Bisa Diproses",
		Body:      "Kamu belum bisa melakukan transaksi ini. Silakan coba beberapa saat lagi.",
		Button:    "Mengerti",
		ErrorCode: "GTL_01",
	},
	ReasonGTLOutside: {
		Title:     "Transaksi Belum Bisa Diproses",
		Body:      "Berdasarkan data kami, kamu memiliki pinjaman aktif di platform lain yang perlu diselesaikan dulu.",
		Button:    "Mengerti",
		ErrorCode: "GTL_02",
	},
	ReasonApplicationStatus: {
		Title:     "Akun Belum Aktif",
		Body:      "Selesaikan proses verifikasi akunmu terlebih dahulu.",
		Button:    "OK",
		ErrorCode: "ELG_01",
	},
	ReasonBankNameMismatch: {
		Title:     "Rekening Tidak Sesuai",
		Body:      "Nama pemilik rekening tidak sesuai dengan data akunmu.",
		Button:    "Perbarui Rekening",
		ErrorCode: "ELG_02",
	},
	ReasonProductLock: {
		Title:     "Fitur Sedang Tidak Tersedia",
		Body:      "Fitur ini sedang dalam perbaikan. Silakan coba lagi nanti.",
		Button:    "Mengerti",
		ErrorCode: "ELG_03",
	},
	ReasonEntryLevelLimit: {
		Title:     "Limit Belum Mencukupi",
		Body:      "Transaksi ini belum tersedia untuk limit akunmu saat ini.",
		Button:    "Mengerti",
		ErrorCode: "ELG_04",
	},
	ReasonCustomerTier: {
		Title:     "Transaksi Belum Tersedia",
		Body:      "Transaksi ini belum tersedia untuk tier akunmu.",
		Button:    "Mengerti",
		ErrorCode: "ELG_05",
	},
	ReasonFraudBlock: {
		Title:     "Transaksi Tidak Dapat Diproses",
		Body:      "Hubungi CS JULO untuk informasi lebih lanjut.",
		Button:    "Hubungi CS",
		ErrorCode: "ELG_06",
	},
	ReasonQRISNotWhitelisted: {
		Title:     "QRIS Belum Tersedia",
		Body:      "Transaksi QRIS belum tersedia untuk akunmu.",
		Button:    "Mengerti",
		ErrorCode: "ELG_07",
	},
}

func popupFor(reason Reason) *ErrorPopup {
	if p, ok := popups[reason]; ok {
		cp := p
		return &cp
	}
	return nil
}

// TransactionMethod identifies how the funds leave the platform.
type TransactionMethod string

const (
	MethodSelf       TransactionMethod = "self"
	MethodOther      TransactionMethod = "other"
	MethodEcommerce  TransactionMethod = "e-commerce"
	MethodQRIS       TransactionMethod = "qris"
	MethodEducation  TransactionMethod = "education"
	MethodHealthcare TransactionMethod = "healthcare"
	MethodEwallet    TransactionMethod = "dompet-digital"
)

// LockPolicy is the per-method capability record: which feature setting
// gates the method and which checks the method is exempt from. A lookup
// table, not an if/elif ladder.
type LockPolicy struct {
	FeatureName          string
	BypassBankMismatch   bool
	RequireQRISWhitelist bool
}

var lockPolicies = map[TransactionMethod]LockPolicy{
	MethodSelf:       {FeatureName: "transaction_method_self_lock"},
	MethodOther:      {FeatureName: "transaction_method_other_lock"},
	MethodEcommerce:  {FeatureName: "transaction_method_ecommerce_lock", BypassBankMismatch: true},
	MethodQRIS:       {FeatureName: "transaction_method_qris_lock", BypassBankMismatch: true, RequireQRISWhitelist: true},
	MethodEducation:  {FeatureName: "transaction_method_education_lock", BypassBankMismatch: true},
	MethodHealthcare: {FeatureName: "transaction_method_healthcare_lock", BypassBankMismatch: true},
	MethodEwallet:    {FeatureName: "transaction_method_ewallet_lock", BypassBankMismatch: true},
}

// PolicyFor falls back to the strictest policy for unknown methods.
func PolicyFor(method TransactionMethod) LockPolicy {
	if p, ok := lockPolicies[method]; ok {
		return p
	}
	return LockPolicy{FeatureName: "transaction_method_unknown_lock"}
}

// CheckInput is one loan request as seen by the gates.
type CheckInput struct {
	CustomerID    int64
	AccountID     int64
	ApplicationID int64

	ApplicationStatus int
	ProductLineCode   string
	TransactionMethod TransactionMethod

	LoanAmountRequest int64
	IsSelfBankAccount bool
	AppVersion        string

	BScore       *float64
	IsRepeatUser bool

	HasNameBankMismatchTag bool
	HasFraudBlockTag       bool
}

type Gate interface {
	Name() string
	Check(ctx context.Context, in CheckInput) (Decision, error)
}
