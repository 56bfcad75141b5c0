package eligibility

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type stubGate struct {
	name     string
	decision Decision
	err      error
	calls    int
}

func (g *stubGate) Name() string { return g.name }

func (g *stubGate) Check(_ context.Context, _ CheckInput) (Decision, error) {
	g.calls++
	return g.decision, g.err
}

func TestEngineShortCircuitsOnFirstVeto(t *testing.T) {
	first := &stubGate{name: "first"}
	second := &stubGate{name: "second", decision: lock(ReasonCustomerTier)}
	third := &stubGate{name: "third", decision: lock(ReasonFraudBlock)}

	engine := NewEngine(testLogger(), first, second, third)
	decision, err := engine.Evaluate(context.Background(), CheckInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Reason != ReasonCustomerTier {
		t.Fatalf("expected the earlier veto to win, got %+v", decision)
	}
	if third.calls != 0 {
		t.Fatalf("later gates must not run after a veto")
	}
}

func TestEnginePropagatesGateErrors(t *testing.T) {
	failing := &stubGate{name: "failing", err: errors.New("db down")}
	engine := NewEngine(testLogger(), failing)
	if _, err := engine.Evaluate(context.Background(), CheckInput{}); err == nil {
		t.Fatalf("an undecidable gate must not pass")
	}
}

func TestEngineAllPass(t *testing.T) {
	engine := NewEngine(testLogger(), &stubGate{name: "a"}, &stubGate{name: "b"})
	decision, err := engine.Evaluate(context.Background(), CheckInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Locked {
		t.Fatalf("expected pass, got %+v", decision)
	}
}

// The GTL gates must run ahead of the cheap stateless gates: when several
// would fire, the caller sees the GTL reason and the lock plus audit rows
// still get persisted.
func TestEngineRunsGTLGatesFirst(t *testing.T) {
	gtl := &gtlRepoMock{}
	limits := &limitRepoMock{limit: &AccountLimit{SetLimit: 1_000_000, UsedLimit: 850_000}}
	activity := &activityRepoMock{latePaidOff: true}

	inside := NewGTLInsideGate(gtl, limits, activity, gtlTestConfig())
	inside.now = func() time.Time { return fixedNow }
	outside := NewGTLOutsideGate(gtl, &fdcRepoMock{}, gtlTestConfig())
	outside.now = func() time.Time { return fixedNow }

	engine := NewEngine(testLogger(),
		inside,
		outside,
		NewApplicationStatusGate(),
		NewBankNameMismatchGate(),
	)

	// Trips both GTL-inside and the application-status gate.
	in := CheckInput{
		AccountID:         10,
		LoanAmountRequest: 100_000,
		ApplicationStatus: 150,
		ProductLineCode:   "J1",
	}
	decision, err := engine.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Reason != ReasonGTLInside {
		t.Fatalf("expected GTL_INSIDE to win, got %+v", decision)
	}
	if gtl.insideLocks != 1 {
		t.Fatalf("the GTL lock must be persisted, got %d locks", gtl.insideLocks)
	}
}

func TestApplicationStatusGate(t *testing.T) {
	gate := NewApplicationStatusGate()

	decision, _ := gate.Check(context.Background(), CheckInput{ApplicationStatus: 150, ProductLineCode: "J1"})
	if !decision.Locked || decision.Reason != ReasonApplicationStatus {
		t.Fatalf("sub-KYC application must be vetoed, got %+v", decision)
	}

	decision, _ = gate.Check(context.Background(), CheckInput{ApplicationStatus: 190, ProductLineCode: "J1"})
	if decision.Locked {
		t.Fatalf("approved application must pass, got %+v", decision)
	}

	// Starter transacts from partial-limit status.
	decision, _ = gate.Check(context.Background(), CheckInput{ApplicationStatus: 183, ProductLineCode: "JTURBO"})
	if decision.Locked {
		t.Fatalf("starter at 183 must pass, got %+v", decision)
	}
	decision, _ = gate.Check(context.Background(), CheckInput{ApplicationStatus: 183, ProductLineCode: "J1"})
	if !decision.Locked {
		t.Fatalf("non-starter at 183 must be vetoed")
	}
}

func TestBankNameMismatchGate(t *testing.T) {
	gate := NewBankNameMismatchGate()

	decision, _ := gate.Check(context.Background(), CheckInput{HasNameBankMismatchTag: true, TransactionMethod: MethodSelf})
	if !decision.Locked || decision.Reason != ReasonBankNameMismatch {
		t.Fatalf("mismatch tag must veto self disbursement, got %+v", decision)
	}

	decision, _ = gate.Check(context.Background(), CheckInput{HasNameBankMismatchTag: true, TransactionMethod: MethodEcommerce})
	if decision.Locked {
		t.Fatalf("allow-listed method must bypass the mismatch check, got %+v", decision)
	}

	decision, _ = gate.Check(context.Background(), CheckInput{HasNameBankMismatchTag: false, TransactionMethod: MethodSelf, IsSelfBankAccount: true})
	if decision.Locked {
		t.Fatalf("no tag, no veto; got %+v", decision)
	}

	// Self disbursement to an account not verified as the customer's own.
	decision, _ = gate.Check(context.Background(), CheckInput{TransactionMethod: MethodSelf, IsSelfBankAccount: false})
	if !decision.Locked || decision.Reason != ReasonBankNameMismatch {
		t.Fatalf("unverified self account must be vetoed, got %+v", decision)
	}
}

type featureRepoMock struct {
	settings map[string]*FeatureSetting
}

func (m *featureRepoMock) Get(_ context.Context, name string) (*FeatureSetting, error) {
	return m.settings[name], nil
}

func TestProductLockGate(t *testing.T) {
	features := &featureRepoMock{settings: map[string]*FeatureSetting{
		"transaction_method_self_lock": {Name: "transaction_method_self_lock", IsActive: true},
	}}
	gate := NewProductLockGate(features)

	decision, err := gate.Check(context.Background(), CheckInput{TransactionMethod: MethodSelf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Locked || decision.Reason != ReasonProductLock {
		t.Fatalf("active lock must veto, got %+v", decision)
	}

	decision, err = gate.Check(context.Background(), CheckInput{TransactionMethod: MethodOther})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Locked {
		t.Fatalf("absent setting must pass, got %+v", decision)
	}
}

func TestProductLockGateSemverScope(t *testing.T) {
	features := &featureRepoMock{settings: map[string]*FeatureSetting{
		"transaction_method_self_lock": {
			Name:                 "transaction_method_self_lock",
			IsActive:             true,
			AppVersionConstraint: "<=8.11.0",
		},
	}}
	gate := NewProductLockGate(features)

	decision, err := gate.Check(context.Background(), CheckInput{TransactionMethod: MethodSelf, AppVersion: "8.10.2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Locked {
		t.Fatalf("old app version must be locked")
	}

	decision, err = gate.Check(context.Background(), CheckInput{TransactionMethod: MethodSelf, AppVersion: "8.12.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Locked {
		t.Fatalf("newer app version must pass, got %+v", decision)
	}

	// Missing version reports as oldest.
	decision, err = gate.Check(context.Background(), CheckInput{TransactionMethod: MethodSelf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Locked {
		t.Fatalf("unknown app version must be locked")
	}
}

func TestEntryLevelLimitGate(t *testing.T) {
	features := &featureRepoMock{settings: map[string]*FeatureSetting{
		"entry_level_limit_lock": {Name: "entry_level_limit_lock", IsActive: true},
	}}
	gate := NewEntryLevelLimitGate(features)

	decision, err := gate.Check(context.Background(), CheckInput{ProductLineCode: "JTURBO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Locked || decision.Reason != ReasonEntryLevelLimit {
		t.Fatalf("active lock must veto the starter line, got %+v", decision)
	}

	decision, _ = gate.Check(context.Background(), CheckInput{ProductLineCode: "J1"})
	if decision.Locked {
		t.Fatalf("non-starter line must pass, got %+v", decision)
	}

	gate = NewEntryLevelLimitGate(&featureRepoMock{})
	decision, _ = gate.Check(context.Background(), CheckInput{ProductLineCode: "JTURBO"})
	if decision.Locked {
		t.Fatalf("absent setting must pass, got %+v", decision)
	}
}

func TestCustomerTierGate(t *testing.T) {
	features := &featureRepoMock{settings: map[string]*FeatureSetting{
		"customer_tier_lock": {Name: "customer_tier_lock", IsActive: true},
	}}
	gate := NewCustomerTierGate(features)

	decision, err := gate.Check(context.Background(), CheckInput{IsRepeatUser: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Locked || decision.Reason != ReasonCustomerTier {
		t.Fatalf("active lock must veto first-time customers, got %+v", decision)
	}

	decision, _ = gate.Check(context.Background(), CheckInput{IsRepeatUser: true})
	if decision.Locked {
		t.Fatalf("repeat customer must pass, got %+v", decision)
	}
}

func TestFraudBlockGate(t *testing.T) {
	gate := NewFraudBlockGate()

	decision, err := gate.Check(context.Background(), CheckInput{HasFraudBlockTag: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Locked || decision.Reason != ReasonFraudBlock {
		t.Fatalf("fraud tag must veto, got %+v", decision)
	}

	decision, _ = gate.Check(context.Background(), CheckInput{})
	if decision.Locked {
		t.Fatalf("untagged account must pass, got %+v", decision)
	}
}

func TestQRISWhitelistGate(t *testing.T) {
	gate := NewQRISWhitelistGate(&featureRepoMock{})

	decision, err := gate.Check(context.Background(), CheckInput{TransactionMethod: MethodQRIS})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Locked || decision.Reason != ReasonQRISNotWhitelisted {
		t.Fatalf("QRIS without whitelist must be vetoed, got %+v", decision)
	}

	features := &featureRepoMock{settings: map[string]*FeatureSetting{
		"qris_merchant_whitelist": {Name: "qris_merchant_whitelist", IsActive: true},
	}}
	decision, _ = NewQRISWhitelistGate(features).Check(context.Background(), CheckInput{TransactionMethod: MethodQRIS})
	if decision.Locked {
		t.Fatalf("active whitelist must pass, got %+v", decision)
	}

	decision, _ = gate.Check(context.Background(), CheckInput{TransactionMethod: MethodSelf})
	if decision.Locked {
		t.Fatalf("non-QRIS method must pass, got %+v", decision)
	}
}

func TestPredicateGate(t *testing.T) {
	gate := NewPredicateGate("fraud_block", ReasonFraudBlock, func(_ context.Context, in CheckInput) (bool, error) {
		return in.AccountID == 666, nil
	})

	decision, err := gate.Check(context.Background(), CheckInput{AccountID: 666})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Locked || decision.Reason != ReasonFraudBlock {
		t.Fatalf("expected fraud veto, got %+v", decision)
	}

	decision, err = gate.Check(context.Background(), CheckInput{AccountID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Locked {
		t.Fatalf("expected pass, got %+v", decision)
	}
}
