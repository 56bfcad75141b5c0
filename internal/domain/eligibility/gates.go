package eligibility

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Application statuses relevant to origination eligibility.
const (
	appStatusLimitGenerated = 183
	appStatusLOCApproved    = 190
)

// ApplicationStatusGate requires the application to have cleared KYC. The
// Starter product line can transact as soon as a partial limit is generated.
type ApplicationStatusGate struct{}

func NewApplicationStatusGate() *ApplicationStatusGate { return &ApplicationStatusGate{} }

func (g *ApplicationStatusGate) Name() string { return "application_status" }

func (g *ApplicationStatusGate) Check(_ context.Context, in CheckInput) (Decision, error) {
	minimum := appStatusLOCApproved
	if in.ProductLineCode == "JTURBO" {
		minimum = appStatusLimitGenerated
	}
	if in.ApplicationStatus < minimum {
		return lock(ReasonApplicationStatus), nil
	}
	return pass(), nil
}

// BankNameMismatchGate vetoes disbursement to a bank account whose holder
// name does not match the customer, except for methods whose LockPolicy
// bypasses the check (the money never reaches a customer bank account).
// Self disbursement additionally requires the destination account to be
// verified as the customer's own.
type BankNameMismatchGate struct{}

func NewBankNameMismatchGate() *BankNameMismatchGate { return &BankNameMismatchGate{} }

func (g *BankNameMismatchGate) Name() string { return "bank_name_mismatch" }

func (g *BankNameMismatchGate) Check(_ context.Context, in CheckInput) (Decision, error) {
	if PolicyFor(in.TransactionMethod).BypassBankMismatch {
		return pass(), nil
	}
	if in.HasNameBankMismatchTag {
		return lock(ReasonBankNameMismatch), nil
	}
	if in.TransactionMethod == MethodSelf && !in.IsSelfBankAccount {
		return lock(ReasonBankNameMismatch), nil
	}
	return pass(), nil
}

// FeatureSetting is a named operational switch with optional parameters.
type FeatureSetting struct {
	Name     string
	IsActive bool
	// AppVersionConstraint limits an active lock to app versions matching
	// the semver constraint, e.g. "<=8.11.0". Empty locks every version.
	AppVersionConstraint string
}

type FeatureRepository interface {
	// Get returns nil when the setting does not exist.
	Get(ctx context.Context, name string) (*FeatureSetting, error)
}

// ProductLockGate consults the per-transaction-method lock feature setting,
// optionally scoped by app version.
type ProductLockGate struct {
	features FeatureRepository
}

func NewProductLockGate(features FeatureRepository) *ProductLockGate {
	return &ProductLockGate{features: features}
}

func (g *ProductLockGate) Name() string { return "product_lock" }

func (g *ProductLockGate) Check(ctx context.Context, in CheckInput) (Decision, error) {
	policy := PolicyFor(in.TransactionMethod)
	setting, err := g.features.Get(ctx, policy.FeatureName)
	if err != nil {
		return Decision{}, fmt.Errorf("feature setting %s: %w", policy.FeatureName, err)
	}
	if setting == nil || !setting.IsActive {
		return pass(), nil
	}
	if setting.AppVersionConstraint == "" {
		return lock(ReasonProductLock), nil
	}
	locked, err := versionMatches(setting.AppVersionConstraint, in.AppVersion)
	if err != nil {
		return Decision{}, fmt.Errorf("feature setting %s version gate: %w", policy.FeatureName, err)
	}
	if locked {
		return lock(ReasonProductLock), nil
	}
	return pass(), nil
}

func versionMatches(constraint, version string) (bool, error) {
	if version == "" {
		// No reported version: treat as oldest, lock applies.
		return true, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}

// Predicate is an externally defined opaque lock check. True means locked.
type Predicate func(ctx context.Context, in CheckInput) (bool, error)

// PredicateGate adapts entry-level-limit, customer-tier, fraud-block and
// QRIS-whitelist checks into the gate chain with a fixed reason each.
type PredicateGate struct {
	name   string
	reason Reason
	check  Predicate
}

func NewPredicateGate(name string, reason Reason, check Predicate) *PredicateGate {
	return &PredicateGate{name: name, reason: reason, check: check}
}

func (g *PredicateGate) Name() string { return g.name }

func (g *PredicateGate) Check(ctx context.Context, in CheckInput) (Decision, error) {
	locked, err := g.check(ctx, in)
	if err != nil {
		return Decision{}, fmt.Errorf("%s check: %w", g.name, err)
	}
	if locked {
		return lock(g.reason), nil
	}
	return pass(), nil
}

// NewEntryLevelLimitGate blocks the entry-level (Starter) product line while
// the operational lock setting is active.
func NewEntryLevelLimitGate(features FeatureRepository) *PredicateGate {
	return NewPredicateGate("entry_level_limit", ReasonEntryLevelLimit,
		func(ctx context.Context, in CheckInput) (bool, error) {
			if in.ProductLineCode != "JTURBO" {
				return false, nil
			}
			setting, err := features.Get(ctx, "entry_level_limit_lock")
			if err != nil {
				return false, err
			}
			return setting != nil && setting.IsActive, nil
		})
}

// NewCustomerTierGate blocks first-time customers while the tier lock
// setting is active.
func NewCustomerTierGate(features FeatureRepository) *PredicateGate {
	return NewPredicateGate("customer_tier", ReasonCustomerTier,
		func(ctx context.Context, in CheckInput) (bool, error) {
			if in.IsRepeatUser {
				return false, nil
			}
			setting, err := features.Get(ctx, "customer_tier_lock")
			if err != nil {
				return false, err
			}
			return setting != nil && setting.IsActive, nil
		})
}

// NewFraudBlockGate vetoes accounts carrying an active fraud tag.
func NewFraudBlockGate() *PredicateGate {
	return NewPredicateGate("fraud_block", ReasonFraudBlock,
		func(_ context.Context, in CheckInput) (bool, error) {
			return in.HasFraudBlockTag, nil
		})
}

// NewQRISWhitelistGate locks QRIS transactions unless the merchant whitelist
// setting is active.
func NewQRISWhitelistGate(features FeatureRepository) *PredicateGate {
	return NewPredicateGate("qris_whitelist", ReasonQRISNotWhitelisted,
		func(ctx context.Context, in CheckInput) (bool, error) {
			if !PolicyFor(in.TransactionMethod).RequireQRISWhitelist {
				return false, nil
			}
			setting, err := features.Get(ctx, "qris_merchant_whitelist")
			if err != nil {
				return false, err
			}
			return setting == nil || !setting.IsActive, nil
		})
}
