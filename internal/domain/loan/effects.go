package loan

import "encoding/json"

// Outbox topics drained by the worker after the transition commits.
const (
	TopicRecalculateLimit    = "recalculate_available_limit"
	TopicApplyReferral       = "apply_referral_benefit"
	TopicCashbackMission     = "run_cashback_mission"
	TopicLoyaltyMission      = "run_loyalty_mission"
	TopicRollbackPromo       = "rollback_promo_usage"
	TopicReturnLenderBalance = "return_lender_balance"
	TopicPartnerCallback     = "partner_status_callback"
	TopicStatusNotification  = "send_status_notification"
)

// StatusChange describes one committed transition for effect predicates.
type StatusChange struct {
	LoanID       string
	AccountID    int64
	CustomerID   int64
	Old          Status
	New          Status
	ChangeReason string
}

// statusEffect pairs a trigger predicate with an outbox topic. The table
// replaces a run of conditional dispatch calls so each trigger condition is
// testable on its own.
type statusEffect struct {
	Topic string
	When  func(c StatusChange) bool
}

var statusEffects = []statusEffect{
	{TopicStatusNotification, func(StatusChange) bool { return true }},
	{TopicPartnerCallback, func(StatusChange) bool { return true }},
	{TopicRecalculateLimit, func(c StatusChange) bool {
		return c.New == StatusCurrent || c.New == StatusPaidOff || c.New.IsFailState()
	}},
	{TopicApplyReferral, func(c StatusChange) bool {
		return c.New == StatusCurrent && c.Old != StatusCurrent
	}},
	{TopicCashbackMission, func(c StatusChange) bool {
		return c.New == StatusCurrent && c.Old != StatusCurrent
	}},
	{TopicLoyaltyMission, func(c StatusChange) bool {
		return c.New == StatusPaidOff
	}},
	{TopicRollbackPromo, func(c StatusChange) bool {
		return c.New.IsFailState() && !c.Old.IsFailState()
	}},
	{TopicReturnLenderBalance, func(c StatusChange) bool {
		return c.New.IsFailState() && c.Old >= StatusLenderApproval && c.Old <= StatusFundDisbursalOngoing
	}},
}

// EffectsFor renders the ordered effect events for one transition.
func EffectsFor(change StatusChange) []EffectEvent {
	payload, _ := json.Marshal(map[string]any{
		"loan_id":       change.LoanID,
		"account_id":    change.AccountID,
		"customer_id":   change.CustomerID,
		"status_old":    int(change.Old),
		"status_new":    int(change.New),
		"change_reason": change.ChangeReason,
	})

	out := make([]EffectEvent, 0, len(statusEffects))
	for _, effect := range statusEffects {
		if effect.When(change) {
			out = append(out, EffectEvent{Topic: effect.Topic, Payload: payload})
		}
	}
	return out
}
