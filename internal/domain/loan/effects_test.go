package loan

import (
	"encoding/json"
	"testing"
)

func topics(events []EffectEvent) map[string]bool {
	out := map[string]bool{}
	for _, e := range events {
		out[e.Topic] = true
	}
	return out
}

func TestEffectsOnActivation(t *testing.T) {
	got := topics(EffectsFor(StatusChange{Old: StatusFundDisbursalOngoing, New: StatusCurrent}))
	for _, want := range []string{TopicStatusNotification, TopicPartnerCallback, TopicRecalculateLimit, TopicApplyReferral, TopicCashbackMission} {
		if !got[want] {
			t.Fatalf("activation must enqueue %s, got %v", want, got)
		}
	}
	if got[TopicRollbackPromo] || got[TopicReturnLenderBalance] || got[TopicLoyaltyMission] {
		t.Fatalf("activation must not enqueue failure/payoff effects: %v", got)
	}
}

func TestEffectsOnFailureFromDisbursal(t *testing.T) {
	got := topics(EffectsFor(StatusChange{Old: StatusFundDisbursalOngoing, New: StatusFundDisbursalFailed}))
	if !got[TopicRollbackPromo] {
		t.Fatalf("fail-from-non-fail must roll back promo usage: %v", got)
	}
	if !got[TopicReturnLenderBalance] {
		t.Fatalf("failure after lender approval must return lender balance: %v", got)
	}
	if got[TopicApplyReferral] || got[TopicCashbackMission] {
		t.Fatalf("failure must not trigger rewards: %v", got)
	}
}

func TestEffectsNoPromoRollbackBetweenFailStates(t *testing.T) {
	got := topics(EffectsFor(StatusChange{Old: StatusFundDisbursalFailed, New: StatusTransactionFailed}))
	if got[TopicRollbackPromo] {
		t.Fatalf("fail-to-fail must not roll back promo twice: %v", got)
	}
}

func TestEffectsNoLenderReturnBeforeApproval(t *testing.T) {
	got := topics(EffectsFor(StatusChange{Old: StatusInactive, New: StatusCancelledByCustomer}))
	if got[TopicReturnLenderBalance] {
		t.Fatalf("no lender balance to return before approval: %v", got)
	}
	if !got[TopicRollbackPromo] {
		t.Fatalf("cancellation must roll back promo usage: %v", got)
	}
}

func TestEffectsOnPayOff(t *testing.T) {
	got := topics(EffectsFor(StatusChange{Old: StatusCurrent, New: StatusPaidOff}))
	if !got[TopicLoyaltyMission] || !got[TopicRecalculateLimit] {
		t.Fatalf("pay-off must run loyalty mission and limit recalc: %v", got)
	}
}

func TestEffectPayloadCarriesTransition(t *testing.T) {
	events := EffectsFor(StatusChange{
		LoanID:       "loan-9",
		AccountID:    31,
		CustomerID:   7,
		Old:          StatusInactive,
		New:          StatusLenderApproval,
		ChangeReason: "sphp signed",
	})
	if len(events) == 0 {
		t.Fatalf("expected events")
	}
	var payload map[string]any
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("payload must be json: %v", err)
	}
	if payload["loan_id"] != "loan-9" {
		t.Fatalf("payload loan_id = %v", payload["loan_id"])
	}
	if payload["status_new"].(float64) != 211 {
		t.Fatalf("payload status_new = %v", payload["status_new"])
	}
}
