package eligibility

import (
	"context"
	"log/slog"
)

// Engine runs the gates in their configured order and short-circuits on the
// first veto. Gate errors abort the whole evaluation: an undecidable gate
// must never be treated as a pass.
type Engine struct {
	gates  []Gate
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger, gates ...Gate) *Engine {
	return &Engine{gates: gates, logger: logger}
}

func (e *Engine) Evaluate(ctx context.Context, in CheckInput) (Decision, error) {
	for _, gate := range e.gates {
		decision, err := gate.Check(ctx, in)
		if err != nil {
			return Decision{}, err
		}
		if decision.Locked {
			e.logger.Info("loan request vetoed",
				"gate", gate.Name(),
				"reason", string(decision.Reason),
				"account_id", in.AccountID,
				"application_id", in.ApplicationID,
			)
			return decision, nil
		}
	}
	return pass(), nil
}
