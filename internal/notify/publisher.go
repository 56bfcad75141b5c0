// Package notify hands committed loan effects to downstream consumers.
package notify

import (
	"context"
	"log/slog"
)

// LogPublisher records each effect instead of delivering it. Stands in for
// the CRM and partner gateways in environments without them.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.logger.Info("effect published", "topic", topic, "payload", string(payload))
	return nil
}
