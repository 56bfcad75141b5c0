package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sajinavi2006/julomvp-sub022/internal/domain/loan"
)

type OutboxJob struct {
	ID          int64
	Topic       string
	Payload     []byte
	Status      string
	Attempts    int32
	LastError   string
	AvailableAt time.Time
}

type OutboxRepository interface {
	ClaimPending(ctx context.Context, limit int32) ([]OutboxJob, error)
	MarkDone(ctx context.Context, jobID int64) error
	MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, jobID int64, lastError string) error
}

// LimitRecalculator recomputes an account's available limit from its active
// loans. Runs outside the transition transaction on purpose.
type LimitRecalculator interface {
	RecalculateAvailableLimit(ctx context.Context, accountID int64) error
}

// Publisher hands an effect to its downstream consumer (CRM, partner
// callback gateway, notification service).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// publishTopics are effects forwarded as-is to downstream consumers.
var publishTopics = map[string]bool{
	loan.TopicApplyReferral:       true,
	loan.TopicCashbackMission:     true,
	loan.TopicLoyaltyMission:      true,
	loan.TopicRollbackPromo:       true,
	loan.TopicReturnLenderBalance: true,
	loan.TopicPartnerCallback:     true,
	loan.TopicStatusNotification:  true,
	"notify_gtl_blocked":          true,
}

type Worker struct {
	outboxRepo   OutboxRepository
	limits       LimitRecalculator
	publisher    Publisher
	maxAttempts  int32
	now          func() time.Time
	retryBackoff func(attempt int32) time.Duration
}

func NewWorker(outboxRepo OutboxRepository, limits LimitRecalculator, publisher Publisher) *Worker {
	return &Worker{
		outboxRepo:  outboxRepo,
		limits:      limits,
		publisher:   publisher,
		maxAttempts: 5,
		now:         func() time.Time { return time.Now().UTC() },
		retryBackoff: func(attempt int32) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return time.Duration(attempt*15) * time.Second
		},
	}
}

func (w *Worker) RunOnce(ctx context.Context, batchSize int32) error {
	jobs, err := w.outboxRepo.ClaimPending(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

func (w *Worker) processJob(ctx context.Context, job OutboxJob) error {
	switch {
	case job.Topic == loan.TopicRecalculateLimit:
		return w.processRecalculateLimit(ctx, job)
	case publishTopics[job.Topic]:
		if err := w.publisher.Publish(ctx, job.Topic, job.Payload); err != nil {
			return w.handleJobError(ctx, job, err)
		}
		return w.outboxRepo.MarkDone(ctx, job.ID)
	default:
		if job.Attempts >= w.maxAttempts {
			return w.outboxRepo.MarkFailed(ctx, job.ID, "unsupported_topic")
		}
		next := w.now().Add(w.retryBackoff(job.Attempts))
		return w.outboxRepo.MarkRetry(ctx, job.ID, next, "unsupported_topic")
	}
}

type recalculateLimitPayload struct {
	AccountID int64 `json:"account_id"`
}

func (w *Worker) processRecalculateLimit(ctx context.Context, job OutboxJob) error {
	var payload recalculateLimitPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return w.handleJobError(ctx, job, errors.New("invalid_payload"))
	}
	if payload.AccountID == 0 {
		return w.handleJobError(ctx, job, errors.New("missing_account_id"))
	}

	if err := w.limits.RecalculateAvailableLimit(ctx, payload.AccountID); err != nil {
		return w.handleJobError(ctx, job, err)
	}

	return w.outboxRepo.MarkDone(ctx, job.ID)
}

func (w *Worker) handleJobError(ctx context.Context, job OutboxJob, err error) error {
	msg := err.Error()
	if job.Attempts >= w.maxAttempts {
		return w.outboxRepo.MarkFailed(ctx, job.ID, msg)
	}
	next := w.now().Add(w.retryBackoff(job.Attempts))
	return w.outboxRepo.MarkRetry(ctx, job.ID, next, msg)
}
