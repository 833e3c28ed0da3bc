package scheduler

import (
	"context"
	"fmt"
	"time"

	"legalaid_backend/internal/notification/outbox"
	"legalaid_backend/platform/config"
	"legalaid_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dispatchInterval   = 2 * time.Second
	dispatchBatchSize  = 50
	staleSweepInterval = time.Minute
	staleEnqueuedAge   = 5 * time.Minute
)

// NotificationOutboxDispatcher periodically claims due outbox records and
// hands them to the task queue. Claims use FOR UPDATE SKIP LOCKED, so
// multiple dispatcher instances never double-enqueue.
type NotificationOutboxDispatcher struct {
	client *asynq.Client
	queue  string
	repo   *outbox.Repository
	log    *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &NotificationOutboxDispatcher{
		client: asynq.NewClient(opt),
		queue:  queue,
		repo:   outbox.New(pool),
		log:    log,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	// Rows stay enqueued if a previous dispatcher died between claiming and
	// the queue handoff. Sweep them back to pending on a slower cadence.
	sweep := time.NewTicker(staleSweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			released, err := d.repo.ReleaseStale(ctx, staleEnqueuedAge)
			if err != nil {
				d.log.Warn("outbox stale sweep failed", "error", err)
			} else if released > 0 {
				d.log.Info("outbox stale records released", "count", released)
			}
			continue
		case <-ticker.C:
		}

		records, err := d.repo.ClaimPending(ctx, dispatchBatchSize)
		if err != nil {
			d.log.Warn("outbox claim failed", "error", err)
			continue
		}
		if len(records) == 0 {
			continue
		}

		for _, rec := range records {
			task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
				OutboxID: rec.ID.String(),
			})
			if err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, &msg)
				continue
			}

			_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
			if err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, &msg)
				continue
			}
		}
	}
}
