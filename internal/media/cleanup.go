package media

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/inkpress/apiserver/internal/mq"
	"github.com/rs/zerolog"
)

// CleanupJob asks a worker to delete a media object that could not be removed
// inline.
type CleanupJob struct {
	Reference  string    `json:"reference"`
	Reason     string    `json:"reason,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// CleanupQueue publishes cleanup jobs. A queue without a broker reports
// Enabled() == false and rejects Enqueue.
type CleanupQueue struct {
	queue   *mq.MQ
	channel string
	now     func() time.Time
}

func NewCleanupQueue(queue *mq.MQ, channel string) *CleanupQueue {
	return &CleanupQueue{queue: queue, channel: channel, now: time.Now}
}

func (q *CleanupQueue) Enabled() bool {
	return q != nil && q.queue.Enabled()
}

// Enqueue publishes a job for ref.
func (q *CleanupQueue) Enqueue(ctx context.Context, ref, reason string) error {
	if !q.Enabled() {
		return mq.ErrNoBackend
	}
	_, err := q.queue.PublishJSON(ctx, q.channel, CleanupJob{
		Reference:  ref,
		Reason:     reason,
		EnqueuedAt: q.now().UTC(),
	})
	return err
}

// Deleter removes a media object by reference.
type Deleter interface {
	Delete(ctx context.Context, ref string) error
}

// CleanupWorker consumes cleanup jobs and retries the delete. Jobs that fail
// again are nacked so the broker redelivers them.
type CleanupWorker struct {
	queue   *mq.MQ
	channel string
	media   Deleter
	timeout time.Duration
	logger  zerolog.Logger
}

func NewCleanupWorker(queue *mq.MQ, channel string, media Deleter, timeout time.Duration, logger zerolog.Logger) *CleanupWorker {
	return &CleanupWorker{
		queue:   queue,
		channel: channel,
		media:   media,
		timeout: timeout,
		logger:  logger.With().Str("component", "media-cleanup").Logger(),
	}
}

// Run blocks until ctx is cancelled or the broker subscription fails.
func (w *CleanupWorker) Run(ctx context.Context) error {
	w.logger.Info().Str("channel", w.channel).Msg("media cleanup worker started")
	err := w.queue.Subscribe(ctx, w.channel, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle processes one delivery. Malformed jobs are dropped.
func (w *CleanupWorker) Handle(ctx context.Context, msg mq.Message) error {
	var job CleanupJob
	if err := msg.Decode(&job); err != nil {
		w.logger.Error().Err(err).Str("message_id", msg.ID).Msg("dropping malformed cleanup job")
		return nil
	}
	ref := strings.TrimSpace(job.Reference)
	if ref == "" {
		return nil
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	log := w.logger.With().Str("message_id", msg.ID).Str("reference", ref).Bool("redelivered", msg.Redelivered).Logger()
	if err := w.media.Delete(ctx, ref); err != nil {
		if errors.Is(err, ErrForeignReference) {
			log.Warn().Msg("dropping cleanup job for foreign reference")
			return nil
		}
		log.Warn().Err(err).Msg("media cleanup failed, will retry")
		return err
	}
	log.Info().Dur("queued_for", time.Since(job.EnqueuedAt)).Msg("media object cleaned up")
	return nil
}
