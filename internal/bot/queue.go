package bot

import (
	"context"
	"log/slog"
	"sync"
)

// Queue buffers inbound updates between the webhook HTTP handler and the
// dispatcher. Enqueue never blocks, so acknowledgement latency stays
// decoupled from AI latency — the platform treats a slow acknowledgement as
// delivery failure and retries, risking duplicate processing.
type Queue struct {
	updates    chan Update
	dispatcher *Dispatcher
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewQueue creates a queue with the given capacity.
func NewQueue(size int, d *Dispatcher, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		updates:    make(chan Update, size),
		dispatcher: d,
		logger:     logger,
	}
}

// Enqueue hands one update to the dispatcher asynchronously. Returns false
// when the queue is full — the update is dropped with a warning rather than
// stalling the acknowledgement.
func (q *Queue) Enqueue(upd Update) bool {
	select {
	case q.updates <- upd:
		return true
	default:
		q.logger.Warn("update queue full, dropping update",
			"user_id", upd.UserID,
			"capacity", cap(q.updates))
		return false
	}
}

// Run consumes the queue until ctx is canceled, dispatching each update on
// its own goroutine so one user's slow exchange never delays another's.
// Blocking call; run it on a dedicated goroutine.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-q.updates:
			q.wg.Add(1)
			go func() {
				defer q.wg.Done()
				q.dispatcher.Dispatch(ctx, upd)
			}()
		}
	}
}

// Wait blocks until all in-flight dispatches finish. Called during graceful
// shutdown after ctx cancellation stops Run.
func (q *Queue) Wait() {
	q.wg.Wait()
}
