package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
	"github.com/louaykahouli/CallCenter-Classifier/internal/store"
)

// enqueueWait bounds how long Enqueue blocks on a full queue before dropping
// the record. It keeps persistence from back-pressuring the response path.
const enqueueWait = 50 * time.Millisecond

// saveTimeout bounds one store write by the consumer.
const saveTimeout = 5 * time.Second

// persistQueue decouples conversation writes from the response path: a
// bounded channel feeds one consumer goroutine that writes through the store.
// Records are dropped only when the queue stays full past enqueueWait, which
// is logged; this is the single documented exception to the one-record-per-
// served-request invariant.
type persistQueue struct {
	store  store.Store
	ch     chan *domain.ConversationRecord
	wg     sync.WaitGroup
	logger *slog.Logger
}

func newPersistQueue(st store.Store, size int, logger *slog.Logger) *persistQueue {
	q := &persistQueue{
		store:  st,
		ch:     make(chan *domain.ConversationRecord, size),
		logger: logger,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue hands a record to the consumer, waiting at most enqueueWait.
func (q *persistQueue) Enqueue(rec *domain.ConversationRecord) {
	select {
	case q.ch <- rec:
		return
	default:
	}

	select {
	case q.ch <- rec:
	case <-time.After(enqueueWait):
		q.logger.Warn("Persistence queue full, dropping conversation record",
			"session_id", rec.SessionID,
			"backend", rec.ModelUsed)
	}
}

func (q *persistQueue) run() {
	defer q.wg.Done()
	for rec := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if _, err := q.store.SaveConversation(ctx, rec); err != nil {
			// Persistence failures never alter the response already returned;
			// log with enough context to reconstruct the loss.
			q.logger.Error("Failed to persist conversation",
				"session_id", rec.SessionID,
				"backend", rec.ModelUsed,
				"error", err)
		}
		cancel()
	}
}

// Depth reports how many records are waiting to be written.
func (q *persistQueue) Depth() int {
	return len(q.ch)
}

// Close stops accepting records and waits for the consumer to drain. Enqueue
// must not be called after Close.
func (q *persistQueue) Close() {
	close(q.ch)
	q.wg.Wait()
}
