// Package outbox delivers answer choices to the backend in the order the
// candidate made them, off the UI loop.
//
// Each attempt gets one Queue with a single worker goroutine. Writes carry
// a per-attempt sequence number; a newer choice for a question replaces an
// older one that has not been sent yet. Every write is journaled so that
// undelivered choices can be replayed later.
package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/store"
)

// ErrClosed is returned by Flush once the queue has been closed with
// writes still pending.
var ErrClosed = errors.New("outbox closed")

// resultBuffer is the capacity of the Results channel.
const resultBuffer = 64

// Sender submits one answer to the backend.
type Sender interface {
	SubmitAnswer(ctx context.Context, attemptID string, req api.AnswerRequest) error
}

// Journal records writes and their delivery status.
type Journal interface {
	AppendAnswerWrite(ctx context.Context, w store.AnswerWrite) error
	MarkAnswerWrite(ctx context.Context, attemptID string, seq int64, status store.WriteStatus, errMsg string) error
}

// Write is one queued answer choice.
type Write struct {
	AttemptID  string
	QuestionID string
	OptionID   string
	Seq        int64
}

// Result reports the delivery outcome of a write.
type Result struct {
	Write Write
	Err   error
}

// Options configures a Queue.
type Options struct {
	Retry api.RetryConfig

	// Journal is optional.
	Journal Journal

	// StartSeq is the last seq already used for the attempt.
	StartSeq int64

	Logger *slog.Logger
}

// Queue is the outbox of one attempt.
type Queue struct {
	attemptID string
	sender    Sender
	retry     api.RetryConfig
	journal   Journal
	logger    *slog.Logger

	enqueueMu sync.Mutex

	mu       sync.Mutex
	pending  []Write
	nextSeq  int64
	inflight bool
	closed   bool
	waiters  []chan struct{}

	wake    chan struct{}
	results chan Result
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New starts a queue for attemptID.
func New(attemptID string, sender Sender, opts Options) *Queue {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = api.DefaultRetryConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		attemptID: attemptID,
		sender:    sender,
		retry:     opts.Retry,
		journal:   opts.Journal,
		logger:    opts.Logger.With("attempt_id", attemptID),
		nextSeq:   opts.StartSeq,
		wake:      make(chan struct{}, 1),
		results:   make(chan Result, resultBuffer),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go q.run()
	return q
}

// AttemptID returns the attempt the queue delivers for.
func (q *Queue) AttemptID() string { return q.attemptID }

// Results delivers one Result per attempted write. It is closed by Close.
func (q *Queue) Results() <-chan Result { return q.results }

// Enqueue queues a choice and returns the write with its assigned seq.
// Older pending choices for the same question are dropped.
func (q *Queue) Enqueue(questionID, optionID string) Write {
	q.enqueueMu.Lock()
	defer q.enqueueMu.Unlock()

	q.mu.Lock()
	q.nextSeq++
	w := Write{AttemptID: q.attemptID, QuestionID: questionID, OptionID: optionID, Seq: q.nextSeq}
	closed := q.closed
	q.mu.Unlock()

	if q.journal != nil {
		err := q.journal.AppendAnswerWrite(context.Background(), store.AnswerWrite{
			AttemptID:  w.AttemptID,
			QuestionID: w.QuestionID,
			OptionID:   w.OptionID,
			Seq:        w.Seq,
			Status:     store.WritePending,
		})
		if err != nil {
			q.logger.Warn("journal answer write failed", "seq", w.Seq, "error", err)
		}
	}
	if closed {
		return w
	}

	q.mu.Lock()
	var superseded []Write
	kept := q.pending[:0]
	for _, p := range q.pending {
		if p.QuestionID == questionID {
			superseded = append(superseded, p)
			continue
		}
		kept = append(kept, p)
	}
	q.pending = append(kept, w)
	q.mu.Unlock()

	for _, s := range superseded {
		q.mark(s, store.WriteSuperseded, "")
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return w
}

// Pending returns the number of writes not yet attempted, including the
// one in flight.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.pending)
	if q.inflight {
		n++
	}
	return n
}

// Flush blocks until every queued write has been attempted or ctx is done.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if len(q.pending) == 0 && !q.inflight {
		q.mu.Unlock()
		return nil
	}
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.closed && (len(q.pending) > 0 || q.inflight) {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker. Writes not yet delivered stay pending in the
// journal. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	<-q.done

	q.mu.Lock()
	q.releaseWaiters()
	q.mu.Unlock()
	close(q.results)
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		w, ok := q.next()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-q.ctx.Done():
				return
			}
		}

		err := q.retry.Do(q.ctx, func(ctx context.Context) error {
			return q.sender.SubmitAnswer(ctx, q.attemptID, api.AnswerRequest{
				QuestionID: w.QuestionID,
				OptionID:   w.OptionID,
				Seq:        w.Seq,
			})
		})
		if err != nil && q.ctx.Err() != nil {
			// Closed mid-delivery: the write stays pending for replay.
			q.mu.Lock()
			q.inflight = false
			q.mu.Unlock()
			return
		}

		if err != nil {
			q.logger.Warn("answer delivery failed", "seq", w.Seq, "question_id", w.QuestionID, "error", err)
			q.mark(w, store.WriteFailed, err.Error())
		} else {
			q.logger.Debug("answer delivered", "seq", w.Seq, "question_id", w.QuestionID)
			q.mark(w, store.WriteDelivered, "")
		}
		q.emit(Result{Write: w, Err: err})
	}
}

// next pops the oldest pending write. When the queue is empty it clears the
// in-flight flag and wakes flushers.
func (q *Queue) next() (Write, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		q.inflight = false
		q.releaseWaiters()
		return Write{}, false
	}
	w := q.pending[0]
	q.pending = q.pending[1:]
	q.inflight = true
	return w, true
}

// releaseWaiters must be called with q.mu held.
func (q *Queue) releaseWaiters() {
	for _, ch := range q.waiters {
		close(ch)
	}
	q.waiters = nil
}

func (q *Queue) emit(r Result) {
	select {
	case q.results <- r:
	default:
		q.logger.Warn("outbox result dropped", "seq", r.Write.Seq)
	}
}

func (q *Queue) mark(w Write, status store.WriteStatus, errMsg string) {
	if q.journal == nil {
		return
	}
	if err := q.journal.MarkAnswerWrite(context.Background(), w.AttemptID, w.Seq, status, errMsg); err != nil {
		q.logger.Warn("journal mark failed", "seq", w.Seq, "status", status, "error", err)
	}
}
