package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/store"
)

// ReplayJournal is a Journal that can list undelivered writes.
type ReplayJournal interface {
	Journal
	Undelivered(ctx context.Context, attemptID string) ([]store.AnswerWrite, error)
	NewestSeqs(ctx context.Context, attemptID string) (map[store.QuestionKey]int64, error)
}

// ReplayReport summarizes a replay run.
type ReplayReport struct {
	Delivered  int
	Failed     int
	Superseded int
}

// Add accumulates another report into r.
func (r *ReplayReport) Add(o ReplayReport) {
	r.Delivered += o.Delivered
	r.Failed += o.Failed
	r.Superseded += o.Superseded
}

// AttemptLookup resolves journaled attempts.
type AttemptLookup interface {
	Get(ctx context.Context, attemptID string) (*store.AttemptRecord, error)
}

// SenderFunc builds a Sender for a backend base URL.
type SenderFunc func(apiURL string) Sender

// ReplayByBackend replays each attempt against the backend it was started
// on. Attempts with no journaled backend go to fallbackURL. An empty
// attemptID replays every attempt.
func ReplayByBackend(ctx context.Context, senderFor SenderFunc, fallbackURL string, attempts AttemptLookup, journal ReplayJournal, attemptID string, retry api.RetryConfig) (ReplayReport, error) {
	var report ReplayReport

	writes, err := journal.Undelivered(ctx, attemptID)
	if err != nil {
		return report, fmt.Errorf("list undelivered writes: %w", err)
	}

	var ids []string
	seen := make(map[string]bool)
	for _, w := range writes {
		if !seen[w.AttemptID] {
			seen[w.AttemptID] = true
			ids = append(ids, w.AttemptID)
		}
	}

	senders := make(map[string]Sender)
	for _, id := range ids {
		apiURL := fallbackURL
		rec, err := attempts.Get(ctx, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return report, fmt.Errorf("look up attempt %s: %w", id, err)
		case rec.APIURL != "":
			apiURL = rec.APIURL
		}

		sender, ok := senders[apiURL]
		if !ok {
			sender = senderFor(apiURL)
			senders[apiURL] = sender
		}

		slog.Info("replaying attempt", "attempt_id", id, "api_url", apiURL)
		r, err := Replay(ctx, sender, journal, id, retry)
		report.Add(r)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// Replay re-sends undelivered journaled writes in seq order. A write is
// sent only when it is the newest journaled for its question in any
// status; older ones are marked superseded. An empty attemptID replays
// every attempt.
func Replay(ctx context.Context, sender Sender, journal ReplayJournal, attemptID string, retry api.RetryConfig) (ReplayReport, error) {
	var report ReplayReport

	writes, err := journal.Undelivered(ctx, attemptID)
	if err != nil {
		return report, fmt.Errorf("list undelivered writes: %w", err)
	}

	if len(writes) == 0 {
		return report, nil
	}
	newest, err := journal.NewestSeqs(ctx, attemptID)
	if err != nil {
		return report, fmt.Errorf("list newest writes: %w", err)
	}

	for _, w := range writes {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if newest[store.QuestionKey{AttemptID: w.AttemptID, QuestionID: w.QuestionID}] > w.Seq {
			if err := journal.MarkAnswerWrite(ctx, w.AttemptID, w.Seq, store.WriteSuperseded, ""); err != nil {
				return report, fmt.Errorf("mark superseded: %w", err)
			}
			report.Superseded++
			continue
		}

		sendErr := retry.Do(ctx, func(ctx context.Context) error {
			return sender.SubmitAnswer(ctx, w.AttemptID, api.AnswerRequest{
				QuestionID: w.QuestionID,
				OptionID:   w.OptionID,
				Seq:        w.Seq,
			})
		})

		status, msg := store.WriteDelivered, ""
		if sendErr != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			status, msg = store.WriteFailed, sendErr.Error()
			report.Failed++
			slog.Warn("replay delivery failed", "attempt_id", w.AttemptID, "seq", w.Seq, "error", sendErr)
		} else {
			report.Delivered++
		}
		if err := journal.MarkAnswerWrite(ctx, w.AttemptID, w.Seq, status, msg); err != nil {
			return report, fmt.Errorf("mark write: %w", err)
		}
	}
	return report, nil
}
