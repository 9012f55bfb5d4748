package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/qcm/internal/assessment"
)

// ErrNotFound is returned when a journal record does not exist.
var ErrNotFound = errors.New("not found")

// AttemptRecord is one journaled attempt.
type AttemptRecord struct {
	ID            string
	Sequence      int64
	Token         string
	AssessmentID  string
	Language      string
	APIURL        string
	Candidate     assessment.Candidate
	QuestionCount int
	StartedAt     time.Time

	// Set once the attempt is finished.
	FinishedAt time.Time
	Result     *assessment.Result
}

// Finished reports whether a finish was journaled.
func (r AttemptRecord) Finished() bool { return r.Result != nil }

// WriteStatus is the delivery state of an answer write.
type WriteStatus string

const (
	WritePending    WriteStatus = "pending"
	WriteDelivered  WriteStatus = "delivered"
	WriteFailed     WriteStatus = "failed"
	WriteSuperseded WriteStatus = "superseded"
)

// AnswerWrite is one journaled answer choice and its delivery state.
type AnswerWrite struct {
	ID         int64
	Sequence   int64
	AttemptID  string
	QuestionID string
	OptionID   string
	Seq        int64
	Status     WriteStatus
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AttemptRepo journals attempt lifecycle events.
type AttemptRepo interface {
	// RecordStart stores a newly started attempt.
	RecordStart(ctx context.Context, rec AttemptRecord) error

	// RecordFinish stores the backend result for an attempt.
	RecordFinish(ctx context.Context, attemptID string, res assessment.Result, at time.Time) error

	// Get returns one attempt, or ErrNotFound.
	Get(ctx context.Context, attemptID string) (*AttemptRecord, error)

	// Recent returns the most recently started attempts, newest first.
	Recent(ctx context.Context, limit int) ([]AttemptRecord, error)
}

// AnswerWriteRepo journals answer writes for the outbox.
type AnswerWriteRepo interface {
	// AppendAnswerWrite stores a new pending write.
	AppendAnswerWrite(ctx context.Context, w AnswerWrite) error

	// MarkAnswerWrite updates the delivery status of a write.
	MarkAnswerWrite(ctx context.Context, attemptID string, seq int64, status WriteStatus, errMsg string) error

	// Undelivered returns pending and failed writes ordered by attempt and
	// seq. An empty attemptID matches every attempt.
	Undelivered(ctx context.Context, attemptID string) ([]AnswerWrite, error)

	// MaxSeq returns the highest seq journaled for an attempt, 0 if none.
	MaxSeq(ctx context.Context, attemptID string) (int64, error)

	// NewestSeqs returns the highest seq journaled per question in any
	// status. An empty attemptID matches every attempt.
	NewestSeqs(ctx context.Context, attemptID string) (map[QuestionKey]int64, error)
}

// QuestionKey identifies one question within one attempt.
type QuestionKey struct {
	AttemptID  string
	QuestionID string
}
