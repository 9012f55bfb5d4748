package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const answerWritesTable = "answer_writes"

// answerWriteRow mirrors the answer_writes table for entsql.ScanSlice.
type answerWriteRow struct {
	ID         int64  `sql:"id"`
	Sequence   int64  `sql:"sequence"`
	AttemptID  string `sql:"attempt_id"`
	QuestionID string `sql:"question_id"`
	OptionID   string `sql:"option_id"`
	Seq        int64  `sql:"seq"`
	Status     string `sql:"status"`
	Error      string `sql:"error"`
	CreatedAt  int64  `sql:"created_at"`
	UpdatedAt  int64  `sql:"updated_at"`
}

func (r answerWriteRow) write() AnswerWrite {
	return AnswerWrite{
		ID:         r.ID,
		Sequence:   r.Sequence,
		AttemptID:  r.AttemptID,
		QuestionID: r.QuestionID,
		OptionID:   r.OptionID,
		Seq:        r.Seq,
		Status:     WriteStatus(r.Status),
		Error:      r.Error,
		CreatedAt:  time.UnixMilli(r.CreatedAt),
		UpdatedAt:  time.UnixMilli(r.UpdatedAt),
	}
}

// answerWriteRepo implements AnswerWriteRepo.
type answerWriteRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *answerWriteRepo) AppendAnswerWrite(ctx context.Context, w AnswerWrite) error {
	sequence, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	if w.Status == "" {
		w.Status = WritePending
	}
	now := time.Now().UnixMilli()

	q, args := entsql.Dialect(dialect.SQLite).
		Insert(answerWritesTable).
		Columns("sequence", "attempt_id", "question_id", "option_id", "seq", "status", "error", "created_at", "updated_at").
		Values(sequence, w.AttemptID, w.QuestionID, w.OptionID, w.Seq, string(w.Status), w.Error, now, now).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("append answer write: %w", err)
	}
	return nil
}

func (r *answerWriteRepo) MarkAnswerWrite(ctx context.Context, attemptID string, seq int64, status WriteStatus, errMsg string) error {
	q, args := entsql.Dialect(dialect.SQLite).
		Update(answerWritesTable).
		Set("status", string(status)).
		Set("error", errMsg).
		Set("updated_at", time.Now().UnixMilli()).
		Where(entsql.And(
			entsql.EQ("attempt_id", attemptID),
			entsql.EQ("seq", seq),
		)).
		Query()

	var result entsql.Result
	if err := r.drv.Exec(ctx, q, args, &result); err != nil {
		return fmt.Errorf("mark answer write: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark answer write: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark answer write %s/%d: %w", attemptID, seq, ErrNotFound)
	}
	return nil
}

func (r *answerWriteRepo) Undelivered(ctx context.Context, attemptID string) ([]AnswerWrite, error) {
	pred := entsql.In("status", string(WritePending), string(WriteFailed))
	if attemptID != "" {
		pred = entsql.And(pred, entsql.EQ("attempt_id", attemptID))
	}

	q, args := entsql.Dialect(dialect.SQLite).
		Select("id", "sequence", "attempt_id", "question_id", "option_id", "seq", "status", "error", "created_at", "updated_at").
		From(entsql.Table(answerWritesTable)).
		Where(pred).
		OrderBy(entsql.Asc("attempt_id"), entsql.Asc("seq")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("undelivered answer writes: %w", err)
	}
	defer rows.Close()

	var scanned []answerWriteRow
	if err := entsql.ScanSlice(&rows, &scanned); err != nil {
		return nil, fmt.Errorf("scan answer writes: %w", err)
	}

	out := make([]AnswerWrite, 0, len(scanned))
	for _, row := range scanned {
		out = append(out, row.write())
	}
	return out, nil
}

func (r *answerWriteRepo) MaxSeq(ctx context.Context, attemptID string) (int64, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Select("COALESCE(MAX(seq), 0)").
		From(entsql.Table(answerWritesTable)).
		Where(entsql.EQ("attempt_id", attemptID)).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return 0, fmt.Errorf("max answer seq: %w", err)
	}
	defer rows.Close()

	n, err := entsql.ScanInt64(&rows)
	if err != nil {
		return 0, fmt.Errorf("max answer seq: %w", err)
	}
	return n, nil
}

func (r *answerWriteRepo) NewestSeqs(ctx context.Context, attemptID string) (map[QuestionKey]int64, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("attempt_id", "question_id", "MAX(seq) AS newest").
		From(entsql.Table(answerWritesTable)).
		GroupBy("attempt_id", "question_id")
	if attemptID != "" {
		sel.Where(entsql.EQ("attempt_id", attemptID))
	}

	q, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("newest answer seqs: %w", err)
	}
	defer rows.Close()

	var scanned []struct {
		AttemptID  string `sql:"attempt_id"`
		QuestionID string `sql:"question_id"`
		Newest     int64  `sql:"newest"`
	}
	if err := entsql.ScanSlice(&rows, &scanned); err != nil {
		return nil, fmt.Errorf("scan newest seqs: %w", err)
	}

	out := make(map[QuestionKey]int64, len(scanned))
	for _, row := range scanned {
		out[QuestionKey{row.AttemptID, row.QuestionID}] = row.Newest
	}
	return out, nil
}
