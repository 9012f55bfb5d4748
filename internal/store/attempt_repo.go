package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/qcm/internal/assessment"
)

const attemptsTable = "attempts"

var attemptColumns = []string{
	"id", "sequence", "token", "assessment_id", "language", "api_url",
	"first_name", "last_name", "email", "phone", "question_count",
	"started_at", "finished_at", "score", "correct_count", "total_questions",
	"duration_s", "passed", "result_language",
}

// attemptRow mirrors the attempts table for entsql.ScanSlice.
type attemptRow struct {
	ID             string   `sql:"id"`
	Sequence       int64    `sql:"sequence"`
	Token          string   `sql:"token"`
	AssessmentID   string   `sql:"assessment_id"`
	Language       string   `sql:"language"`
	APIURL         string   `sql:"api_url"`
	FirstName      string   `sql:"first_name"`
	LastName       string   `sql:"last_name"`
	Email          string   `sql:"email"`
	Phone          string   `sql:"phone"`
	QuestionCount  int64    `sql:"question_count"`
	StartedAt      int64    `sql:"started_at"`
	FinishedAt     *int64   `sql:"finished_at"`
	Score          *float64 `sql:"score"`
	CorrectCount   *int64   `sql:"correct_count"`
	TotalQuestions *int64   `sql:"total_questions"`
	DurationS      *float64 `sql:"duration_s"`
	Passed         *int64   `sql:"passed"`
	ResultLanguage *string  `sql:"result_language"`
}

func (r attemptRow) record() AttemptRecord {
	rec := AttemptRecord{
		ID:           r.ID,
		Sequence:     r.Sequence,
		Token:        r.Token,
		AssessmentID: r.AssessmentID,
		Language:     r.Language,
		APIURL:       r.APIURL,
		Candidate: assessment.Candidate{
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Email:     r.Email,
			Phone:     r.Phone,
		},
		QuestionCount: int(r.QuestionCount),
		StartedAt:     time.UnixMilli(r.StartedAt),
	}
	if r.FinishedAt != nil && r.Passed != nil {
		rec.FinishedAt = time.UnixMilli(*r.FinishedAt)
		res := &assessment.Result{Passed: *r.Passed != 0}
		if r.Score != nil {
			res.Score = *r.Score
		}
		if r.CorrectCount != nil {
			res.CorrectCount = int(*r.CorrectCount)
		}
		if r.TotalQuestions != nil {
			res.TotalQuestions = int(*r.TotalQuestions)
		}
		if r.DurationS != nil {
			res.DurationSeconds = *r.DurationS
		}
		if r.ResultLanguage != nil {
			res.Language = *r.ResultLanguage
		}
		rec.Result = res
	}
	return rec
}

// attemptRepo implements AttemptRepo.
type attemptRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *attemptRepo) RecordStart(ctx context.Context, rec AttemptRecord) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	c := rec.Candidate
	q, args := entsql.Dialect(dialect.SQLite).
		Insert(attemptsTable).
		Columns("id", "sequence", "token", "assessment_id", "language", "api_url",
			"first_name", "last_name", "email", "phone", "question_count", "started_at").
		Values(rec.ID, seq, rec.Token, rec.AssessmentID, rec.Language, rec.APIURL,
			c.FirstName, c.LastName, c.Email, c.Phone, rec.QuestionCount, rec.StartedAt.UnixMilli()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("record attempt start: %w", err)
	}
	return nil
}

func (r *attemptRepo) RecordFinish(ctx context.Context, attemptID string, res assessment.Result, at time.Time) error {
	passed := 0
	if res.Passed {
		passed = 1
	}

	q, args := entsql.Dialect(dialect.SQLite).
		Update(attemptsTable).
		Set("finished_at", at.UnixMilli()).
		Set("score", res.Score).
		Set("correct_count", res.CorrectCount).
		Set("total_questions", res.TotalQuestions).
		Set("duration_s", res.DurationSeconds).
		Set("passed", passed).
		Set("result_language", res.Language).
		Where(entsql.EQ("id", attemptID)).
		Query()

	var result entsql.Result
	if err := r.drv.Exec(ctx, q, args, &result); err != nil {
		return fmt.Errorf("record attempt finish: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record attempt finish: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record attempt finish %s: %w", attemptID, ErrNotFound)
	}
	return nil
}

func (r *attemptRepo) Get(ctx context.Context, attemptID string) (*AttemptRecord, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(attemptColumns...).
		From(entsql.Table(attemptsTable)).
		Where(entsql.EQ("id", attemptID))

	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("get attempt %s: %w", attemptID, ErrNotFound)
	}
	rec := rows[0].record()
	return &rec, nil
}

func (r *attemptRepo) Recent(ctx context.Context, limit int) ([]AttemptRecord, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(attemptColumns...).
		From(entsql.Table(attemptsTable)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}

	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	out := make([]AttemptRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (r *attemptRepo) query(ctx context.Context, sel *entsql.Selector) ([]attemptRow, error) {
	q, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attemptRow
	if err := entsql.ScanSlice(&rows, &out); err != nil {
		return nil, err
	}
	return out, nil
}
