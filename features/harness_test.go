package features

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
	"github.com/abhisek/qcm/internal/attempt"
	"github.com/abhisek/qcm/internal/completion"
	"github.com/abhisek/qcm/internal/devserver"
	"github.com/abhisek/qcm/internal/invite"
	"github.com/abhisek/qcm/internal/outbox"
	"github.com/abhisek/qcm/internal/store"
)

const intakeBase = "https://jobs.example.com"

// candidateFlow drives the candidate flow against an in-process dev
// backend without a terminal.
type candidateFlow struct {
	srv     *httptest.Server
	client  *api.Client
	journal *store.Store

	assessment *assessment.Assessment
	session    *attempt.Session
	queue      *outbox.Queue
	outcome    completion.Outcome
	lastErr    error
}

func newCandidateFlow() (*candidateFlow, error) {
	fixtures, err := devserver.DemoFixtures()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, err
	}
	srv := httptest.NewServer(devserver.New(fixtures).Router())
	return &candidateFlow{
		srv:     srv,
		client:  api.NewClient(srv.URL),
		journal: st,
	}, nil
}

func (f *candidateFlow) close() {
	if f.queue != nil {
		f.queue.Close()
	}
	f.srv.Close()
	_ = f.journal.Close()
}

func (f *candidateFlow) openInvite(ctx context.Context, token string) error {
	a, err := invite.NewLoader(f.client).Load(ctx, token)
	f.lastErr = err
	if err != nil {
		return nil
	}
	f.assessment = a
	f.session = attempt.New(a)
	return nil
}

func (f *candidateFlow) start(ctx context.Context, c assessment.Candidate) error {
	if f.session == nil {
		return errors.New("no invitation loaded")
	}
	if err := f.session.BeginStart(c); err != nil {
		f.lastErr = err
		return nil
	}
	resp, err := f.client.StartAttempt(ctx, api.NewStartRequest(f.assessment.Token, f.session.Candidate()))
	if err != nil {
		f.session.StartFailed(err)
		f.lastErr = err
		return nil
	}
	f.session.StartSucceeded(resp.AttemptID, resp.Questions)
	f.queue = outbox.New(resp.AttemptID, f.client, outbox.Options{
		Retry:   api.RetryConfig{MaxAttempts: 1},
		Journal: f.journal.AnswerWriteRepo(),
	})
	return nil
}

// choose records optionID for the current question and queues its write.
func (f *candidateFlow) choose(optionID string) error {
	a, ok := f.session.Select(optionID)
	if !ok {
		return fmt.Errorf("option %q was not accepted", optionID)
	}
	f.queue.Enqueue(a.QuestionID, a.OptionID)
	return nil
}

// answerAll picks one option per question in order.
func (f *candidateFlow) answerAll(optionIDs ...string) error {
	for i, id := range optionIDs {
		if err := f.choose(id); err != nil {
			return err
		}
		if i < len(optionIDs)-1 && !f.session.Next() {
			return fmt.Errorf("could not advance past question %d", i+1)
		}
	}
	return nil
}

func (f *candidateFlow) finish(ctx context.Context) error {
	if err := f.session.BeginFinish(); err != nil {
		return err
	}
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.queue.Flush(flushCtx); err != nil {
		return fmt.Errorf("flush answers: %w", err)
	}

	res, err := f.client.FinishAttempt(ctx, f.session.AttemptID())
	if err != nil {
		f.session.FinishFailed(err)
		f.lastErr = err
		return nil
	}
	f.session.FinishSucceeded(res)
	f.outcome = completion.Decide(completion.Input{
		AttemptID:          f.session.AttemptID(),
		Candidate:          f.session.Candidate(),
		Result:             *res,
		AssessmentLanguage: f.assessment.Language,
		IntakeBaseURL:      intakeBase,
	})
	return nil
}

func ada() assessment.Candidate {
	return assessment.Candidate{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "0600000000",
	}
}
