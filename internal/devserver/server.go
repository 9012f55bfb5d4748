// Package devserver is an in-memory assessment backend for local runs and
// end-to-end tests. It serves the same JSON contract as the real service.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
)

type answerState struct {
	optionID string
	seq      int64
}

type attemptState struct {
	id         string
	assessment *AssessmentFixture
	candidate  api.StartRequest
	answers    map[string]answerState
	startedAt  time.Time
	result     *api.FinishResponse
}

// Server is the dev backend.
type Server struct {
	fixtures *Fixtures
	byToken  map[string]*AssessmentFixture
	router   *chi.Mux

	mu       sync.Mutex
	now      func() time.Time
	attempts map[string]*attemptState
}

// New creates a server for the given fixtures.
func New(f *Fixtures) *Server {
	s := &Server{
		fixtures: f,
		byToken:  make(map[string]*AssessmentFixture, len(f.Assessments)),
		attempts: make(map[string]*attemptState),
		now:      time.Now,
	}
	for i := range f.Assessments {
		a := &f.Assessments[i]
		s.byToken[a.Token] = a
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/public/qcm/{token}", s.handleGetInvite)
	r.Route("/attempts", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Post("/{id}/answer", s.handleAnswer)
		r.Post("/{id}/finish", s.handleFinish)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetInvite(w http.ResponseWriter, r *http.Request) {
	a, status, msg := s.lookup(chi.URLParam(r, "token"))
	if a == nil {
		respondError(w, status, msg)
		return
	}

	var resp api.InviteResponse
	resp.QCM.ID = api.ID(a.ID)
	resp.QCM.Language = a.Language
	resp.Questions = publicQuestions(a)
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req api.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, status, msg := s.lookup(req.Token)
	if a == nil {
		respondError(w, status, msg)
		return
	}

	cand := assessment.Candidate{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email, Phone: req.Phone}
	if err := cand.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	st := &attemptState{
		id:         uuid.NewString(),
		assessment: a,
		candidate:  req,
		answers:    make(map[string]answerState),
		startedAt:  s.now(),
	}
	s.attempts[st.id] = st
	s.mu.Unlock()

	slog.Info("attempt started", "attempt_id", st.id, "assessment_id", a.ID)

	resp := map[string]any{"attempt_id": st.id}
	if a.Freeze {
		resp["questions"] = publicQuestions(a)
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req api.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.attempts[chi.URLParam(r, "id")]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown attempt")
		return
	}
	if st.result != nil {
		respondError(w, http.StatusConflict, "attempt already finished")
		return
	}

	q, ok := findQuestion(st.assessment, req.QuestionID)
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "unknown question")
		return
	}
	if _, ok := q.option(req.OptionID); !ok {
		respondError(w, http.StatusUnprocessableEntity, "option does not belong to question")
		return
	}

	// Last sequence wins; stale writes are acknowledged but not applied.
	applied := false
	if prev, ok := st.answers[req.QuestionID]; !ok || req.Seq >= prev.seq {
		st.answers[req.QuestionID] = answerState{optionID: req.OptionID, seq: req.Seq}
		applied = true
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true, "applied": applied})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.attempts[chi.URLParam(r, "id")]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown attempt")
		return
	}

	// Finishing twice returns the sealed result.
	if st.result == nil {
		st.result = s.score(st)
		slog.Info("attempt finished",
			"attempt_id", st.id,
			"score", st.result.Score,
			"passed", st.result.Passed,
		)
	}
	respondJSON(w, http.StatusOK, st.result)
}

// score grades an attempt. Must be called with s.mu held.
func (s *Server) score(st *attemptState) *api.FinishResponse {
	total := len(st.assessment.Questions)
	correct := 0
	for _, q := range st.assessment.Questions {
		a, ok := st.answers[q.ID]
		if !ok {
			continue
		}
		if o, ok := q.option(a.optionID); ok && o.Correct {
			correct++
		}
	}

	score := 0.0
	if total > 0 {
		score = math.Round(float64(correct) * 100 / float64(total))
	}
	return &api.FinishResponse{
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: total,
		Duration:       s.now().Sub(st.startedAt).Round(time.Second).Seconds(),
		Passed:         total > 0 && score >= s.fixtures.PassThreshold,
		Language:       st.assessment.Language,
	}
}

// lookup resolves a token, returning the HTTP status and message to use
// when it cannot be served.
func (s *Server) lookup(token string) (*AssessmentFixture, int, string) {
	a, ok := s.byToken[strings.TrimSpace(token)]
	switch {
	case !ok:
		return nil, http.StatusNotFound, "unknown token"
	case a.Expired:
		return nil, http.StatusGone, "invite expired"
	default:
		return a, 0, ""
	}
}

func findQuestion(a *AssessmentFixture, id string) (QuestionFixture, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return QuestionFixture{}, false
}

// publicQuestions strips the answer key.
func publicQuestions(a *AssessmentFixture) []api.QuestionPayload {
	out := make([]api.QuestionPayload, 0, len(a.Questions))
	for _, q := range a.Questions {
		opts := make([]api.OptionPayload, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, api.OptionPayload{ID: api.ID(o.ID), Text: o.Text})
		}
		out = append(out, api.QuestionPayload{ID: api.ID(q.ID), SkillTag: q.SkillTag, Text: q.Text, Options: opts})
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ListenAndServe serves the dev backend on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
