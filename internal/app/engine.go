package app

import (
	"context"
	"log"
	"sync"
	"time"

	"aic-scoring-service/internal/domain"
)

// SessionRepository abstracts how question sessions are stored (in-memory,
// redis-marked, etc).
type SessionRepository interface {
	Put(questionID string, session *Session)
	Get(questionID string) (*Session, bool)
	All() map[string]*Session
	Reset() int
}

// Catalog resolves ground truth for a question id.
type Catalog interface {
	Question(ctx context.Context, questionID string) (domain.Question, error)
}

// CompetitorGenerator produces synthetic leaderboard records in the same
// schema as real teams. Called once per question start.
type CompetitorGenerator interface {
	Generate(question domain.Question, params domain.ScoringParams) []domain.Competitor
}

// Engine contains the competition use cases: admin timing control, team
// submissions, status queries and leaderboard views.
type Engine struct {
	sessions  SessionRepository
	catalog   Catalog
	generator CompetitorGenerator
	defaults  domain.ScoringParams
	now       func() time.Time

	subMu       sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects a deterministic clock for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(sessions SessionRepository, catalog Catalog, generator CompetitorGenerator, defaults domain.ScoringParams, opts ...Option) *Engine {
	e := &Engine{
		sessions:    sessions,
		catalog:     catalog,
		generator:   generator,
		defaults:    defaults,
		now:         time.Now,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens a submission window for a question. A new start always
// replaces any prior session for that id, discarding its team state.
// timeLimit/bufferTime <= 0 fall back to the process defaults.
func (e *Engine) Start(ctx context.Context, questionID string, timeLimit, bufferTime float64) (domain.SessionInfo, error) {
	question, err := e.catalog.Question(ctx, questionID)
	if err != nil {
		return domain.SessionInfo{}, err
	}

	params := e.defaults
	if timeLimit > 0 {
		params.TimeLimit = timeLimit
	}
	if bufferTime > 0 {
		params.BufferTime = bufferTime
	}

	var synthetic []domain.Competitor
	if e.generator != nil {
		synthetic = e.generator.Generate(question, params)
	}

	session := NewSession(question, params, synthetic, e.now)
	e.sessions.Put(questionID, session)
	log.Printf("question %s started (limit=%.0fs buffer=%.0fs, %d synthetic teams)",
		questionID, params.TimeLimit, params.BufferTime, len(synthetic))

	e.broadcast(questionID)
	return session.Info(), nil
}

// Stop closes the window for a question. Idempotent once a session exists.
func (e *Engine) Stop(ctx context.Context, questionID string) (domain.SessionStatus, error) {
	session, ok := e.sessions.Get(questionID)
	if !ok {
		return domain.SessionStatus{}, domain.ErrSessionNotFound
	}
	session.Stop()
	log.Printf("question %s stopped", questionID)
	e.broadcast(questionID)
	return session.Status(), nil
}

// Submit evaluates a team's answer for a question. Unknown question sessions
// are reported as an error; every other condition is an outcome.
func (e *Engine) Submit(ctx context.Context, questionID, teamID string, sub domain.Submission) (domain.SubmissionResult, error) {
	session, ok := e.sessions.Get(questionID)
	if !ok {
		return domain.SubmissionResult{}, domain.ErrSessionNotFound
	}

	result := session.Submit(teamID, sub)
	switch result.Outcome {
	case domain.OutcomeScored:
		log.Printf("team %s solved question %s: score=%.2f elapsed=%.2fs wrong=%d",
			teamID, questionID, result.Score, result.Elapsed, result.WrongAttempts)
		e.broadcast(questionID)
	case domain.OutcomeIncorrect, domain.OutcomeMalformed:
		e.broadcast(questionID)
	}
	return result, nil
}

// Active reports whether a question currently accepts submissions.
func (e *Engine) Active(questionID string) bool {
	session, ok := e.sessions.Get(questionID)
	return ok && session.Active()
}

// ActiveQuestion returns the id of a question currently accepting
// submissions. With several active at once the highest id wins, matching
// the competition convention of running questions in order.
func (e *Engine) ActiveQuestion() (string, bool) {
	var best string
	found := false
	for id, session := range e.sessions.All() {
		if !session.Active() {
			continue
		}
		if !found || id > best {
			best = id
			found = true
		}
	}
	return best, found
}

// Status returns the session view for one question.
func (e *Engine) Status(questionID string) (domain.SessionStatus, error) {
	session, ok := e.sessions.Get(questionID)
	if !ok {
		return domain.SessionStatus{}, domain.ErrSessionNotFound
	}
	return session.Status(), nil
}

// Sessions returns the status of every known session, for the admin view.
func (e *Engine) Sessions() []domain.SessionStatus {
	all := e.sessions.All()
	statuses := make([]domain.SessionStatus, 0, len(all))
	for _, session := range all {
		statuses = append(statuses, session.Status())
	}
	sortStatuses(statuses)
	return statuses
}

// Reset discards every session and all team state. Operator-only.
func (e *Engine) Reset() int {
	n := e.sessions.Reset()
	log.Printf("reset all sessions, cleared %d", n)
	return n
}

// Leaderboard returns the ranked per-question view.
func (e *Engine) Leaderboard(questionID string) (domain.Leaderboard, error) {
	session, ok := e.sessions.Get(questionID)
	if !ok {
		return domain.Leaderboard{}, domain.ErrSessionNotFound
	}
	real, synthetic := session.Snapshot()
	return questionLeaderboard(questionID, real, synthetic), nil
}

// Totals returns the ranked cross-question totals view.
func (e *Engine) Totals() []domain.TotalRow {
	all := e.sessions.All()
	snapshots := make(map[string]sessionSnapshot, len(all))
	for id, session := range all {
		real, synthetic := session.Snapshot()
		snapshots[id] = sessionSnapshot{real: real, synthetic: synthetic}
	}
	return totalRows(snapshots)
}

// Subscribe returns a channel fed with per-question leaderboards on every
// mutation. The cancel function must be called to avoid leaks.
func (e *Engine) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	e.subMu.Lock()
	e.subscribers[ch] = struct{}{}
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.subMu.Unlock()
	}
	return ch, cancel
}

// broadcast fans the current leaderboard for a question out to subscribers.
// Slow consumers lose their oldest pending snapshot instead of blocking the
// scoring path.
func (e *Engine) broadcast(questionID string) {
	lb, err := e.Leaderboard(questionID)
	if err != nil {
		return
	}

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
