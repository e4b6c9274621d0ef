package app

import (
	"sync"
	"time"

	"aic-scoring-service/internal/domain"
)

// Session owns one question's start/stop cycle and every team's submission
// state for it. All mutation happens under s.mu, held for the full duration
// of Submit and Stop, so two racing submissions for the same team can never
// both take the scored branch.
//
// Expiry is a lazy predicate over the injected clock: once
// elapsed > timeLimit+bufferTime the session rejects submissions without any
// background timer or stored-state mutation.
type Session struct {
	questionID string
	question   domain.Question
	params     domain.ScoringParams
	startTime  time.Time
	now        func() time.Time

	mu        sync.Mutex
	stopped   bool
	teams     map[string]*domain.TeamState
	synthetic []domain.Competitor
}

// NewSession starts a fresh cycle for a question. startTime carries Go's
// monotonic clock reading, so elapsed times are immune to wall-clock jumps.
func NewSession(question domain.Question, params domain.ScoringParams, synthetic []domain.Competitor, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		questionID: question.ID,
		question:   question,
		params:     params,
		startTime:  now(),
		now:        now,
		teams:      make(map[string]*domain.TeamState),
		synthetic:  synthetic,
	}
}

// Info describes the session as returned from a start call.
func (s *Session) Info() domain.SessionInfo {
	return domain.SessionInfo{
		QuestionID: s.questionID,
		StartTime:  s.startTime.UnixMilli(),
		TimeLimit:  s.params.TimeLimit,
		BufferTime: s.params.BufferTime,
	}
}

// Stop closes the session for submissions. Idempotent; team state is left
// untouched.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Active reports whether the session currently accepts submissions: not
// stopped and still inside the time window including buffer.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked(s.now())
}

func (s *Session) activeLocked(now time.Time) bool {
	if s.stopped {
		return false
	}
	return s.elapsedAt(now) <= s.params.TimeLimit+s.params.BufferTime
}

func (s *Session) elapsedAt(now time.Time) float64 {
	return now.Sub(s.startTime).Seconds()
}

// Submit is the single mutating entry point for team answers. It evaluates
// the payload and applies exactly one of the outcome transitions; on any
// rejection the team state is left consistent (malformed input counts as a
// wrong attempt, everything else mutates nothing).
func (s *Session) Submit(teamID string, sub domain.Submission) domain.SubmissionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	elapsed := s.elapsedAt(now)

	if !s.activeLocked(now) {
		return domain.SubmissionResult{
			Outcome:       domain.OutcomeNotActive,
			WrongAttempts: s.wrongCountLocked(teamID),
			Elapsed:       elapsed,
		}
	}

	if team, ok := s.teams[teamID]; ok && team.Completed {
		return domain.SubmissionResult{
			Outcome:       domain.OutcomeAlreadyCompleted,
			Score:         team.FinalScore,
			WrongAttempts: team.WrongCount,
			Elapsed:       team.FirstCorrectElapsed,
		}
	}

	values, err := Normalize(s.question, sub)
	if err != nil {
		team := s.teamLocked(teamID)
		team.WrongCount++
		return domain.SubmissionResult{
			Outcome:       domain.OutcomeMalformed,
			TotalEvents:   len(s.question.Points),
			WrongAttempts: team.WrongCount,
			Elapsed:       elapsed,
		}
	}

	matched, total := CheckMatch(values, s.question.Points)
	correctness := CorrectnessFactor(matched, total, s.question.Type)
	team := s.teamLocked(teamID)

	if correctness == 0 {
		team.WrongCount++
		return domain.SubmissionResult{
			Outcome:       domain.OutcomeIncorrect,
			MatchedEvents: matched,
			TotalEvents:   total,
			WrongAttempts: team.WrongCount,
			Elapsed:       elapsed,
		}
	}

	score := Score(elapsed, team.WrongCount, correctness, s.params)
	team.CorrectCount++
	team.Completed = true
	team.FirstCorrectElapsed = elapsed
	team.FinalScore = score

	return domain.SubmissionResult{
		Outcome:       domain.OutcomeScored,
		Score:         score,
		Correctness:   correctness,
		MatchedEvents: matched,
		TotalEvents:   total,
		WrongAttempts: team.WrongCount,
		Elapsed:       elapsed,
	}
}

func (s *Session) teamLocked(teamID string) *domain.TeamState {
	team, ok := s.teams[teamID]
	if !ok {
		team = &domain.TeamState{TeamID: teamID}
		s.teams[teamID] = team
	}
	return team
}

func (s *Session) wrongCountLocked(teamID string) int {
	if team, ok := s.teams[teamID]; ok {
		return team.WrongCount
	}
	return 0
}

// Status returns the read-only view served to dashboards.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	elapsed := s.elapsedAt(now)
	remaining := s.params.TimeLimit - elapsed
	if remaining < 0 {
		remaining = 0
	}

	submitted, completed := 0, 0
	for _, team := range s.teams {
		submitted += team.WrongCount + team.CorrectCount
		if team.Completed {
			completed++
		}
	}

	return domain.SessionStatus{
		QuestionID:     s.questionID,
		Active:         s.activeLocked(now),
		Elapsed:        elapsed,
		Remaining:      remaining,
		TotalSubmitted: submitted,
		CompletedCount: completed,
	}
}

// Snapshot returns the real team records and the synthetic records in the
// shared competitor schema. Copies only; callers never see live state.
func (s *Session) Snapshot() (real, synthetic []domain.Competitor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	real = make([]domain.Competitor, 0, len(s.teams))
	for _, team := range s.teams {
		real = append(real, domain.Competitor{
			TeamID:       team.TeamID,
			WrongCount:   team.WrongCount,
			CorrectCount: team.CorrectCount,
			Score:        team.FinalScore,
			Elapsed:      team.FirstCorrectElapsed,
			Completed:    team.Completed,
		})
	}
	synthetic = append([]domain.Competitor(nil), s.synthetic...)
	return real, synthetic
}
