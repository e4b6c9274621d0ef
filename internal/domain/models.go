package domain

// TaskType identifies the question kind and drives normalization and
// correctness rules.
type TaskType string

const (
	TaskKIS TaskType = "KIS"
	TaskQA  TaskType = "QA"
	TaskTR  TaskType = "TR"
)

// Valid reports whether the task type is one of the known kinds.
func (t TaskType) Valid() bool {
	switch t {
	case TaskKIS, TaskQA, TaskTR:
		return true
	}
	return false
}

// Question is one ground-truth entry. Points is an ascending list with an
// even number of elements; consecutive pairs form inclusive [start,end]
// events. Immutable after load.
type Question struct {
	ID      string   `json:"id"`
	Type    TaskType `json:"type"`
	SceneID string   `json:"sceneId"`
	VideoID string   `json:"videoId"`
	Points  []int    `json:"points"`
}

// EventCount returns the number of [start,end] events encoded in Points.
func (q Question) EventCount() int {
	return len(q.Points) / 2
}

// ScoringParams holds the competition scoring constants. Defaults come from
// config; TimeLimit and BufferTime may be overridden per session at start.
type ScoringParams struct {
	PMax       float64 `json:"pMax"`
	PBase      float64 `json:"pBase"`
	PPenalty   float64 `json:"pPenalty"`
	TimeLimit  float64 `json:"timeLimit"`  // seconds
	BufferTime float64 `json:"bufferTime"` // seconds of grace after TimeLimit
}

// DefaultScoringParams returns the published competition constants.
func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		PMax:       100,
		PBase:      50,
		PPenalty:   10,
		TimeLimit:  300,
		BufferTime: 10,
	}
}

// Outcome classifies the result of a single submission. The values are
// mutually exclusive.
type Outcome string

const (
	OutcomeScored           Outcome = "scored"
	OutcomeIncorrect        Outcome = "incorrect"
	OutcomeNotActive        Outcome = "not_active"
	OutcomeAlreadyCompleted Outcome = "already_completed"
	OutcomeMalformed        Outcome = "malformed"
)

// SubmissionResult is what a team gets back for one submission.
type SubmissionResult struct {
	Outcome       Outcome `json:"outcome"`
	Score         float64 `json:"score"`
	Correctness   float64 `json:"correctness"`
	MatchedEvents int     `json:"matchedEvents"`
	TotalEvents   int     `json:"totalEvents"`
	WrongAttempts int     `json:"wrongAttempts"`
	Elapsed       float64 `json:"elapsedSeconds"`
}

// TeamState tracks one team's progress on one question. Created lazily on
// first submission and mutated only under the owning session's lock.
type TeamState struct {
	TeamID       string
	WrongCount   int
	CorrectCount int
	Completed    bool
	// FirstCorrectElapsed and FinalScore are meaningful only when Completed.
	FirstCorrectElapsed float64
	FinalScore          float64
}

// Competitor is the schema shared by real team snapshots and synthetic
// leaderboard records. Elapsed is seconds from session start to the first
// correct submission.
type Competitor struct {
	TeamID       string  `json:"teamId"`
	WrongCount   int     `json:"wrongCount"`
	CorrectCount int     `json:"correctCount"`
	Score        float64 `json:"score"`
	Elapsed      float64 `json:"elapsedSeconds"`
	Completed    bool    `json:"completed"`
}

// LeaderboardRow is one ranked entry in a per-question view.
type LeaderboardRow struct {
	Rank         int     `json:"rank"`
	TeamID       string  `json:"teamId"`
	Real         bool    `json:"real"`
	WrongCount   int     `json:"wrongCount"`
	CorrectCount int     `json:"correctCount"`
	Score        float64 `json:"score"`
	Elapsed      float64 `json:"elapsedSeconds"`
}

// Leaderboard is the ranked view for a single question.
type Leaderboard struct {
	QuestionID string           `json:"questionId"`
	Rows       []LeaderboardRow `json:"rows"`
}

// TotalRow is one ranked entry in the cross-question totals view.
type TotalRow struct {
	Rank         int                `json:"rank"`
	TeamID       string             `json:"teamId"`
	Real         bool               `json:"real"`
	TotalScore   float64            `json:"totalScore"`
	TotalElapsed float64            `json:"totalElapsedSeconds"`
	PerQuestion  map[string]float64 `json:"perQuestion"`
}

// SessionInfo describes a freshly started question session.
type SessionInfo struct {
	QuestionID string  `json:"questionId"`
	StartTime  int64   `json:"startTimeUnixMs"`
	TimeLimit  float64 `json:"timeLimit"`
	BufferTime float64 `json:"bufferTime"`
}

// SessionStatus is the read-only view served by status queries.
type SessionStatus struct {
	QuestionID     string  `json:"questionId"`
	Active         bool    `json:"active"`
	Elapsed        float64 `json:"elapsedSeconds"`
	Remaining      float64 `json:"remainingSeconds"`
	TotalSubmitted int     `json:"totalSubmitted"`
	CompletedCount int     `json:"completedCount"`
}

// Answer is one entry inside an answer set. KIS answers carry
// MediaItemName/Start; QA and TR answers carry Text.
type Answer struct {
	MediaItemName string `json:"mediaItemName,omitempty"`
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	Text          string `json:"text,omitempty"`
}

// AnswerSet groups answers, matching the DRES-style submission wire format.
type AnswerSet struct {
	Answers []Answer `json:"answers"`
}

// Submission is the raw payload a team posts for one question.
type Submission struct {
	AnswerSets []AnswerSet `json:"answerSets"`
}
