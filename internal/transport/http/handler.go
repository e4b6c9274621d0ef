package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"

	"aic-scoring-service/internal/app"
	"aic-scoring-service/internal/domain"
)

// QuestionLister enumerates the loaded ground-truth table for the /questions
// endpoint. Optional; catalogs without enumeration pass nil.
type QuestionLister interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// Handler exposes the engine over JSON HTTP. Scores are rounded to two
// decimals here and only here; the engine keeps full precision.
type Handler struct {
	engine   *app.Engine
	lister   QuestionLister
	homeTeam string
}

// NewHandler wires the engine into HTTP routes. homeTeam is the team id used
// when a submission does not name one (competition clients often cannot).
func NewHandler(engine *app.Engine, lister QuestionLister, homeTeam string) *Handler {
	return &Handler{engine: engine, lister: lister, homeTeam: homeTeam}
}

// Register installs all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/start-question", h.handleStart)
	mux.HandleFunc("/admin/stop-question", h.handleStop)
	mux.HandleFunc("/admin/reset", h.handleReset)
	mux.HandleFunc("/admin/sessions", h.handleSessions)
	mux.HandleFunc("/submit", h.handleSubmit)
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/questions", h.handleQuestions)
	mux.HandleFunc("/leaderboard", h.handleLeaderboard)
}

type startRequest struct {
	QuestionID string  `json:"questionId"`
	TimeLimit  float64 `json:"timeLimit,omitempty"`
	BufferTime float64 `json:"bufferTime,omitempty"`
}

type stopRequest struct {
	QuestionID string `json:"questionId"`
}

type submitRequest struct {
	QuestionID string             `json:"questionId,omitempty"`
	TeamID     string             `json:"teamId,omitempty"`
	AnswerSets []domain.AnswerSet `json:"answerSets"`
}

type submitResponse struct {
	Outcome       domain.Outcome `json:"outcome"`
	Score         float64        `json:"score"`
	Correctness   float64        `json:"correctness"`
	MatchedEvents int            `json:"matchedEvents"`
	TotalEvents   int            `json:"totalEvents"`
	WrongAttempts int            `json:"wrongAttempts"`
	Elapsed       float64        `json:"elapsedSeconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "questionId required"})
		return
	}
	info, err := h.engine.Start(r.Context(), req.QuestionID, req.TimeLimit, req.BufferTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "questionId required"})
		return
	}
	status, err := h.engine.Stop(r.Context(), req.QuestionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	cleared := h.engine.Reset()
	writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.engine.Sessions()})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	questionID := req.QuestionID
	if questionID == "" {
		active, ok := h.engine.ActiveQuestion()
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no active question; admin must start one"})
			return
		}
		questionID = active
	}
	teamID := req.TeamID
	if teamID == "" {
		teamID = h.homeTeam
	}

	result, err := h.engine.Submit(r.Context(), questionID, teamID, domain.Submission{AnswerSets: req.AnswerSets})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Outcome:       result.Outcome,
		Score:         round2(result.Score),
		Correctness:   result.Correctness,
		MatchedEvents: result.MatchedEvents,
		TotalEvents:   result.TotalEvents,
		WrongAttempts: result.WrongAttempts,
		Elapsed:       round2(result.Elapsed),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	questionID := r.URL.Query().Get("questionId")
	if questionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "questionId required"})
		return
	}
	status, err := h.engine.Status(questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		writeJSON(w, http.StatusOK, map[string]any{"questions": []any{}})
		return
	}
	questions, err := h.lister.Questions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	type questionView struct {
		ID      string          `json:"id"`
		Type    domain.TaskType `json:"type"`
		SceneID string          `json:"sceneId"`
		VideoID string          `json:"videoId"`
		Events  int             `json:"events"`
	}
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, questionView{
			ID: q.ID, Type: q.Type, SceneID: q.SceneID, VideoID: q.VideoID,
			Events: q.EventCount(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": views})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	questionID := r.URL.Query().Get("questionId")
	if questionID == "" {
		totals := h.engine.Totals()
		for i := range totals {
			totals[i].TotalScore = round2(totals[i].TotalScore)
			totals[i].TotalElapsed = round2(totals[i].TotalElapsed)
			for q, s := range totals[i].PerQuestion {
				totals[i].PerQuestion[q] = round2(s)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
		return
	}
	lb, err := h.engine.Leaderboard(questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range lb.Rows {
		lb.Rows[i].Score = round2(lb.Rows[i].Score)
		lb.Rows[i].Elapsed = round2(lb.Rows[i].Elapsed)
	}
	writeJSON(w, http.StatusOK, lb)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
