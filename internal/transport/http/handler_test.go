package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"aic-scoring-service/internal/app"
	"aic-scoring-service/internal/domain"
	"aic-scoring-service/internal/infra/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubGenerator struct {
	records []domain.Competitor
}

func (g stubGenerator) Generate(domain.Question, domain.ScoringParams) []domain.Competitor {
	return g.records
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}

	loader := memory.NewStaticLoader(map[string]domain.Question{
		"1": {ID: "1", Type: domain.TaskKIS, SceneID: "L26", VideoID: "V017",
			Points: []int{4890, 5000, 5001, 5020}},
		"3": {ID: "3", Type: domain.TaskTR, SceneID: "L26", VideoID: "V017",
			Points: []int{240, 252, 300, 312}},
	})
	generator := stubGenerator{records: []domain.Competitor{
		{TeamID: "GhostA", CorrectCount: 1, Score: 90, Elapsed: 12, Completed: true},
	}}

	engine := app.NewEngine(
		memory.NewSessionRegistry(),
		memory.NewCatalog(loader, time.Minute),
		generator,
		domain.DefaultScoringParams(),
		app.WithClock(clock.Now),
	)

	mux := http.NewServeMux()
	NewHandler(engine, loader, "0THING2LOSE").Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, clock
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func kisAnswerSets(starts ...int) []domain.AnswerSet {
	answers := make([]domain.Answer, 0, len(starts))
	for _, start := range starts {
		answers = append(answers, domain.Answer{
			MediaItemName: "L26_V017",
			Start:         fmt.Sprintf("%d", start),
		})
	}
	return []domain.AnswerSet{{Answers: answers}}
}

func TestSubmitFlow(t *testing.T) {
	server, clock := newTestServer(t)

	resp := postJSON(t, server.URL+"/admin/start-question", startRequest{QuestionID: "1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}
	var info domain.SessionInfo
	decodeBody(t, resp, &info)
	if info.QuestionID != "1" || info.TimeLimit != 300 {
		t.Fatalf("unexpected session info: %+v", info)
	}

	clock.Advance(30 * time.Second)

	// Wrong answer first.
	resp = postJSON(t, server.URL+"/submit", submitRequest{
		QuestionID: "1", TeamID: "team-a", AnswerSets: kisAnswerSets(1),
	})
	var result submitResponse
	decodeBody(t, resp, &result)
	if result.Outcome != domain.OutcomeIncorrect || result.WrongAttempts != 1 {
		t.Fatalf("expected incorrect with 1 wrong attempt, got %+v", result)
	}

	// Correct answer: fT=0.9, one penalty -> 50 + 50*0.9 - 10 = 85.
	resp = postJSON(t, server.URL+"/submit", submitRequest{
		QuestionID: "1", TeamID: "team-a", AnswerSets: kisAnswerSets(4890, 5000, 5001, 5020),
	})
	decodeBody(t, resp, &result)
	if result.Outcome != domain.OutcomeScored {
		t.Fatalf("expected scored, got %+v", result)
	}
	if result.Score != 85 || result.Elapsed != 30 {
		t.Fatalf("expected score=85 elapsed=30, got %+v", result)
	}

	// Resubmitting after completion echoes the recorded score.
	resp = postJSON(t, server.URL+"/submit", submitRequest{
		QuestionID: "1", TeamID: "team-a", AnswerSets: kisAnswerSets(4890, 5000, 5001, 5020),
	})
	decodeBody(t, resp, &result)
	if result.Outcome != domain.OutcomeAlreadyCompleted || result.Score != 85 {
		t.Fatalf("expected already_completed at 85, got %+v", result)
	}

	httpResp, err := http.Get(server.URL + "/status?questionId=1")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status domain.SessionStatus
	decodeBody(t, httpResp, &status)
	if !status.Active || status.TotalSubmitted != 2 || status.CompletedCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestLeaderboardMergesRealAndSynthetic(t *testing.T) {
	server, clock := newTestServer(t)

	postJSON(t, server.URL+"/admin/start-question", startRequest{QuestionID: "1"}).Body.Close()
	clock.Advance(30 * time.Second)
	postJSON(t, server.URL+"/submit", submitRequest{
		QuestionID: "1", TeamID: "team-a", AnswerSets: kisAnswerSets(4890, 5000, 5001, 5020),
	}).Body.Close()

	resp, err := http.Get(server.URL + "/leaderboard?questionId=1")
	if err != nil {
		t.Fatalf("GET leaderboard: %v", err)
	}
	var lb domain.Leaderboard
	decodeBody(t, resp, &lb)

	if len(lb.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", lb.Rows)
	}
	// team-a solves clean at t=30 for 95, beating the 90-point ghost.
	if lb.Rows[0].TeamID != "team-a" || !lb.Rows[0].Real || lb.Rows[0].Score != 95 {
		t.Fatalf("unexpected top row: %+v", lb.Rows[0])
	}
	if lb.Rows[1].TeamID != "GhostA" || lb.Rows[1].Real {
		t.Fatalf("unexpected second row: %+v", lb.Rows[1])
	}
}

func TestSubmitAutoSelectsActiveQuestionAndHomeTeam(t *testing.T) {
	server, clock := newTestServer(t)

	postJSON(t, server.URL+"/admin/start-question", startRequest{QuestionID: "1"}).Body.Close()
	clock.Advance(time.Minute)

	// No questionId, no teamId: routed to the active question as the home team.
	resp := postJSON(t, server.URL+"/submit", submitRequest{
		AnswerSets: kisAnswerSets(4890, 5000, 5001, 5020),
	})
	var result submitResponse
	decodeBody(t, resp, &result)
	if result.Outcome != domain.OutcomeScored {
		t.Fatalf("expected scored, got %+v", result)
	}

	lbResp, err := http.Get(server.URL + "/leaderboard?questionId=1")
	if err != nil {
		t.Fatalf("GET leaderboard: %v", err)
	}
	var lb domain.Leaderboard
	decodeBody(t, lbResp, &lb)
	found := false
	for _, row := range lb.Rows {
		if row.TeamID == "0THING2LOSE" && row.Real {
			found = true
		}
	}
	if !found {
		t.Fatalf("home team missing from leaderboard: %+v", lb.Rows)
	}
}

func TestSubmitWithoutActiveQuestion(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/submit", submitRequest{
		AnswerSets: kisAnswerSets(4890),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNotFoundMapping(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/admin/start-question", startRequest{QuestionID: "99"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("start unknown question: expected 404, got %d", resp.StatusCode)
	}

	httpResp, err := http.Get(server.URL + "/status?questionId=1")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusNotFound {
		t.Fatalf("status without session: expected 404, got %d", httpResp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/submit", submitRequest{
		QuestionID: "1", AnswerSets: kisAnswerSets(4890),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("submit without session: expected 404, got %d", resp.StatusCode)
	}
}

func TestAdminEndpointsRejectGet(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/admin/start-question", "/admin/stop-question", "/admin/reset", "/submit"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("GET %s: expected 405, got %d", path, resp.StatusCode)
		}
	}
}

func TestQuestionsListing(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/questions")
	if err != nil {
		t.Fatalf("GET questions: %v", err)
	}
	var body struct {
		Questions []struct {
			ID     string `json:"id"`
			Type   string `json:"type"`
			Events int    `json:"events"`
		} `json:"questions"`
	}
	decodeBody(t, resp, &body)
	if len(body.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %+v", body.Questions)
	}
	if body.Questions[0].ID != "1" || body.Questions[0].Type != "KIS" || body.Questions[0].Events != 2 {
		t.Fatalf("unexpected first question: %+v", body.Questions[0])
	}
}

func TestTotalsAcrossQuestions(t *testing.T) {
	server, clock := newTestServer(t)

	postJSON(t, server.URL+"/admin/start-question", startRequest{QuestionID: "1"}).Body.Close()
	clock.Advance(30 * time.Second)
	postJSON(t, server.URL+"/submit", submitRequest{
		QuestionID: "1", TeamID: "team-a", AnswerSets: kisAnswerSets(4890, 5000, 5001, 5020),
	}).Body.Close()

	postJSON(t, server.URL+"/admin/start-question", startRequest{QuestionID: "3"}).Body.Close()
	clock.Advance(30 * time.Second)
	postJSON(t, server.URL+"/submit", submitRequest{
		QuestionID: "3", TeamID: "team-a",
		AnswerSets: []domain.AnswerSet{{Answers: []domain.Answer{
			{Text: "TR-L26_V017-240,252,300,312"},
		}}},
	}).Body.Close()

	resp, err := http.Get(server.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("GET totals: %v", err)
	}
	var body struct {
		Totals []domain.TotalRow `json:"totals"`
	}
	decodeBody(t, resp, &body)

	var teamA *domain.TotalRow
	for i := range body.Totals {
		if body.Totals[i].TeamID == "team-a" {
			teamA = &body.Totals[i]
		}
	}
	if teamA == nil {
		t.Fatalf("team-a missing from totals: %+v", body.Totals)
	}
	// 95 on question 1 plus 95 on question 3, both clean solves at t=30.
	if teamA.TotalScore != 190 {
		t.Fatalf("expected total 190, got %+v", teamA)
	}
	if len(teamA.PerQuestion) != 2 {
		t.Fatalf("expected per-question entries for both questions: %+v", teamA)
	}
}

func TestResetClearsSessions(t *testing.T) {
	server, _ := newTestServer(t)

	postJSON(t, server.URL+"/admin/start-question", startRequest{QuestionID: "1"}).Body.Close()

	resp := postJSON(t, server.URL+"/admin/reset", struct{}{})
	var cleared map[string]int
	decodeBody(t, resp, &cleared)
	if cleared["cleared"] != 1 {
		t.Fatalf("expected 1 cleared, got %+v", cleared)
	}

	httpResp, err := http.Get(server.URL + "/status?questionId=1")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after reset, got %d", httpResp.StatusCode)
	}
}

func TestStopClosesWindow(t *testing.T) {
	server, clock := newTestServer(t)

	postJSON(t, server.URL+"/admin/start-question", startRequest{QuestionID: "1"}).Body.Close()

	resp := postJSON(t, server.URL+"/admin/stop-question", stopRequest{QuestionID: "1"})
	var status domain.SessionStatus
	decodeBody(t, resp, &status)
	if status.Active {
		t.Fatalf("expected inactive after stop: %+v", status)
	}

	clock.Advance(time.Second)
	submitResp := postJSON(t, server.URL+"/submit", submitRequest{
		QuestionID: "1", TeamID: "team-a", AnswerSets: kisAnswerSets(4890, 5000, 5001, 5020),
	})
	var result submitResponse
	decodeBody(t, submitResp, &result)
	if result.Outcome != domain.OutcomeNotActive {
		t.Fatalf("expected not_active after stop, got %+v", result)
	}
}
