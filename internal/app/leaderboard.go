package app

import (
	"sort"

	"aic-scoring-service/internal/domain"
)

// The aggregator only sees the shared competitor schema; whether a record
// came from a real team or the synthetic generator is just a tag on the row.

type sessionSnapshot struct {
	real      []domain.Competitor
	synthetic []domain.Competitor
}

// questionLeaderboard merges real and synthetic records for one question and
// ranks them: score desc, completed before not, elapsed asc, team id asc.
// The team-id tail keeps the order deterministic for equal keys.
func questionLeaderboard(questionID string, real, synthetic []domain.Competitor) domain.Leaderboard {
	rows := make([]domain.LeaderboardRow, 0, len(real)+len(synthetic))
	for _, c := range real {
		rows = append(rows, competitorRow(c, true))
	}
	for _, c := range synthetic {
		rows = append(rows, competitorRow(c, false))
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		ci := completedRow(rows[i])
		cj := completedRow(rows[j])
		if ci != cj {
			return ci
		}
		if rows[i].Elapsed != rows[j].Elapsed {
			return rows[i].Elapsed < rows[j].Elapsed
		}
		return rows[i].TeamID < rows[j].TeamID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return domain.Leaderboard{QuestionID: questionID, Rows: rows}
}

func competitorRow(c domain.Competitor, real bool) domain.LeaderboardRow {
	score := 0.0
	elapsed := 0.0
	if c.Completed {
		score = c.Score
		elapsed = c.Elapsed
	}
	return domain.LeaderboardRow{
		TeamID:       c.TeamID,
		Real:         real,
		WrongCount:   c.WrongCount,
		CorrectCount: c.CorrectCount,
		Score:        score,
		Elapsed:      elapsed,
	}
}

func completedRow(r domain.LeaderboardRow) bool {
	return r.CorrectCount > 0
}

// totalRows sums per-question scores per team across all sessions. Teams
// without a completed score for a question contribute 0 for it. Order:
// total score desc, total elapsed asc, team id asc.
func totalRows(snapshots map[string]sessionSnapshot) []domain.TotalRow {
	type accum struct {
		row domain.TotalRow
	}
	teams := make(map[string]*accum)

	add := func(questionID string, c domain.Competitor, real bool) {
		a, ok := teams[c.TeamID]
		if !ok {
			a = &accum{row: domain.TotalRow{
				TeamID:      c.TeamID,
				Real:        real,
				PerQuestion: make(map[string]float64),
			}}
			teams[c.TeamID] = a
		}
		score := 0.0
		if c.Completed {
			score = c.Score
			a.row.TotalElapsed += c.Elapsed
		}
		a.row.PerQuestion[questionID] = score
		a.row.TotalScore += score
	}

	for questionID, snap := range snapshots {
		for _, c := range snap.real {
			add(questionID, c, true)
		}
		for _, c := range snap.synthetic {
			add(questionID, c, false)
		}
	}

	rows := make([]domain.TotalRow, 0, len(teams))
	for _, a := range teams {
		rows = append(rows, a.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		if rows[i].TotalElapsed != rows[j].TotalElapsed {
			return rows[i].TotalElapsed < rows[j].TotalElapsed
		}
		return rows[i].TeamID < rows[j].TeamID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func sortStatuses(statuses []domain.SessionStatus) {
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].QuestionID < statuses[j].QuestionID
	})
}
