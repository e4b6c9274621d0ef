package app

import (
	"sort"

	"aic-scoring-service/internal/domain"
)

// CheckMatch compares submitted values against a question's boundary points.
// Both sides are sorted before the element-wise comparison; source order of
// the submission is not significant. Positions present in points but missing
// from values count as unmatched, and submitted values beyond len(points)
// are ignored.
func CheckMatch(values, points []int) (matched, total int) {
	total = len(points)

	sortedValues := append([]int(nil), values...)
	sort.Ints(sortedValues)
	sortedPoints := append([]int(nil), points...)
	sort.Ints(sortedPoints)

	n := len(sortedValues)
	if n > total {
		n = total
	}
	for i := 0; i < n; i++ {
		if sortedValues[i] == sortedPoints[i] {
			matched++
		}
	}
	return matched, total
}

// CorrectnessFactor maps a matched/total count to the score multiplier.
// KIS and QA are all-or-nothing; TR grants half credit for a match ratio in
// [0.5, 1.0).
func CorrectnessFactor(matched, total int, taskType domain.TaskType) float64 {
	if total == 0 || matched > total {
		return 0
	}
	ratio := float64(matched) / float64(total)

	switch taskType {
	case domain.TaskKIS, domain.TaskQA:
		if matched == total {
			return 1.0
		}
		return 0
	case domain.TaskTR:
		switch {
		case matched == total:
			return 1.0
		case ratio >= 0.5:
			return 0.5
		default:
			return 0
		}
	}
	return 0
}

// TimeFactor computes fT(t) = 1 - t/T, clamped to [0, 1]. The clamp matters
// for buffer-time submissions arriving after the nominal limit.
func TimeFactor(elapsed, timeLimit float64) float64 {
	if timeLimit <= 0 || elapsed >= timeLimit {
		return 0
	}
	f := 1 - elapsed/timeLimit
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Score applies the competition formula:
//
//	max(0, PBase + (PMax-PBase)*fT(t) - k*PPenalty) * correctness
//
// where k is the number of wrong attempts recorded before this submission.
func Score(elapsed float64, wrongAttempts int, correctness float64, params domain.ScoringParams) float64 {
	fT := TimeFactor(elapsed, params.TimeLimit)
	base := params.PBase + (params.PMax-params.PBase)*fT
	s := base - float64(wrongAttempts)*params.PPenalty
	if s < 0 {
		s = 0
	}
	return s * correctness
}
