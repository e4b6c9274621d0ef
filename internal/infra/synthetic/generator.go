// Package synthetic produces fake competitor records so the leaderboard has
// comparison data from the first query of a session. The records use the
// same schema as real team snapshots; the aggregator cannot tell them apart
// beyond the real/synthetic tag it attaches itself.
package synthetic

import (
	"fmt"
	"math/rand"
	"time"

	"aic-scoring-service/internal/domain"
)

var teamNames = []string{
	"CodeNinja", "ByteBusters", "AlgoMasters", "DataDragons",
	"PixelPirates", "QueryQueens", "FrameFinders", "ScriptSquad",
	"BinaryBandits", "LogicLords", "CacheCrusaders", "DebugDynasty",
	"RegexRebels", "StackSmashers", "HeapHeroes", "ArrayAces",
	"LinkedLegends", "TreeTraversers", "GraphGurus", "HashHustlers",
	"QueueKings", "RecursionRiders", "BitBrigade", "LoopLegends",
	"FunctionFury", "PointerPros", "MemoryMasters", "CompilerCrew",
}

// Generator implements app.CompetitorGenerator with weighted random
// distributions for scores, attempts and submit times.
type Generator struct {
	count int
	rnd   *rand.Rand
}

// NewGenerator creates a generator producing count records per question.
func NewGenerator(count int) *Generator {
	return NewSeededGenerator(count, time.Now().UnixNano())
}

// NewSeededGenerator fixes the rand seed for deterministic tests.
func NewSeededGenerator(count int, seed int64) *Generator {
	if count <= 0 {
		count = 15
	}
	return &Generator{count: count, rnd: rand.New(rand.NewSource(seed))}
}

// Generate produces one record per synthetic team. Roughly 15% of teams do
// not submit at all; the rest solve with 0-3 wrong attempts or fail outright.
func (g *Generator) Generate(_ domain.Question, params domain.ScoringParams) []domain.Competitor {
	names := g.pickNames()
	records := make([]domain.Competitor, 0, len(names))

	for _, name := range names {
		wrong, correct := g.attempts()
		record := domain.Competitor{
			TeamID:       name,
			WrongCount:   wrong,
			CorrectCount: correct,
		}
		if correct > 0 {
			record.Completed = true
			record.Score = g.weightedScore()
			record.Elapsed = g.submitTime(params.TimeLimit)
		}
		records = append(records, record)
	}
	return records
}

func (g *Generator) pickNames() []string {
	pool := append([]string(nil), teamNames...)
	seen := make(map[string]bool, g.count)
	for _, name := range pool {
		seen[name] = true
	}
	for len(pool) < g.count {
		name := fmt.Sprintf("Team%03d", 100+g.rnd.Intn(900))
		if seen[name] {
			continue
		}
		seen[name] = true
		pool = append(pool, name)
	}
	g.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:g.count]
}

// weightedScore skews toward the middle of the range: 15% in 80-100,
// 30% in 60-80, 35% in 40-60, 20% below 40.
func (g *Generator) weightedScore() float64 {
	r := g.rnd.Float64()
	switch {
	case r < 0.15:
		return 80 + g.rnd.Float64()*20
	case r < 0.45:
		return 60 + g.rnd.Float64()*20
	case r < 0.80:
		return 40 + g.rnd.Float64()*20
	default:
		return g.rnd.Float64() * 40
	}
}

// attempts: 15% no submission; of the rest, 60% clean solve, 25% one wrong
// then correct, 10% 2-3 wrong then correct, 5% wrong-only.
func (g *Generator) attempts() (wrong, correct int) {
	if g.rnd.Float64() >= 0.85 {
		return 0, 0
	}
	r := g.rnd.Float64()
	switch {
	case r < 0.60:
		return 0, 1
	case r < 0.85:
		return 1, 1
	case r < 0.95:
		return 2 + g.rnd.Intn(2), 1
	default:
		return 1 + g.rnd.Intn(3), 0
	}
}

// submitTime weights submissions toward the first half of the window.
func (g *Generator) submitTime(timeLimit float64) float64 {
	r := g.rnd.Float64()
	quarter := timeLimit * 0.25
	switch {
	case r < 0.50:
		return g.rnd.Float64() * quarter
	case r < 0.80:
		return quarter + g.rnd.Float64()*quarter
	case r < 0.95:
		return 2*quarter + g.rnd.Float64()*quarter
	default:
		return 3*quarter + g.rnd.Float64()*quarter
	}
}
