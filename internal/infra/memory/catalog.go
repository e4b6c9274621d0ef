package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"aic-scoring-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// GroundTruthLoader fetches question ground truth from a backing store
// (CSV file, Postgres, etc).
type GroundTruthLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// Catalog caches ground truth with TTL to avoid repeated loader hits during
// a session. Ground truth is immutable, so the TTL only bounds staleness
// after an operator swaps the backing file.
type Catalog struct {
	loader GroundTruthLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewCatalog(loader GroundTruthLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestion),
	}
}

func (c *Catalog) Question(ctx context.Context, questionID string) (domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[questionID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.question, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[questionID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.question, nil
		}
		c.mu.RUnlock()

		question, err := c.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}

		c.mu.Lock()
		c.cache[questionID] = cachedQuestion{
			question:  question,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticLoader is a loader backed by an in-memory map (fixtures, tests).
type StaticLoader struct {
	questions map[string]domain.Question
}

func NewStaticLoader(questions map[string]domain.Question) *StaticLoader {
	return &StaticLoader{questions: questions}
}

func (l *StaticLoader) LoadQuestion(_ context.Context, questionID string) (domain.Question, error) {
	if question, ok := l.questions[questionID]; ok {
		return question, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// Questions enumerates the table in id order, for the listing endpoint.
func (l *StaticLoader) Questions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(l.questions))
	for _, q := range l.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
