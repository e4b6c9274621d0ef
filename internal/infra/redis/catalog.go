package redis

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"aic-scoring-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// GroundTruthLoader fetches question ground truth from a backing store.
type GroundTruthLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// Catalog caches ground truth in Redis (one hash per question) and falls
// back to a loader on cache miss. The hash layout is:
//
//	HSET question:{id}:gt type {type} scene {scene} video {video} points {csv}
type Catalog struct {
	client *redis.Client
	loader GroundTruthLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalog(client *redis.Client, loader GroundTruthLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) Question(ctx context.Context, questionID string) (domain.Question, error) {
	key := c.key(questionID)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return questionFromHash(questionID, fields)
	}

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			question, err := questionFromHash(questionID, fields)
			return question, err
		}

		question, err := c.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key,
			"type", string(question.Type),
			"scene", question.SceneID,
			"video", question.VideoID,
			"points", joinPoints(question.Points),
		)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *Catalog) key(questionID string) string {
	return "question:" + questionID + ":gt"
}

func questionFromHash(questionID string, fields map[string]string) (domain.Question, error) {
	points, err := splitPoints(fields["points"])
	if err != nil {
		return domain.Question{}, err
	}
	return domain.Question{
		ID:      questionID,
		Type:    domain.TaskType(fields["type"]),
		SceneID: fields["scene"],
		VideoID: fields["video"],
		Points:  points,
	}, nil
}

func joinPoints(points []int) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func splitPoints(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	points := make([]int, 0, len(parts))
	for _, part := range parts {
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
