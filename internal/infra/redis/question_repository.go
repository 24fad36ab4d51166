package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"quiz-battle-coordinator/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question scoring metadata from a backing store
// (e.g., the master-data database).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, id string) (domain.Question, error)
}

// QuestionRepository caches scoring metadata in Redis (hash per question)
// and falls back to a loader on cache miss.
// Metadata is stored as: HSET question:{id} correct {index} choices {count}
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	key := r.key(id)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return buildQuestionFromCache(id, fields), nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return buildQuestionFromCache(id, fields), nil
		}

		question, err := r.loader.LoadQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, "correct", question.CorrectIndex, "choices", question.ChoiceCount)
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

func (r *QuestionRepository) key(id string) string {
	return "question:" + id
}

func buildQuestionFromCache(id string, fields map[string]string) domain.Question {
	question := domain.Question{ID: id, ChoiceCount: 4}
	if v, err := strconv.Atoi(fields["correct"]); err == nil {
		question.CorrectIndex = v
	}
	if v, err := strconv.Atoi(fields["choices"]); err == nil && v > 0 {
		question.ChoiceCount = v
	}
	return question
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
