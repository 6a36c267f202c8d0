package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-session-engine/internal/domain"
)

// QuestionLoader fetches question sets from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, quizID string) (domain.QuestionSet, error)
}

// QuestionRepository caches whole question sets in Redis as JSON and falls
// back to a loader on cache miss. The engine needs prompts, options and time
// limits, so the full set is cached rather than just an answer key.
// Key layout: SET quiz:{quizID}:questions {json} EX {ttl}
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

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, quizID string) (domain.QuestionSet, error) {
	key := r.key(quizID)

	if set, ok := r.cached(ctx, key); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.cached(ctx, key); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestionSet(ctx, quizID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if data, err := json.Marshal(set); err == nil {
			// Cache fill is best-effort; a miss next time just reloads.
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) cached(ctx context.Context, key string) (domain.QuestionSet, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (r *QuestionRepository) key(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
