package redis

import (
	"context"
	"errors"
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION POOL CACHE
// TTL cache in front of the question bank. Pools change rarely and only
// through the admin path, so a short TTL keeps form generation off the
// database without an invalidation protocol. Cache failures degrade to
// the underlying source, never to an error.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultPoolTTL is how long an active question pool stays cached.
const DefaultPoolTTL = 5 * time.Minute

// QuestionPoolCache caches active question pools per exam type and
// implements exam.QuestionSource.
type QuestionPoolCache struct {
	source exam.QuestionSource
	cache  *Cache
	ttl    time.Duration
	log    *logger.Logger
}

// NewQuestionPoolCache wraps a question source with TTL caching.
func NewQuestionPoolCache(source exam.QuestionSource, cache *Cache, ttl time.Duration, log *logger.Logger) *QuestionPoolCache {
	if ttl <= 0 {
		ttl = DefaultPoolTTL
	}
	return &QuestionPoolCache{source: source, cache: cache, ttl: ttl, log: log}
}

// ListActive returns the cached pool when fresh, the source otherwise.
func (c *QuestionPoolCache) ListActive(ctx context.Context, examType exam.Type) ([]exam.Question, error) {
	key := "question_pool:" + examType.String()

	var cached []exam.Question
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn("question pool cache read failed, falling back to store",
			logger.F("exam_type", examType.String()),
			logger.Err(err),
		)
	}

	pool, err := c.source.ListActive(ctx, examType)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, pool, c.ttl); err != nil {
		c.log.Warn("question pool cache write failed",
			logger.F("exam_type", examType.String()),
			logger.Err(err),
		)
	}
	return pool, nil
}

// GetByIDs always reads through to the source: grading needs the exact
// current rows, and the ID set varies per submission.
func (c *QuestionPoolCache) GetByIDs(ctx context.Context, ids []string) ([]exam.Question, error) {
	return c.source.GetByIDs(ctx, ids)
}
