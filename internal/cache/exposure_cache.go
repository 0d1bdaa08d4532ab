package cache

import (
	"context"
	"fmt"
	"time"

	"trivia_duel/internal/logger"

	"github.com/redis/go-redis/v9"
)

const exposureTTL = 7 * 24 * time.Hour

// ExposureBacking - долговременное хранилище показов (postgres)
type ExposureBacking interface {
	SeenIDs(ctx context.Context, category string, userIDs []string) ([]string, error)
	Mark(ctx context.Context, category string, userIDs, questionIDs []string) error
}

// ExposureCache держит множества просмотренных вопросов в redis перед postgres.
// Источник истины - backing: запись сначала идет туда
type ExposureCache struct {
	c       *Client
	backing ExposureBacking
}

func NewExposureCache(c *Client, backing ExposureBacking) *ExposureCache {
	return &ExposureCache{c: c, backing: backing}
}

func exposureKey(category, userID string) string {
	return fmt.Sprintf("exposure:%s:%s", category, userID)
}

// SeenIDs - объединение показов игроков. Если хоть одного ключа нет в кэше,
// читаем backing и прогреваем кэш
func (e *ExposureCache) SeenIDs(ctx context.Context, category string, userIDs []string) ([]string, error) {
	keys := make([]string, len(userIDs))
	for i, uid := range userIDs {
		keys[i] = exposureKey(category, uid)
	}

	n, err := e.c.rdb.Exists(ctx, keys...).Result()
	if err == nil && n == int64(len(keys)) {
		ids, err := e.c.rdb.SUnion(ctx, keys...).Result()
		if err == nil {
			return dropMarker(ids), nil
		}
	}
	if err != nil {
		logger.Warn("exposure cache miss on error", "category", category, "error", err)
	}

	for _, uid := range userIDs {
		ids, err := e.backing.SeenIDs(ctx, category, []string{uid})
		if err != nil {
			return nil, err
		}
		e.warm(ctx, exposureKey(category, uid), ids)
	}
	return e.backing.SeenIDs(ctx, category, userIDs)
}

// Mark пишет в backing, затем добавляет в множества существующих ключей.
// Холодные ключи не создаются: иначе следующий SeenIDs увидел бы неполное множество
func (e *ExposureCache) Mark(ctx context.Context, category string, userIDs, questionIDs []string) error {
	if err := e.backing.Mark(ctx, category, userIDs, questionIDs); err != nil {
		return err
	}
	if len(questionIDs) == 0 {
		return nil
	}

	members := make([]interface{}, len(questionIDs))
	for i, q := range questionIDs {
		members[i] = q
	}

	var warm []string
	for _, uid := range userIDs {
		key := exposureKey(category, uid)
		if n, err := e.c.rdb.Exists(ctx, key).Result(); err == nil && n == 1 {
			warm = append(warm, key)
		}
	}
	if len(warm) == 0 {
		return nil
	}

	_, err := e.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range warm {
			pipe.SAdd(ctx, key, members...)
			pipe.Expire(ctx, key, exposureTTL)
		}
		return nil
	})
	if err != nil {
		// кэш рассинхронизирован - удаляем ключи, следующий SeenIDs прогреет заново
		logger.Warn("exposure cache update failed", "category", category, "error", err)
		e.invalidate(ctx, category, userIDs)
	}
	return nil
}

func (e *ExposureCache) warm(ctx context.Context, key string, ids []string) {
	// пустое множество в redis не хранится, поэтому держим маркер
	members := make([]interface{}, 0, len(ids)+1)
	members = append(members, "")
	for _, id := range ids {
		members = append(members, id)
	}
	_, err := e.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, exposureTTL)
		return nil
	})
	if err != nil {
		logger.Warn("exposure cache warm failed", "key", key, "error", err)
	}
}

func (e *ExposureCache) invalidate(ctx context.Context, category string, userIDs []string) {
	keys := make([]string, len(userIDs))
	for i, uid := range userIDs {
		keys[i] = exposureKey(category, uid)
	}
	if err := e.c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Error("exposure cache invalidate failed", "category", category, "error", err)
	}
}

func dropMarker(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
