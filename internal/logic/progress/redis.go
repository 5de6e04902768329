package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clmm-admin-sol/internal/types"

	"github.com/redis/go-redis/v9"
)

// Redis key 前缀
const (
	proposalPrefix = "progress:proposal"
	cursorPrefix   = "progress:cursor"
)

// 提案状态保留 30 天，游标不过期
const proposalTTL = 30 * 24 * time.Hour

// RedisProgressStore 管理 Redis 中的提案进度记录
type RedisProgressStore struct {
	rdb redis.Cmdable
}

func NewRedisProgressStore(rdb redis.Cmdable) *RedisProgressStore {
	return &RedisProgressStore{rdb: rdb}
}

func proposalKey(multisig types.Pubkey, index uint64) string {
	return fmt.Sprintf("%s:%s:%d", proposalPrefix, multisig.ToBase58(), index)
}

func cursorKey(multisig types.Pubkey) string {
	return fmt.Sprintf("%s:%s", cursorPrefix, multisig.ToBase58())
}

func (r *RedisProgressStore) GetProposalState(ctx context.Context, multisig types.Pubkey, index uint64) (string, error) {
	val, err := r.rdb.Get(ctx, proposalKey(multisig, index)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("redis get error: %w", err)
	}
	return val, nil
}

func (r *RedisProgressStore) MarkProposalState(ctx context.Context, multisig types.Pubkey, index uint64, state string) error {
	if err := r.rdb.Set(ctx, proposalKey(multisig, index), state, proposalTTL).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisProgressStore) GetCursor(ctx context.Context, multisig types.Pubkey) (uint64, error) {
	val, err := r.rdb.Get(ctx, cursorKey(multisig)).Uint64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("redis get error: %w", err)
	}
	return val, nil
}

func (r *RedisProgressStore) SetCursor(ctx context.Context, multisig types.Pubkey, cursor uint64) error {
	if err := r.rdb.Set(ctx, cursorKey(multisig), cursor, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}
