package cron

import (
	"context"

	"github.com/angelmondragon/buildmart-backend/pkg/redis"
)

// Lock coordinates exclusive cron runs across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

var _ Lock = (*redis.Lock)(nil)
