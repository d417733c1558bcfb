package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobLock gives one replica at a time the right to run a scheduled job.
type JobLock struct {
	client *redis.Client
	prefix string
	owner  string
}

// NewJobLock creates a JobLock whose claims are tagged with owner.
func NewJobLock(client *redis.Client, owner string) *JobLock {
	return &JobLock{
		client: client,
		prefix: "vslaledger:job:",
		owner:  owner,
	}
}

// TryLock claims job for ttl. It reports false when another owner holds it.
func (l *JobLock) TryLock(ctx context.Context, job string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+job, l.owner, ttl).Result()
}

// Owner returns the current holder of job, or "" when free.
func (l *JobLock) Owner(ctx context.Context, job string) (string, error) {
	owner, err := l.client.Get(ctx, l.prefix+job).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}
