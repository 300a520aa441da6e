package llm

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// PooledClient bounds the number of in-flight completions.
type PooledClient struct {
	inner Client
	sem   *semaphore.Weighted
}

func NewPooledClient(inner Client, size int) *PooledClient {
	if inner == nil {
		panic("llm: pooled client requires an inner client")
	}
	if size <= 0 {
		size = 1
	}
	return &PooledClient{inner: inner, sem: semaphore.NewWeighted(int64(size))}
}

func (c *PooledClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return Response{}, fmt.Errorf("llm: waiting for worker: %w", err)
	}
	defer c.sem.Release(1)
	return c.inner.Complete(ctx, req)
}
