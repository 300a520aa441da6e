package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

type limiter struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func newLimiter(size int, timeout time.Duration) limiter {
	if size <= 0 {
		size = 1
	}
	return limiter{sem: semaphore.NewWeighted(int64(size)), timeout: timeout}
}

func (l limiter) do(ctx context.Context, fn func(context.Context) ([]float32, error)) ([]float32, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("embedding: waiting for worker: %w", err)
	}
	defer l.sem.Release(1)
	return fn(ctx)
}

// Pool runs embeddings on a bounded number of workers with a per-call timeout.
type Pool struct {
	inner Embedder
	limiter
}

func NewPool(inner Embedder, size int, timeout time.Duration) *Pool {
	if inner == nil {
		panic("embedding: pool requires an embedder")
	}
	return &Pool{inner: inner, limiter: newLimiter(size, timeout)}
}

func (p *Pool) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.do(ctx, func(ctx context.Context) ([]float32, error) {
		return p.inner.Embed(ctx, text)
	})
}

// ImagePool is Pool for image embeddings.
type ImagePool struct {
	inner ImageEmbedder
	limiter
}

func NewImagePool(inner ImageEmbedder, size int, timeout time.Duration) *ImagePool {
	if inner == nil {
		panic("embedding: image pool requires an image embedder")
	}
	return &ImagePool{inner: inner, limiter: newLimiter(size, timeout)}
}

func (p *ImagePool) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	return p.do(ctx, func(ctx context.Context) ([]float32, error) {
		return p.inner.EmbedImage(ctx, image)
	})
}
