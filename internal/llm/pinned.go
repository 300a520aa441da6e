package llm

import "context"

// PinnedClient sends every request to a fixed model id, so clients for
// different providers can sit in one fallback chain.
type PinnedClient struct {
	inner Client
	model string
}

func NewPinnedClient(inner Client, model string) *PinnedClient {
	if inner == nil {
		panic("llm: pinned inner client cannot be nil")
	}
	return &PinnedClient{inner: inner, model: model}
}

func (c *PinnedClient) Complete(ctx context.Context, req Request) (Response, error) {
	req.Model = c.model
	return c.inner.Complete(ctx, req)
}
