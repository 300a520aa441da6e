package llm

import "context"

// StubClient stands in when no model is configured. Every call reports that no
// tool was invoked, so callers take their conversational fallback.
type StubClient struct{}

func NewStubClient() *StubClient { return &StubClient{} }

func (*StubClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if req.Tool == nil {
		return Response{}, nil
	}
	return Response{}, ErrNoToolCall
}
