package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvokeAPI struct {
	body    []byte
	err     error
	lastReq *bedrockruntime.InvokeModelInput
}

func (f *fakeInvokeAPI) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastReq = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockEmbedder(t *testing.T) {
	api := &fakeInvokeAPI{body: []byte(`{"embedding":[0.5,-0.25,1],"inputTextTokenCount":3}`)}
	e := NewBedrockEmbedder(api, "amazon.titan-embed-text-v2:0", 256)

	vec, err := e.Embed(context.Background(), " view biển yên tĩnh ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", aws.ToString(api.lastReq.ModelId))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(api.lastReq.Body, &sent))
	assert.Equal(t, "view biển yên tĩnh", sent["inputText"])
	assert.Equal(t, float64(256), sent["dimensions"])
}

func TestBedrockEmbedderErrors(t *testing.T) {
	_, err := NewBedrockEmbedder(&fakeInvokeAPI{}, "", 0).Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "model id is required")

	_, err = NewBedrockEmbedder(&fakeInvokeAPI{}, "m", 0).Embed(context.Background(), "  ")
	assert.ErrorContains(t, err, "text is empty")

	_, err = NewBedrockEmbedder(&fakeInvokeAPI{err: errors.New("boom")}, "m", 0).Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "boom")

	_, err = NewBedrockEmbedder(&fakeInvokeAPI{body: []byte(`{"embedding":[]}`)}, "m", 0).Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "empty")
}

type slowEmbedder struct{ delay time.Duration }

func (s slowEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-time.After(s.delay):
		return []float32{1}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestPoolAppliesTimeout(t *testing.T) {
	pool := NewPool(slowEmbedder{delay: time.Second}, 2, 20*time.Millisecond)

	_, err := pool.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolPassesThrough(t *testing.T) {
	pool := NewPool(slowEmbedder{}, 1, time.Second)

	vec, err := pool.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
}
