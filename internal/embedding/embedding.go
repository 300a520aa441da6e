// Package embedding turns free text and images into vectors comparable with
// the catalog's stored embeddings.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Embedder computes a single text embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type bedrockInvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedder calls a Titan text embedding model.
type BedrockEmbedder struct {
	api        bedrockInvokeModelAPI
	modelID    string
	dimensions int
}

// NewBedrockEmbedder builds a Titan embedder. dimensions of zero keeps the model default.
func NewBedrockEmbedder(api bedrockInvokeModelAPI, modelID string, dimensions int) *BedrockEmbedder {
	if api == nil {
		panic("embedding: bedrock runtime client cannot be nil")
	}
	return &BedrockEmbedder{api: api, modelID: modelID, dimensions: dimensions}
}

func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(e.modelID) == "" {
		return nil, errors.New("embedding: bedrock embedding model id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embedding: text is empty")
	}

	body := map[string]any{"inputText": text}
	if e.dimensions > 0 {
		body["dimensions"] = e.dimensions
		body["normalize"] = true
	}
	return invokeTitan(ctx, e.api, e.modelID, body)
}

func invokeTitan(ctx context.Context, api bedrockInvokeModelAPI, modelID string, body map[string]any) ([]float32, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("embedding: request marshal: %w", err)
	}

	out, err := api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: invoke model: %w", err)
	}

	var decoded struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		return nil, fmt.Errorf("embedding: response parse: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, errors.New("embedding: response was empty")
	}

	vec := make([]float32, len(decoded.Embedding))
	for i, f := range decoded.Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}
