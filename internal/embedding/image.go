package embedding

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultMaxImageBytes bounds decoded and downloaded images.
const DefaultMaxImageBytes = 5 << 20

var (
	ErrInvalidImage    = errors.New("embedding: invalid image data")
	ErrInvalidImageURL = errors.New("embedding: invalid image url")
	ErrImageTooLarge   = errors.New("embedding: image too large")
)

// ImageEmbedder computes an embedding comparable with catalog image vectors.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}

// BedrockImageEmbedder calls a Titan multimodal embedding model.
type BedrockImageEmbedder struct {
	api        bedrockInvokeModelAPI
	modelID    string
	dimensions int
}

// NewBedrockImageEmbedder builds a Titan multimodal embedder. dimensions of
// zero keeps the model default (1024).
func NewBedrockImageEmbedder(api bedrockInvokeModelAPI, modelID string, dimensions int) *BedrockImageEmbedder {
	if api == nil {
		panic("embedding: bedrock runtime client cannot be nil")
	}
	return &BedrockImageEmbedder{api: api, modelID: modelID, dimensions: dimensions}
}

func (e *BedrockImageEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if strings.TrimSpace(e.modelID) == "" {
		return nil, errors.New("embedding: bedrock image embedding model id is required")
	}
	if len(image) == 0 {
		return nil, ErrInvalidImage
	}
	body := map[string]any{"inputImage": base64.StdEncoding.EncodeToString(image)}
	if e.dimensions > 0 {
		body["embeddingConfig"] = map[string]any{"outputEmbeddingLength": e.dimensions}
	}
	return invokeTitan(ctx, e.api, e.modelID, body)
}

// DecodeImage accepts raw base64 or a data URL ("data:image/png;base64,...").
func DecodeImage(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if i := strings.Index(data, ","); i >= 0 {
		data = data[i+1:]
	}
	if data == "" {
		return nil, ErrInvalidImage
	}
	if base64.StdEncoding.DecodedLen(len(data)) > DefaultMaxImageBytes {
		return nil, ErrImageTooLarge
	}
	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		img, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	}
	if err != nil || len(img) == 0 {
		return nil, ErrInvalidImage
	}
	return img, nil
}

// ImageFetcher downloads images referenced by URL.
type ImageFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewImageFetcher(client *http.Client, maxBytes int64) *ImageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageFetcher{client: client, maxBytes: maxBytes}
}

func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidImageURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("embedding: build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: fetch image: status %d", resp.StatusCode)
	}
	img, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("embedding: read image: %w", err)
	}
	if int64(len(img)) > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	if len(img) == 0 {
		return nil, ErrInvalidImage
	}
	return img, nil
}
