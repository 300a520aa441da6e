package recommend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelJSON = `{
  "global_mean": 3.0,
  "user_bias": {"u1": 0.5},
  "item_bias": {"10": 3.0},
  "user_factors": {"u1": [1.0, 1.0]},
  "item_factors": {"10": [1.0, 1.0], "11": [-3.0, -3.0]}
}`

type mockS3Client struct {
	objects map[string][]byte
	lastKey string
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(input.Bucket) + "/" + aws.ToString(input.Key)
	m.lastKey = key
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestModelPredictClipsToRatingScale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(modelJSON), 0o600))

	m, err := LoadModel(context.Background(), path, nil)
	require.NoError(t, err)
	require.True(t, m.Knows("u1"))

	high, err := m.Predict("u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 5.0, high)

	low, err := m.Predict("u1", 11)
	require.NoError(t, err)
	assert.Equal(t, 1.0, low)

	unseen, err := m.Predict("u1", 99)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, unseen, 1e-9)

	_, err = m.Predict("nobody", 10)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestLoadModelFromS3(t *testing.T) {
	client := &mockS3Client{objects: map[string][]byte{"models/recsys/v3.json": []byte(modelJSON)}}

	m, err := LoadModel(context.Background(), "s3://models/recsys/v3.json", client)
	require.NoError(t, err)
	assert.Equal(t, "models/recsys/v3.json", client.lastKey)
	assert.True(t, m.Knows("u1"))
}

func TestLoadModelEdgeCases(t *testing.T) {
	m, err := LoadModel(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.False(t, m.Knows("u1"))

	_, err = LoadModel(context.Background(), "s3://bucket-only", &mockS3Client{})
	assert.ErrorContains(t, err, "invalid model url")

	_, err = LoadModel(context.Background(), "s3://b/k", nil)
	assert.ErrorContains(t, err, "s3 client required")

	_, err = LoadModel(context.Background(), filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.ErrorContains(t, err, "open model")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadModel(context.Background(), bad, nil)
	assert.ErrorContains(t, err, "decode model")
}
