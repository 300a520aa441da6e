package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrUnknownUser is returned when the trained model has no factors for a user.
var ErrUnknownUser = errors.New("recommend: user not in trained model")

const (
	minRating = 1.0
	maxRating = 5.0
)

// Model is a trained matrix-factorization predictor. It is loaded once and
// shared read-only.
type Model struct {
	GlobalMean  float64              `json:"global_mean"`
	UserBias    map[string]float64   `json:"user_bias"`
	ItemBias    map[string]float64   `json:"item_bias"`
	UserFactors map[string][]float64 `json:"user_factors"`
	ItemFactors map[string][]float64 `json:"item_factors"`
}

// Knows reports membership in the trained user set.
func (m *Model) Knows(userID string) bool {
	if m == nil {
		return false
	}
	_, ok := m.UserFactors[userID]
	return ok
}

// Predict estimates the rating a user would give an item, clipped to [1, 5].
// Items the model never saw score from the user's bias alone.
func (m *Model) Predict(userID string, itemID int64) (float64, error) {
	if !m.Knows(userID) {
		return 0, ErrUnknownUser
	}
	key := strconv.FormatInt(itemID, 10)
	est := m.GlobalMean + m.UserBias[userID] + m.ItemBias[key]

	pu := m.UserFactors[userID]
	if qi, ok := m.ItemFactors[key]; ok && len(qi) == len(pu) {
		for f := range pu {
			est += pu[f] * qi[f]
		}
	}
	return min(max(est, minRating), maxRating), nil
}

// S3GetObjectAPI is the subset of the S3 client used to fetch model artifacts.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadModel reads an artifact from a local path or an s3://bucket/key URL. An
// empty path yields a nil model, which disables the trained-model tier.
func LoadModel(ctx context.Context, path string, s3Client S3GetObjectAPI) (*Model, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	var body io.ReadCloser
	if strings.HasPrefix(path, "s3://") {
		bucket, key, ok := strings.Cut(strings.TrimPrefix(path, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("recommend: invalid model url %q", path)
		}
		if s3Client == nil {
			return nil, errors.New("recommend: s3 client required for s3 model path")
		}
		out, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("recommend: fetch model: %w", err)
		}
		body = out.Body
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("recommend: open model: %w", err)
		}
		body = f
	}
	defer body.Close()

	var m Model
	if err := json.NewDecoder(body).Decode(&m); err != nil {
		return nil, fmt.Errorf("recommend: decode model: %w", err)
	}
	return &m, nil
}
