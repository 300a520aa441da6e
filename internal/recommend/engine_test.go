package recommend

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/retrieval"
)

type stubPreferences struct {
	prefs map[string][]string
	err   error
	calls int
}

func (s *stubPreferences) Preferences(ctx context.Context, userID string) ([]string, error) {
	s.calls++
	return s.prefs[userID], s.err
}

type stubInteractions struct {
	seed int64
	ok   bool
	err  error
}

func (s stubInteractions) LastStrongInteraction(ctx context.Context, userID string) (int64, bool, error) {
	return s.seed, s.ok, s.err
}

type stubSimilarity struct {
	items    []catalog.Item
	lastSeed int64
}

func (s *stubSimilarity) Similar(ctx context.Context, itemID int64, k int) retrieval.Result {
	s.lastSeed = itemID
	return retrieval.Result{Items: s.items, Status: retrieval.StatusOK}
}

type brokenCatalog struct{ catalog.Store }

func (brokenCatalog) All(ctx context.Context) ([]catalog.Item, error) {
	return nil, errors.New("db down")
}

func tenItems() []catalog.Item {
	items := make([]catalog.Item, 0, 10)
	for i := int64(1); i <= 10; i++ {
		items = append(items, catalog.Item{ID: i, Title: "Hotel", Category: "khach-san"})
	}
	items[2].Category = "resort"
	items[6].Tags = []string{"sea_view"}
	items[8].Slug = "homestay-nho"
	return items
}

func idSet(items []catalog.Item) map[int64]bool {
	out := make(map[int64]bool, len(items))
	for _, item := range items {
		out[item.ID] = true
	}
	return out
}

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func testModel() *Model {
	return &Model{
		GlobalMean:  3.5,
		UserBias:    map[string]float64{"known": 0.2},
		ItemBias:    map[string]float64{"4": 1.0, "9": 0.5, "2": -0.5},
		UserFactors: map[string][]float64{"known": {1, 0}},
		ItemFactors: map[string][]float64{"1": {0.3, 0}, "4": {0.1, 1}, "9": {0.4, 0}},
	}
}

func TestRecommendModelTierRanksByPrediction(t *testing.T) {
	prefs := &stubPreferences{prefs: map[string][]string{"known": {"resort"}}}
	engine := NewEngine(catalog.NewMemoryStore(tenItems()),
		WithModel(testModel()), WithPreferences(prefs), WithRand(seeded()))

	res, err := engine.Recommend(context.Background(), "known", 3)
	require.NoError(t, err)
	assert.Equal(t, TierModel, res.Tier)
	require.Len(t, res.Items, 3)
	// 4: 3.5+0.2+1.0+0.1 = 4.8, 9: 3.5+0.2+0.5+0.4 = 4.6, 1: 3.5+0.2+0.3 = 4.0
	assert.Equal(t, []int64{4, 9, 1}, []int64{res.Items[0].ID, res.Items[1].ID, res.Items[2].ID})
	assert.Equal(t, 0, prefs.calls, "model tier must not consult preferences")
}

func TestRecommendPreferenceTierReturnsOnlyMatches(t *testing.T) {
	prefs := &stubPreferences{prefs: map[string][]string{"new": {"resort", "sea_view"}}}
	engine := NewEngine(catalog.NewMemoryStore(tenItems()),
		WithModel(testModel()), WithPreferences(prefs), WithRand(seeded()))

	for i := 0; i < 20; i++ {
		res, err := engine.Recommend(context.Background(), "new", 5)
		require.NoError(t, err)
		assert.Equal(t, TierPreference, res.Tier)
		assert.NotEmpty(t, res.Items)
		for id := range idSet(res.Items) {
			assert.Contains(t, []int64{3, 7}, id)
		}
	}
}

func TestRecommendPreferenceMatchesSlug(t *testing.T) {
	prefs := &stubPreferences{prefs: map[string][]string{"u": {"Homestay-Nho"}}}
	engine := NewEngine(catalog.NewMemoryStore(tenItems()), WithPreferences(prefs))

	res, err := engine.Recommend(context.Background(), "u", 5)
	require.NoError(t, err)
	assert.Equal(t, TierPreference, res.Tier)
	assert.Equal(t, map[int64]bool{9: true}, idSet(res.Items))
}

func TestRecommendUnmatchedPreferencesFallThrough(t *testing.T) {
	prefs := &stubPreferences{prefs: map[string][]string{"u": {"ski_resort"}}}
	engine := NewEngine(catalog.NewMemoryStore(tenItems()), WithPreferences(prefs), WithRand(seeded()))

	res, err := engine.Recommend(context.Background(), "u", 5)
	require.NoError(t, err)
	assert.Equal(t, TierRandom, res.Tier)
	assert.Len(t, res.Items, 5)
}

func TestRecommendSimilarityTierUsesLastInteraction(t *testing.T) {
	similar := &stubSimilarity{items: []catalog.Item{{ID: 8}, {ID: 2}}}
	engine := NewEngine(catalog.NewMemoryStore(tenItems()),
		WithPreferences(&stubPreferences{}),
		WithSimilarity(stubInteractions{seed: 5, ok: true}, similar))

	res, err := engine.Recommend(context.Background(), "liker", 5)
	require.NoError(t, err)
	assert.Equal(t, TierSimilar, res.Tier)
	assert.Equal(t, int64(5), similar.lastSeed)
	assert.Equal(t, map[int64]bool{8: true, 2: true}, idSet(res.Items))
}

func TestRecommendRandomTierWithoutSignals(t *testing.T) {
	engine := NewEngine(catalog.NewMemoryStore(tenItems()),
		WithPreferences(&stubPreferences{err: errors.New("timeout")}),
		WithSimilarity(stubInteractions{}, &stubSimilarity{}),
		WithRand(seeded()))

	res, err := engine.Recommend(context.Background(), "stranger", 4)
	require.NoError(t, err)
	assert.Equal(t, TierRandom, res.Tier)
	assert.Len(t, idSet(res.Items), 4, "sample must not repeat items")
}

func TestRecommendSmallCatalog(t *testing.T) {
	engine := NewEngine(catalog.NewMemoryStore(tenItems()[:2]), WithRand(seeded()))

	res, err := engine.Recommend(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestRecommendSeededSamplingIsReproducible(t *testing.T) {
	a := NewEngine(catalog.NewMemoryStore(tenItems()), WithRand(seeded()))
	b := NewEngine(catalog.NewMemoryStore(tenItems()), WithRand(seeded()))

	ra, err := a.Recommend(context.Background(), "x", 5)
	require.NoError(t, err)
	rb, err := b.Recommend(context.Background(), "x", 5)
	require.NoError(t, err)
	assert.Equal(t, ra.Items, rb.Items)
}

func TestRecommendCatalogFailure(t *testing.T) {
	engine := NewEngine(brokenCatalog{})

	_, err := engine.Recommend(context.Background(), "x", 5)
	assert.ErrorContains(t, err, "recommend: load catalog")
}
