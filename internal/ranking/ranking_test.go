// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/travel-recommender/internal/retrieval"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

type fakeRetriever struct {
	hits  []retrieval.Hit
	err   error
	calls int
	query string
}

func (f *fakeRetriever) SearchAllRanked(_ context.Context, query string) ([]retrieval.Hit, error) {
	f.calls++
	f.query = query
	return f.hits, f.err
}

type fakeCatalog struct {
	records []types.DestinationRecord
	err     error
}

func (f fakeCatalog) All(context.Context) ([]types.DestinationRecord, error) {
	return f.records, f.err
}

func ptr(v float64) *float64 { return &v }

func record(id string, cost, popularity float64) types.DestinationRecord {
	d := types.DestinationRecord{ID: id, Region: id, CostPerWeek: cost, Popularity: popularity}
	for _, m := range types.AllMonths {
		d.SetMonth(m, 0.5)
	}
	return d
}

func fixture() ([]types.DestinationRecord, []retrieval.Hit) {
	records := []types.DestinationRecord{
		record("AAA", 500, 1.0),
		record("BBB", 1500, 0.25),
		record("CCC", 900, 0.5),
	}
	hits := []retrieval.Hit{
		{ID: "AAA", Score: 0.8},
		{ID: "BBB", Score: 0.5},
		{ID: "CCC", Score: 0.2},
	}
	return records, hits
}

func newRanker(t *testing.T, records []types.DestinationRecord, hits []retrieval.Hit) (*Ranker, *fakeRetriever) {
	t.Helper()
	ret := &fakeRetriever{hits: hits}
	r, err := New(ret, fakeCatalog{records: records}, types.RankingConfig{}, zerolog.Nop())
	require.NoError(t, err)
	return r, ret
}

func ids(cs []types.RankedCandidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Destination.ID
	}
	return out
}

func TestRank_NoLogisticsKeepsEmbeddingScore(t *testing.T) {
	records, hits := fixture()
	r, ret := newRanker(t, records, hits)

	for _, logistics := range []*types.UserLogisticalPreferences{nil, {RawUserQuery: "q"}} {
		got, err := r.Rank(context.Background(), "beach", nil, logistics)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"AAA", "BBB", "CCC"}, ids(got))
		for _, c := range got {
			require.NotNil(t, c.RankingScore)
			assert.Equal(t, c.EmbeddingScore, *c.RankingScore)
		}
	}
	assert.Equal(t, "beach", ret.query)
}

func TestRank_EmptyCatalogue(t *testing.T) {
	r, ret := newRanker(t, nil, []retrieval.Hit{{ID: "AAA", Score: 1}})
	got, err := r.Rank(context.Background(), "anything", nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, ret.calls)
}

func TestRank_PopularityReordersCandidates(t *testing.T) {
	records, hits := fixture()
	r, _ := newRanker(t, records, hits)

	avoid := &types.UserLogisticalPreferences{
		Popularity: &types.PopularityPreference{Mode: types.PopularityAvoidCrowds, Strength: 1},
	}
	got, err := r.Rank(context.Background(), "q", nil, avoid)
	require.NoError(t, err)

	// AAA: 0.8*0.6 + (1-|1.0-0.2|)*0.4 = 0.56
	// BBB: 0.5*0.6 + (1-|0.25-0.2|)*0.4 = 0.68
	// CCC: 0.2*0.6 + (1-|0.5-0.2|)*0.4 = 0.40
	assert.Equal(t, []string{"BBB", "AAA", "CCC"}, ids(got))
	assert.InDelta(t, 0.68, got[0].Score(), 1e-9)
	assert.InDelta(t, 0.5, got[0].EmbeddingScore, 1e-9)
}

func TestRank_TiesByID(t *testing.T) {
	records := []types.DestinationRecord{record("ZZZ", 1, 0), record("MMM", 1, 0), record("AAA", 1, 0)}
	hits := []retrieval.Hit{{ID: "ZZZ", Score: 0.3}, {ID: "MMM", Score: 0.3}, {ID: "AAA", Score: 0.3}}
	r, _ := newRanker(t, records, hits)

	got, err := r.Rank(context.Background(), "q", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "MMM", "ZZZ"}, ids(got))
}

func TestRank_DropsHitsWithoutRecord(t *testing.T) {
	records, hits := fixture()
	hits = append(hits, retrieval.Hit{ID: "GONE", Score: 0.99})
	r, _ := newRanker(t, records, hits)

	got, err := r.Rank(context.Background(), "q", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, ids(got))
}

func TestRank_UsesStoreRecord(t *testing.T) {
	records, hits := fixture()
	hits[0].Destination = types.DestinationRecord{ID: "AAA", Region: "stale"}
	r, _ := newRanker(t, records, hits)

	got, err := r.Rank(context.Background(), "q", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "AAA", got[0].Destination.Region)
}

func TestRank_CollaboratorErrors(t *testing.T) {
	records, _ := fixture()
	boom := errors.New("boom")

	r, err := New(&fakeRetriever{err: types.ErrNotLoaded}, fakeCatalog{records: records}, types.RankingConfig{}, zerolog.Nop())
	require.NoError(t, err)
	_, err = r.Rank(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, types.ErrNotLoaded)

	r, err = New(&fakeRetriever{}, fakeCatalog{err: boom}, types.RankingConfig{}, zerolog.Nop())
	require.NoError(t, err)
	_, err = r.Rank(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestNew_Weights(t *testing.T) {
	tests := []struct {
		name    string
		weights types.RankingConfig
		wantErr bool
	}{
		{"defaults", types.RankingConfig{}, false},
		{"embedding only", types.RankingConfig{EmbeddingWeight: 1}, false},
		{"even split", types.RankingConfig{EmbeddingWeight: 0.5, LogisticsWeight: 0.5}, false},
		{"does not sum to one", types.RankingConfig{EmbeddingWeight: 0.5, LogisticsWeight: 0.4}, true},
		{"negative", types.RankingConfig{EmbeddingWeight: 1.5, LogisticsWeight: -0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&fakeRetriever{}, fakeCatalog{}, tt.weights, zerolog.Nop())
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPriceScore(t *testing.T) {
	tests := []struct {
		name   string
		cost   float64
		pref   *types.PricePreference
		want   float64
		active bool
	}{
		{"absent", 500, nil, 0, false},
		{"tier only", 500, &types.PricePreference{BudgetTier: types.BudgetLow}, 0, false},
		{"text only", 500, &types.PricePreference{ExtractedText: "cheap"}, 0, false},
		{"inside range", 500, &types.PricePreference{MinCostPerWeek: ptr(400), MaxCostPerWeek: ptr(600)}, 1, true},
		{"on the bound", 600, &types.PricePreference{MaxCostPerWeek: ptr(600)}, 1, true},
		{"above max", 750, &types.PricePreference{MaxCostPerWeek: ptr(600)}, 0.75, true},
		{"far above max", 2000, &types.PricePreference{MaxCostPerWeek: ptr(600)}, 0, true},
		{"below min", 300, &types.PricePreference{MinCostPerWeek: ptr(400)}, 0.75, true},
		{"zero max floors scale", 0.5, &types.PricePreference{MaxCostPerWeek: ptr(0)}, 0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, active := PriceScore(tt.cost, tt.pref)
			assert.Equal(t, tt.active, active)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPopularityScore(t *testing.T) {
	got, ok := PopularityScore(0.25, &types.PopularityPreference{Strength: 0})
	assert.True(t, ok)
	assert.InDelta(t, 0.75, got, 1e-9)

	got, _ = PopularityScore(1, &types.PopularityPreference{Strength: 5})
	assert.InDelta(t, 1.0, got, 1e-9)

	_, ok = PopularityScore(1, nil)
	assert.False(t, ok)
}

func TestTimeOfYearScore(t *testing.T) {
	d := record("X", 0, 0)
	d.SetMonth(types.Jun, 1)
	d.SetMonth(types.Jul, 1)
	d.SetMonth(types.Aug, 0.25)

	got, ok := TimeOfYearScore(d, &types.TimeOfYearPreference{Season: "summer"})
	assert.True(t, ok)
	assert.InDelta(t, 0.75, got, 1e-9)

	got, ok = TimeOfYearScore(d, &types.TimeOfYearPreference{Months: []types.Month{types.Jun}, Season: "summer"})
	assert.True(t, ok)
	assert.InDelta(t, 0.75, got, 1e-9, "duplicates counted once")

	_, ok = TimeOfYearScore(d, &types.TimeOfYearPreference{ExtractedText: "sometime"})
	assert.False(t, ok)
}

func TestAdjustment_MeanOfActiveComponents(t *testing.T) {
	d := record("X", 750, 0.25)
	l := &types.UserLogisticalPreferences{
		Price:      &types.PricePreference{MaxCostPerWeek: ptr(600)},
		Popularity: &types.PopularityPreference{Strength: 0},
		TimeOfYear: &types.TimeOfYearPreference{ExtractedText: "whenever"},
	}
	got, ok := Adjustment(d, l)
	assert.True(t, ok)
	assert.InDelta(t, (0.75+0.75)/2, got, 1e-9)

	_, ok = Adjustment(d, &types.UserLogisticalPreferences{Price: &types.PricePreference{BudgetTier: types.BudgetHigh}})
	assert.False(t, ok)

	_, ok = Adjustment(d, &types.UserLogisticalPreferences{
		Price:      &types.PricePreference{ExtractedText: "somewhere affordable"},
		TimeOfYear: &types.TimeOfYearPreference{ExtractedText: "sometime next year"},
	})
	assert.False(t, ok, "text-only sections add no adjustment")
}
