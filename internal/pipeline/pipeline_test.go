// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/travel-recommender/internal/destination"
	"github.com/pdiddy/travel-recommender/internal/extract"
	"github.com/pdiddy/travel-recommender/internal/logging"
	"github.com/pdiddy/travel-recommender/internal/ranking"
	"github.com/pdiddy/travel-recommender/internal/retrieval"
	"github.com/pdiddy/travel-recommender/internal/store"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

// --- router ---

func TestRoute(t *testing.T) {
	hiking, err := types.NewPreference(5, "hiking")
	require.NoError(t, err)
	dislike, err := types.NewPreference(0, "no shopping")
	require.NoError(t, err)

	tests := []struct {
		name  string
		prefs []PreferenceSet
		want  Decision
	}{
		{"no sets", nil, ShortCircuit},
		{"untyped nil", []PreferenceSet{nil}, ShortCircuit},
		{"typed nil", []PreferenceSet{(*types.UserInterestPreferences)(nil), (*types.UserLogisticalPreferences)(nil)}, ShortCircuit},
		{"raw query only", []PreferenceSet{&types.UserInterestPreferences{RawUserQuery: "I like to travel."}}, ShortCircuit},
		{"hiking", []PreferenceSet{&types.UserInterestPreferences{Hiking: hiking}}, Proceed},
		{"dislike counts", []PreferenceSet{&types.UserInterestPreferences{Shopping: dislike}}, Proceed},
		{"logistics only", []PreferenceSet{
			&types.UserInterestPreferences{},
			&types.UserLogisticalPreferences{Popularity: &types.PopularityPreference{Strength: 0}},
		}, Proceed},
		{"price text only", []PreferenceSet{
			&types.UserInterestPreferences{},
			&types.UserLogisticalPreferences{Price: &types.PricePreference{ExtractedText: "somewhere affordable"}},
		}, Proceed},
		{"time of year text only", []PreferenceSet{
			&types.UserInterestPreferences{},
			&types.UserLogisticalPreferences{TimeOfYear: &types.TimeOfYearPreference{ExtractedText: "sometime next year"}},
		}, Proceed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.prefs...))
		})
	}
}

// --- transitions ---

func TestNext(t *testing.T) {
	tests := []struct {
		from types.Stage
		ev   event
		want types.Stage
	}{
		{types.StageStart, evArrived, types.StageExtracting},
		{types.StageExtracting, evExtracted, types.StageRouting},
		{types.StageRouting, evProceed, types.StageRanking},
		{types.StageRouting, evShortCircuit, types.StageResponding},
		{types.StageRanking, evRanked, types.StageResponding},
		{types.StageResponding, evResponded, types.StageEnd},
		{types.StageRanking, evFault, types.StageError},
		{types.StageStart, evFault, types.StageError},
		{types.StageStart, evRanked, types.StageError},
		{types.StageEnd, evArrived, types.StageError},
		{types.StageError, evResponded, types.StageError},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+tt.ev.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, next(tt.from, tt.ev))
		})
	}
}

func TestStatusAfter(t *testing.T) {
	assert.Equal(t, types.StatusInProgress, statusAfter(types.StageStart, evArrived))
	assert.Equal(t, types.StatusNoPreferences, statusAfter(types.StageRouting, evShortCircuit))
	assert.Equal(t, types.StatusSuccess, statusAfter(types.StageRanking, evRanked))
	assert.Equal(t, types.StatusError, statusAfter(types.StageExtracting, evFault))
	assert.Equal(t, types.Status(""), statusAfter(types.StageExtracting, evExtracted))
}

// --- controller with fakes ---

type fakeExtractor struct {
	interests    *types.UserInterestPreferences
	logistics    *types.UserLogisticalPreferences
	interestsErr error
	logisticsErr error
	panicWith    any
}

func (f *fakeExtractor) ExtractInterests(ctx context.Context, _ string) (*types.UserInterestPreferences, error) {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.interests, f.interestsErr
}

func (f *fakeExtractor) ExtractLogistics(context.Context, string) (*types.UserLogisticalPreferences, error) {
	return f.logistics, f.logisticsErr
}

type fakeRanker struct {
	ranked []types.RankedCandidate
	err    error
	calls  int
	block  bool
}

func (f *fakeRanker) Rank(ctx context.Context, _ string, _ *types.UserInterestPreferences, _ *types.UserLogisticalPreferences) ([]types.RankedCandidate, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.ranked, f.err
}

func candidates(ids ...string) []types.RankedCandidate {
	out := make([]types.RankedCandidate, len(ids))
	for i, id := range ids {
		out[i] = types.RankedCandidate{Destination: types.DestinationRecord{ID: id}, EmbeddingScore: float64(len(ids) - i)}
	}
	return out
}

func withHiking() *types.UserInterestPreferences {
	return &types.UserInterestPreferences{Hiking: &types.Preference{Strength: 4, ExtractedText: "hike"}}
}

func TestRun_Success(t *testing.T) {
	ranker := &fakeRanker{ranked: candidates("A", "B", "C")}
	c := NewController(&fakeExtractor{interests: withHiking()}, ranker, types.PipelineConfig{}, zerolog.Nop())

	state := c.Run(context.Background(), "hiking trip")
	assert.Equal(t, types.StageEnd, state.Stage)
	assert.Equal(t, types.StatusSuccess, state.Status)
	assert.NoError(t, state.Err)
	assert.NotEmpty(t, state.RequestID)
	require.NotNil(t, state.Response)
	assert.Equal(t, state.RequestID, state.Response.RequestID)
	assert.Equal(t, types.StatusSuccess, state.Response.Status)
	assert.Len(t, state.Response.Recommendations, 3)
	assert.Equal(t, "Found 3 destinations for your request.", state.Response.Message)
	assert.Equal(t, 1, ranker.calls)
}

func TestRun_TruncatesRecommendations(t *testing.T) {
	ranker := &fakeRanker{ranked: candidates("A", "B", "C")}
	c := NewController(&fakeExtractor{interests: withHiking()}, ranker, types.PipelineConfig{MaxRecommendations: 2}, zerolog.Nop())

	state := c.Run(context.Background(), "hiking trip")
	assert.Len(t, state.RankedCandidates, 3)
	require.Len(t, state.Response.Recommendations, 2)
	assert.Equal(t, "A", state.Response.Recommendations[0].Destination.ID)
}

func TestRun_EmptyRanking(t *testing.T) {
	c := NewController(&fakeExtractor{interests: withHiking()}, &fakeRanker{}, types.PipelineConfig{}, zerolog.Nop())

	state := c.Run(context.Background(), "hiking trip")
	assert.Equal(t, types.StatusSuccess, state.Status)
	assert.NotNil(t, state.Response.Recommendations)
	assert.Empty(t, state.Response.Recommendations)
	assert.Equal(t, msgNoMatches, state.Response.Message)
}

func TestRun_ShortCircuit(t *testing.T) {
	ranker := &fakeRanker{ranked: candidates("A")}
	ex := &fakeExtractor{
		interests: &types.UserInterestPreferences{RawUserQuery: "I want to sleep"},
		logistics: &types.UserLogisticalPreferences{RawUserQuery: "I want to sleep"},
	}
	c := NewController(ex, ranker, types.PipelineConfig{}, zerolog.Nop())

	state := c.Run(context.Background(), "I want to sleep")
	assert.Equal(t, types.StageEnd, state.Stage)
	assert.Equal(t, types.StatusNoPreferences, state.Status)
	assert.Equal(t, types.StatusNoPreferences, state.Response.Status)
	assert.Empty(t, state.Response.Recommendations)
	assert.Equal(t, msgNoPreferences, state.Response.Message)
	assert.Zero(t, ranker.calls, "ranking skipped")
}

func TestRun_CollaboratorFaults(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		ex     *fakeExtractor
		ranker *fakeRanker
		wantIs error
	}{
		{"interest extraction", &fakeExtractor{interestsErr: &types.ExtractionError{Stage: "interests", Err: boom}}, &fakeRanker{}, types.ErrExtraction},
		{"logistics extraction", &fakeExtractor{interests: withHiking(), logisticsErr: &types.ExtractionError{Stage: "logistics", Err: boom}}, &fakeRanker{}, types.ErrExtraction},
		{"ranking", &fakeExtractor{interests: withHiking()}, &fakeRanker{err: types.ErrNotLoaded}, types.ErrNotLoaded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(tt.ex, tt.ranker, types.PipelineConfig{}, zerolog.Nop())
			state := c.Run(context.Background(), "q")
			assert.Equal(t, types.StageError, state.Stage)
			assert.Equal(t, types.StatusError, state.Status)
			assert.ErrorIs(t, state.Err, tt.wantIs)
			require.NotNil(t, state.Response)
			assert.Equal(t, types.StatusError, state.Response.Status)
			assert.Equal(t, msgError, state.Response.Message)
			assert.Empty(t, state.Response.Recommendations)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewController(&fakeExtractor{interests: withHiking()}, &fakeRanker{}, types.PipelineConfig{}, zerolog.Nop())

	state := c.Run(ctx, "q")
	assert.Equal(t, types.StatusError, state.Status)
	assert.ErrorIs(t, state.Err, context.Canceled)
}

func TestRun_TimeoutEndsInError(t *testing.T) {
	c := NewController(&fakeExtractor{interests: withHiking()}, &fakeRanker{block: true},
		types.PipelineConfig{Timeout: 20 * time.Millisecond}, zerolog.Nop())

	state := c.Run(context.Background(), "q")
	assert.Equal(t, types.StatusError, state.Status)
	assert.ErrorIs(t, state.Err, context.DeadlineExceeded)
}

func TestRun_RecoversFromPanic(t *testing.T) {
	c := NewController(&fakeExtractor{panicWith: "kaboom"}, &fakeRanker{}, types.PipelineConfig{}, zerolog.Nop())

	var state *types.PipelineState
	require.NotPanics(t, func() { state = c.Run(context.Background(), "q") })
	assert.Equal(t, types.StatusError, state.Status)
	assert.ErrorContains(t, state.Err, "kaboom")
	require.NotNil(t, state.Response)
	assert.Equal(t, types.StatusError, state.Response.Status)
}

func TestRun_UsesRequestIDFromContext(t *testing.T) {
	ctx := logging.ContextWithRequestID(context.Background(), "req-123")
	c := NewController(&fakeExtractor{}, &fakeRanker{}, types.PipelineConfig{}, zerolog.Nop())

	state := c.Run(ctx, "q")
	assert.Equal(t, "req-123", state.RequestID)
	assert.Equal(t, "req-123", state.Response.RequestID)
}

// --- end to end with the real store and index ---

// scriptedBackend answers the two extraction prompts with fixed JSON.
type scriptedBackend struct {
	interests string
	logistics string
}

func (s scriptedBackend) Name() string { return "scripted" }

func (s scriptedBackend) Invoke(_ context.Context, p extract.Prompt) ([]byte, error) {
	if p.Name == "user_interest_preferences" {
		return []byte(s.interests), nil
	}
	return []byte(s.logistics), nil
}

func endToEnd(t *testing.T, backend extract.Backend) *Controller {
	t.Helper()
	ctx := context.Background()
	csvPath := filepath.Join("..", "destination", "testdata", "regions.csv")
	records, err := destination.LoadCSV(csvPath, zerolog.Nop())
	require.NoError(t, err)

	st, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "destinations.db")}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Load(ctx))
	_, err = st.BulkLoad(ctx, records, store.ModeReplace)
	require.NoError(t, err)

	ix := retrieval.NewIndex(filepath.Join(t.TempDir(), "index"), retrieval.NewTFIDF(), zerolog.Nop())
	_, err = ix.Build(ctx, csvPath)
	require.NoError(t, err)

	rk, err := ranking.New(ix, st, types.RankingConfig{}, zerolog.Nop())
	require.NoError(t, err)
	return NewController(extract.New(backend, zerolog.Nop()), rk, types.PipelineConfig{}, zerolog.Nop())
}

func position(recs []types.RankedCandidate, id string) int {
	for i, r := range recs {
		if r.Destination.ID == id {
			return i
		}
	}
	return -1
}

func TestEndToEnd_NatureAwayFromCrowds(t *testing.T) {
	c := endToEnd(t, scriptedBackend{
		interests: `{"nature": {"strength": 5, "extracted_text": "explore nature"},
			"hiking": {"strength": 4, "extracted_text": "walk"}}`,
		logistics: `{"price": null,
			"popularity": {"mode": "avoid_crowds", "strength": 1, "extracted_text": "I dislike crowded places"},
			"time_of_year": null}`,
	})

	state := c.Run(context.Background(), "I want to walk and explore nature, but I dislike crowded places.")
	require.NoError(t, state.Err)
	assert.Equal(t, types.StatusSuccess, state.Status)

	require.NotNil(t, state.InterestPreferences.Nature)
	assert.Greater(t, state.InterestPreferences.Nature.Strength, 0)
	require.NotNil(t, state.LogisticalPreferences.Popularity)
	assert.Equal(t, types.PopularityAvoidCrowds, state.LogisticalPreferences.Popularity.Mode)

	recs := state.Response.Recommendations
	require.Len(t, recs, 4)
	assert.Equal(t, "NOR", recs[0].Destination.ID, "nature-rich, quiet destination first")
	assert.Less(t, position(recs, "NOR"), position(recs, "THA"))
	assert.Less(t, position(recs, "NOR"), position(recs, "JPN"))
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Score(), recs[i].Score())
	}
}

func TestEndToEnd_NoPreferences(t *testing.T) {
	c := endToEnd(t, scriptedBackend{
		interests: `{"nature": null, "beach": null}`,
		logistics: `{"price": null, "popularity": null, "time_of_year": null}`,
	})

	state := c.Run(context.Background(), "I want to sleep")
	assert.Equal(t, types.StatusNoPreferences, state.Status)
	assert.Equal(t, types.StatusNoPreferences, state.Response.Status)
	assert.Empty(t, state.Response.Recommendations)
	assert.Nil(t, state.RankedCandidates)
}

func TestEndToEnd_TextOnlyLogisticsProceeds(t *testing.T) {
	c := endToEnd(t, scriptedBackend{
		interests: `{"nature": null}`,
		logistics: `{"price": {"min_cost_per_week": null, "max_cost_per_week": null, "budget_tier": null, "extracted_text": "somewhere affordable"}, "popularity": null, "time_of_year": null}`,
	})

	state := c.Run(context.Background(), "somewhere affordable")
	require.Equal(t, types.StatusSuccess, state.Status, "err: %v", state.Err)
	require.NotEmpty(t, state.RankedCandidates)
	for _, rc := range state.RankedCandidates {
		assert.Equal(t, rc.EmbeddingScore, rc.Score(), "no bounds means no price adjustment")
	}
}
