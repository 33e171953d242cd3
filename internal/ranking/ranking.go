// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ranking orders destinations for a request by combining the
// similarity score of each destination with how well it satisfies the
// user's price, popularity and time-of-year constraints.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/internal/logging"
	"github.com/pdiddy/travel-recommender/internal/metrics"
	"github.com/pdiddy/travel-recommender/internal/retrieval"
	"github.com/pdiddy/travel-recommender/internal/validation"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

// Default combination weights.
const (
	DefaultEmbeddingWeight = 0.6
	DefaultLogisticsWeight = 0.4
)

// Retriever scores the whole indexed corpus against a query.
type Retriever interface {
	SearchAllRanked(ctx context.Context, query string) ([]retrieval.Hit, error)
}

// Catalog is the authoritative destination set.
type Catalog interface {
	All(ctx context.Context) ([]types.DestinationRecord, error)
}

// Ranker implements the ranking step.
type Ranker struct {
	retriever Retriever
	catalog   Catalog
	weights   types.RankingConfig
	logger    zerolog.Logger
}

// New returns a Ranker. Zero weights select the defaults; otherwise both
// must lie in [0,1] and sum to 1.
func New(retriever Retriever, catalog Catalog, weights types.RankingConfig, logger zerolog.Logger) (*Ranker, error) {
	if weights.EmbeddingWeight == 0 && weights.LogisticsWeight == 0 {
		weights = types.RankingConfig{EmbeddingWeight: DefaultEmbeddingWeight, LogisticsWeight: DefaultLogisticsWeight}
	}
	if err := validation.Struct(weights); err != nil {
		return nil, err
	}
	if sum := weights.EmbeddingWeight + weights.LogisticsWeight; math.Abs(sum-1) > 1e-9 {
		return nil, &types.ValidationError{Field: "ranking", Value: sum, Reason: "weights must sum to 1"}
	}
	return &Ranker{
		retriever: retriever,
		catalog:   catalog,
		weights:   weights,
		logger:    logging.WithComponent(logger, "ranking"),
	}, nil
}

// Rank scores every catalogued destination for query. The result is ordered
// by score descending, ties by ascending id. An empty catalogue yields an
// empty slice. Interest preferences influence the order through the query
// text the retriever embeds.
func (r *Ranker) Rank(ctx context.Context, query string, interests *types.UserInterestPreferences, logistics *types.UserLogisticalPreferences) ([]types.RankedCandidate, error) {
	records, err := r.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}
	if len(records) == 0 {
		r.logger.Info().Msg("catalogue is empty")
		return []types.RankedCandidate{}, nil
	}
	byID := make(map[string]types.DestinationRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	hits, err := r.retriever.SearchAllRanked(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}

	candidates := make([]types.RankedCandidate, 0, len(hits))
	for _, h := range hits {
		rec, ok := byID[h.ID]
		if !ok {
			r.logger.Warn().Str("id", h.ID).Msg("indexed destination missing from store, dropped")
			continue
		}
		score := h.Score
		if adj, ok := Adjustment(rec, logistics); ok {
			score = h.Score*r.weights.EmbeddingWeight + adj*r.weights.LogisticsWeight
		}
		candidates = append(candidates, types.RankedCandidate{Destination: rec, EmbeddingScore: h.Score, RankingScore: &score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].Score(), candidates[j].Score()
		if si != sj {
			return si > sj
		}
		return candidates[i].Destination.ID < candidates[j].Destination.ID
	})

	metrics.RankedCandidates.Observe(float64(len(candidates)))
	r.logger.Debug().
		Int("candidates", len(candidates)).
		Int("interests", presentCount(interests)).
		Bool("logistics", logistics.HasAnyPreference()).
		Msg("ranked")
	return candidates, nil
}

func presentCount(u *types.UserInterestPreferences) int {
	if u == nil {
		return 0
	}
	return len(u.Present())
}

// Adjustment is the mean of the active logistics components for d, each in
// [0,1]. ok is false when no component is active.
func Adjustment(d types.DestinationRecord, l *types.UserLogisticalPreferences) (adj float64, ok bool) {
	if l == nil {
		return 0, false
	}
	var parts []float64
	if v, active := PriceScore(d.CostPerWeek, l.Price); active {
		parts = append(parts, v)
	}
	if v, active := PopularityScore(d.Popularity, l.Popularity); active {
		parts = append(parts, v)
	}
	if v, active := TimeOfYearScore(d, l.TimeOfYear); active {
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range parts {
		sum += v
	}
	return sum / float64(len(parts)), true
}

// PriceScore is 1 inside the bounds and decays linearly with the relative
// distance to the violated bound. A preference without numeric bounds is
// inactive.
func PriceScore(cost float64, p *types.PricePreference) (float64, bool) {
	if !p.HasBounds() {
		return 0, false
	}
	if p.MinCostPerWeek != nil && cost < *p.MinCostPerWeek {
		return decay(*p.MinCostPerWeek-cost, *p.MinCostPerWeek), true
	}
	if p.MaxCostPerWeek != nil && cost > *p.MaxCostPerWeek {
		return decay(cost-*p.MaxCostPerWeek, *p.MaxCostPerWeek), true
	}
	return 1, true
}

func decay(distance, bound float64) float64 {
	return math.Max(0, 1-distance/math.Max(bound, 1))
}

// PopularityScore rewards destinations whose popularity is close to the
// requested rank, scaled onto [0,1].
func PopularityScore(popularity float64, p *types.PopularityPreference) (float64, bool) {
	if p == nil {
		return 0, false
	}
	target := float64(p.Strength) / types.MaxStrength
	return 1 - math.Abs(popularity-target), true
}

// TimeOfYearScore is the mean month score over the requested months.
func TimeOfYearScore(d types.DestinationRecord, t *types.TimeOfYearPreference) (float64, bool) {
	months := t.ResolvedMonths()
	if len(months) == 0 {
		return 0, false
	}
	var sum float64
	for _, m := range months {
		sum += d.Month(m)
	}
	return sum / float64(len(months)), true
}
