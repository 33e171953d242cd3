// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns a free-text travel query into structured interest
// and logistical preferences by prompting a language model for a JSON
// document and validating what comes back.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/internal/metrics"
	"github.com/pdiddy/travel-recommender/internal/validation"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

// Extraction stage names carried by *types.ExtractionError.
const (
	StageInterests = "interests"
	StageLogistics = "logistics"
)

// Prompt is one structured extraction request. Schema is a JSON Schema
// object the returned document must satisfy.
type Prompt struct {
	Name   string
	System string
	User   string
	Schema map[string]any
}

// Backend abstracts the language model so tests can supply a mock. Invoke
// returns the raw JSON document produced for p.
type Backend interface {
	Name() string
	Invoke(ctx context.Context, p Prompt) ([]byte, error)
}

// Extractor runs the interest and logistics prompts against a Backend.
type Extractor struct {
	backend Backend
	logger  zerolog.Logger
}

// New returns an Extractor over backend.
func New(backend Backend, logger zerolog.Logger) *Extractor {
	return &Extractor{
		backend: backend,
		logger:  logger.With().Str("component", "extract").Str("backend", backend.Name()).Logger(),
	}
}

// ExtractInterests asks the model which of the ten interest categories the
// query expresses. Any failure is returned as a *types.ExtractionError.
func (e *Extractor) ExtractInterests(ctx context.Context, query string) (*types.UserInterestPreferences, error) {
	prompt, err := interestPrompt(query)
	if err != nil {
		return nil, &types.ExtractionError{Stage: StageInterests, Err: err}
	}

	raw, err := e.invoke(ctx, StageInterests, prompt)
	if err != nil {
		return nil, err
	}

	var payload interestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, e.fail(StageInterests, "decode", fmt.Errorf("decoding model output: %w", err))
	}
	prefs, err := payload.toPreferences(query)
	if err == nil {
		err = validation.Struct(prefs)
	}
	if err != nil {
		return nil, e.fail(StageInterests, "validation", err)
	}

	e.logger.Debug().Int("categories", len(prefs.Present())).Msg("interests extracted")
	return prefs, nil
}

// ExtractLogistics asks the model for price, popularity and time-of-year
// constraints. A section carrying only supporting text is kept; it counts as
// a preference but adds nothing to the ranking adjustment. Sections with no
// content at all are treated as absent. Any failure is returned as a
// *types.ExtractionError.
func (e *Extractor) ExtractLogistics(ctx context.Context, query string) (*types.UserLogisticalPreferences, error) {
	prompt, err := logisticsPrompt(query)
	if err != nil {
		return nil, &types.ExtractionError{Stage: StageLogistics, Err: err}
	}

	raw, err := e.invoke(ctx, StageLogistics, prompt)
	if err != nil {
		return nil, err
	}

	var payload logisticsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, e.fail(StageLogistics, "decode", fmt.Errorf("decoding model output: %w", err))
	}
	prefs, err := payload.toPreferences(query)
	if err == nil {
		err = validation.Struct(prefs)
	}
	if err == nil {
		err = prefs.TimeOfYear.Validate()
	}
	if err != nil {
		return nil, e.fail(StageLogistics, "validation", err)
	}

	e.logger.Debug().Stringer("logistics", prefs).Msg("logistics extracted")
	return prefs, nil
}

func (e *Extractor) invoke(ctx context.Context, stage string, p Prompt) ([]byte, error) {
	start := time.Now()
	raw, err := e.backend.Invoke(ctx, p)
	if err != nil {
		return nil, e.fail(stage, "backend", err)
	}
	e.logger.Debug().Str("prompt", p.Name).Dur("elapsed", time.Since(start)).Int("bytes", len(raw)).Msg("model responded")
	return raw, nil
}

func (e *Extractor) fail(stage, kind string, err error) error {
	metrics.ExtractionFailures.WithLabelValues(kind).Inc()
	e.logger.Warn().Err(err).Str("stage", stage).Str("kind", kind).Msg("extraction failed")
	return &types.ExtractionError{Stage: stage, Err: err}
}

// preferencePayload mirrors one category object in the model output.
// Strength is decoded as a number so a non-integral value is reported as a
// validation failure instead of a decode failure.
type preferencePayload struct {
	Strength      *float64 `json:"strength"`
	ExtractedText string   `json:"extracted_text"`
}

func (p *preferencePayload) toPreference(field string) (*types.Preference, error) {
	if p == nil {
		return nil, nil
	}
	strength, err := integral(field+".strength", p.Strength)
	if err != nil {
		return nil, err
	}
	return types.NewPreference(strength, p.ExtractedText)
}

type interestPayload struct {
	Nature        *preferencePayload `json:"nature"`
	Hiking        *preferencePayload `json:"hiking"`
	Beach         *preferencePayload `json:"beach"`
	Watersports   *preferencePayload `json:"watersports"`
	Entertainment *preferencePayload `json:"entertainment"`
	Wintersports  *preferencePayload `json:"wintersports"`
	Culture       *preferencePayload `json:"culture"`
	Culinary      *preferencePayload `json:"culinary"`
	Architecture  *preferencePayload `json:"architecture"`
	Shopping      *preferencePayload `json:"shopping"`
}

func (p interestPayload) byCategory() map[types.Category]*preferencePayload {
	return map[types.Category]*preferencePayload{
		types.CategoryNature:        p.Nature,
		types.CategoryHiking:        p.Hiking,
		types.CategoryBeach:         p.Beach,
		types.CategoryWatersports:   p.Watersports,
		types.CategoryEntertainment: p.Entertainment,
		types.CategoryWintersports:  p.Wintersports,
		types.CategoryCulture:       p.Culture,
		types.CategoryCulinary:      p.Culinary,
		types.CategoryArchitecture:  p.Architecture,
		types.CategoryShopping:      p.Shopping,
	}
}

func (p interestPayload) toPreferences(query string) (*types.UserInterestPreferences, error) {
	out := &types.UserInterestPreferences{RawUserQuery: query}
	fields := p.byCategory()
	for _, c := range types.AllCategories {
		pref, err := fields[c].toPreference(string(c))
		if err != nil {
			return nil, err
		}
		if err := out.Set(c, pref); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type pricePayload struct {
	MinCostPerWeek *float64 `json:"min_cost_per_week"`
	MaxCostPerWeek *float64 `json:"max_cost_per_week"`
	BudgetTier     *string  `json:"budget_tier"`
	ExtractedText  string   `json:"extracted_text"`
}

type popularityPayload struct {
	Mode          *string  `json:"mode"`
	Strength      *float64 `json:"strength"`
	ExtractedText string   `json:"extracted_text"`
}

type timeOfYearPayload struct {
	Months        []string `json:"months"`
	Season        *string  `json:"season"`
	ExtractedText string   `json:"extracted_text"`
}

type logisticsPayload struct {
	Price      *pricePayload      `json:"price"`
	Popularity *popularityPayload `json:"popularity"`
	TimeOfYear *timeOfYearPayload `json:"time_of_year"`
}

func (p logisticsPayload) toPreferences(query string) (*types.UserLogisticalPreferences, error) {
	out := &types.UserLogisticalPreferences{RawUserQuery: query}

	if pr := p.Price; pr != nil {
		tier := strings.ToLower(strings.TrimSpace(deref(pr.BudgetTier)))
		if pr.MinCostPerWeek != nil || pr.MaxCostPerWeek != nil || tier != "" || hasText(pr.ExtractedText) {
			out.Price = &types.PricePreference{
				MinCostPerWeek: pr.MinCostPerWeek,
				MaxCostPerWeek: pr.MaxCostPerWeek,
				BudgetTier:     types.BudgetTier(tier),
				ExtractedText:  pr.ExtractedText,
			}
		}
	}

	if pp := p.Popularity; pp != nil {
		mode := strings.ToLower(strings.TrimSpace(deref(pp.Mode)))
		switch {
		case pp.Strength != nil:
			strength, err := integral("popularity.strength", pp.Strength)
			if err != nil {
				return nil, err
			}
			if mode == "" {
				mode = popularityMode(strength)
			}
			out.Popularity = &types.PopularityPreference{Mode: mode, Strength: strength, ExtractedText: pp.ExtractedText}
		case mode == types.PopularityAvoidCrowds:
			out.Popularity = &types.PopularityPreference{Mode: mode, Strength: 0, ExtractedText: pp.ExtractedText}
		case mode == types.PopularitySeekPopular:
			out.Popularity = &types.PopularityPreference{Mode: mode, Strength: types.MaxStrength, ExtractedText: pp.ExtractedText}
		case hasText(pp.ExtractedText):
			return nil, &types.ValidationError{Field: "popularity.strength", Value: pp.ExtractedText, Reason: "is required"}
		}
	}

	if pt := p.TimeOfYear; pt != nil {
		season := strings.ToLower(strings.TrimSpace(deref(pt.Season)))
		months := make([]types.Month, 0, len(pt.Months))
		for _, m := range pt.Months {
			months = append(months, monthCode(m))
		}
		if len(months) > 0 || season != "" || hasText(pt.ExtractedText) {
			if season != "" && types.SeasonMonths(season) == nil {
				return nil, &types.ValidationError{Field: "time_of_year.season", Value: season, Reason: "unknown season"}
			}
			out.TimeOfYear = &types.TimeOfYearPreference{Months: months, Season: season, ExtractedText: pt.ExtractedText}
		}
	}

	return out, nil
}

// integral converts a decoded JSON number to an int, rejecting fractions.
func integral(field string, v *float64) (int, error) {
	if v == nil {
		return 0, &types.ValidationError{Field: field, Reason: "is required"}
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v != math.Trunc(*v) {
		return 0, &types.ValidationError{Field: field, Value: *v, Reason: "must be an integer"}
	}
	n := int(*v)
	if n < 0 || n > types.MaxStrength {
		return 0, &types.ValidationError{Field: field, Value: n, Reason: "must be between 0 and 5"}
	}
	return n, nil
}

func popularityMode(strength int) string {
	switch {
	case strength <= 1:
		return types.PopularityAvoidCrowds
	case strength >= 4:
		return types.PopularitySeekPopular
	}
	return types.PopularityNeutral
}

// monthCode accepts "jun", "June" or "JUNE" and returns the three-letter
// code. Anything shorter than three letters is returned as-is so that
// validation reports it.
func monthCode(s string) types.Month {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		if m := types.Month(s[:3]); m.Valid() {
			return m
		}
	}
	return types.Month(s)
}

func hasText(s string) bool { return strings.TrimSpace(s) != "" }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IsUnavailable reports whether err means the backend refused the call
// without trying, because its circuit breaker is open.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
