// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences extraction, routing, ranking and response
// assembly for one recommendation request as an explicit state machine.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/internal/logging"
	"github.com/pdiddy/travel-recommender/internal/metrics"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

// Extractor produces structured preferences from the raw query.
type Extractor interface {
	ExtractInterests(ctx context.Context, query string) (*types.UserInterestPreferences, error)
	ExtractLogistics(ctx context.Context, query string) (*types.UserLogisticalPreferences, error)
}

// Ranker orders destinations for the extracted preferences.
type Ranker interface {
	Rank(ctx context.Context, query string, interests *types.UserInterestPreferences, logistics *types.UserLogisticalPreferences) ([]types.RankedCandidate, error)
}

// event drives a transition of the state machine.
type event int

const (
	evArrived event = iota
	evExtracted
	evProceed
	evShortCircuit
	evRanked
	evResponded
	evFault
)

var eventNames = [...]string{"arrived", "extracted", "proceed", "short_circuit", "ranked", "responded", "fault"}

func (e event) String() string { return eventNames[e] }

// next is the transition function. A fault moves any stage to error; an
// event the stage does not accept is itself a fault.
func next(stage types.Stage, ev event) types.Stage {
	if ev == evFault {
		return types.StageError
	}
	switch {
	case stage == types.StageStart && ev == evArrived:
		return types.StageExtracting
	case stage == types.StageExtracting && ev == evExtracted:
		return types.StageRouting
	case stage == types.StageRouting && ev == evProceed:
		return types.StageRanking
	case stage == types.StageRouting && ev == evShortCircuit:
		return types.StageResponding
	case stage == types.StageRanking && ev == evRanked:
		return types.StageResponding
	case stage == types.StageResponding && ev == evResponded:
		return types.StageEnd
	}
	return types.StageError
}

// statusAfter is the status a transition sets, or "" when it leaves the
// status unchanged.
func statusAfter(from types.Stage, ev event) types.Status {
	switch {
	case ev == evFault:
		return types.StatusError
	case from == types.StageStart && ev == evArrived:
		return types.StatusInProgress
	case from == types.StageRouting && ev == evShortCircuit:
		return types.StatusNoPreferences
	case from == types.StageRanking && ev == evRanked:
		return types.StatusSuccess
	}
	return ""
}

// Response messages per outcome.
const (
	msgNoPreferences = "I could not find any travel preferences in your request. Tell me what you enjoy, such as nature, beaches or food, or when and on what budget you want to travel."
	msgNoMatches     = "No destinations matched your request."
	msgError         = "Something went wrong while preparing your recommendations. Please try again."
)

func successMessage(n int) string {
	if n == 0 {
		return msgNoMatches
	}
	if n == 1 {
		return "Found 1 destination for your request."
	}
	return fmt.Sprintf("Found %d destinations for your request.", n)
}

// Controller runs requests through the pipeline. It holds no per-request
// state and is safe for concurrent use.
type Controller struct {
	extractor Extractor
	ranker    Ranker
	cfg       types.PipelineConfig
	logger    zerolog.Logger
}

// NewController returns a Controller over the given collaborators.
func NewController(extractor Extractor, ranker Ranker, cfg types.PipelineConfig, logger zerolog.Logger) *Controller {
	return &Controller{
		extractor: extractor,
		ranker:    ranker,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "pipeline"),
	}
}

// Run processes one query and returns its final state. The returned state
// always carries a Response; collaborator failures and cancellation end in
// the error stage with a failure response rather than an error return.
func (c *Controller) Run(ctx context.Context, input string) (state *types.PipelineState) {
	id := logging.RequestIDFromContext(ctx)
	if id == "" {
		id = logging.NewRequestID()
		ctx = logging.ContextWithRequestID(ctx, id)
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	state = &types.PipelineState{RequestID: id, UserInput: input, Stage: types.StageStart}
	logger := c.logger.With().Str("request_id", id).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.fault(state, logger, fmt.Errorf("panic in stage %s: %v", state.Stage, r))
			state.Response = c.respond(state)
		}
		metrics.PipelineRuns.WithLabelValues(string(state.Status)).Inc()
		logger.Info().
			Str("status", string(state.Status)).
			Int("recommendations", len(state.Response.Recommendations)).
			Dur("elapsed", time.Since(start)).
			Msg("request finished")
	}()

	c.advance(state, evArrived)
	for state.Stage != types.StageEnd && state.Stage != types.StageError {
		if err := ctx.Err(); err != nil {
			c.fault(state, logger, err)
			break
		}
		stage := state.Stage
		began := time.Now()
		ev, err := c.step(ctx, state, logger)
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(began).Seconds())
		if err != nil {
			c.fault(state, logger, err)
			break
		}
		c.advance(state, ev)
	}

	if state.Stage == types.StageError {
		state.Response = c.respond(state)
	}
	return state
}

// step performs the work of the current stage and returns the event it
// produced.
func (c *Controller) step(ctx context.Context, state *types.PipelineState, logger zerolog.Logger) (event, error) {
	switch state.Stage {
	case types.StageExtracting:
		interests, err := c.extractor.ExtractInterests(ctx, state.UserInput)
		if err != nil {
			return evFault, err
		}
		logistics, err := c.extractor.ExtractLogistics(ctx, state.UserInput)
		if err != nil {
			return evFault, err
		}
		state.InterestPreferences = interests
		state.LogisticalPreferences = logistics
		return evExtracted, nil

	case types.StageRouting:
		decision := Route(state.InterestPreferences, state.LogisticalPreferences)
		logger.Debug().Stringer("decision", decision).Msg("routed")
		if decision == ShortCircuit {
			return evShortCircuit, nil
		}
		return evProceed, nil

	case types.StageRanking:
		ranked, err := c.ranker.Rank(ctx, state.UserInput, state.InterestPreferences, state.LogisticalPreferences)
		if err != nil {
			return evFault, err
		}
		state.RankedCandidates = ranked
		return evRanked, nil

	case types.StageResponding:
		state.Response = c.respond(state)
		return evResponded, nil
	}
	return evFault, fmt.Errorf("no work defined for stage %s", state.Stage)
}

func (c *Controller) advance(state *types.PipelineState, ev event) {
	if s := statusAfter(state.Stage, ev); s != "" {
		state.Status = s
	}
	state.Stage = next(state.Stage, ev)
	if state.Stage == types.StageError {
		state.Status = types.StatusError
	}
}

func (c *Controller) fault(state *types.PipelineState, logger zerolog.Logger, err error) {
	logger.Error().Err(err).Str("stage", string(state.Stage)).Msg("pipeline failed")
	state.Err = err
	c.advance(state, evFault)
}

// respond assembles the user-visible response for the current state.
func (c *Controller) respond(state *types.PipelineState) *types.RecommendationResponse {
	resp := &types.RecommendationResponse{
		RequestID:       state.RequestID,
		Status:          state.Status,
		Recommendations: []types.RankedCandidate{},
	}
	switch state.Status {
	case types.StatusNoPreferences:
		resp.Message = msgNoPreferences
	case types.StatusSuccess:
		recs := state.RankedCandidates
		if n := c.cfg.MaxRecommendations; n > 0 && len(recs) > n {
			recs = recs[:n]
		}
		if recs != nil {
			resp.Recommendations = recs
		}
		resp.Message = successMessage(len(resp.Recommendations))
	default:
		resp.Message = msgError
	}
	return resp
}
