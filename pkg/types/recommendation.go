// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RankedCandidate is a destination with its similarity score and, when
// logistics were applied, its combined ranking score.
type RankedCandidate struct {
	Destination    DestinationRecord `json:"destination" yaml:"destination"`
	EmbeddingScore float64           `json:"embedding_score" yaml:"embedding_score"`
	RankingScore   *float64          `json:"ranking_score,omitempty" yaml:"ranking_score,omitempty"`
}

// Score is the value the candidate is ordered by.
func (c RankedCandidate) Score() float64 {
	if c.RankingScore != nil {
		return *c.RankingScore
	}
	return c.EmbeddingScore
}

// Status is the externally visible outcome of a pipeline run.
type Status string

const (
	StatusInProgress    Status = "in_progress"
	StatusSuccess       Status = "success"
	StatusNoPreferences Status = "no_preferences"
	StatusError         Status = "error"
)

// Stage is a node of the pipeline state machine.
type Stage string

const (
	StageStart      Stage = "start"
	StageExtracting Stage = "extracting"
	StageRouting    Stage = "routing"
	StageRanking    Stage = "ranking"
	StageResponding Stage = "responding"
	StageEnd        Stage = "end"
	StageError      Stage = "error"
)

// RecommendationResponse is what the caller receives.
type RecommendationResponse struct {
	RequestID       string            `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Status          Status            `json:"status" yaml:"status"`
	Message         string            `json:"message" yaml:"message"`
	Recommendations []RankedCandidate `json:"recommendations" yaml:"recommendations"`
}

// PipelineState is the per-request working state of one controller run.
type PipelineState struct {
	RequestID             string
	UserInput             string
	Status                Status
	Stage                 Stage
	InterestPreferences   *UserInterestPreferences
	LogisticalPreferences *UserLogisticalPreferences
	RankedCandidates      []RankedCandidate
	Response              *RecommendationResponse
	Err                   error
}
