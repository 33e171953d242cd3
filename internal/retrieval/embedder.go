// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval embeds destination descriptions, persists the vectors in
// a Badger directory and ranks them against free-text queries by cosine
// similarity.
package retrieval

import (
	"context"
	"fmt"
	"net/http"

	"gonum.org/v1/gonum/floats"

	"github.com/pdiddy/travel-recommender/pkg/types"
)

// Embedder turns text into a vector. Prepare sees the whole corpus before
// any document is embedded so stateful embedders can fit themselves.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Snapshotter is implemented by embedders whose fitted state must be
// persisted alongside the index.
type Snapshotter interface {
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}

// NewEmbedder selects an embedder by kind.
func NewEmbedder(cfg types.EmbeddingConfig, client *http.Client) (Embedder, error) {
	switch cfg.Kind {
	case types.EmbedderTFIDF, "":
		return NewTFIDF(), nil
	case types.EmbedderOpenAI:
		if cfg.Model == "" {
			return nil, &types.ValidationError{Field: "embedding.model", Reason: "required for openai embeddings"}
		}
		return &OpenAIEmbedder{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Client:     client,
		}, nil
	}
	return nil, &types.ValidationError{Field: "embedding.kind", Value: cfg.Kind, Reason: "use tfidf or openai"}
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the dimensions differ.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// DocumentContent is the text embedded for one destination.
func DocumentContent(d types.DestinationRecord) string {
	return fmt.Sprintf("Destination: %s, located in %s. Overview: %s", d.Region, d.ParentRegion, d.Description)
}
