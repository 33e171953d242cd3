// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/internal/extract"
	"github.com/pdiddy/travel-recommender/internal/pipeline"
	"github.com/pdiddy/travel-recommender/internal/ranking"
	"github.com/pdiddy/travel-recommender/internal/retrieval"
	"github.com/pdiddy/travel-recommender/internal/store"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

// openStore opens and initialises the destination database.
func openStore(ctx context.Context, cfg types.AppConfig, logger zerolog.Logger) (*store.Store, error) {
	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// openIndex returns the similarity index with the configured embedder.
func openIndex(cfg types.AppConfig, logger zerolog.Logger) (*retrieval.Index, error) {
	emb, err := retrieval.NewEmbedder(cfg.Embedding, &http.Client{Timeout: cfg.Embedding.Timeout})
	if err != nil {
		return nil, err
	}
	return retrieval.NewIndex(cfg.Index.Dir, emb, logger), nil
}

// components is everything a recommendation needs.
type components struct {
	store      *store.Store
	index      *retrieval.Index
	controller *pipeline.Controller
}

func (c *components) Close() error { return c.store.Close() }

// buildPipeline wires store, index, extraction backend, ranker and
// controller from configuration.
func buildPipeline(ctx context.Context, cfg types.AppConfig, logger zerolog.Logger) (*components, error) {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	ix, err := openIndex(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	backend, err := extract.NewBackend(cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout}, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	rk, err := ranking.New(ix, st, cfg.Ranking, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	ctrl := pipeline.NewController(extract.New(backend, logger), rk, cfg.Pipeline, logger)
	return &components{store: st, index: ix, controller: ctrl}, nil
}
