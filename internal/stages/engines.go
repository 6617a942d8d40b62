// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package stages

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/pipeline"
)

const (
	// RecommendEngine builds metadata, session and feature linkages.
	RecommendEngine = "recommend"
	// WeblogEngine builds clickstream linkages.
	WeblogEngine = "weblog"
)

// NewRecommendEngine assembles the metadata recommendation engine:
//
//	preprocess: import_metadata, metadata_tfidf, session_cooccurrence, normalize_features
//	process:    abstract_similarity, feature_similarity, session_cf
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommendEngine(cfg *config.Config, store Store, logger zerolog.Logger, opts ...pipeline.Option) *pipeline.Engine {
	preprocess := []pipeline.Stage{
		NewImportMetadata(cfg.Input, store),
		NewMetadataTFIDFGenerator(cfg.Input, store),
		NewSessionCooccurrence(cfg.Input, store),
		NewNormalizeFeatures(cfg.Input, store),
	}
	process := []pipeline.Stage{
		NewAbstractBasedSimilarity(cfg.Similarity.Content, cfg.Pipeline.Workers, store),
		NewFeatureBasedSimilarity(cfg.Similarity.Feature, cfg.Pipeline.Workers, store),
		NewSessionBasedCF(cfg.Similarity.Session, cfg.Pipeline.Workers, store),
	}
	return pipeline.NewEngine(RecommendEngine, preprocess, process, logger, engineOptions(cfg, opts)...)
}

// NewWeblogEngine assembles the web log engine. Its only stage is the
// clickstream analyzer in the process phase.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWeblogEngine(cfg *config.Config, store Store, logger zerolog.Logger, opts ...pipeline.Option) *pipeline.Engine {
	process := []pipeline.Stage{NewClickStreamAnalyzer(cfg, store)}
	return pipeline.NewEngine(WeblogEngine, nil, process, logger, engineOptions(cfg, opts)...)
}

// NewEngines returns the engines named by which: "recommend", "weblog" or
// "all" (recommend first).
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngines(which string, cfg *config.Config, store Store, logger zerolog.Logger, opts ...pipeline.Option) ([]*pipeline.Engine, error) {
	switch which {
	case RecommendEngine:
		return []*pipeline.Engine{NewRecommendEngine(cfg, store, logger, opts...)}, nil
	case WeblogEngine:
		return []*pipeline.Engine{NewWeblogEngine(cfg, store, logger, opts...)}, nil
	case "all", "":
		return []*pipeline.Engine{
			NewRecommendEngine(cfg, store, logger, opts...),
			NewWeblogEngine(cfg, store, logger, opts...),
		}, nil
	default:
		return nil, &UnknownEngineError{Name: which}
	}
}

// UnknownEngineError reports an engine name that NewEngines does not know.
type UnknownEngineError struct {
	Name string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine %q (want recommend, weblog or all)", e.Name)
}

func engineOptions(cfg *config.Config, extra []pipeline.Option) []pipeline.Option {
	opts := []pipeline.Option{pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout)}
	return append(opts, extra...)
}
