// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/metrics"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/pipeline"
)

// Store is the part of the linkage store the stages read and write.
// *database.DB implements it.
type Store interface {
	DeleteMetadata(ctx context.Context) error
	InsertMetadata(ctx context.Context, docs []models.MetadataDocument) error
	ListMetadata(ctx context.Context) ([]models.MetadataDocument, error)

	ReplaceVectors(ctx context.Context, kind models.VectorKind, entries []models.VectorEntry) error
	LoadVectors(ctx context.Context, kind models.VectorKind) ([]models.VectorEntry, error)

	DeleteLinkages(ctx context.Context, category models.Category) error
	UpsertLinkages(ctx context.Context, category models.Category, triples []models.LinkageTriple) error

	ReplaceClickstream(ctx context.Context, records []models.ClickRecord) error

	Refresh(ctx context.Context) error
}

// finish refreshes the store and completes res. The refresh runs whatever
// the outcome of the stage; its failure is added to err.
func finish(ctx context.Context, store Store, res pipeline.Result, items int, err error) pipeline.Result {
	if rerr := store.Refresh(ctx); rerr != nil {
		logging.Ctx(ctx).Warn().Err(rerr).Str("stage", res.Stage).Msg("Store refresh failed")
		err = errors.Join(err, fmt.Errorf("refresh: %w", rerr))
	}
	return res.Done(items, err)
}

// writeLinkages upserts triples under category and records the volume.
func writeLinkages(ctx context.Context, store Store, category models.Category, triples []models.LinkageTriple) error {
	if len(triples) == 0 {
		return nil
	}
	if err := store.UpsertLinkages(ctx, category, triples); err != nil {
		return fmt.Errorf("write %s linkages: %w", category, err)
	}
	metrics.RecordTriples(string(category), len(triples))
	return nil
}
