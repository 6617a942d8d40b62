// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package config

import (
	"fmt"

	"github.com/tomtom215/linkage/internal/validation"
)

// Validate checks struct tags first, then the rules that span fields.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateInput(); err != nil {
		return err
	}

	return c.validateSimilarity()
}

func (c *Config) validateInput() error {
	if c.Input.RawMetadataPath == "" && c.Input.SessionLogPath == "" && c.Input.ClickstreamPath == "" {
		return fmt.Errorf("at least one of input.raw_metadata_path, input.session_log_path, input.clickstream_path is required")
	}
	seen := make(map[string]bool, len(c.Input.MetadataFeatureFields))
	for _, f := range c.Input.MetadataFeatureFields {
		if seen[f] {
			return fmt.Errorf("input.metadata_feature_fields lists %q twice", f)
		}
		seen[f] = true
	}
	return nil
}

func (c *Config) validateSimilarity() error {
	if c.Similarity.Session.UseSVD && c.Similarity.Session.SVDRank <= 0 {
		return fmt.Errorf("similarity.session.svd_rank must be positive when use_svd is set, got %d", c.Similarity.Session.SVDRank)
	}
	return nil
}
