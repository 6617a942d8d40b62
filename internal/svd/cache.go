// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package svd

import (
	"bufio"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/linkage/internal/matrix"
	"github.com/tomtom215/linkage/internal/metrics"
)

// Header describes the input a cached reduction was computed from.
type Header struct {
	Source      string
	Fingerprint string
	Rank        int
}

// Matches reports whether the cached reduction can stand in for a fresh
// decomposition of the same input at the same rank.
func (h Header) Matches(other Header) bool {
	return h.Source == other.Source && h.Fingerprint == other.Fingerprint && h.Rank == other.Rank
}

// FingerprintFile returns the hex sha256 of the file contents.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from validated configuration
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintMatrix returns the hex sha256 of the matrix entries.
func FingerprintMatrix(m *matrix.SparseMatrix) string {
	h := sha256.New()
	for _, e := range m.Entries() {
		_, _ = fmt.Fprintf(h, "%s\x00%s\x00%s\n", e.Entity, e.Dimension, strconv.FormatFloat(e.Value, 'g', -1, 64))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// headerEnd closes the header block. Every line after it is a data row, so
// ids that start with '#' survive a round trip.
const headerEnd = "# end"

// Save writes r as a row-major text file: "# key=value" header lines closed
// by "# end", then one "id,v1,...,vk" record per row. The file is replaced
// atomically.
func Save(path string, h Header, r *Reduction) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create svd output directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".svd-*")
	if err != nil {
		return fmt.Errorf("create svd temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // no-op after successful rename

	w := bufio.NewWriter(tmp)
	singular := make([]string, len(r.Singular))
	for i, s := range r.Singular {
		singular[i] = strconv.FormatFloat(s, 'g', -1, 64)
	}
	_, _ = fmt.Fprintf(w, "# source=%s\n", h.Source)
	_, _ = fmt.Fprintf(w, "# fingerprint=%s\n", h.Fingerprint)
	_, _ = fmt.Fprintf(w, "# rank=%d\n", r.Rank)
	_, _ = fmt.Fprintf(w, "# singular=%s\n", strings.Join(singular, ","))
	_, _ = fmt.Fprintln(w, headerEnd)

	cw := csv.NewWriter(w)
	record := make([]string, r.Rank+1)
	for _, v := range r.Vectors {
		record[0] = v.ID
		for j, x := range v.Values {
			record[j+1] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write svd row %s: %w", v.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush svd rows: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush svd file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close svd file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace svd file: %w", err)
	}
	return nil
}

// Load reads a reduction written by Save.
func Load(path string) (*Reduction, Header, error) {
	var h Header

	f, err := os.Open(path) //nolint:gosec // path comes from validated configuration
	if err != nil {
		return nil, h, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	br := bufio.NewReader(f)
	var singular []float64
	for {
		line, err := br.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			if errors.Is(err, io.EOF) {
				return nil, h, fmt.Errorf("svd file %s: header not terminated", path)
			}
			return nil, h, fmt.Errorf("read svd header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == headerEnd {
			break
		}
		if !strings.HasPrefix(line, "#") {
			return nil, h, fmt.Errorf("svd file %s: header not terminated", path)
		}
		key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "source":
			h.Source = value
		case "fingerprint":
			h.Fingerprint = value
		case "rank":
			h.Rank, err = strconv.Atoi(value)
			if err != nil {
				return nil, h, fmt.Errorf("svd header rank %q: %w", value, err)
			}
		case "singular":
			for _, s := range strings.Split(value, ",") {
				if s == "" {
					continue
				}
				x, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, h, fmt.Errorf("svd header singular value %q: %w", s, err)
				}
				singular = append(singular, x)
			}
		}
	}
	if h.Rank < 1 {
		return nil, h, fmt.Errorf("svd file %s: missing rank header", path)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = h.Rank + 1

	r := &Reduction{Rank: h.Rank, Singular: singular}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, h, fmt.Errorf("read svd rows: %w", err)
		}
		values := make([]float64, h.Rank)
		for j, cell := range record[1:] {
			values[j], err = strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, h, fmt.Errorf("svd row %s: invalid value %q", record[0], cell)
			}
		}
		r.Vectors = append(r.Vectors, ReducedVector{ID: record[0], Values: values})
	}

	return r, h, nil
}

// Cache reuses a reduction saved at Path while its header still matches the
// input being reduced.
type Cache struct {
	Path   string
	Logger zerolog.Logger
}

// GetOrCompute returns the cached reduction for want, or runs compute and
// saves its result. An unreadable or stale cache is recomputed; a failed
// save is logged and the fresh reduction still returned.
func (c *Cache) GetOrCompute(want Header, compute func() (*Reduction, error)) (*Reduction, bool, error) {
	if c.Path != "" {
		r, got, err := Load(c.Path)
		switch {
		case err == nil && got.Matches(want):
			metrics.SVDCache.WithLabelValues("hit").Inc()
			c.Logger.Debug().Str("path", c.Path).Int("rank", got.Rank).Msg("reusing cached svd reduction")
			return r, true, nil
		case err == nil:
			c.Logger.Info().Str("path", c.Path).Msg("svd cache is stale, recomputing")
		case !errors.Is(err, os.ErrNotExist):
			c.Logger.Warn().Err(err).Str("path", c.Path).Msg("svd cache unreadable, recomputing")
		}
	}
	metrics.SVDCache.WithLabelValues("miss").Inc()

	r, err := compute()
	if err != nil {
		return nil, false, err
	}

	if c.Path != "" {
		want.Rank = r.Rank
		if err := Save(c.Path, want, r); err != nil {
			c.Logger.Warn().Err(err).Str("path", c.Path).Msg("failed to save svd reduction")
		}
	}
	return r, false, nil
}
