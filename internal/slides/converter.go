/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package slides turns presentation documents into cached, ordered raster
// image sequences using LibreOffice and ImageMagick.
package slides

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall_signage/internal/telemetry"
)

// ErrConversionFailed covers tool missing, timeout, nonzero exit, and zero
// output files. Callers skip the document for the current pass.
var ErrConversionFailed = errors.New("conversion failed")

// slidePattern matches the sequentially numbered images one cache entry holds.
const slidePattern = "slide_*.png"

// Converter is the on-disk, idempotent conversion cache. Cache entries are
// keyed by the document's base name with the extension stripped; invalidation
// is the administrative layer's job (it deletes the entry directory when the
// source document changes).
type Converter struct {
	cacheDir    string
	sofficeBin  string
	magickBin   string
	toolTimeout time.Duration
	logger      zerolog.Logger
}

// NewConverter constructs a converter writing under cacheDir.
func NewConverter(cacheDir, sofficeBin, magickBin string, toolTimeout time.Duration, logger zerolog.Logger) *Converter {
	return &Converter{
		cacheDir:    cacheDir,
		sofficeBin:  sofficeBin,
		magickBin:   magickBin,
		toolTimeout: toolTimeout,
		logger:      logger.With().Str("component", "slides").Logger(),
	}
}

// CachePath returns the cache entry directory for a document.
func (c *Converter) CachePath(documentPath string) string {
	base := filepath.Base(documentPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.cacheDir, stem)
}

// Slides returns the ordered slide images for a document, converting on the
// first call. A cache entry with at least one image is returned unchanged;
// no external tool runs on that path.
func (c *Converter) Slides(documentPath string) ([]string, error) {
	if cached := c.cachedSlides(documentPath); len(cached) > 0 {
		return cached, nil
	}
	return c.Convert(documentPath)
}

// Convert runs the conversion pipeline unconditionally and returns the
// resulting slide sequence. On any failure the cache entry is left without
// images and an empty result is returned with ErrConversionFailed.
func (c *Converter) Convert(documentPath string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(documentPath))
	entry := c.CachePath(documentPath)
	if err := os.MkdirAll(entry, 0o755); err != nil {
		return nil, fmt.Errorf("create cache entry: %w", err)
	}

	name := filepath.Base(documentPath)
	c.logger.Info().Str("document", name).Msg("converting presentation")

	var pdfPath string
	switch ext {
	case ".pptx", ".ppt":
		generated, err := c.convertToPDF(documentPath, entry)
		if err != nil {
			c.logger.Error().Err(err).Str("document", name).Msg("presentation to PDF failed")
			telemetry.ConversionsTotal.WithLabelValues("failure").Inc()
			return nil, ErrConversionFailed
		}
		pdfPath = generated
		defer os.Remove(pdfPath)
	case ".pdf":
		pdfPath = documentPath
	default:
		c.logger.Error().Str("document", name).Msg("unsupported presentation format")
		telemetry.ConversionsTotal.WithLabelValues("failure").Inc()
		return nil, ErrConversionFailed
	}

	images, err := c.renderPages(pdfPath, entry)
	if err != nil {
		c.logger.Error().Err(err).Str("document", name).Msg("page rendering failed")
		telemetry.ConversionsTotal.WithLabelValues("failure").Inc()
		return nil, ErrConversionFailed
	}

	telemetry.ConversionsTotal.WithLabelValues("success").Inc()
	c.logger.Info().Str("document", name).Int("slides", len(images)).Msg("presentation converted")
	return images, nil
}

// convertToPDF invokes LibreOffice headless to produce an intermediate PDF
// inside the cache entry.
func (c *Converter) convertToPDF(documentPath, outDir string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.toolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.sofficeBin, "--headless", "--convert-to", "pdf", "--outdir", outDir, documentPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("libreoffice: %w: %s", err, strings.TrimSpace(string(out)))
	}

	base := filepath.Base(documentPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	pdfPath := filepath.Join(outDir, stem+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("libreoffice produced no PDF for %s", base)
	}
	return pdfPath, nil
}

// renderPages invokes ImageMagick to rasterize every page at fixed density
// and quality into sequentially numbered slide images.
func (c *Converter) renderPages(pdfPath, outDir string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.toolTimeout)
	defer cancel()

	target := filepath.Join(outDir, "slide_%03d.png")
	cmd := exec.CommandContext(ctx, c.magickBin, "-density", "150", "-quality", "90", pdfPath, target)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("imagemagick: %w: %s", err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(filepath.Join(outDir, slidePattern))
	if err != nil || len(images) == 0 {
		return nil, fmt.Errorf("no slide images produced from %s", filepath.Base(pdfPath))
	}
	sort.Strings(images)
	return images, nil
}

// cachedSlides returns the existing entry, or nil when the entry is absent or
// empty. Presence of one image marks the entry usable; a conversion that was
// interrupted mid-run is indistinguishable from a complete one here.
func (c *Converter) cachedSlides(documentPath string) []string {
	images, err := filepath.Glob(filepath.Join(c.CachePath(documentPath), slidePattern))
	if err != nil || len(images) == 0 {
		return nil
	}
	sort.Strings(images)
	return images
}
