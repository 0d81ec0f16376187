/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ItemKind distinguishes playable item types.
type ItemKind string

const (
	KindVideo ItemKind = "video"
	KindSlide ItemKind = "slide"
)

// DurationFullPlay marks an item that plays to natural completion (videos).
const DurationFullPlay = -1 * time.Second

// Item is one resolved unit of playback.
type Item struct {
	Kind       ItemKind
	Name       string
	SourcePath string
	Duration   time.Duration
}

// VideoExtensions and DocumentExtensions gate directory enumeration.
var (
	VideoExtensions    = []string{".mp4", ".avi", ".mov", ".mkv", ".webm"}
	DocumentExtensions = []string{".pptx", ".ppt", ".pdf"}
)

// SlideSource expands a document into its cached slide images.
type SlideSource interface {
	Slides(documentPath string) ([]string, error)
}

// Resolver derives the ordered item sequence from the content directories and
// the persisted ordering file.
type Resolver struct {
	videosDir        string
	presentationsDir string
	orderingFile     string
	slides           SlideSource
	slideDuration    time.Duration
	logger           zerolog.Logger
}

// NewResolver constructs a resolver.
func NewResolver(videosDir, presentationsDir, orderingFile string, slides SlideSource, slideDuration time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		videosDir:        videosDir,
		presentationsDir: presentationsDir,
		orderingFile:     orderingFile,
		slides:           slides,
		slideDuration:    slideDuration,
		logger:           logger.With().Str("component", "resolver").Logger(),
	}
}

// OrderingFile returns the path of the persisted ordering.
func (r *Resolver) OrderingFile() string {
	return r.orderingFile
}

// Resolve builds the current item sequence. Orphaned names (ordering entries
// whose backing file no longer exists) are returned for the caller to prune;
// per-item failures are logged and skipped, never fatal.
func (r *Resolver) Resolve() (items []Item, orphaned []string, err error) {
	videos := listByExtension(r.videosDir, VideoExtensions)
	documents := listByExtension(r.presentationsDir, DocumentExtensions)

	entries, loadErr := LoadEntries(r.orderingFile)
	if loadErr != nil {
		r.logger.Warn().Err(loadErr).Msg("ordering file unreadable, falling back to directory order")
		entries = nil
	}

	if len(entries) == 0 {
		return r.resolveAll(videos, documents), nil, nil
	}

	videoByName := byName(videos)
	docByName := byName(documents)

	for _, entry := range entries {
		switch {
		case videoByName[entry.Name] != "":
			for i := 0; i < entry.Repeats; i++ {
				items = append(items, Item{
					Kind:       KindVideo,
					Name:       entry.Name,
					SourcePath: videoByName[entry.Name],
					Duration:   DurationFullPlay,
				})
			}
		case docByName[entry.Name] != "":
			slides := r.expandSlides(docByName[entry.Name])
			for i := 0; i < entry.Repeats; i++ {
				items = append(items, slides...)
			}
		default:
			r.logger.Warn().Str("name", entry.Name).Msg("skipping orphaned playlist entry, file not found")
			orphaned = append(orphaned, entry.Name)
		}
	}

	return items, orphaned, nil
}

// PruneOrdering rewrites the persisted ordering without the orphaned names.
func (r *Resolver) PruneOrdering(orphaned []string) error {
	if len(orphaned) == 0 {
		return nil
	}
	entries, err := LoadEntries(r.orderingFile)
	if err != nil {
		return fmt.Errorf("load ordering for prune: %w", err)
	}

	drop := make(map[string]bool, len(orphaned))
	for _, name := range orphaned {
		drop[name] = true
	}

	kept := entries[:0]
	for _, e := range entries {
		if drop[e.Name] {
			continue
		}
		kept = append(kept, e)
	}

	if err := SaveEntries(r.orderingFile, kept); err != nil {
		return fmt.Errorf("persist pruned ordering: %w", err)
	}
	r.logger.Info().Int("pruned", len(orphaned)).Int("remaining", len(kept)).Msg("ordering pruned")
	return nil
}

// resolveAll is the legacy fallback: all videos, then all documents, in
// filesystem order. No pruning happens in this branch.
func (r *Resolver) resolveAll(videos, documents []string) []Item {
	var items []Item
	for _, path := range videos {
		items = append(items, Item{
			Kind:       KindVideo,
			Name:       filepath.Base(path),
			SourcePath: path,
			Duration:   DurationFullPlay,
		})
	}
	for _, path := range documents {
		items = append(items, r.expandSlides(path)...)
	}
	return items
}

func (r *Resolver) expandSlides(documentPath string) []Item {
	if r.slides == nil {
		return nil
	}
	slides, err := r.slides.Slides(documentPath)
	if err != nil {
		r.logger.Warn().Err(err).Str("document", filepath.Base(documentPath)).Msg("skipping document for this pass")
		return nil
	}
	items := make([]Item, 0, len(slides))
	for _, slide := range slides {
		items = append(items, Item{
			Kind:       KindSlide,
			Name:       filepath.Base(slide),
			SourcePath: slide,
			Duration:   r.slideDuration,
		})
	}
	return items
}

// listByExtension enumerates a directory restricted to recognized extensions,
// sorted by name. Unreadable directories yield an empty list.
func listByExtension(dir string, extensions []string) []string {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[ext] = true
	}

	var paths []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(de.Name()))] {
			paths = append(paths, filepath.Join(dir, de.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

func byName(paths []string) map[string]string {
	m := make(map[string]string, len(paths))
	for _, p := range paths {
		m[filepath.Base(p)] = p
	}
	return m
}
