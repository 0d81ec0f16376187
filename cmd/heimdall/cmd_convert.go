/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/heimdall_signage/internal/playlist"
	"github.com/friendsincode/heimdall_signage/internal/slides"
)

var convertForce bool

var convertCmd = &cobra.Command{
	Use:   "convert [document...]",
	Short: "Convert presentations into cached slide images",
	Long:  "Run the presentation conversion pipeline ahead of playback. With no arguments, every document in the presentations directory is converted.",
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().BoolVar(&convertForce, "force", false, "re-convert even when a cache entry already exists")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	documents := args
	if len(documents) == 0 {
		var err error
		documents, err = listDocuments(cfg.PresentationsDir)
		if err != nil {
			return err
		}
		if len(documents) == 0 {
			logger.Info().Str("dir", cfg.PresentationsDir).Msg("no documents to convert")
			return nil
		}
	}

	converter := slides.NewConverter(cfg.SlidesCacheDir, cfg.LibreOfficeBin, cfg.ImageMagickBin, cfg.ConversionTimeout, logger)

	var failed int
	for _, doc := range documents {
		images, err := convertOne(converter, doc)
		if err != nil {
			logger.Error().Err(err).Str("document", doc).Msg("conversion failed")
			failed++
			continue
		}
		fmt.Printf("%s: %d slides\n", filepath.Base(doc), len(images))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to convert", failed, len(documents))
	}
	return nil
}

func convertOne(converter *slides.Converter, doc string) ([]string, error) {
	if _, err := os.Stat(doc); err != nil {
		return nil, err
	}
	if convertForce {
		return converter.Convert(doc)
	}
	return converter.Slides(doc)
}

func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read presentations dir: %w", err)
	}

	var documents []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, allowed := range playlist.DocumentExtensions {
			if ext == allowed {
				documents = append(documents, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	return documents, nil
}
