/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/friendsincode/heimdall_signage/internal/controller"
	"github.com/friendsincode/heimdall_signage/internal/events"
	"github.com/friendsincode/heimdall_signage/internal/mailbox"
	"github.com/friendsincode/heimdall_signage/internal/player"
	"github.com/friendsincode/heimdall_signage/internal/playlist"
	"github.com/friendsincode/heimdall_signage/internal/slides"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "Run the local playback controller",
	Long:  "Supervise the media player on the locally attached display, re-resolving content on a timer and applying operator commands from the mailbox",
	RunE:  runPlayer,
}

func init() {
	rootCmd.AddCommand(playerCmd)
}

func runPlayer(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	// Two controllers fighting over one display and one mailbox would be
	// worse than refusing to start.
	lock := flock.New(cfg.PIDFile)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire player lock: %w", err)
	}
	if !ok {
		return errors.New("another player instance is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Msg("failed to release player lock")
		}
	}()
	_ = os.WriteFile(cfg.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)

	converter := slides.NewConverter(cfg.SlidesCacheDir, cfg.LibreOfficeBin, cfg.ImageMagickBin, cfg.ConversionTimeout, logger)
	resolver := playlist.NewResolver(cfg.VideosDir, cfg.PresentationsDir, cfg.OrderingFile, converter, cfg.SlideDuration, logger)
	handle := player.NewHandle(cfg.PlayerBin, cfg.StopGrace, logger)
	box := mailbox.NewConsumer(cfg.PlayerMailbox())
	ctrl := controller.New(cfg, resolver, box, handle, events.NewBus(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
