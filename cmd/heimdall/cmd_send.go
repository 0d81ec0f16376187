/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/heimdall_signage/internal/mailbox"
)

var sendTarget string

var sendCmd = &cobra.Command{
	Use:   "send <next|prev|pause|play>",
	Short: "Post an operator command to a mailbox",
	Long:  "Post a playback command. The player mailbox drives the local controller; the displays mailbox is relayed read-only to network display clients.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendTarget, "target", "player", "mailbox to post to: player, displays, or both")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	if !mailbox.ValidAction(action) {
		return fmt.Errorf("unknown action %q", args[0])
	}

	var paths []string
	switch sendTarget {
	case "player":
		paths = []string{cfg.PlayerMailbox()}
	case "displays":
		paths = []string{cfg.DisplayMailbox()}
	case "both":
		paths = []string{cfg.PlayerMailbox(), cfg.DisplayMailbox()}
	default:
		return fmt.Errorf("unknown target %q", sendTarget)
	}

	for _, path := range paths {
		if err := mailbox.Post(path, action); err != nil {
			return fmt.Errorf("post %s: %w", action, err)
		}
		logger.Info().Str("action", action).Str("mailbox", path).Msg("command posted")
	}
	return nil
}
