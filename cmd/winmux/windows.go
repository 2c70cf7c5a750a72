// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/winmux/windows.go
// Summary: Window and pane subcommands.

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/framegrace/winmux/client"
	"github.com/framegrace/winmux/protocol"
)

var (
	flagSession   string
	flagWorkspace string
	flagPane      string
	flagAxis      string
	flagRatio     float64
	flagSpawn     []string
)

var newWindowCmd = &cobra.Command{
	Use:   "new-window",
	Short: "Create a workspace in a session and make it active",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			resp, err := c.Run(protocol.Command{
				Verb:      protocol.CmdNewWindow,
				Session:   flagSession,
				Workspace: flagWorkspace,
			})
			if err != nil {
				return err
			}
			fmt.Println(resp.Workspace)
			return nil
		})
	},
}

var splitWindowCmd = &cobra.Command{
	Use:   "split-window",
	Short: "Split a pane, or seed the first pane of an empty workspace",
	Long: `Split a pane in two and wait for the new pane's window to appear.
With --pane the target pane is split along --axis; without it, the first
pane of the named workspace is created. --spawn launches a command
expected to produce the window.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			var pane uuid.UUID
			if flagPane != "" {
				var err error
				pane, err = uuid.Parse(flagPane)
				if err != nil {
					return fmt.Errorf("bad pane id %q: %w", flagPane, err)
				}
			}
			resp, err := c.Run(protocol.Command{
				Verb:      protocol.CmdSplitWindow,
				Session:   flagSession,
				Workspace: flagWorkspace,
				Pane:      pane,
				Axis:      flagAxis,
				Ratio:     flagRatio,
				Spawn:     flagSpawn,
			})
			if err != nil {
				return err
			}
			fmt.Println(resp.Pane)
			return nil
		})
	},
}

var killPaneCmd = &cobra.Command{
	Use:   "kill-pane <pane-id>",
	Short: "Remove a pane and close its window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pane, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("bad pane id %q: %w", args[0], err)
		}
		return dial(func(c *client.Client) error {
			_, err := c.Run(protocol.Command{Verb: protocol.CmdKillPane, Pane: pane})
			return err
		})
	},
}

var selectWindowCmd = &cobra.Command{
	Use:   "select-window",
	Short: "Switch a session's active workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			_, err := c.Run(protocol.Command{
				Verb:      protocol.CmdSelectWindow,
				Session:   flagSession,
				Workspace: flagWorkspace,
			})
			return err
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{newWindowCmd, splitWindowCmd, selectWindowCmd} {
		cmd.Flags().StringVarP(&flagSession, "session", "s", "", "target session")
		cmd.Flags().StringVarP(&flagWorkspace, "window", "w", "", "target workspace")
	}
	splitWindowCmd.Flags().StringVarP(&flagPane, "pane", "p", "", "pane to split")
	splitWindowCmd.Flags().StringVar(&flagAxis, "axis", "horizontal", "split axis: horizontal or vertical")
	splitWindowCmd.Flags().Float64Var(&flagRatio, "ratio", 0, "first child's share of the split (0 for even)")
	splitWindowCmd.Flags().StringSliceVar(&flagSpawn, "spawn", nil, "command expected to produce the new window")
	rootCmd.AddCommand(newWindowCmd, splitWindowCmd, killPaneCmd, selectWindowCmd)
}
