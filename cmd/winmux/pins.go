// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/winmux/pins.go
// Summary: Pin subcommands mapping short names to workspaces.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/framegrace/winmux/client"
	"github.com/framegrace/winmux/protocol"
)

var setPinCmd = &cobra.Command{
	Use:   "set-pin <name>",
	Short: "Pin a name to a session workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			_, err := c.Run(protocol.Command{
				Verb:      protocol.CmdSetPin,
				Pin:       args[0],
				Session:   flagSession,
				Workspace: flagWorkspace,
			})
			return err
		})
	},
}

var focusPinCmd = &cobra.Command{
	Use:   "focus-pin <name>",
	Short: "Jump to the workspace a pin points at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			_, err := c.Run(protocol.Command{Verb: protocol.CmdFocusPin, Pin: args[0]})
			return err
		})
	},
}

var listPinsCmd = &cobra.Command{
	Use:   "list-pins",
	Short: "List configured pins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			resp, err := c.Run(protocol.Command{Verb: protocol.CmdListPins})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSESSION\tWINDOW")
			for _, p := range resp.Pins {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Session, p.Workspace)
			}
			return w.Flush()
		})
	},
}

func init() {
	setPinCmd.Flags().StringVarP(&flagSession, "session", "s", "", "target session")
	setPinCmd.Flags().StringVarP(&flagWorkspace, "window", "w", "", "target workspace")
	rootCmd.AddCommand(setPinCmd, focusPinCmd, listPinsCmd)
}
