// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/winmux/sessions.go
// Summary: Session lifecycle subcommands.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/framegrace/winmux/client"
	"github.com/framegrace/winmux/protocol"
)

var newSessionCmd = &cobra.Command{
	Use:   "new-session <name>",
	Short: "Create a session with its initial workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			_, err := c.Run(protocol.Command{Verb: protocol.CmdNewSession, Session: args[0]})
			return err
		})
	},
}

var killSessionCmd = &cobra.Command{
	Use:   "kill-session <name>",
	Short: "Destroy a session and close all its windows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			_, err := c.Run(protocol.Command{Verb: protocol.CmdKillSession, Session: args[0]})
			return err
		})
	},
}

var listSessionsCmd = &cobra.Command{
	Use:   "list-sessions",
	Short: "List sessions with workspace and pane counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			resp, err := c.Run(protocol.Command{Verb: protocol.CmdListSessions})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tWINDOWS\tPANES\tCLIENTS\tACTIVE\tCREATED")
			for _, s := range resp.Sessions {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
					s.Name, s.Workspaces, s.Panes, s.AttachedClients,
					s.ActiveWorkspace, s.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		})
	},
}

var attachCmd = &cobra.Command{
	Use:   "attach-session <name>",
	Short: "Attach to a session and stream its state changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dial(func(c *client.Client) error {
			if _, err := c.Run(protocol.Command{Verb: protocol.CmdAttach, Session: args[0]}); err != nil {
				return err
			}
			// Stay attached, printing pushed notifications, until the
			// daemon goes away or the user interrupts.
			for {
				n, err := c.Next()
				if err != nil {
					return err
				}
				printNotification(n)
			}
		})
	},
}

var detachCmd = &cobra.Command{
	Use:   "detach-client <client-id>",
	Short: "Detach a client from its session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("bad client id %q: %w", args[0], err)
		}
		c, err := client.Dial(flagSocket, id)
		if err != nil {
			return err
		}
		defer c.Close()
		_, err = c.Run(protocol.Command{Verb: protocol.CmdDetach})
		return err
	},
}

func printNotification(n protocol.Notification) {
	switch n.Kind {
	case protocol.NotifyFullState:
		for _, s := range n.Sessions {
			for _, ws := range s.Workspaces {
				marker := " "
				if ws.Active {
					marker = "*"
				}
				fmt.Printf("%s %s:%s (%d panes)\n", marker, s.Name, ws.Name, len(ws.Panes))
			}
		}
	case protocol.NotifyLayoutChanged:
		fmt.Printf("layout %s:%s (%d panes)\n", n.Session, n.Workspace, len(n.Geometries))
	case protocol.NotifySessionDestroyed:
		fmt.Printf("session %s destroyed\n", n.Session)
	case protocol.NotifyPaneBound:
		fmt.Printf("pane %s bound to %s (%s)\n", n.Pane, n.Handle, n.Class)
	case protocol.NotifyFocusChanged:
		fmt.Printf("focus %s:%s pane %s\n", n.Session, n.Workspace, n.Pane)
	}
}

func init() {
	rootCmd.AddCommand(newSessionCmd, killSessionCmd, listSessionsCmd, attachCmd, detachCmd)
}
