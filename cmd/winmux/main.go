// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/winmux/main.go
// Summary: CLI entry point and root command for the winmux control client.

package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/framegrace/winmux/client"
)

var flagSocket string

var rootCmd = &cobra.Command{
	Use:           "winmux",
	Short:         "Control client for the winmux session daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", defaultSocket(), "daemon control socket")
}

func defaultSocket() string {
	if s := os.Getenv("WINMUX_SOCKET"); s != "" {
		return s
	}
	return "/tmp/winmux.sock"
}

// dial connects to the daemon and hands the client to fn, closing on
// return. Every subcommand body runs through here.
func dial(fn func(c *client.Client) error) error {
	c, err := client.Dial(flagSocket, uuid.Nil)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
