// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the uvaccess CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uvaccess",
		Short: "UltraViolet record access policies",
		Long: `uvaccess evaluates UltraViolet record permission policies:
which actor may perform which action on a record or draft, and the
search filter clauses consistent with those permissions.`,
		SilenceUsage: true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewFilterCmd())
	cmd.AddCommand(NewServeCmd())

	return cmd
}
