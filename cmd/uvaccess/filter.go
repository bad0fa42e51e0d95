// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/nyudlts/ultraviolet-access/internal/access/policy"
)

// NewFilterCmd creates the filter subcommand.
func NewFilterCmd() *cobra.Command {
	var (
		policyName string
		provides   []string
	)

	cmd := &cobra.Command{
		Use:   "filter <action>",
		Short: "Print the search filter clause for an action",
		Long: `Print the OR-combined search visibility clause the policy's
generators contribute for an identity, in the index's query DSL.`,
		Example: `  uvaccess filter search --policy nyu-record --provide superuser-access`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pol, err := policy.ByName(policyName)
			if err != nil {
				return err
			}
			id, err := parseIdentity(provides)
			if err != nil {
				return err
			}

			clause := pol.QueryFilter(args[0], id)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(clause)
		},
	}

	cmd.Flags().StringVar(&policyName, "policy", "ultraviolet", "policy profile to evaluate")
	cmd.Flags().StringArrayVar(&provides, "provide", nil, "identity claim (repeatable)")

	return cmd
}
