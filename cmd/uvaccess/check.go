// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package main

import (
	"encoding/json"
	"os"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/nyudlts/ultraviolet-access/internal/access/policy"
	"github.com/nyudlts/ultraviolet-access/internal/identity"
	"github.com/nyudlts/ultraviolet-access/internal/record"
)

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	var (
		policyName string
		recordPath string
		provides   []string
	)

	cmd := &cobra.Command{
		Use:   "check [action-pattern...]",
		Short: "Evaluate record permissions for an identity",
		Long: `Evaluate one or more actions against a record document and a set
of identity claims. Action arguments may be glob patterns ("draft_*");
with no arguments every action of the policy is evaluated.

The record file may be JSON or YAML; omit --record for create-style
actions that have no record yet.`,
		Example: `  uvaccess check read read_files --policy nyu-record --record rec.json --provide role:Viewer
  uvaccess check 'draft_*' --policy data-use-record --record rec.yaml --provide authenticated-user`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pol, err := policy.ByName(policyName)
			if err != nil {
				return err
			}

			var rec *record.Record
			if recordPath != "" {
				data, err := os.ReadFile(recordPath)
				if err != nil {
					return oops.In("cli").With("path", recordPath).Wrapf(err, "read record file")
				}
				rec, err = record.DecodeLoose(data)
				if err != nil {
					return err
				}
			}

			id, err := parseIdentity(provides)
			if err != nil {
				return err
			}

			actions, err := expandActions(pol, args)
			if err != nil {
				return err
			}

			decisions := make([]policy.Decision, 0, len(actions))
			for _, action := range actions {
				decisions = append(decisions, pol.Evaluate(action, rec, id))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(decisions)
		},
	}

	cmd.Flags().StringVar(&policyName, "policy", "ultraviolet", "policy profile to evaluate")
	cmd.Flags().StringVar(&recordPath, "record", "", "record document (JSON or YAML)")
	cmd.Flags().StringArrayVar(&provides, "provide", nil,
		"identity claim (repeatable): any-user, authenticated-user, superuser-access, system-process, role:<name>, user:<id>, link:<id>, community:<id>:<role>")

	return cmd
}

// parseIdentity builds an identity from claim strings.
func parseIdentity(provides []string) (identity.Identity, error) {
	needs := make([]identity.Need, 0, len(provides))
	for _, p := range provides {
		n, err := identity.ParseNeed(p)
		if err != nil {
			return identity.Identity{}, err
		}
		needs = append(needs, n)
	}
	return identity.New(needs...), nil
}

// expandActions matches action-name patterns against the policy's
// action table. No patterns means every action, in sorted order.
func expandActions(pol *policy.Policy, patterns []string) ([]string, error) {
	all := pol.Actions()
	if len(patterns) == 0 {
		return all, nil
	}

	var actions []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, oops.In("cli").
				Code("INVALID_PATTERN").
				With("pattern", pattern).
				Wrapf(err, "invalid action pattern")
		}
		matched := false
		for _, action := range all {
			if g.Match(action) {
				matched = true
				if !seen[action] {
					seen[action] = true
					actions = append(actions, action)
				}
			}
		}
		if !matched {
			return nil, oops.In("cli").
				Code("UNKNOWN_ACTION").
				With("pattern", pattern).
				With("policy", pol.Name()).
				Errorf("pattern %q matches no action of policy %s", pattern, pol.Name())
		}
	}
	return actions, nil
}
