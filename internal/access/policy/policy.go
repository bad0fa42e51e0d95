// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

// Package policy defines the per-deployment permission policies for
// repository records: static tables mapping action names to ordered
// generator lists, and the evaluation helpers that apply them.
//
// Tables are built once at startup and never mutated, so they are safe
// for unsynchronized concurrent reads.
package policy

import (
	"sort"

	"github.com/samber/oops"

	"github.com/nyudlts/ultraviolet-access/internal/access"
	"github.com/nyudlts/ultraviolet-access/internal/secretlink"
)

// Action names understood by the policies. The host's permission layer
// prefixes these with "can_"; the bare names are used here and on the
// wire.
const (
	ActionSearch           = "search"
	ActionRead             = "read"
	ActionReadFiles        = "read_files"
	ActionCreate           = "create"
	ActionSearchDrafts     = "search_drafts"
	ActionReadDraft        = "read_draft"
	ActionDraftReadFiles   = "draft_read_files"
	ActionUpdateDraft      = "update_draft"
	ActionDraftCreateFiles = "draft_create_files"
	ActionDraftUpdateFiles = "draft_update_files"
	ActionDraftDeleteFiles = "draft_delete_files"
	ActionPIDReserve       = "pid_reserve"
	ActionPIDDelete        = "pid_delete"
	ActionEdit             = "edit"
	ActionDeleteDraft      = "delete_draft"
	ActionNewVersion       = "new_version"
	ActionPublish          = "publish"
	ActionLiftEmbargo      = "lift_embargo"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionCreateFiles      = "create_files"
	ActionUpdateFiles      = "update_files"
	ActionDeleteFiles      = "delete_files"
)

// NeedLabelToAction maps host bucket/object permission labels to the
// record actions that govern them.
var NeedLabelToAction = map[string]string{
	"bucket-update": ActionUpdateFiles,
	"bucket-read":   ActionReadFiles,
	"object-read":   ActionReadFiles,
}

// Policy is an immutable mapping from action name to the ordered
// generator list that authorizes it. Access is granted when any
// generator in the list is satisfied.
type Policy struct {
	name    string
	actions map[string][]access.Generator
}

// Name returns the policy's deployment-profile name.
func (p *Policy) Name() string { return p.name }

// Generators returns the rule list for an action. Unknown actions are
// an error so misspelled callers fail closed and loudly.
func (p *Policy) Generators(action string) ([]access.Generator, error) {
	gens, ok := p.actions[action]
	if !ok {
		return nil, oops.In("policy").
			Code("UNKNOWN_ACTION").
			With("policy", p.name).
			With("action", action).
			Errorf("policy %s has no action %q", p.name, action)
	}
	return gens, nil
}

// Actions returns the action names the policy defines, sorted.
func (p *Policy) Actions() []string {
	out := make([]string, 0, len(p.actions))
	for a := range p.actions {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// compose merges generator lists into a fresh slice, preserving order.
func compose(groups ...[]access.Generator) []access.Generator {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	result := make([]access.Generator, 0, total)
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}

// disabled marks actions that must never be satisfied directly: records
// and files are updated through the draft workflow.
func disabled() []access.Generator {
	return []access.Generator{access.Disable{}}
}

// UltraViolet is the default policy. It extends the standard rules with
// proprietary-record grants and institution roles: depositors manage,
// curators curate, public viewers see open material, and records
// restricted to a special audience are readable through a role named in
// their metadata.
func UltraViolet() *Policy {
	canManage := []access.Generator{
		access.RecordOwners{},
		access.SystemProcess{},
		access.AdminSuperUser{},
		access.Depositor{},
	}
	canCurate := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelEdit},
		access.Curator{},
	})
	canPreview := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelPreview},
	})
	canView := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelView},
		access.ProprietaryRecordPermissions{},
		access.CommunityAction{Action: "view"},
	})
	canAuthenticated := []access.Generator{
		access.AuthenticatedUser{},
		access.SystemProcess{},
	}
	canAll := []access.Generator{
		access.AnyUser{},
		access.SystemProcess{},
		access.PublicViewer{},
	}

	return &Policy{
		name:    "ultraviolet",
		actions: standardActions(canManage, canCurate, canPreview, canView, canAuthenticated, canAll, canManage),
	}
}

// NYURecord is the policy for records restricted to the institution:
// viewers and depositors can see restricted material, depositors can
// also submit and search drafts.
func NYURecord() *Policy {
	canManage := []access.Generator{
		access.RecordOwners{},
		access.SystemProcess{},
		access.AdminSuperUser{},
	}
	canCurate := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelEdit},
		access.Curator{},
	})
	canPreview := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelPreview},
		access.Viewer{},
		access.Depositor{},
	})
	canView := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelView},
		access.Viewer{},
		access.Depositor{},
	})
	canAuthenticated := []access.Generator{
		access.AuthenticatedUser{},
		access.SystemProcess{},
	}
	canAll := []access.Generator{
		access.AnyUser{},
		access.SystemProcess{},
	}

	actions := standardActions(canManage, canCurate, canPreview, canView, canAuthenticated, canAll,
		compose(canAuthenticated, []access.Generator{access.Depositor{}}))
	actions[ActionSearchDrafts] = compose(canAuthenticated, []access.Generator{access.Depositor{}})

	return &Policy{name: "nyu-record", actions: actions}
}

// DataUseRecord is the policy for records gated on a data-use
// agreement: users who agreed to the terms hold the restricted-data
// role and can view and preview restricted material.
func DataUseRecord() *Policy {
	canManage := []access.Generator{
		access.RecordOwners{},
		access.SystemProcess{},
		access.AdminSuperUser{},
	}
	canCurate := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelEdit},
		access.Curator{},
	})
	canPreview := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelPreview},
		access.RestrictedDataUser{},
	})
	canView := compose(canManage, []access.Generator{
		access.SecretLinks{Level: secretlink.LevelView},
		access.RestrictedDataUser{},
	})
	canAuthenticated := []access.Generator{
		access.AuthenticatedUser{},
		access.SystemProcess{},
	}
	canAll := []access.Generator{
		access.AnyUser{},
		access.SystemProcess{},
	}

	return &Policy{
		name:    "data-use-record",
		actions: standardActions(canManage, canCurate, canPreview, canView, canAuthenticated, canAll, canAuthenticated),
	}
}

// standardActions builds the action table shared by all profiles from
// the profile's named groups. canCreate is split out because the
// profiles disagree on who may submit records.
func standardActions(canManage, canCurate, canPreview, canView, canAuthenticated, canAll, canCreate []access.Generator) map[string][]access.Generator {
	return map[string][]access.Generator{
		// Records
		ActionSearch:    canAll,
		ActionRead:      {access.MustIfRestricted("record", canView, canAll)},
		ActionReadFiles: {access.MustIfRestricted("files", canView, canAll)},
		ActionCreate:    canCreate,

		// Drafts
		ActionSearchDrafts:     canAuthenticated,
		ActionReadDraft:        canPreview,
		ActionDraftReadFiles:   canPreview,
		ActionUpdateDraft:      canCurate,
		ActionDraftCreateFiles: canCurate,
		ActionDraftUpdateFiles: canCurate,
		ActionDraftDeleteFiles: canCurate,

		// PIDs
		ActionPIDReserve: canCurate,
		ActionPIDDelete:  canCurate,

		// Draft lifecycle
		ActionEdit:        canCurate,
		ActionDeleteDraft: canCurate,
		ActionNewVersion:  canCurate,
		ActionPublish:     canCurate,
		ActionLiftEmbargo: canManage,

		// Disabled: updates and deletes route through drafts.
		ActionUpdate:      disabled(),
		ActionDelete:      disabled(),
		ActionCreateFiles: disabled(),
		ActionUpdateFiles: disabled(),
		ActionDeleteFiles: disabled(),
	}
}

// ByName returns the named policy table. Policies are rebuilt per call;
// callers hold one instance for the process lifetime.
func ByName(name string) (*Policy, error) {
	switch name {
	case "ultraviolet":
		return UltraViolet(), nil
	case "nyu-record":
		return NYURecord(), nil
	case "data-use-record":
		return DataUseRecord(), nil
	default:
		return nil, oops.In("policy").
			Code("UNKNOWN_POLICY").
			With("policy", name).
			Errorf("unknown policy %q", name)
	}
}

// Names lists the available policy profiles.
func Names() []string {
	return []string{"data-use-record", "nyu-record", "ultraviolet"}
}
