// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

// Package access implements the permission generators for repository
// records. A generator is a stateless predicate: it reports the needs
// that would grant an actor access to a record, and the filter clause
// restricting which records the actor may see in search.
//
// Generators are constructed once at policy-table load time and are
// safe for unsynchronized concurrent use.
package access

import (
	"github.com/nyudlts/ultraviolet-access/internal/identity"
	"github.com/nyudlts/ultraviolet-access/internal/record"
	"github.com/nyudlts/ultraviolet-access/internal/search"
)

// Generator is one permission rule. The host grants access when any
// generator in an action's list is satisfied, i.e. when the needs it
// returns intersect the identity's provides-set.
type Generator interface {
	// Needs returns the needs that grant access to rec. A nil rec means
	// the operation has no record yet (a create). An empty result means
	// this generator cannot grant access to rec.
	Needs(rec *record.Record) []identity.Need

	// QueryFilter returns the search visibility this generator
	// contributes for the identity. The empty clause contributes
	// nothing; it never narrows what other generators grant.
	QueryFilter(id identity.Identity) search.Clause
}

// noFilter is embedded by generators that do not affect search
// visibility on their own.
type noFilter struct{}

func (noFilter) QueryFilter(identity.Identity) search.Clause { return search.Clause{} }

// AnyUser grants access to everyone, authenticated or not.
type AnyUser struct{}

// Needs implements Generator.
func (AnyUser) Needs(*record.Record) []identity.Need {
	return []identity.Need{identity.AnyUser}
}

// QueryFilter implements Generator. Everyone sees everything this rule
// covers.
func (AnyUser) QueryFilter(identity.Identity) search.Clause {
	return search.MatchAll()
}

// AuthenticatedUser grants access to any logged-in user.
type AuthenticatedUser struct {
	noFilter
}

// Needs implements Generator.
func (AuthenticatedUser) Needs(*record.Record) []identity.Need {
	return []identity.Need{identity.AuthenticatedUser}
}

// SystemProcess grants access to internal processes.
type SystemProcess struct{}

// Needs implements Generator.
func (SystemProcess) Needs(*record.Record) []identity.Need {
	return []identity.Need{identity.SystemProcess}
}

// QueryFilter implements Generator.
func (SystemProcess) QueryFilter(id identity.Identity) search.Clause {
	if id.Provides(identity.SystemProcess) {
		return search.MatchAll()
	}
	return search.Clause{}
}

// Disable is the sentinel for deliberately disabled actions: records
// and files are updated through the draft workflow, so the direct
// actions must never be satisfied. This is a permanent denial, not a
// transient failure.
type Disable struct{}

// Needs implements Generator. Never returns a grantable need.
func (Disable) Needs(*record.Record) []identity.Need { return nil }

// QueryFilter implements Generator.
func (Disable) QueryFilter(identity.Identity) search.Clause {
	return search.MatchNone()
}

// AdminSuperUser grants access to administrators holding the superuser
// need.
type AdminSuperUser struct{}

// Needs implements Generator.
func (AdminSuperUser) Needs(*record.Record) []identity.Need {
	return []identity.Need{identity.SuperuserAccess}
}

// QueryFilter implements Generator. Superusers see everything; for
// anyone else this generator contributes no visibility.
func (AdminSuperUser) QueryFilter(id identity.Identity) search.Clause {
	if id.Provides(identity.SuperuserAccess) {
		return search.MatchAll()
	}
	return search.Clause{}
}

// RecordOwners grants access to the owners listed in the record's
// parent access block.
type RecordOwners struct{}

// Needs implements Generator.
func (RecordOwners) Needs(rec *record.Record) []identity.Need {
	if rec == nil || rec.Parent == nil {
		return nil
	}
	owners := rec.Parent.Access.OwnedBy
	needs := make([]identity.Need, 0, len(owners))
	for _, o := range owners {
		if o.User == "" {
			continue
		}
		needs = append(needs, identity.UserNeed(o.User))
	}
	return needs
}

// QueryFilter implements Generator. Owners see their own records.
func (RecordOwners) QueryFilter(id identity.Identity) search.Clause {
	userID := id.UserID()
	if userID == "" {
		return search.Clause{}
	}
	return search.Term("parent.access.owned_by.user", userID)
}

// CommunityAction grants access through community membership: each
// community the record belongs to contributes a community-scoped role
// need for the generator's action.
type CommunityAction struct {
	noFilter
	Action string
}

// Needs implements Generator.
func (g CommunityAction) Needs(rec *record.Record) []identity.Need {
	if rec == nil || rec.Parent == nil {
		return nil
	}
	ids := rec.Parent.Communities.IDs
	needs := make([]identity.Need, 0, len(ids))
	for _, community := range ids {
		if community == "" {
			continue
		}
		needs = append(needs, identity.CommunityNeed{Community: community, Role: g.Action})
	}
	return needs
}
