// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package access

import (
	"github.com/samber/oops"

	"github.com/nyudlts/ultraviolet-access/internal/identity"
	"github.com/nyudlts/ultraviolet-access/internal/record"
	"github.com/nyudlts/ultraviolet-access/internal/search"
)

// IfRestricted dispatches on a record's restriction flag for one access
// field: when the field is restricted the then-branch applies,
// otherwise the else-branch. A missing flag counts as restricted, so an
// unspecified field never widens access.
//
// Every generator in the chosen branch is consulted and their needs are
// unioned, matching the any-satisfies semantics of flat action rules.
type IfRestricted struct {
	field string
	then  []Generator
	els   []Generator
}

// NewIfRestricted builds the conditional. Both branches must have at
// least one generator.
func NewIfRestricted(field string, then, els []Generator) (*IfRestricted, error) {
	if field == "" {
		return nil, oops.In("access").
			Code("INVALID_CONFIG").
			Errorf("IfRestricted requires an access field name")
	}
	if len(then) == 0 || len(els) == 0 {
		return nil, oops.In("access").
			Code("INVALID_CONFIG").
			With("field", field).
			Errorf("IfRestricted requires non-empty then and else branches")
	}
	return &IfRestricted{field: field, then: then, els: els}, nil
}

// MustIfRestricted is NewIfRestricted for static policy tables, where a
// bad branch is a code bug that should fail fast.
func MustIfRestricted(field string, then, els []Generator) *IfRestricted {
	g, err := NewIfRestricted(field, then, els)
	if err != nil {
		panic("access: invalid IfRestricted in static policy: " + err.Error())
	}
	return g
}

// Needs implements Generator. A nil record yields no grant: the
// conditional is only composed into read-style actions, where a record
// always exists.
func (g *IfRestricted) Needs(rec *record.Record) []identity.Need {
	if rec == nil {
		return nil
	}
	branch := g.els
	if rec.Restriction(g.field) == record.StatusRestricted {
		branch = g.then
	}
	var needs []identity.Need
	for _, gen := range branch {
		needs = append(needs, gen.Needs(rec)...)
	}
	return needs
}

// QueryFilter implements Generator. A permissive placeholder: search
// visibility is not narrowed per field, so restricted records still
// show up in results while reads stay gated through Needs.
func (g *IfRestricted) QueryFilter(identity.Identity) search.Clause {
	return search.MatchAll()
}
