// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package policy

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nyudlts/ultraviolet-access/internal/access"
	"github.com/nyudlts/ultraviolet-access/internal/identity"
	"github.com/nyudlts/ultraviolet-access/internal/record"
	"github.com/nyudlts/ultraviolet-access/internal/search"
)

// Effect is the outcome of evaluating an action for an identity.
type Effect int

// Effect constants.
const (
	EffectDeny Effect = iota // deny
	EffectAllow
	EffectUnknownAction
)

var effectStrings = [...]string{
	"deny",
	"allow",
	"unknown_action",
}

func (e Effect) String() string {
	if e >= 0 && int(e) < len(effectStrings) {
		return effectStrings[e]
	}
	return fmt.Sprintf("unknown(%d)", int(e))
}

// Decision reports the outcome of one permission check.
type Decision struct {
	Policy    string `json:"policy"`
	Action    string `json:"action"`
	Allowed   bool   `json:"allowed"`
	Effect    Effect `json:"-"`
	Reason    string `json:"reason"`
	GrantedBy string `json:"granted_by,omitempty"`
}

// Evaluate checks whether the identity may perform the action on the
// record under this policy. Generators are queried independently in
// list order; the first satisfied generator decides. A nil record means
// a create-style operation.
//
// One generator's failure must not block the others: a panicking
// generator is logged and treated as not granting.
func (p *Policy) Evaluate(action string, rec *record.Record, id identity.Identity) Decision {
	start := time.Now()

	gens, err := p.Generators(action)
	if err != nil {
		d := Decision{
			Policy: p.name,
			Action: action,
			Effect: EffectUnknownAction,
			Reason: "unknown action",
		}
		observeEvaluation(p.name, action, d.Effect, time.Since(start))
		return d
	}

	for _, gen := range gens {
		needs := safeNeeds(p.name, action, gen, rec)
		if len(needs) == 0 {
			continue
		}
		if id.ProvidesAny(needs) {
			d := Decision{
				Policy:    p.name,
				Action:    action,
				Allowed:   true,
				Effect:    EffectAllow,
				Reason:    "generator satisfied",
				GrantedBy: generatorName(gen),
			}
			observeEvaluation(p.name, action, d.Effect, time.Since(start))
			return d
		}
	}

	d := Decision{
		Policy: p.name,
		Action: action,
		Effect: EffectDeny,
		Reason: "no generator satisfied",
	}
	observeEvaluation(p.name, action, d.Effect, time.Since(start))
	return d
}

// Allows is Evaluate without the explanation.
func (p *Policy) Allows(action string, rec *record.Record, id identity.Identity) bool {
	return p.Evaluate(action, rec, id).Allowed
}

// QueryFilter OR-combines the search clauses of the action's generators
// for the identity: any generator may widen visibility, none may narrow
// it. Unknown actions and actions where nothing contributes yield
// match-none.
func (p *Policy) QueryFilter(action string, id identity.Identity) search.Clause {
	gens, err := p.Generators(action)
	if err != nil {
		return search.MatchNone()
	}
	clauses := make([]search.Clause, 0, len(gens))
	for _, gen := range gens {
		clauses = append(clauses, safeQueryFilter(p.name, action, gen, id))
	}
	return search.AnyOf(clauses...)
}

// safeNeeds queries one generator's needs, isolating panics.
func safeNeeds(policy, action string, gen access.Generator, rec *record.Record) (needs []identity.Need) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("permission generator panicked, treating as no grant",
				"policy", policy,
				"action", action,
				"generator", generatorName(gen),
				"panic", r)
			needs = nil
		}
	}()
	return gen.Needs(rec)
}

// safeQueryFilter queries one generator's filter clause, isolating
// panics. A panicking generator contributes match-none, never match-all.
func safeQueryFilter(policy, action string, gen access.Generator, id identity.Identity) (clause search.Clause) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("permission generator panicked in query filter",
				"policy", policy,
				"action", action,
				"generator", generatorName(gen),
				"panic", r)
			clause = search.MatchNone()
		}
	}()
	return gen.QueryFilter(id)
}

// generatorName returns the generator's type name for logs and
// decisions.
func generatorName(gen access.Generator) string {
	return fmt.Sprintf("%T", gen)
}
