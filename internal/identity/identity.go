// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package identity

import (
	"sort"
)

// Identity is the resolved set of needs an actor provides. Immutable
// after construction and safe for concurrent reads.
type Identity struct {
	provides map[Need]struct{}
}

// New creates an identity providing exactly the given needs.
func New(needs ...Need) Identity {
	provides := make(map[Need]struct{}, len(needs))
	for _, n := range needs {
		if n == nil {
			continue
		}
		provides[n] = struct{}{}
	}
	return Identity{provides: provides}
}

// Anonymous returns the identity of an unauthenticated visitor.
func Anonymous() Identity {
	return New(AnyUser)
}

// Authenticated returns the identity of a logged-in user, optionally
// carrying additional needs resolved by the host (roles, links).
func Authenticated(userID string, extra ...Need) Identity {
	needs := make([]Need, 0, len(extra)+3)
	needs = append(needs, AnyUser, AuthenticatedUser, UserNeed(userID))
	needs = append(needs, extra...)
	return New(needs...)
}

// System returns the identity used by internal processes.
func System() Identity {
	return New(AnyUser, AuthenticatedUser, SystemProcess)
}

// Provides reports whether the identity carries the given need.
func (id Identity) Provides(n Need) bool {
	_, ok := id.provides[n]
	return ok
}

// ProvidesAny reports whether the identity carries at least one of the
// given needs. This is the host grant rule: a generator is satisfied
// when its required needs intersect the identity's provides-set.
func (id Identity) ProvidesAny(needs []Need) bool {
	for _, n := range needs {
		if n == nil {
			continue
		}
		if _, ok := id.provides[n]; ok {
			return true
		}
	}
	return false
}

// UserID returns the user need carried by the identity, or "" if the
// identity is not tied to a user.
func (id Identity) UserID() string {
	for n := range id.provides {
		if u, ok := n.(UserNeed); ok {
			return string(u)
		}
	}
	return ""
}

// Needs returns the provides-set in deterministic order.
func (id Identity) Needs() []Need {
	out := make([]Need, 0, len(id.provides))
	for n := range id.provides {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
