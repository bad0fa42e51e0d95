// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

// Package identity defines the claim ("need") vocabulary used by record
// permission generators and the identities they are checked against.
//
// Needs are small comparable value types so they can be collected into
// sets and intersected without allocation-heavy machinery. The host
// application resolves which needs an identity provides; this package
// only defines the tokens and the provides-set container.
package identity

import (
	"strings"

	"github.com/samber/oops"
)

// Need is a grantable capability token. Implementations are comparable
// value types; equality is the only operation permission checks rely on.
type Need interface {
	isNeed()
	String() string
}

// ActionNeed is a system-level capability such as "any-user" or
// "superuser-access".
type ActionNeed string

// System-level needs.
const (
	AnyUser           ActionNeed = "any-user"
	AuthenticatedUser ActionNeed = "authenticated-user"
	SuperuserAccess   ActionNeed = "superuser-access"
	SystemProcess     ActionNeed = "system-process"
)

func (ActionNeed) isNeed() {}

func (n ActionNeed) String() string { return string(n) }

// RoleNeed names a role the identity must hold. Role names come from
// record metadata by convention and are matched by string equality.
type RoleNeed string

func (RoleNeed) isNeed() {}

func (n RoleNeed) String() string { return "role:" + string(n) }

// UserNeed identifies a specific user, used for record-owner grants.
type UserNeed string

func (UserNeed) isNeed() {}

func (n UserNeed) String() string { return "user:" + string(n) }

// LinkNeed identifies a secret share link. An identity acquires a
// LinkNeed by presenting a valid signed link token.
type LinkNeed string

func (LinkNeed) isNeed() {}

func (n LinkNeed) String() string { return "link:" + string(n) }

// CommunityNeed grants a role scoped to a community a record belongs to.
type CommunityNeed struct {
	Community string
	Role      string
}

func (CommunityNeed) isNeed() {}

func (n CommunityNeed) String() string {
	return "community:" + n.Community + ":" + n.Role
}

// ParseNeed converts the wire form produced by String back into a Need.
// Recognized forms: the four system needs, "role:<name>", "user:<id>",
// "link:<id>", and "community:<id>:<role>".
func ParseNeed(s string) (Need, error) {
	switch ActionNeed(s) {
	case AnyUser, AuthenticatedUser, SuperuserAccess, SystemProcess:
		return ActionNeed(s), nil
	}

	prefix, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return nil, oops.In("identity").
			Code("UNKNOWN_NEED").
			With("need", s).
			Errorf("unrecognized need %q", s)
	}

	switch prefix {
	case "role":
		return RoleNeed(rest), nil
	case "user":
		return UserNeed(rest), nil
	case "link":
		return LinkNeed(rest), nil
	case "community":
		community, role, ok := strings.Cut(rest, ":")
		if !ok || community == "" || role == "" {
			return nil, oops.In("identity").
				Code("UNKNOWN_NEED").
				With("need", s).
				Errorf("community need %q must be community:<id>:<role>", s)
		}
		return CommunityNeed{Community: community, Role: role}, nil
	default:
		return nil, oops.In("identity").
			Code("UNKNOWN_NEED").
			With("need", s).
			Errorf("unrecognized need %q", s)
	}
}
