// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

// Package search models the abstract boolean filter clauses permission
// generators contribute to search-index queries. The search collaborator
// owns query execution; this package only builds and renders clauses.
package search

import (
	"encoding/json"
	"fmt"
)

type kind int

const (
	kindEmpty kind = iota // no contribution to visibility
	kindMatchAll
	kindMatchNone
	kindTerm
	kindAnyOf
)

var kindStrings = [...]string{
	"empty",
	"match_all",
	"match_none",
	"term",
	"any_of",
}

func (k kind) String() string {
	if k >= 0 && int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Clause is one boolean filter in the index's query language. The zero
// value is the empty clause: the generator contributes nothing to
// visibility, which the host treats as non-contribution rather than
// universal grant.
type Clause struct {
	kind   kind
	field  string
	value  string
	should []Clause
}

// MatchAll returns the clause granting visibility of every record.
func MatchAll() Clause { return Clause{kind: kindMatchAll} }

// MatchNone returns the clause granting visibility of no record.
func MatchNone() Clause { return Clause{kind: kindMatchNone} }

// Term returns an exact-value filter on a single indexed field.
func Term(field, value string) Clause {
	return Clause{kind: kindTerm, field: field, value: value}
}

// IsEmpty reports whether the clause contributes nothing.
func (c Clause) IsEmpty() bool { return c.kind == kindEmpty }

// IsMatchAll reports whether the clause grants universal visibility.
func (c Clause) IsMatchAll() bool { return c.kind == kindMatchAll }

// IsMatchNone reports whether the clause grants no visibility.
func (c Clause) IsMatchNone() bool { return c.kind == kindMatchNone }

// AnyOf OR-combines clauses: any generator may widen visibility. Empty
// and match-none contributions are dropped; a match-all contribution
// short-circuits. If nothing contributes the result is match-none
// (fail-closed visibility).
func AnyOf(clauses ...Clause) Clause {
	shoulds := make([]Clause, 0, len(clauses))
	for _, c := range clauses {
		switch c.kind {
		case kindMatchAll:
			return MatchAll()
		case kindEmpty, kindMatchNone:
			continue
		case kindAnyOf:
			shoulds = append(shoulds, c.should...)
		default:
			shoulds = append(shoulds, c)
		}
	}
	switch len(shoulds) {
	case 0:
		return MatchNone()
	case 1:
		return shoulds[0]
	default:
		return Clause{kind: kindAnyOf, should: shoulds}
	}
}

// MarshalJSON renders the clause in Elasticsearch query DSL form.
// The empty clause renders as null.
func (c Clause) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case kindEmpty:
		return []byte("null"), nil
	case kindMatchAll:
		return []byte(`{"match_all":{}}`), nil
	case kindMatchNone:
		return []byte(`{"match_none":{}}`), nil
	case kindTerm:
		return json.Marshal(map[string]map[string]string{
			"term": {c.field: c.value},
		})
	case kindAnyOf:
		return json.Marshal(map[string]map[string][]Clause{
			"bool": {"should": c.should},
		})
	default:
		return nil, fmt.Errorf("search: cannot marshal clause kind %s", c.kind)
	}
}

// String returns a compact description for logs.
func (c Clause) String() string {
	switch c.kind {
	case kindTerm:
		return fmt.Sprintf("term(%s=%s)", c.field, c.value)
	case kindAnyOf:
		return fmt.Sprintf("any_of(%d)", len(c.should))
	default:
		return c.kind.String()
	}
}
