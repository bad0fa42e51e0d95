// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

// Package record models the subset of the repository record schema the
// permission layer reads: descriptive metadata, per-field access flags,
// and parent-level ownership and share links. Records are owned by the
// persistence layer and treated as read-only here.
package record

import (
	"encoding/json"

	"github.com/samber/oops"
)

// Restriction states for the per-field access flags.
const (
	StatusRestricted = "restricted"
	StatusOpen       = "open"
)

// Access fields the policies dispatch on.
const (
	FieldRecord = "record"
	FieldFiles  = "files"
)

// TechnicalInfoType is the description type id that marks an entry as a
// role carrier. Role names are smuggled into this free-text field by
// convention; see ExtractRoles in the access package.
const TechnicalInfoType = "technical-info"

// Record is a repository record or draft.
type Record struct {
	ID       string            `json:"id,omitempty"`
	Metadata Metadata          `json:"metadata"`
	Access   map[string]string `json:"access,omitempty"`
	Parent   *Parent           `json:"parent,omitempty"`
}

// Metadata holds the descriptive metadata the permission layer inspects.
type Metadata struct {
	AdditionalDescriptions []Description `json:"additional_descriptions,omitempty"`
}

// Description is one additional_descriptions entry.
type Description struct {
	Type        DescriptionType `json:"type"`
	Description string          `json:"description"`
}

// DescriptionType carries the controlled-vocabulary id of a description.
type DescriptionType struct {
	ID string `json:"id"`
}

// Parent holds record-family data shared by all versions of a record.
type Parent struct {
	Access      ParentAccess `json:"access"`
	Communities Communities  `json:"communities,omitempty"`
}

// ParentAccess lists owners and share links.
type ParentAccess struct {
	OwnedBy []Owner `json:"owned_by,omitempty"`
	Links   []Link  `json:"links,omitempty"`
}

// Owner identifies one record owner.
type Owner struct {
	User string `json:"user"`
}

// Link is a secret share link granting a permission level on the record.
type Link struct {
	ID         string `json:"id"`
	Permission string `json:"permission"`
}

// Communities lists the communities a record belongs to.
type Communities struct {
	IDs []string `json:"ids,omitempty"`
}

// Restriction returns the restriction state of an access field. A
// missing access map or field defaults to restricted: an unspecified
// flag never widens access.
func (r *Record) Restriction(field string) string {
	if r == nil || r.Access == nil {
		return StatusRestricted
	}
	state, ok := r.Access[field]
	if !ok || state == "" {
		return StatusRestricted
	}
	return state
}

// Decode parses a JSON record document. Unknown fields are tolerated;
// the permission layer only reads the subset modeled here.
func Decode(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, oops.In("record").
			Code("INVALID_RECORD").
			Errorf("record document is empty")
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, oops.In("record").
			Code("INVALID_RECORD").
			Wrapf(err, "invalid record JSON")
	}
	return &r, nil
}
