// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package access

import (
	"log/slog"
	"strings"

	"github.com/nyudlts/ultraviolet-access/internal/identity"
	"github.com/nyudlts/ultraviolet-access/internal/record"
	"github.com/nyudlts/ultraviolet-access/internal/search"
)

// Role classes recognized in record metadata. Role names are free text
// by convention, not an enumerated field, so these are match targets
// rather than an exhaustive type.
const (
	RoleDepositor          = "depositor"
	RoleViewer             = "viewer"
	RoleRestrictedDataUser = "restricted_data_user"
	RolePublicViewer       = "public_viewer"
	RoleCurator            = "curator"
)

// stripMarkup removes the paragraph tags the rich-text editor wraps
// around description values. All occurrences are removed; descriptions
// with multiple paragraphs collapse to their concatenated text.
func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "<p>", "")
	return strings.ReplaceAll(s, "</p>", "")
}

// ExtractRoles returns the role names embedded in the record's
// descriptive metadata that match the target class. Entries are scanned
// in stored order; matches are returned case-folded and are not
// de-duplicated. The match is case-insensitive on the stored text; the
// class must already be lower-case.
//
// A missing metadata block yields no roles. Malformed entries are
// skipped: an unparseable description must not block the rest of the
// permission check.
func ExtractRoles(rec *record.Record, class string) []string {
	if rec == nil {
		return nil
	}
	var roles []string
	for i, desc := range rec.Metadata.AdditionalDescriptions {
		if desc.Type.ID != record.TechnicalInfoType {
			continue
		}
		if desc.Description == "" {
			slog.Debug("skipping technical-info entry without description",
				"record", rec.ID,
				"index", i)
			continue
		}
		role := strings.ToLower(stripMarkup(desc.Description))
		if role == class {
			roles = append(roles, role)
		}
	}
	return roles
}

// roleNeeds converts extracted role names into needs. Zero roles means
// no grant from this generator.
func roleNeeds(rec *record.Record, class string) []identity.Need {
	roles := ExtractRoles(rec, class)
	if len(roles) == 0 {
		return nil
	}
	needs := make([]identity.Need, 0, len(roles))
	for _, role := range roles {
		needs = append(needs, identity.RoleNeed(role))
	}
	return needs
}

// Depositor grants access to holders of a depositor role named in the
// record metadata.
type Depositor struct {
	noFilter
}

// Needs implements Generator.
func (Depositor) Needs(rec *record.Record) []identity.Need {
	return roleNeeds(rec, RoleDepositor)
}

// Viewer grants access to holders of a viewer role, used for files
// restricted to the institution.
type Viewer struct {
	noFilter
}

// Needs implements Generator.
func (Viewer) Needs(rec *record.Record) []identity.Need {
	return roleNeeds(rec, RoleViewer)
}

// RestrictedDataUser grants access to users who agreed to the terms of
// data use. Curators verify the condition outside the repository and
// assign the role.
type RestrictedDataUser struct {
	noFilter
}

// Needs implements Generator.
func (RestrictedDataUser) Needs(rec *record.Record) []identity.Need {
	return roleNeeds(rec, RoleRestrictedDataUser)
}

// PublicViewer grants access to holders of a public-viewer role for
// open files.
type PublicViewer struct {
	noFilter
}

// Needs implements Generator.
func (PublicViewer) Needs(rec *record.Record) []identity.Need {
	return roleNeeds(rec, RolePublicViewer)
}

// Curator grants access to holders of a curator role.
type Curator struct {
	noFilter
}

// Needs implements Generator.
func (Curator) Needs(rec *record.Record) []identity.Need {
	return roleNeeds(rec, RoleCurator)
}

// ProprietaryRecordPermissions grants access to records restricted to a
// specific audience. The required role is read from the first
// technical-info description entry; any string is accepted as a role
// name and case is preserved. The record data model has no role slot in
// its access block, so the role rides in additional_descriptions until
// the schema grows a first-class field.
//
// Records guarded this way are still visible in search to everyone;
// read access is gated through Needs at fetch time.
type ProprietaryRecordPermissions struct{}

// Needs implements Generator. A nil record means a create, which any
// authenticated user may do.
func (ProprietaryRecordPermissions) Needs(rec *record.Record) []identity.Need {
	if rec == nil {
		return []identity.Need{identity.AuthenticatedUser}
	}
	for _, desc := range rec.Metadata.AdditionalDescriptions {
		if desc.Type.ID != record.TechnicalInfoType || desc.Description == "" {
			continue
		}
		return []identity.Need{identity.RoleNeed(stripMarkup(desc.Description))}
	}
	return nil
}

// QueryFilter implements Generator. Uniform visibility regardless of
// access.
func (ProprietaryRecordPermissions) QueryFilter(identity.Identity) search.Clause {
	return search.MatchAll()
}
