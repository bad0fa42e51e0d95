// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package access

import (
	"github.com/nyudlts/ultraviolet-access/internal/identity"
	"github.com/nyudlts/ultraviolet-access/internal/record"
	"github.com/nyudlts/ultraviolet-access/internal/secretlink"
)

// SecretLinks grants access through the record's share links. Each link
// on the record whose permission level covers the generator's level
// contributes that link's need; an identity acquires a link need by
// presenting a valid signed token (see the secretlink package).
type SecretLinks struct {
	noFilter
	Level secretlink.Level
}

// Needs implements Generator.
func (g SecretLinks) Needs(rec *record.Record) []identity.Need {
	if rec == nil || rec.Parent == nil {
		return nil
	}
	links := rec.Parent.Access.Links
	needs := make([]identity.Need, 0, len(links))
	for _, link := range links {
		if link.ID == "" {
			continue
		}
		if !secretlink.Level(link.Permission).Covers(g.Level) {
			continue
		}
		needs = append(needs, identity.LinkNeed(link.ID))
	}
	return needs
}
