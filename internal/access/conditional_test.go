// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyudlts/ultraviolet-access/internal/access"
	"github.com/nyudlts/ultraviolet-access/internal/identity"
	"github.com/nyudlts/ultraviolet-access/internal/record"
	"github.com/nyudlts/ultraviolet-access/internal/search"
)

// stubGenerator returns fixed needs, for pinning delegation behavior.
type stubGenerator struct {
	need identity.Need
}

func (g stubGenerator) Needs(*record.Record) []identity.Need {
	return []identity.Need{g.need}
}

func (g stubGenerator) QueryFilter(identity.Identity) search.Clause {
	return search.Clause{}
}

func restrictedRecord(field, state string) *record.Record {
	return &record.Record{Access: map[string]string{field: state}}
}

func TestIfRestricted_Needs(t *testing.T) {
	then := stubGenerator{need: identity.RoleNeed("restricted-rule")}
	els := stubGenerator{need: identity.RoleNeed("open-rule")}

	gen, err := access.NewIfRestricted("record",
		[]access.Generator{then},
		[]access.Generator{els},
	)
	require.NoError(t, err)

	tests := []struct {
		name string
		rec  *record.Record
		want []identity.Need
	}{
		{
			name: "restricted delegates to then branch",
			rec:  restrictedRecord("record", record.StatusRestricted),
			want: []identity.Need{identity.RoleNeed("restricted-rule")},
		},
		{
			name: "open delegates to else branch",
			rec:  restrictedRecord("record", record.StatusOpen),
			want: []identity.Need{identity.RoleNeed("open-rule")},
		},
		{
			name: "missing field defaults to restricted",
			rec:  &record.Record{Access: map[string]string{}},
			want: []identity.Need{identity.RoleNeed("restricted-rule")},
		},
		{
			name: "missing access map defaults to restricted",
			rec:  &record.Record{},
			want: []identity.Need{identity.RoleNeed("restricted-rule")},
		},
		{
			name: "other field's flag does not apply",
			rec:  restrictedRecord("files", record.StatusOpen),
			want: []identity.Need{identity.RoleNeed("restricted-rule")},
		},
		{
			name: "nil record grants nothing",
			rec:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gen.Needs(tt.rec))
		})
	}
}

// Every generator of the chosen branch contributes needs. This is a
// deliberate, pinned choice: branch lists get the same any-satisfies
// union semantics as flat action rules, so appending a generator to a
// branch cannot silently become inert.
func TestIfRestricted_WholeBranchConsulted(t *testing.T) {
	head := stubGenerator{need: identity.RoleNeed("head")}
	tail := stubGenerator{need: identity.RoleNeed("tail")}

	gen, err := access.NewIfRestricted("files",
		[]access.Generator{head, tail},
		[]access.Generator{head},
	)
	require.NoError(t, err)

	needs := gen.Needs(restrictedRecord("files", record.StatusRestricted))
	assert.Equal(t, []identity.Need{identity.RoleNeed("head"), identity.RoleNeed("tail")}, needs)

	needs = gen.Needs(restrictedRecord("files", record.StatusOpen))
	assert.Equal(t, []identity.Need{identity.RoleNeed("head")}, needs)
}

func TestIfRestricted_QueryFilterIsPermissivePlaceholder(t *testing.T) {
	gen := access.MustIfRestricted("record",
		[]access.Generator{access.AdminSuperUser{}},
		[]access.Generator{access.AnyUser{}},
	)
	assert.True(t, gen.QueryFilter(identity.Anonymous()).IsMatchAll())
}

func TestNewIfRestricted_Validation(t *testing.T) {
	some := []access.Generator{access.AnyUser{}}

	_, err := access.NewIfRestricted("", some, some)
	assert.Error(t, err)

	_, err = access.NewIfRestricted("record", nil, some)
	assert.Error(t, err)

	_, err = access.NewIfRestricted("record", some, nil)
	assert.Error(t, err)

	assert.Panics(t, func() {
		access.MustIfRestricted("record", nil, nil)
	})
}
