// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name     string
		keywords map[string]string
		want     []string
	}{
		{
			name:     "single all-fields keyword",
			keywords: map[string]string{"k-0-0": "green building", "k-0-1": "", "k-0-2": "", "k-0-3": ""},
			want:     []string{`all:"green building"`},
		},
		{
			name:     "all and title joined with AND",
			keywords: map[string]string{"k-0-0": "low carbon", "k-0-1": "policy", "k-0-2": "", "k-0-3": ""},
			want:     []string{`all:"low carbon" AND ti:"policy"`},
		},
		{
			name: "every field qualifier",
			keywords: map[string]string{
				"k-0-0": "a", "k-0-1": "b", "k-0-2": "c", "k-0-3": "d",
			},
			want: []string{`all:"a" AND ti:"b" AND au:"c" AND abs:"d"`},
		},
		{
			name: "groups in index order",
			keywords: map[string]string{
				"k-1-0": "", "k-1-1": "", "k-1-2": "Hinton", "k-1-3": "",
				"k-0-0": "", "k-0-1": "", "k-0-2": "", "k-0-3": "carbon capture",
			},
			want: []string{`abs:"carbon capture"`, `au:"Hinton"`},
		},
		{
			name:     "empty group yields empty query",
			keywords: map[string]string{"k-0-0": "", "k-0-1": "", "k-0-2": "", "k-0-3": ""},
			want:     []string{""},
		},
		{
			name:     "whitespace-only keyword is empty",
			keywords: map[string]string{"k-0-0": "  ", "k-0-1": "solar", "k-0-2": "", "k-0-3": ""},
			want:     []string{`ti:"solar"`},
		},
		{
			name:     "no groups",
			keywords: map[string]string{},
			want:     []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.keywords)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileMalformed(t *testing.T) {
	tests := []struct {
		name     string
		keywords map[string]string
		errMsg   string
	}{
		{
			name:     "incomplete group",
			keywords: map[string]string{"k-0-0": "x", "k-0-1": ""},
			errMsg:   "not a multiple of 4",
		},
		{
			name:     "missing field key",
			keywords: map[string]string{"k-0-0": "x", "k-0-1": "", "k-0-2": "", "k-0-4": ""},
			errMsg:   `missing key "k-0-3"`,
		},
		{
			name:     "group index gap",
			keywords: map[string]string{"k-1-0": "x", "k-1-1": "", "k-1-2": "", "k-1-3": ""},
			errMsg:   `missing key "k-0-0"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.keywords)
			require.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNonEmpty(t *testing.T) {
	got := NonEmpty([]string{`all:"a"`, "", "  ", `ti:"b"`})
	assert.Equal(t, []string{`all:"a"`, `ti:"b"`}, got)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "k-2-3", Key(2, 3))
}
