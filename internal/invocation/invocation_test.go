package invocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvocation_Args(t *testing.T) {
	tests := []struct {
		name string
		inv  Invocation
		want []string
	}{
		{
			name: "normalize only",
			inv:  Invocation{Path: "/music/album", Normalize: true, Trim: false, Layout: "flat"},
			want: []string{"repack", "--path", "/music/album", "--normalize", "true", "--trim", "false", "--layout", "flat"},
		},
		{
			name: "trim only",
			inv:  Invocation{Path: "/samples", Normalize: false, Trim: true, Layout: "keep"},
			want: []string{"repack", "--path", "/samples", "--normalize", "false", "--trim", "true", "--layout", "keep"},
		},
		{
			name: "both flags",
			inv:  Invocation{Path: "/a b/c", Normalize: true, Trim: true, Layout: "flat-prefix"},
			want: []string{"repack", "--path", "/a b/c", "--normalize", "true", "--trim", "true", "--layout", "flat-prefix"},
		},
		{
			name: "malformed values pass through",
			inv:  Invocation{Path: "", Layout: "--weird value"},
			want: []string{"repack", "--path", "", "--normalize", "false", "--trim", "false", "--layout", "--weird value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.inv.Args())
		})
	}
}

func TestInvocation_ArgsIsFreshSlice(t *testing.T) {
	inv := Invocation{Path: "/x", Layout: LayoutFlat}

	first := inv.Args()
	first[2] = "/mutated"

	assert.Equal(t, "/x", inv.Args()[2])
}

func TestLayoutLabel(t *testing.T) {
	assert.Equal(t, "Keep subfolders", LayoutLabel(LayoutKeep))
	assert.Equal(t, "Flat with prefix", LayoutLabel(LayoutFlatPrefix))
	assert.Equal(t, "Flat", LayoutLabel(LayoutFlat))
	assert.Equal(t, "custom", LayoutLabel("custom"))
}

func TestLayouts(t *testing.T) {
	assert.Equal(t, []string{"keep", "flat-prefix", "flat"}, Layouts())
}
