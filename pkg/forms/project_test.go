package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owl-os/retina-console/pkg/schema"
)

func leaves(f *Field) []*Field {
	if len(f.Children) == 0 {
		return []*Field{f}
	}
	var out []*Field
	for _, c := range f.Children {
		out = append(out, leaves(c)...)
	}
	return out
}

func TestProject_EmptyDocument(t *testing.T) {
	t.Parallel()

	// Projection is total: an empty document projects every leaf as unset.
	form := Project(schema.Builtin(), map[string]any{})
	require.NotNil(t, form)

	for _, leaf := range leaves(form) {
		assert.False(t, leaf.Set, "leaf %s should be unset", leaf.Path)
		assert.Nil(t, leaf.Value, "leaf %s must not get a default", leaf.Path)
		assert.False(t, leaf.TypeMismatch)
	}
}

func TestProject_ValuesFromDocument(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"capture": map[string]any{
			"fs": 1000000,
			"device": map[string]any{
				"gainReduction": 40,
				"dabNotch":      false,
			},
		},
	}
	form := Project(schema.Builtin(), doc)

	byPath := map[string]*Field{}
	for _, leaf := range leaves(form) {
		byPath[leaf.Path] = leaf
	}

	fs := byPath["capture.fs"]
	require.NotNil(t, fs)
	assert.True(t, fs.Set)
	assert.Equal(t, 1000000, fs.Value)

	gain := byPath["capture.device.gainReduction"]
	require.NotNil(t, gain)
	assert.True(t, gain.Set)
	assert.Equal(t, 40, gain.Value)

	// A false bool in the document is set, not "unset".
	dab := byPath["capture.device.dabNotch"]
	require.NotNil(t, dab)
	assert.True(t, dab.Set)
	assert.Equal(t, false, dab.Value)

	// Absent leaves stay unset even when siblings have values.
	fc := byPath["capture.fc"]
	require.NotNil(t, fc)
	assert.False(t, fc.Set)
	assert.Nil(t, fc.Value)
}

func TestProject_DeclaredOrderIsStable(t *testing.T) {
	t.Parallel()

	form := Project(schema.Builtin(), map[string]any{})
	capture := form.Children[0]
	require.Equal(t, "capture", capture.Name)

	var names []string
	for _, c := range capture.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"fs", "fc", "device"}, names)
}

func TestProject_TypeMismatchIsFlaggedNotFatal(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"capture": map[string]any{"fs": "very fast"},
	}
	form := Project(schema.Builtin(), doc)

	fs := form.Children[0].Children[0]
	require.Equal(t, "capture.fs", fs.Path)
	assert.True(t, fs.Set)
	assert.True(t, fs.TypeMismatch)
	assert.Equal(t, "very fast", fs.Value, "raw value surfaces as-is")
}

func TestProject_ExtraneousKeysIgnored(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"capture":   map[string]any{"fs": 1, "notInSchema": 42},
		"unrelated": map[string]any{"x": 1},
	}
	form := Project(schema.Builtin(), doc)

	for _, leaf := range leaves(form) {
		assert.NotContains(t, leaf.Path, "notInSchema")
		assert.NotContains(t, leaf.Path, "unrelated")
	}
}

func TestProject_ScalarWhereGroupExpected(t *testing.T) {
	t.Parallel()

	doc := map[string]any{"capture": 7}
	form := Project(schema.Builtin(), doc)

	for _, leaf := range leaves(form) {
		assert.False(t, leaf.Set)
	}
}

func TestProject_LeafMetadataCarriedOver(t *testing.T) {
	t.Parallel()

	form := Project(schema.Builtin(), map[string]any{})
	device := form.Children[0].Children[2]
	require.Equal(t, "device", device.Name)

	var gain *Field
	for _, c := range device.Children {
		if c.Name == "gainReduction" {
			gain = c
		}
	}
	require.NotNil(t, gain)
	assert.Equal(t, "Gain Reduction", gain.Title)
	assert.Equal(t, "20-59 dB", gain.Description)
	require.NotNil(t, gain.Min)
	assert.Equal(t, 20.0, *gain.Min)
}
