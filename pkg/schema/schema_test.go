package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("builtin schema is valid", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, Validate(Builtin()))
	})

	t.Run("nil root", func(t *testing.T) {
		t.Parallel()
		require.Error(t, Validate(nil))
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		root := &Node{Kind: KindGroup, Children: []*Node{
			{Name: "x", Kind: Kind("decimal")},
		}}
		err := Validate(root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown kind")
		assert.Contains(t, err.Error(), `"x"`)
	})

	t.Run("duplicate sibling names", func(t *testing.T) {
		t.Parallel()
		root := &Node{Kind: KindGroup, Children: []*Node{
			{Name: "x", Kind: KindInt},
			{Name: "x", Kind: KindBool},
		}}
		err := Validate(root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate child name")
	})

	t.Run("children on a leaf kind", func(t *testing.T) {
		t.Parallel()
		root := &Node{Kind: KindGroup, Children: []*Node{
			{Name: "x", Kind: KindInt, Children: []*Node{{Name: "y", Kind: KindInt}}},
		}}
		require.Error(t, Validate(root))
	})

	t.Run("min greater than max", func(t *testing.T) {
		t.Parallel()
		root := &Node{Kind: KindGroup, Children: []*Node{
			{Name: "x", Kind: KindInt, Min: bound(10), Max: bound(1)},
		}}
		require.Error(t, Validate(root))
	})

	t.Run("bounds on a non-numeric kind", func(t *testing.T) {
		t.Parallel()
		root := &Node{Kind: KindGroup, Children: []*Node{
			{Name: "x", Kind: KindString, Min: bound(1)},
		}}
		require.Error(t, Validate(root))
	})

	t.Run("enum without values", func(t *testing.T) {
		t.Parallel()
		root := &Node{Kind: KindGroup, Children: []*Node{
			{Name: "x", Kind: KindEnum},
		}}
		require.Error(t, Validate(root))
	})

	t.Run("values on a non-enum kind", func(t *testing.T) {
		t.Parallel()
		root := &Node{Kind: KindGroup, Children: []*Node{
			{Name: "x", Kind: KindInt, Values: []string{"a"}},
		}}
		require.Error(t, Validate(root))
	})

	t.Run("empty child name", func(t *testing.T) {
		t.Parallel()
		root := &Node{Kind: KindGroup, Children: []*Node{
			{Kind: KindInt},
		}}
		require.Error(t, Validate(root))
	})
}

func TestNodeHelpers(t *testing.T) {
	t.Parallel()

	capture := Builtin().Child("capture")
	require.NotNil(t, capture)
	assert.False(t, capture.IsLeaf())

	device := capture.Child("device")
	require.NotNil(t, device)
	gain := device.Child("gainReduction")
	require.NotNil(t, gain)
	assert.True(t, gain.IsLeaf())
	require.NotNil(t, gain.Min)
	require.NotNil(t, gain.Max)
	assert.Equal(t, 20.0, *gain.Min)
	assert.Equal(t, 59.0, *gain.Max)

	assert.Nil(t, capture.Child("nope"))
}
