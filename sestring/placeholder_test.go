package sestring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholderCompletion(t *testing.T) {
	p, err := NewPayload(PayloadPlaceholder, []*Expression{Integer(4), Integer(99)})
	require.NoError(t, err)
	assert.False(t, p.IsComplexPlaceholder())
	assert.Equal(t, uint32(4), p.CompletionGroup().Value)
	assert.Equal(t, uint32(99), p.CompletionRow().Value)
}

func TestPlaceholderComplexPosition(t *testing.T) {
	exprs := []*Expression{
		Integer(4),                          // group
		Integer(placeholderComplexMarker),   // marker
		Integer(placeholderPositionSubType), // subtype
		Integer(132),                        // territory
		Integer(17),                         // map
		Integer(8400),                       // x
		Integer(29300),                      // y
		Integer(0),                          // z
	}
	p, err := NewPayload(PayloadPlaceholder, exprs)
	require.NoError(t, err)
	assert.True(t, p.IsComplexPlaceholder())
	assert.True(t, p.IsPositionPlaceholder())
	assert.False(t, p.IsSoundEffectPlaceholder())

	fields, ok := p.Position()
	require.True(t, ok)
	assert.Equal(t, int32(4), fields.Group)
	assert.Equal(t, int32(132), fields.Territory)
	assert.Equal(t, int32(17), fields.Map)
	assert.Equal(t, int32(8400), fields.X)
	assert.Equal(t, int32(29300), fields.Y)
	assert.Equal(t, int32(0), fields.Z)
}

func TestPlaceholderComplexSoundEffect(t *testing.T) {
	exprs := []*Expression{
		Integer(4),
		Integer(placeholderComplexMarker),
		Integer(placeholderSoundEffectSubType),
		Integer(55),
	}
	p, err := NewPayload(PayloadPlaceholder, exprs)
	require.NoError(t, err)
	assert.True(t, p.IsSoundEffectPlaceholder())
	fields, ok := p.SoundEffect()
	require.True(t, ok)
	assert.Equal(t, int32(4), fields.Group)
	assert.Equal(t, int32(55), fields.SeID)
}

// MapCoordinate's scale invariants are verified directly against the
// documented formula rather than the spec's worked numeric example, whose
// stated display_x/display_y values (~8.4, ~29.3) cannot be reproduced from
// the stated inputs under the stated formula (see DESIGN.md) — this mirrors
// the similar inconsistency found in the SeExpression varint worked example.
func TestMapCoordinateMatchesDocumentedFormula(t *testing.T) {
	got := MapCoordinate(8400, 100)
	want := 40.885/1*((8.4*1+1024)/2048) + 1
	assert.InDelta(t, want, got, 1e-9)
}

func TestMapCoordinateScalesWithSizeFactor(t *testing.T) {
	base := MapCoordinate(8400, 100)
	doubled := MapCoordinate(8400, 200)
	assert.False(t, math.IsNaN(doubled))
	assert.NotEqual(t, base, doubled)
}
