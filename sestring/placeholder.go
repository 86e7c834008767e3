package sestring

// placeholderComplexMarker is the magic first-slot-after-group value (200)
// that switches a Placeholder payload from Completion to Complex framing
// (spec.md §4.C).
const placeholderComplexMarker = 0xC8

// placeholderPositionSubType and placeholderSoundEffectSubType discriminate
// a Complex placeholder's second expression.
const (
	placeholderPositionSubType    = 3
	placeholderSoundEffectSubType = 5
)

// IsComplexPlaceholder reports whether a Placeholder payload's expressions
// encode a Complex sub-payload (group, 0xC8, subtype, ...) rather than a
// plain Completion (group_id, row_id).
func (p *Payload) IsComplexPlaceholder() bool {
	if p.Type != PayloadPlaceholder || len(p.Expressions) < 2 {
		return false
	}
	marker := p.Expressions[1]
	return marker.Kind == ExprInteger && marker.Value == placeholderComplexMarker
}

// CompletionGroup and CompletionRow return a Completion placeholder's two
// positions: {group_id, row_id}.
func (p *Payload) CompletionGroup() *Expression { return expr(p.Expressions, 0) }
func (p *Payload) CompletionRow() *Expression   { return expr(p.Expressions, 1) }

// IsPositionPlaceholder reports whether a Complex placeholder is the
// Position sub-type (discriminant 3).
func (p *Payload) IsPositionPlaceholder() bool {
	return p.IsComplexPlaceholder() && subTypeEquals(p, placeholderPositionSubType)
}

// IsSoundEffectPlaceholder reports whether a Complex placeholder is the
// SoundEffect sub-type (discriminant 5).
func (p *Payload) IsSoundEffectPlaceholder() bool {
	return p.IsComplexPlaceholder() && subTypeEquals(p, placeholderSoundEffectSubType)
}

func subTypeEquals(p *Payload, want uint32) bool {
	sub := expr(p.Expressions, 2)
	return sub != nil && sub.Kind == ExprInteger && sub.Value == want
}

// PositionFields is the Complex Placeholder Position sub-type's named
// fields: {group, territory, map, x, y, z}, with the marker/subtype slots
// already consumed by the discriminant.
type PositionFields struct {
	Group, Territory, Map int32
	X, Y, Z               int32
}

// Position extracts the PositionFields from a Complex Position placeholder.
// Raw coordinates are signed 32-bit integers; see MapCoordinate to convert
// X/Y into the in-game map display unit.
func (p *Payload) Position() (PositionFields, bool) {
	if !p.IsPositionPlaceholder() || len(p.Expressions) < 8 {
		return PositionFields{}, false
	}
	return PositionFields{
		Group:     int32(p.Expressions[0].Value),
		Territory: int32(p.Expressions[3].Value),
		Map:       int32(p.Expressions[4].Value),
		X:         int32(p.Expressions[5].Value),
		Y:         int32(p.Expressions[6].Value),
		Z:         int32(p.Expressions[7].Value),
	}, true
}

// SoundEffectFields is the Complex Placeholder SoundEffect sub-type's named
// fields: {group, se_id}.
type SoundEffectFields struct {
	Group int32
	SeID  int32
}

// SoundEffect extracts the SoundEffectFields from a Complex SoundEffect
// placeholder.
func (p *Payload) SoundEffect() (SoundEffectFields, bool) {
	if !p.IsSoundEffectPlaceholder() || len(p.Expressions) < 4 {
		return SoundEffectFields{}, false
	}
	return SoundEffectFields{
		Group: int32(p.Expressions[0].Value),
		SeID:  int32(p.Expressions[3].Value),
	}, true
}

// MapCoordinate applies the documented (approximate, §9 Open Question iii)
// projection from a raw world-space coordinate to the in-game map display
// unit, given the target Map sheet row's size_factor column. rawMilli is the
// raw signed coordinate as stored in a Position placload (divide by 1000 to
// get world-space, per spec.md §4.C); sizeFactor is the external Map row's
// size_factor.
func MapCoordinate(rawMilli int32, sizeFactor int32) float64 {
	p := float64(rawMilli) / 1000
	c := float64(sizeFactor) / 100
	return 40.885/c*((p*c+1024)/2048) + 1
}
