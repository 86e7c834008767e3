package sestring

import (
	"fmt"

	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// ExpressionKind discriminates the SeExpression node variants (spec.md §4.B).
type ExpressionKind int

const (
	// ExprInteger is a directly-encoded uint32 (1-5 bytes on the wire).
	ExprInteger ExpressionKind = iota
	// ExprGlobalParameter is an opaque global lookup (time-of-day, calendar, ...).
	// Its Marker is preserved verbatim; no interpretation is attempted (spec.md
	// §9 Open Question (i)).
	ExprGlobalParameter
	// ExprBinary is a comparison operator applied to two child expressions.
	ExprBinary
	// ExprUnary is a parameter-lookup operator applied to one child expression.
	ExprUnary
	// ExprString is a nested, length-prefixed SeString.
	ExprString
)

// BinaryOp enumerates the comparison operators markers 0xE0-0xE5 decode to.
type BinaryOp int

const (
	OpGreaterOrEqual BinaryOp = iota
	OpGreaterThan
	OpLessOrEqual
	OpLessThan
	OpEqual
	OpNotEqual
)

// UnaryOp enumerates the parameter-lookup kinds markers 0xE8-0xEB decode to.
type UnaryOp int

const (
	OpIntegerParameter UnaryOp = iota
	OpPlayerParameter
	OpStringParameter
	OpObjectParameter
)

const (
	markerBinaryBase = 0xE0
	markerUnaryBase  = 0xE8
	markerGlobalEC   = 0xEC
	markerVarIntBase = 0xF0
	markerVarIntMax  = 0xFE
	markerNestedStr  = 0xFF
	markerSingleMin  = 0x01
	markerSingleMax  = 0xCF
	markerGlobalMin  = 0xD0
	markerGlobalMax  = 0xDF
)

// Expression is a single SeExpression tree node. It is a tagged union keyed
// by Kind: only the fields relevant to that Kind are meaningful.
type Expression struct {
	Kind ExpressionKind

	Value  uint32     // ExprInteger
	Marker byte       // ExprGlobalParameter: raw marker byte (0xD0-0xDF or 0xEC)
	Op     int        // ExprBinary (BinaryOp) / ExprUnary (UnaryOp)
	Left   *Expression // ExprBinary
	Right  *Expression // ExprBinary
	Child  *Expression // ExprUnary
	String *SeString  // ExprString

	// raw caches the original encoded bytes when this node came from Parse,
	// so re-encoding reproduces the input exactly even if it wasn't already
	// in the canonical minimal form (spec.md §4.B round-trip law).
	raw []byte
}

// Integer builds a canonical ExprInteger node with no cached raw bytes: its
// Encode always produces the shortest legal form for Value.
func Integer(v uint32) *Expression { return &Expression{Kind: ExprInteger, Value: v} }

// GlobalParameter builds an opaque global-parameter node from a raw marker
// byte (0xD0-0xDF or 0xEC).
func GlobalParameter(marker byte) *Expression {
	return &Expression{Kind: ExprGlobalParameter, Marker: marker}
}

// Binary builds a comparison node.
func Binary(op BinaryOp, left, right *Expression) *Expression {
	return &Expression{Kind: ExprBinary, Op: int(op), Left: left, Right: right}
}

// Unary builds a parameter-lookup node.
func Unary(op UnaryOp, child *Expression) *Expression {
	return &Expression{Kind: ExprUnary, Op: int(op), Child: child}
}

// NestedString builds a node wrapping a nested SeString expression.
func NestedString(s *SeString) *Expression { return &Expression{Kind: ExprString, String: s} }

// ParseExpression decodes one SeExpression from the front of b, returning the
// node and the number of bytes consumed.
func ParseExpression(b []byte) (*Expression, int, error) {
	if len(b) == 0 {
		return nil, 0, xiv.New(xiv.KindBadExpression, "empty expression", nil)
	}
	marker := b[0]

	switch {
	case marker >= markerSingleMin && marker <= markerSingleMax:
		return &Expression{Kind: ExprInteger, Value: uint32(marker) - 1, raw: b[:1]}, 1, nil

	case marker >= markerGlobalMin && marker <= markerGlobalMax:
		return &Expression{Kind: ExprGlobalParameter, Marker: marker, raw: b[:1]}, 1, nil

	case marker == markerGlobalEC:
		return &Expression{Kind: ExprGlobalParameter, Marker: marker, raw: b[:1]}, 1, nil

	case marker >= markerBinaryBase && marker <= markerBinaryBase+5:
		left, n1, err := ParseExpression(b[1:])
		if err != nil {
			return nil, 0, err
		}
		right, n2, err := ParseExpression(b[1+n1:])
		if err != nil {
			return nil, 0, err
		}
		total := 1 + n1 + n2
		return &Expression{
			Kind: ExprBinary, Op: int(marker - markerBinaryBase),
			Left: left, Right: right, raw: b[:total],
		}, total, nil

	case marker >= markerUnaryBase && marker <= markerUnaryBase+3:
		child, n, err := ParseExpression(b[1:])
		if err != nil {
			return nil, 0, err
		}
		total := 1 + n
		return &Expression{
			Kind: ExprUnary, Op: int(marker - markerUnaryBase), Child: child, raw: b[:total],
		}, total, nil

	case marker >= markerVarIntBase && marker <= markerVarIntMax:
		return parseVarInt(b)

	case marker == markerNestedStr:
		lenExpr, n, err := ParseExpression(b[1:])
		if err != nil {
			return nil, 0, err
		}
		length := int(lenExpr.evalLength())
		start := 1 + n
		if start+length > len(b) {
			return nil, 0, xiv.New(xiv.KindBadExpression, "nested string exceeds buffer", nil)
		}
		total := start + length
		return &Expression{
			Kind: ExprString, String: NewFromBytes(b[start:total]), raw: b[:total],
		}, total, nil

	default:
		return nil, 0, xiv.New(xiv.KindBadExpression, fmt.Sprintf("unknown expression marker 0x%02X", marker), nil)
	}
}

// evalLength interprets this expression as a plain integer length. Only
// ExprInteger is meaningful here; the nested-string length is always encoded
// as a direct integer in every observed payload.
func (e *Expression) evalLength() uint32 {
	if e.Kind == ExprInteger {
		return e.Value
	}
	return 0
}

func parseVarInt(b []byte) (*Expression, int, error) {
	marker := b[0]
	m := (uint32(marker) + 1) & 0xF
	if m == 0 {
		return nil, 0, xiv.New(xiv.KindBadExpression, "zero byte-present mask", nil)
	}
	var value uint32
	pos := 1
	for i := 3; i >= 0; i-- {
		if m&(1<<uint(i)) == 0 {
			continue
		}
		if pos >= len(b) {
			return nil, 0, xiv.New(xiv.KindBadExpression, "truncated variable-length integer", nil)
		}
		value |= uint32(b[pos]) << uint(i*8)
		pos++
	}
	return &Expression{Kind: ExprInteger, Value: value, raw: b[:pos]}, pos, nil
}

// Encode appends this expression's wire encoding to dst and returns the
// result. If this node was produced by ParseExpression, the original bytes
// are reproduced verbatim; otherwise the canonical minimal form is emitted.
func (e *Expression) Encode(dst []byte) []byte {
	if e.raw != nil {
		return append(dst, e.raw...)
	}
	switch e.Kind {
	case ExprInteger:
		return encodeUint32(dst, e.Value)
	case ExprGlobalParameter:
		return append(dst, e.Marker)
	case ExprBinary:
		dst = append(dst, byte(markerBinaryBase+e.Op))
		dst = e.Left.Encode(dst)
		return e.Right.Encode(dst)
	case ExprUnary:
		dst = append(dst, byte(markerUnaryBase+e.Op))
		return e.Child.Encode(dst)
	case ExprString:
		raw := e.String.Escaped()
		dst = append(dst, markerNestedStr)
		dst = encodeUint32(dst, uint32(len(raw)))
		return append(dst, raw...)
	default:
		panic("sestring: invalid expression kind")
	}
}

// EncodeUint32 renders v in its canonical (shortest legal) SeExpression form.
func EncodeUint32(v uint32) []byte { return encodeUint32(nil, v) }

// DecodeUint32 parses a bare SeExpression integer (no surrounding context)
// from b, returning the value and the number of bytes consumed.
func DecodeUint32(b []byte) (uint32, int, error) {
	e, n, err := ParseExpression(b)
	if err != nil {
		return 0, 0, err
	}
	if e.Kind != ExprInteger {
		return 0, 0, xiv.New(xiv.KindBadExpression, "expression is not an integer", nil)
	}
	return e.Value, n, nil
}

func encodeUint32(dst []byte, v uint32) []byte {
	if v <= 0xCE {
		return append(dst, byte(v+1))
	}
	bytes := [4]byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
	}
	var m uint32
	for i := 0; i < 4; i++ {
		if bytes[i] != 0 {
			m |= 1 << uint(i)
		}
	}
	marker := byte(0xEF + m)
	dst = append(dst, marker)
	for i := 3; i >= 0; i-- {
		if m&(1<<uint(i)) != 0 {
			dst = append(dst, bytes[i])
		}
	}
	return dst
}
