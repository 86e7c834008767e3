package sestring

import (
	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// PayloadType identifies a SePayload's tag byte. The concrete values below
// are grounded on original_source/.../escaped_string.py's SqEscapeType enum
// (an older sibling wire format) wherever a name carries over; types that
// enum has no counterpart for are assigned previously-unused slots in the
// same byte space so the whole table stays internally consistent.
type PayloadType byte

const (
	// Structural
	PayloadNewLine           PayloadType = 0x10
	PayloadHyphen            PayloadType = 0x1F
	PayloadIndent            PayloadType = 0x1D
	PayloadSoftHyphen        PayloadType = 0x1B
	PayloadDialoguePageBreak PayloadType = 0x17

	// Formatting
	PayloadColorFill       PayloadType = 0x13
	PayloadColorBorder     PayloadType = 0x14
	PayloadUiColorFill     PayloadType = 0x48
	PayloadUiColorBorder   PayloadType = 0x49
	PayloadHighlight       PayloadType = 0x16
	PayloadItalic          PayloadType = 0x1A
	PayloadValue           PayloadType = 0x20
	PayloadTwoDigitValue   PayloadType = 0x21
	PayloadZeroPaddedValue PayloadType = 0x22
	PayloadFormat          PayloadType = 0x24
	PayloadOrdinalValue    PayloadType = 0x25

	// Icons/links
	PayloadFontIcon         PayloadType = 0x12
	PayloadFontIcon2        PayloadType = 0x1E
	PayloadLink             PayloadType = 0x2B
	PayloadActorFullName    PayloadType = 0x27
	PayloadInstanceContent  PayloadType = 0x3F

	// Conditionals
	PayloadIf                            PayloadType = 0x08
	PayloadIfEquals                      PayloadType = 0x0B
	PayloadSwitch                        PayloadType = 0x09
	PayloadIfActor                       PayloadType = 0x0C
	PayloadIfEndsWithJongseong           PayloadType = 0x0D
	PayloadIfEndsWithJongseongExceptRieul PayloadType = 0x0E

	// References
	PayloadSheetReference   PayloadType = 0x28
	PayloadSheetReferenceJa PayloadType = 0x40
	PayloadSheetReferenceEn PayloadType = 0x41
	PayloadSheetReferenceDe PayloadType = 0x42
	PayloadSheetReferenceFr PayloadType = 0x43

	// Time
	PayloadTime      PayloadType = 0x07
	PayloadResetTime PayloadType = 0x06

	// Misc
	PayloadPlaceholder PayloadType = 0x2E
	PayloadSplit       PayloadType = 0x2C
)

// exprRange describes a payload type's declared [min, max] expression count
// (spec.md §4.C). max < 0 means unbounded.
type exprRange struct {
	name     string
	min, max int
}

var payloadRegistry = map[PayloadType]exprRange{
	PayloadNewLine:           {"NewLine", 0, 0},
	PayloadHyphen:            {"Hyphen", 0, 0},
	PayloadIndent:            {"Indent", 0, 0},
	PayloadSoftHyphen:        {"SoftHyphen", 0, 0},
	PayloadDialoguePageBreak: {"DialoguePageBreak", 0, 1}, // §9 Open Question (ii): accept either

	PayloadColorFill:       {"ColorFill", 1, 1},
	PayloadColorBorder:     {"ColorBorder", 1, 1},
	PayloadUiColorFill:     {"UiColorFill", 1, 1},
	PayloadUiColorBorder:   {"UiColorBorder", 1, 1},
	PayloadHighlight:       {"Highlight", 1, 1},
	PayloadItalic:          {"Italic", 1, 1},
	PayloadValue:           {"Value", 1, 1},
	PayloadTwoDigitValue:   {"TwoDigitValue", 1, 1},
	PayloadZeroPaddedValue: {"ZeroPaddedValue", 2, 2},
	PayloadFormat:          {"Format", 2, 2},
	PayloadOrdinalValue:    {"OrdinalValue", 1, 1},

	PayloadFontIcon:        {"FontIcon", 1, 1},
	PayloadFontIcon2:       {"FontIcon2", 1, 1},
	PayloadLink:            {"Link", 1, 1},
	PayloadActorFullName:   {"ActorFullName", 1, 1},
	PayloadInstanceContent: {"InstanceContent", 1, 1},

	PayloadIf:                            {"If", 1, -1},
	PayloadIfEquals:                      {"IfEquals", 2, -1},
	PayloadSwitch:                        {"Switch", 1, -1},
	PayloadIfActor:                       {"IfActor", 3, 3},
	PayloadIfEndsWithJongseong:           {"IfEndsWithJongseong", 3, 3},
	PayloadIfEndsWithJongseongExceptRieul: {"IfEndsWithJongseongExceptRieul", 3, 3},

	PayloadSheetReference:   {"SheetReference", 2, -1},
	PayloadSheetReferenceJa: {"SheetReferenceJa", 3, -1},
	PayloadSheetReferenceEn: {"SheetReferenceEn", 3, -1},
	PayloadSheetReferenceDe: {"SheetReferenceDe", 3, -1},
	PayloadSheetReferenceFr: {"SheetReferenceFr", 3, -1},

	PayloadTime:      {"Time", 1, 1},
	PayloadResetTime: {"ResetTime", 1, 2},

	PayloadPlaceholder: {"Placeholder", 2, -1},
	PayloadSplit:       {"Split", 3, 3},
}

// PayloadTypeName returns the registered name for t, or "" if t is unknown.
func PayloadTypeName(t PayloadType) string {
	return payloadRegistry[t].name
}

// Payload is a single SePayload: a typed tag body discovered inside an
// SeString at a 0x02 sentinel. Known types' Expressions are addressed
// positionally by the accessor methods below; unknown types preserve their
// raw body bytes.
type Payload struct {
	Type        PayloadType
	Known       bool // false => Type was not in the registry, or its body's expressions failed to parse
	Expressions []*Expression

	// rawBody caches the original body bytes (Unknown payloads always rely
	// on this; known payloads use it only if present, e.g. when built via
	// parse rather than NewPayload).
	rawBody []byte
}

// NewPayload constructs a payload from an explicit type and expression list,
// validating the type's declared [min, max] expression count bound. This is
// the only place CountConstraint is enforced (spec.md §7): re-encoding a
// payload that was merely parsed from a preserved buffer never re-validates.
func NewPayload(t PayloadType, exprs []*Expression) (*Payload, error) {
	rng, known := payloadRegistry[t]
	if known {
		if len(exprs) < rng.min || (rng.max >= 0 && len(exprs) > rng.max) {
			return nil, xiv.New(xiv.KindCountConstraint, "payload expression count out of bounds", nil)
		}
	}
	return &Payload{Type: t, Known: known, Expressions: exprs}, nil
}

// NewUnknownPayload builds an Unknown payload preserving raw body bytes
// verbatim (no expression parsing attempted).
func NewUnknownPayload(t PayloadType, rawBody []byte) *Payload {
	return &Payload{Type: t, Known: false, rawBody: rawBody}
}

func parsePayloadBody(t PayloadType, body []byte) *Payload {
	_, known := payloadRegistry[t]
	if !known {
		return &Payload{Type: t, Known: false, rawBody: body}
	}
	var exprs []*Expression
	rest := body
	for len(rest) > 0 {
		e, n, err := ParseExpression(rest)
		if err != nil {
			// Malformed inner expression: fall back to preserving raw bytes
			// rather than failing the whole string parse.
			return &Payload{Type: t, Known: false, rawBody: body}
		}
		exprs = append(exprs, e)
		rest = rest[n:]
	}
	return &Payload{Type: t, Known: true, Expressions: exprs, rawBody: body}
}

// encodeBody renders this payload's body bytes (not including the
// 0x02/type/length/0x03 framing). Parsed payloads (known or not) carry
// rawBody and reproduce it verbatim; payloads built via NewPayload encode
// their Expressions fresh.
func (p *Payload) encodeBody() []byte {
	if p.rawBody != nil {
		return p.rawBody
	}
	var body []byte
	for _, e := range p.Expressions {
		body = e.Encode(body)
	}
	return body
}

func expr(exprs []*Expression, i int) *Expression {
	if i < 0 || i >= len(exprs) {
		return nil
	}
	return exprs[i]
}

// --- Conditionals ---

// Condition returns the If/IfEquals/Switch/IfActor condition expression.
func (p *Payload) Condition() *Expression { return expr(p.Expressions, 0) }

// TrueBranch returns the If payload's position 1 (true-branch) expression.
func (p *Payload) TrueBranch() *Expression { return expr(p.Expressions, 1) }

// FalseBranch returns the If payload's position 2 (false-branch) expression.
func (p *Payload) FalseBranch() *Expression { return expr(p.Expressions, 2) }

// Misc returns If's positions 3.. (trailing, loosely-defined extras).
func (p *Payload) Misc() []*Expression { return restFrom(p.Expressions, 3) }

// Left returns IfEquals' position 0.
func (p *Payload) Left() *Expression { return expr(p.Expressions, 0) }

// Right returns IfEquals' position 1.
func (p *Payload) Right() *Expression { return expr(p.Expressions, 1) }

// Cases returns Switch's positions 1.. (the branch expressions).
func (p *Payload) Cases() []*Expression { return restFrom(p.Expressions, 1) }

func restFrom(exprs []*Expression, start int) []*Expression {
	if start >= len(exprs) {
		return nil
	}
	return exprs[start:]
}

// --- References ---

// Sheet returns a SheetReference payload's sheet-name expression (position 0).
func (p *Payload) Sheet() *Expression { return expr(p.Expressions, 0) }

// Row returns a SheetReference payload's row-id expression (position 1 for
// both the plain and the per-language variants; the latter's extra attr
// slot follows it at position 2).
func (p *Payload) Row() *Expression {
	switch p.Type {
	case PayloadSheetReferenceJa, PayloadSheetReferenceEn, PayloadSheetReferenceDe, PayloadSheetReferenceFr:
		return expr(p.Expressions, 1)
	default:
		return expr(p.Expressions, 1)
	}
}

// Attr returns the per-language SheetReference variants' attribute-name
// expression (position 2).
func (p *Payload) Attr() *Expression { return expr(p.Expressions, 2) }

// Column returns SheetReference's optional column expression.
func (p *Payload) Column() *Expression {
	switch p.Type {
	case PayloadSheetReferenceJa, PayloadSheetReferenceEn, PayloadSheetReferenceDe, PayloadSheetReferenceFr:
		return expr(p.Expressions, 3)
	default:
		return expr(p.Expressions, 2)
	}
}

// Params returns SheetReference's trailing parameter expressions.
func (p *Payload) Params() []*Expression {
	switch p.Type {
	case PayloadSheetReferenceJa, PayloadSheetReferenceEn, PayloadSheetReferenceDe, PayloadSheetReferenceFr:
		return restFrom(p.Expressions, 4)
	default:
		return restFrom(p.Expressions, 3)
	}
}

// --- Time ---

// HourUTC9 returns ResetTime's hour-of-day expression (position 0).
func (p *Payload) HourUTC9() *Expression { return expr(p.Expressions, 0) }

// Weekday returns ResetTime's optional weekday expression (position 1).
func (p *Payload) Weekday() *Expression { return expr(p.Expressions, 1) }

// --- Split ---

// SplitValue, SplitSeparator, SplitIndex are the three positions of a Split
// payload: {value, separator, index}.
func (p *Payload) SplitValue() *Expression     { return expr(p.Expressions, 0) }
func (p *Payload) SplitSeparator() *Expression { return expr(p.Expressions, 1) }
func (p *Payload) SplitIndex() *Expression     { return expr(p.Expressions, 2) }
