// Package sestring decodes and encodes FINAL FANTASY XIV's SeString rich-text
// format: plain UTF-8 text interleaved with 0x02-tagged SePayload escapes,
// each carrying zero or more SeExpression arguments (spec.md §4).
package sestring

import (
	"bytes"

	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

const (
	payloadStart = 0x02
	payloadEnd   = 0x03
)

// SeString is a parsed rich-text string: a sequence of text runs and
// payloads, in the order they appeared on the wire. Parsing is lazy: a
// SeString built from NewFromBytes keeps the original buffer and only walks
// it the first time Text/Payloads/Parts/Escaped is called, keeping both the
// raw buffer and the parsed parts from then on.
type SeString struct {
	raw []byte

	parsed bool
	parts  []Part
	err    error
}

// Part is one element of a parsed SeString: either literal text (Payload
// nil) or a single payload escape (Text empty, Payload set).
type Part struct {
	Text    string
	Payload *Payload
}

// NewFromBytes wraps raw SeString bytes without parsing them yet.
func NewFromBytes(raw []byte) *SeString {
	return &SeString{raw: append([]byte(nil), raw...)}
}

// New builds an already-parsed SeString from parts, for callers constructing
// strings programmatically rather than decoding them.
func New(parts ...Part) *SeString {
	return &SeString{parsed: true, parts: parts}
}

// Text returns the plain-text rendering of s: literal text runs concatenated
// together, with one 0x02 byte left in place of each payload escape to mark
// its position (spec.md §4.C; count('\x02', text) == len(payloads) holds on
// the returned string).
func (s *SeString) Text() (string, error) {
	parts, err := s.Parts()
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	for _, p := range parts {
		if p.Payload != nil {
			b.WriteByte(payloadStart)
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// Payloads returns every payload escape found in s, in order.
func (s *SeString) Payloads() ([]*Payload, error) {
	parts, err := s.Parts()
	if err != nil {
		return nil, err
	}
	var out []*Payload
	for _, p := range parts {
		if p.Payload != nil {
			out = append(out, p.Payload)
		}
	}
	return out, nil
}

// Parts returns the full parsed part sequence, parsing s's raw buffer on
// first call and caching the result (and any parse error) thereafter.
func (s *SeString) Parts() ([]Part, error) {
	if !s.parsed {
		s.parts, s.err = parseParts(s.raw)
		s.parsed = true
	}
	return s.parts, s.err
}

// parseParts scans for 0x02...0x03 payload escapes, alternating literal text
// runs with decoded payloads. The invariant count('\x02', text) ==
// len(payloads) (spec.md §7) holds by construction: every 0x02 either opens
// a well-formed payload or the scan fails outright.
func parseParts(raw []byte) ([]Part, error) {
	var parts []Part
	i := 0
	for i < len(raw) {
		start := bytes.IndexByte(raw[i:], payloadStart)
		if start < 0 {
			parts = append(parts, Part{Text: string(raw[i:])})
			break
		}
		start += i
		if start > i {
			parts = append(parts, Part{Text: string(raw[i:start])})
		}
		p, n, err := parsePayloadEscape(raw[start:])
		if err != nil {
			return nil, err
		}
		parts = append(parts, Part{Payload: p})
		i = start + n
	}
	return parts, nil
}

// parsePayloadEscape decodes a single 0x02 TYPE LEN body... 0x03 escape
// starting at b[0] == 0x02, returning the payload and total bytes consumed.
func parsePayloadEscape(b []byte) (*Payload, int, error) {
	if len(b) < 2 || b[0] != payloadStart {
		return nil, 0, xiv.New(xiv.KindBadPayload, "missing payload start marker", nil)
	}
	t := PayloadType(b[1])
	lenExpr, n, err := ParseExpression(b[2:])
	if err != nil {
		return nil, 0, xiv.New(xiv.KindBadPayload, "bad payload length expression", err)
	}
	bodyStart := 2 + n
	bodyLen := int(lenExpr.evalLength())
	bodyEnd := bodyStart + bodyLen
	if bodyEnd+1 > len(b) || b[bodyEnd] != payloadEnd {
		return nil, 0, xiv.New(xiv.KindBadPayload, "missing payload end marker", nil)
	}
	body := b[bodyStart:bodyEnd]
	return parsePayloadBody(t, body), bodyEnd + 1, nil
}

// Escaped renders s back to its wire form: text runs copied verbatim,
// payloads re-framed as 0x02 TYPE LEN body 0x03. If s was parsed from a
// buffer and never mutated, the result reproduces the input byte-for-byte
// because each Payload keeps its own rawBody cache.
func (s *SeString) Escaped() []byte {
	parts, err := s.Parts()
	if err != nil {
		// A SeString that failed to parse has nothing meaningful to encode;
		// fall back to the untouched raw bytes.
		return s.raw
	}
	var out []byte
	for _, p := range parts {
		if p.Payload != nil {
			out = append(out, p.Payload.Escape()...)
			continue
		}
		out = append(out, p.Text...)
	}
	return out
}

// String is a convenience for callers that don't care about parse errors;
// it returns the empty string if parsing failed.
func (s *SeString) String() string {
	text, err := s.Text()
	if err != nil {
		return ""
	}
	return text
}

// Escape renders a single payload's wire framing: 0x02 TYPE LEN body 0x03.
func (p *Payload) Escape() []byte {
	body := p.encodeBody()
	out := append([]byte{payloadStart, byte(p.Type)}, EncodeUint32(uint32(len(body)))...)
	out = append(out, body...)
	out = append(out, payloadEnd)
	return out
}
