package excel

import (
	"bytes"
	"encoding/binary"

	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// Header is a parsed .exh file: column/page/language arrays plus the depth
// and fixed-data-size needed to interpret every page's rows (spec.md §4.G).
type Header struct {
	depth         Depth
	fixedDataSize int
	rowCount      uint32
	columns       []exhColumnDefinition
	pages         []exhPageDefinition
	languages     []Language
}

// loadHeader parses a complete .exh byte image.
func loadHeader(data []byte) (*Header, error) {
	r := bytes.NewReader(data)

	var h exhHeader
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, xiv.New(xiv.KindIO, "read exh header", err)
	}
	if string(h.Signature[:]) != exhSignature {
		return nil, xiv.New(xiv.KindCorruptData, "bad exh signature", nil)
	}
	depth := Depth(h.RawDepth)
	if depth != DepthFlat && depth != DepthSubrows {
		return nil, xiv.New(xiv.KindCorruptData, "unrecognized exh depth", nil)
	}

	columns := make([]exhColumnDefinition, h.ColumnCount)
	if err := binary.Read(r, binary.BigEndian, &columns); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read exh column definitions", err)
	}

	pages := make([]exhPageDefinition, h.PageCount)
	if err := binary.Read(r, binary.BigEndian, &pages); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read exh page definitions", err)
	}
	for i := 1; i < len(pages); i++ {
		if pages[i].StartID <= pages[i-1].StartID {
			return nil, xiv.New(xiv.KindCorruptData, "exh page start_id values are not strictly increasing", nil)
		}
	}

	// The language code list is the sole little-endian field in the exh
	// format: spec.md §4.G.
	languages := make([]Language, h.LanguageCount)
	for i := range languages {
		var raw uint16
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, xiv.New(xiv.KindCorruptData, "read exh language code", err)
		}
		languages[i] = Language(raw)
	}

	return &Header{
		depth:         depth,
		fixedDataSize: int(h.FixedDataSize),
		rowCount:      h.RowCountWithoutSkip,
		columns:       columns,
		pages:         pages,
		languages:     languages,
	}, nil
}

// Depth reports whether sheets built from this header use flat or sub-row
// record bodies.
func (h *Header) Depth() Depth { return h.depth }

// FixedDataSize is the number of fixed-payload bytes per row (flat mode) or
// per sub-row (sub-rowed mode).
func (h *Header) FixedDataSize() int { return h.fixedDataSize }

// RowCount is the header's declared row_count_without_skip.
func (h *Header) RowCount() uint32 { return h.rowCount }

// ColumnCount is the number of columns this sheet's rows carry.
func (h *Header) ColumnCount() int { return len(h.columns) }

// Languages lists every language this sheet has pages for.
func (h *Header) Languages() []Language {
	out := make([]Language, len(h.languages))
	copy(out, h.languages)
	return out
}

// hasLanguage reports whether l is among the header's declared languages.
func (h *Header) hasLanguage(l Language) bool {
	for _, have := range h.languages {
		if have == l {
			return true
		}
	}
	return false
}
