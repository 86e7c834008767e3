package excel

import (
	"bytes"
	"encoding/binary"
	"sort"

	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// row is one record's decoded layout: one fixed-payload slice per sub-row
// (length 1 in flat mode), sharing a single trailing variable-data region
// (spec.md §4.H).
type row struct {
	fixed    [][]byte
	variable []byte
}

// page is a parsed .exd file: every row_id it declares, in ascending order.
type page struct {
	rowIDs []uint32
	rows   map[uint32]row
}

// loadPage parses a complete .exd byte image against the owning header's
// depth and fixed_data_size (spec.md §4.H).
func loadPage(data []byte, h *Header) (*page, error) {
	r := bytes.NewReader(data)

	var eh exdHeader
	if err := binary.Read(r, binary.BigEndian, &eh); err != nil {
		return nil, xiv.New(xiv.KindIO, "read exd header", err)
	}
	if string(eh.Signature[:]) != exdSignature {
		return nil, xiv.New(xiv.KindCorruptData, "bad exd signature", nil)
	}
	if eh.IndexSize%8 != 0 {
		return nil, xiv.New(xiv.KindCorruptData, "exd index_size is not a multiple of 8", nil)
	}

	locators := make([]exdRowLocator, eh.IndexSize/8)
	if err := binary.Read(r, binary.BigEndian, &locators); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read exd row locators", err)
	}
	sort.Slice(locators, func(i, j int) bool { return locators[i].RowID < locators[j].RowID })

	p := &page{rows: make(map[uint32]row, len(locators))}
	for _, loc := range locators {
		rec, err := readRow(data, loc.Offset, h)
		if err != nil {
			return nil, err
		}
		p.rowIDs = append(p.rowIDs, loc.RowID)
		p.rows[loc.RowID] = rec
	}
	return p, nil
}

const exdRowHeaderSize = 6

func readRow(data []byte, offset uint32, h *Header) (row, error) {
	if int(offset)+exdRowHeaderSize > len(data) {
		return row{}, xiv.New(xiv.KindCorruptData, "exd row offset out of range", nil)
	}
	var rh exdRowHeader
	if err := binary.Read(bytes.NewReader(data[offset:offset+exdRowHeaderSize]), binary.BigEndian, &rh); err != nil {
		return row{}, xiv.New(xiv.KindCorruptData, "read exd row header", err)
	}
	bodyStart := int(offset) + exdRowHeaderSize
	bodyEnd := bodyStart + int(rh.DataSize)
	if bodyEnd > len(data) {
		return row{}, xiv.New(xiv.KindCorruptData, "exd row body exceeds page bounds", nil)
	}
	body := data[bodyStart:bodyEnd]

	fixedSize := h.fixedDataSize
	switch h.depth {
	case DepthFlat:
		if fixedSize > len(body) {
			return row{}, xiv.New(xiv.KindCorruptData, "exd row body shorter than fixed_data_size", nil)
		}
		return row{fixed: [][]byte{body[:fixedSize]}, variable: body[fixedSize:]}, nil
	case DepthSubrows:
		stride := 2 + fixedSize
		subTotal := int(rh.SubRowCount) * stride
		if subTotal > len(body) {
			return row{}, xiv.New(xiv.KindCorruptData, "exd sub-row region exceeds row body", nil)
		}
		fixed := make([][]byte, rh.SubRowCount)
		for i := 0; i < int(rh.SubRowCount); i++ {
			start := i*stride + 2 // skip the leading 2-byte sub-row id
			fixed[i] = body[start : start+fixedSize]
		}
		return row{fixed: fixed, variable: body[subTotal:]}, nil
	default:
		return row{}, xiv.New(xiv.KindCorruptData, "unrecognized depth", nil)
	}
}

// ids returns every row_id this page declares, in ascending order.
func (p *page) ids() []uint32 { return p.rowIDs }

// get looks up row_id, failing with NotFound if the page has no such row.
func (p *page) get(rowID uint32) (row, error) {
	rec, ok := p.rows[rowID]
	if !ok {
		return row{}, xiv.New(xiv.KindNotFound, "row_id not present in page", nil)
	}
	return rec, nil
}
