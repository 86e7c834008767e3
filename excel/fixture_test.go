package excel

import (
	"bytes"
	"encoding/binary"
)

// Test fixtures build raw .exh/.exd byte images by hand, the same
// "construct a tiny archive, don't ship binary fixtures" habit used in
// sqpack's own test suite.

func writeBE(buf *bytes.Buffer, v any) {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		panic(err)
	}
}

// buildExh assembles a complete .exh byte image.
func buildExh(depth Depth, fixedDataSize uint16, columns []exhColumnDefinition, pages []exhPageDefinition, languages []Language) []byte {
	var buf bytes.Buffer
	h := exhHeader{
		Version:             3,
		FixedDataSize:       fixedDataSize,
		ColumnCount:         uint16(len(columns)),
		PageCount:           uint16(len(pages)),
		LanguageCount:       uint16(len(languages)),
		RawDepth:            uint8(depth),
		RowCountWithoutSkip: 0,
	}
	copy(h.Signature[:], exhSignature)
	writeBE(&buf, h)
	for _, c := range columns {
		writeBE(&buf, c)
	}
	for _, p := range pages {
		writeBE(&buf, p)
	}
	for _, l := range languages {
		// The language list is little-endian even though everything else
		// in the exh format is big-endian.
		if err := binary.Write(&buf, binary.LittleEndian, uint16(l)); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// buildExdFlat assembles a complete .exd byte image in flat-record mode:
// one (fixed, variable) pair per row.
func buildExdFlat(rows map[uint32][2][]byte) []byte {
	type ordered struct {
		id      uint32
		fixed   []byte
		varData []byte
	}
	var recs []ordered
	for id, fv := range rows {
		recs = append(recs, ordered{id, fv[0], fv[1]})
	}
	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			if recs[j].id < recs[i].id {
				recs[i], recs[j] = recs[j], recs[i]
			}
		}
	}

	var body bytes.Buffer
	locators := make([]exdRowLocator, 0, len(recs))
	// Row offsets are absolute within the file: past the header and index.
	bodyStart := binary.Size(exdHeader{}) + len(recs)*8
	for _, r := range recs {
		offset := uint32(bodyStart + body.Len())
		dataSize := uint32(len(r.fixed) + len(r.varData))
		writeBE(&body, exdRowHeader{DataSize: dataSize, SubRowCount: 1})
		body.Write(r.fixed)
		body.Write(r.varData)
		locators = append(locators, exdRowLocator{RowID: r.id, Offset: offset})
	}

	var buf bytes.Buffer
	indexSize := uint32(len(locators) * 8)
	h := exdHeader{Version: 2, IndexSize: indexSize, DataSize: uint32(body.Len())}
	copy(h.Signature[:], exdSignature)
	writeBE(&buf, h)
	for _, l := range locators {
		writeBE(&buf, l)
	}
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// buildExdSubrows assembles a single sub-rowed record: subFixed entries each
// 2+fixedDataSize bytes (leading 2-byte sub-row id supplied by the caller
// already baked into subFixed), sharing one trailing variable region.
func buildExdSubrows(rowID uint32, subFixed [][]byte, variable []byte) []byte {
	var body bytes.Buffer
	var dataSize uint32
	for _, sf := range subFixed {
		dataSize += uint32(len(sf))
	}
	dataSize += uint32(len(variable))
	writeBE(&body, exdRowHeader{DataSize: dataSize, SubRowCount: uint16(len(subFixed))})
	for _, sf := range subFixed {
		body.Write(sf)
	}
	body.Write(variable)

	var buf bytes.Buffer
	h := exdHeader{Version: 2, IndexSize: 8, DataSize: uint32(body.Len())}
	copy(h.Signature[:], exdSignature)
	writeBE(&buf, h)
	writeBE(&buf, exdRowLocator{RowID: rowID, Offset: uint32(binary.Size(exdHeader{}) + 8)})
	buf.Write(body.Bytes())
	return buf.Bytes()
}
