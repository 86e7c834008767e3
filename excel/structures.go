// Package excel decodes the Excel tabular database layered on top of a
// SqPack archive (spec.md §4.G/§4.H/§4.I/§4.J): per-sheet `.exh` headers,
// per-(page,language) `.exd` pages, typed cell extraction, and a row façade
// with language fallback.
//
// Unlike the SqPack wire format, every multi-byte Excel field is big-endian
// (spec.md §6), with one explicit exception: the exh language code list.
package excel

// Wire structs grounded on original_source/.../resource/excel/structures.py.
// Every struct here is read with a single binary.Read call against
// binary.BigEndian, following the same "trust the struct layout, don't hand
// parse field by field" habit sqpack/structures.go uses for the (little-
// endian) SqPack wire structs.

// ColumnType discriminates an Exh column's cell encoding (spec.md §4.I).
type ColumnType uint16

const (
	ColumnString  ColumnType = 0x0
	ColumnBool    ColumnType = 0x1
	ColumnInt8    ColumnType = 0x2
	ColumnUInt8   ColumnType = 0x3
	ColumnInt16   ColumnType = 0x4
	ColumnUInt16  ColumnType = 0x5
	ColumnInt32   ColumnType = 0x6
	ColumnUInt32  ColumnType = 0x7
	ColumnFloat32 ColumnType = 0x9
	ColumnInt64   ColumnType = 0xA
	ColumnUInt64  ColumnType = 0xB

	// ColumnPackedBool0..7 read bit K of the byte at the column's offset;
	// PackedBoolK == ColumnPackedBool0+K.
	ColumnPackedBool0 ColumnType = 0x19
	ColumnPackedBool1 ColumnType = 0x1A
	ColumnPackedBool2 ColumnType = 0x1B
	ColumnPackedBool3 ColumnType = 0x1C
	ColumnPackedBool4 ColumnType = 0x1D
	ColumnPackedBool5 ColumnType = 0x1E
	ColumnPackedBool6 ColumnType = 0x1F
	ColumnPackedBool7 ColumnType = 0x20
)

// isPackedBool reports whether t is one of the eight packed-bool variants,
// and if so which bit of the byte at offset it reads.
func (t ColumnType) isPackedBool() (bit uint, ok bool) {
	if t < ColumnPackedBool0 || t > ColumnPackedBool7 {
		return 0, false
	}
	return uint(t - ColumnPackedBool0), true
}

// Depth selects a sheet's row layout: one record per row, or sub-rows
// sharing a single variable-data region (spec.md §4.H). The underlying
// values match the wire's raw depth byte (1, 2) exactly.
type Depth uint8

const (
	DepthFlat    Depth = 1
	DepthSubrows Depth = 2
)

const (
	exhSignature = "EXHF"
	exdSignature = "EXDF"
)

// exhHeader is the big-endian 30-byte header at the start of every .exh file.
type exhHeader struct {
	Signature           [4]byte
	Version             uint16
	FixedDataSize       uint16
	ColumnCount         uint16
	PageCount           uint16
	LanguageCount       uint16
	Unknown             uint16
	Padding16           uint8
	RawDepth            uint8
	Padding18           [2]uint8
	RowCountWithoutSkip uint32
	Padding24           [6]uint8
}

// exhColumnDefinition is a 4-byte column descriptor.
type exhColumnDefinition struct {
	Type   uint16
	Offset uint16
}

// exhPageDefinition is an 8-byte page descriptor.
type exhPageDefinition struct {
	StartID          uint32
	RowCountWithSkip uint32
}

// exdHeader is the big-endian 32-byte header at the start of every .exd file.
type exdHeader struct {
	Signature [4]byte
	Version   uint16
	Padding6  uint16
	IndexSize uint32
	DataSize  uint32
	Padding16 [0x10]byte
}

// exdRowLocator is an 8-byte (row_id, byte_offset) pair, sorted by row_id.
type exdRowLocator struct {
	RowID  uint32
	Offset uint32
}

// exdRowHeader is the 6-byte header preceding each row body's payload bytes.
type exdRowHeader struct {
	DataSize     uint32
	SubRowCount  uint16
}

// Language identifies the localization a page belongs to. Values match the
// game's own language code list, read little-endian from the exh trailer
// (the one field in the Excel wire format that isn't big-endian).
type Language uint16

const (
	LanguageUndefined          Language = 0
	LanguageJapanese           Language = 1
	LanguageEnglish            Language = 2
	LanguageGerman             Language = 3
	LanguageFrench             Language = 4
	LanguageChineseSimplified  Language = 5
	LanguageChineseTraditional Language = 6
	LanguageKorean             Language = 7
)

func (l Language) String() string {
	switch l {
	case LanguageUndefined:
		return "Undefined"
	case LanguageJapanese:
		return "Japanese"
	case LanguageEnglish:
		return "English"
	case LanguageGerman:
		return "German"
	case LanguageFrench:
		return "French"
	case LanguageChineseSimplified:
		return "ChineseSimplified"
	case LanguageChineseTraditional:
		return "ChineseTraditional"
	case LanguageKorean:
		return "Korean"
	default:
		return "Unknown"
	}
}

// languageSuffix returns the filename suffix appended after a page's
// start_id when building an .exd path (e.g. "_en"), matching
// ExcelReader.LANG_SUFFIX.
func languageSuffix(l Language) string {
	switch l {
	case LanguageJapanese:
		return "_ja"
	case LanguageEnglish:
		return "_en"
	case LanguageGerman:
		return "_de"
	case LanguageFrench:
		return "_fr"
	case LanguageChineseSimplified:
		return "_chs"
	case LanguageChineseTraditional:
		return "_cht"
	case LanguageKorean:
		return "_ko"
	default:
		return ""
	}
}
