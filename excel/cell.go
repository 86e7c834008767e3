package excel

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/Soreepeong/pyxivdata/sestring"
	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// decodeCell applies a column's transform rule to the fixed/variable slices
// of one (sub-)row, returning a value of the Go type matching col.Type
// (spec.md §4.I): bool, int8/16/32/64, uint8/16/32/64, float32, or
// *sestring.SeString.
func decodeCell(col exhColumnDefinition, fixed, variable []byte) (any, error) {
	off := int(col.Offset)
	need := func(n int) error {
		if off < 0 || off+n > len(fixed) {
			return xiv.New(xiv.KindBadColumn, "column offset out of range", nil)
		}
		return nil
	}

	switch t := ColumnType(col.Type); t {
	case ColumnString:
		if err := need(4); err != nil {
			return nil, err
		}
		strOffset := binary.BigEndian.Uint32(fixed[off : off+4])
		if int(strOffset) > len(variable) {
			return nil, xiv.New(xiv.KindBadColumn, "string offset exceeds variable data", nil)
		}
		end := bytes.IndexByte(variable[strOffset:], 0)
		if end < 0 {
			return nil, xiv.New(xiv.KindBadColumn, "unterminated string in variable data", nil)
		}
		return sestring.NewFromBytes(variable[strOffset : int(strOffset)+end]), nil
	case ColumnBool:
		if err := need(1); err != nil {
			return nil, err
		}
		return fixed[off] != 0, nil
	case ColumnInt8:
		if err := need(1); err != nil {
			return nil, err
		}
		return int8(fixed[off]), nil
	case ColumnUInt8:
		if err := need(1); err != nil {
			return nil, err
		}
		return fixed[off], nil
	case ColumnInt16:
		if err := need(2); err != nil {
			return nil, err
		}
		return int16(binary.BigEndian.Uint16(fixed[off : off+2])), nil
	case ColumnUInt16:
		if err := need(2); err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint16(fixed[off : off+2]), nil
	case ColumnInt32:
		if err := need(4); err != nil {
			return nil, err
		}
		return int32(binary.BigEndian.Uint32(fixed[off : off+4])), nil
	case ColumnUInt32:
		if err := need(4); err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint32(fixed[off : off+4]), nil
	case ColumnFloat32:
		if err := need(4); err != nil {
			return nil, err
		}
		bits := binary.BigEndian.Uint32(fixed[off : off+4])
		return math.Float32frombits(bits), nil
	case ColumnInt64:
		if err := need(8); err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(fixed[off : off+8])), nil
	case ColumnUInt64:
		if err := need(8); err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint64(fixed[off : off+8]), nil
	default:
		if bit, ok := t.isPackedBool(); ok {
			if err := need(1); err != nil {
				return nil, err
			}
			return fixed[off]&(1<<bit) != 0, nil
		}
		return nil, xiv.New(xiv.KindBadColumn, "unrecognized column type", nil)
	}
}
