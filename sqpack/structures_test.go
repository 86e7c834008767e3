package sqpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataLocatorBitPacking(t *testing.T) {
	loc := encodeLocator(3, 1280, true)
	assert.True(t, loc.synonym())
	assert.Equal(t, 3, loc.datIndex())
	assert.Equal(t, int64(1280), loc.offset())
}

func TestDataLocatorNoSynonym(t *testing.T) {
	loc := encodeLocator(0, 0, false)
	assert.False(t, loc.synonym())
	assert.Equal(t, 0, loc.datIndex())
	assert.Equal(t, int64(0), loc.offset())
}

func TestModelChunkInfo32At(t *testing.T) {
	c := modelChunkInfo32{
		Stack: 1, Runtime: 2,
		Vertex:             [3]uint32{10, 11, 12},
		EdgeGeometryVertex: [3]uint32{20, 21, 22},
		Index:              [3]uint32{30, 31, 32},
	}
	assert.Equal(t, uint32(1), c.at(0))
	assert.Equal(t, uint32(2), c.at(1))
	assert.Equal(t, uint32(10), c.at(2))  // lod 0 vertex
	assert.Equal(t, uint32(20), c.at(3))  // lod 0 edge-geometry-vertex
	assert.Equal(t, uint32(30), c.at(4))  // lod 0 index
	assert.Equal(t, uint32(11), c.at(5))  // lod 1 vertex
	assert.Equal(t, uint32(32), c.at(10)) // lod 2 index
}

func TestModelChunkInfo16At(t *testing.T) {
	c := modelChunkInfo16{Stack: 5, Runtime: 6, Vertex: [3]uint16{1, 2, 3}}
	assert.Equal(t, uint16(5), c.at(0))
	assert.Equal(t, uint16(6), c.at(1))
	assert.Equal(t, uint16(1), c.at(2))
}

func TestBlockHeaderUncompressedMarker(t *testing.T) {
	compressed := blockHeader{CompressedSize: 1234}
	assert.True(t, compressed.isCompressed())
	stored := blockHeader{CompressedSize: blockHeaderUncompressedMarker}
	assert.False(t, stored.isCompressed())
}

func TestTextLocatorSentinel(t *testing.T) {
	var r textLocatorRow
	assert.False(t, r.isSentinel())
	r.NameHash, r.PathHash, r.ConflictIndex = 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF
	assert.True(t, r.isSentinel())
}

func TestTextLocatorPathExtraction(t *testing.T) {
	var r textLocatorRow
	copy(r.FullPath[:], "common/test.txt")
	assert.Equal(t, "common/test.txt", r.path())
}
