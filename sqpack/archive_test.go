package sqpack

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soreepeong/pyxivdata/pathspec"
	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// writeFixtureArchive lays out a minimal one-dat archive on disk containing
// a single Binary entry for "common/test.txt", returning the base path
// (without extension) Open expects.
func writeFixtureArchive(t *testing.T, dir string) (base string, spec pathspec.PathSpec, payload []byte) {
	t.Helper()
	spec, err := pathspec.New("common/test.txt")
	require.NoError(t, err)

	payload = []byte("hello sqpack")
	compressed := deflateRaw(payload)

	var entry bytes.Buffer
	writeStruct(&entry, entryHeader{
		HeaderSize: 24, Type: uint32(entryBinary),
		DecompressedSize: uint32(len(payload)), BlockCountOrVersion: 1,
	})
	writeStruct(&entry, blockLocator{Offset: 8}) // past this one 8-byte locator table entry
	writeStruct(&entry, blockHeader{
		HeaderSize: 16, CompressedSize: uint32(len(compressed)), DecompressedSize: uint32(len(payload)),
	})
	entry.Write(compressed)

	datOffset := int64(archiveHeaderSize) // first entry sits right after the dat's own header
	loc := encodeLocator(0, datOffset, false)
	hashLocators := encodePairHash(spec.PathHash(), spec.NameHash(), loc)
	pathHashLocators := encodePathHash(spec.PathHash(), 0, uint32(len(hashLocators)))
	fullPath, _ := spec.FullPath()
	textLocators := append(
		encodeTextLocator(spec.PathHash(), spec.NameHash(), loc, fullPath),
		textLocatorSentinelRow()...,
	)
	indexRaw := buildIndexFile(hashLocators, pathHashLocators, textLocators, 1)

	index2Raw := buildIndex2File(
		encodeFullHash(spec.FullPathHash(), loc),
		append(encodeFullHashText(spec.FullPathHash(), loc, fullPath), fullHashTextSentinelRow()...),
	)

	base = filepath.Join(dir, "test")
	require.NoError(t, os.WriteFile(base+".index", indexRaw, 0o644))
	require.NoError(t, os.WriteFile(base+".index2", index2Raw, 0o644))

	var dat bytes.Buffer
	writeStruct(&dat, newArchiveHeader(kindData))
	padTo(&dat, archiveHeaderSize)
	dat.Write(entry.Bytes())
	require.NoError(t, os.WriteFile(base+".dat0", dat.Bytes(), 0o644))

	return base, spec, payload
}

func TestArchiveOpenLocatesAndDecodesEntry(t *testing.T) {
	dir := t.TempDir()
	base, spec, payload := writeFixtureArchive(t, dir)

	a, err := Open(base)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.Open(spec)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestArchiveLocateByFullHashDirectly(t *testing.T) {
	dir := t.TempDir()
	base, spec, _ := writeFixtureArchive(t, dir)

	a, err := Open(base)
	require.NoError(t, err)
	defer a.Close()

	loc, err := a.locateByFullHash(spec)
	require.NoError(t, err)
	assert.Equal(t, 0, loc.DatIndex)
	assert.Equal(t, int64(archiveHeaderSize), loc.Offset)
}

func TestArchiveLocateNotFound(t *testing.T) {
	dir := t.TempDir()
	base, _, _ := writeFixtureArchive(t, dir)

	a, err := Open(base)
	require.NoError(t, err)
	defer a.Close()

	missing, err := pathspec.New("common/missing.txt")
	require.NoError(t, err)
	_, err = a.Locate(missing)
	require.Error(t, err)
	e, ok := xiv.As(err)
	require.True(t, ok)
	assert.Equal(t, xiv.KindNotFound, e.Kind)
}

func TestArchiveLocateEmptyPath(t *testing.T) {
	dir := t.TempDir()
	base, _, _ := writeFixtureArchive(t, dir)

	a, err := Open(base)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Locate(pathspec.PathSpec{})
	assert.ErrorIs(t, err, pathspec.ErrEmptyPath)
}

func TestArchiveListDirectory(t *testing.T) {
	dir := t.TempDir()
	base, spec, _ := writeFixtureArchive(t, dir)

	a, err := Open(base)
	require.NoError(t, err)
	defer a.Close()

	dirSpec, err := pathspec.New("common/")
	require.NoError(t, err)

	names, err := a.ListDirectory(dirSpec)
	require.NoError(t, err)
	full, _ := spec.FullPath()
	assert.Contains(t, names, full)
}

// TestArchiveLocateSynonymDisambiguation builds an index whose pair-hash
// locator carries the synonym flag, resolvable only by walking the
// text-locator segment for the literal stored path (spec.md §4.D/§4.E
// synonym collision handling).
func TestArchiveLocateSynonymDisambiguation(t *testing.T) {
	dir := t.TempDir()
	spec, err := pathspec.New("common/synonym.txt")
	require.NoError(t, err)

	payload := []byte("synonym payload")
	compressed := deflateRaw(payload)
	var entry bytes.Buffer
	writeStruct(&entry, entryHeader{
		HeaderSize: 24, Type: uint32(entryBinary),
		DecompressedSize: uint32(len(payload)), BlockCountOrVersion: 1,
	})
	writeStruct(&entry, blockLocator{Offset: 8})
	writeStruct(&entry, blockHeader{
		HeaderSize: 16, CompressedSize: uint32(len(compressed)), DecompressedSize: uint32(len(payload)),
	})
	entry.Write(compressed)

	datOffset := int64(archiveHeaderSize)
	loc := encodeLocator(0, datOffset, true) // synonym flag set

	hashLocators := encodePairHash(spec.PathHash(), spec.NameHash(), loc)
	pathHashLocators := encodePathHash(spec.PathHash(), 0, uint32(len(hashLocators)))
	textLocators := append(
		encodeTextLocator(spec.PathHash(), spec.NameHash(), loc, "common/synonym.txt"),
		textLocatorSentinelRow()...,
	)
	indexRaw := buildIndexFile(hashLocators, pathHashLocators, textLocators, 1)
	index2Raw := buildIndex2File(
		encodeFullHash(spec.FullPathHash(), loc),
		append(encodeFullHashText(spec.FullPathHash(), loc, "common/synonym.txt"), fullHashTextSentinelRow()...),
	)

	base := filepath.Join(dir, "synonym")
	require.NoError(t, os.WriteFile(base+".index", indexRaw, 0o644))
	require.NoError(t, os.WriteFile(base+".index2", index2Raw, 0o644))

	var dat bytes.Buffer
	writeStruct(&dat, newArchiveHeader(kindData))
	padTo(&dat, archiveHeaderSize)
	dat.Write(entry.Bytes())
	require.NoError(t, os.WriteFile(base+".dat0", dat.Bytes(), 0o644))

	a, err := Open(base)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.Open(spec)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestArchiveCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	base, _, _ := writeFixtureArchive(t, dir)

	a, err := Open(base)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
