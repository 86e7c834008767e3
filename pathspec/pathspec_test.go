package pathspec_test

import (
	"testing"

	"github.com/Soreepeong/pyxivdata/pathspec"
	"github.com/stretchr/testify/require"
)

func TestNewSplitsPathAndName(t *testing.T) {
	ps, err := pathspec.New("Exd/Root.exl")
	require.NoError(t, err)

	full, ok := ps.FullPath()
	require.True(t, ok)
	require.Equal(t, "exd/root.exl", full)
}

func TestNewNormalizesBackslashes(t *testing.T) {
	a, err := pathspec.New(`common\font\font.exd`)
	require.NoError(t, err)
	b, err := pathspec.New("common/font/font.exd")
	require.NoError(t, err)

	require.Equal(t, a.FullPathHash(), b.FullPathHash())
	require.Equal(t, a.PathHash(), b.PathHash())
	require.Equal(t, a.NameHash(), b.NameHash())
}

func TestHashIsStableAcrossCalls(t *testing.T) {
	a, err := pathspec.New("exd/root.exl")
	require.NoError(t, err)
	b, err := pathspec.New("exd/root.exl")
	require.NoError(t, err)

	require.Equal(t, a.FullPathHash(), b.FullPathHash())
	require.Equal(t, a.PathHash(), b.PathHash())
	require.Equal(t, a.NameHash(), b.NameHash())
}

func TestEmptyPathRejected(t *testing.T) {
	_, err := pathspec.New("")
	require.ErrorIs(t, err, pathspec.ErrEmptyPath)
}

func TestHashOnlySpecHasNoFullPath(t *testing.T) {
	ps := pathspec.NewFromHashes(1, 2, 3)
	require.False(t, ps.HasFullPath())
	require.True(t, ps.HasPathNameHash())
	require.True(t, ps.HasFullPathHash())
}

func TestEqualByFullPathHash(t *testing.T) {
	a, err := pathspec.New("exd/root.exl")
	require.NoError(t, err)
	b := pathspec.NewFromHashes(0, 0, a.FullPathHash())

	require.True(t, a.Equal(b))
}

func TestEqualByPairHash(t *testing.T) {
	a, err := pathspec.New("exd/root.exl")
	require.NoError(t, err)
	b := pathspec.NewFromPairHash(a.PathHash(), a.NameHash())

	require.True(t, a.Equal(b))
}

func TestIsDirectory(t *testing.T) {
	ps, err := pathspec.New("exd/")
	require.NoError(t, err)
	require.True(t, ps.IsDirectory())

	ps2, err := pathspec.New("exd/root.exl")
	require.NoError(t, err)
	require.False(t, ps2.IsDirectory())
}
