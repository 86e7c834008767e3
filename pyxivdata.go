// Package pyxivdata decodes FINAL FANTASY XIV's SqPack game archives, the
// Excel tabular database stored inside them, and the SeString rich-text
// payload language embedded in Excel string cells.
//
// The three subsystems live in their own packages (sqpack, excel, sestring);
// this package only wires them together for the common case of opening a
// named Excel sheet straight out of a running game installation's archives,
// and re-exports the shared error taxonomy (package xerrors) under the
// names spec.md §7 uses.
package pyxivdata

import (
	"github.com/Soreepeong/pyxivdata/excel"
	"github.com/Soreepeong/pyxivdata/sqpack"
	"github.com/Soreepeong/pyxivdata/xerrors"
)

// Kind classifies a decode failure; see xerrors.Kind.
type Kind = xerrors.Kind

// Error is the concrete error type every sub-package returns; see xerrors.Error.
type Error = xerrors.Error

// Sentinels usable with errors.Is against any error returned by this module
// or its sub-packages.
var (
	IO               = xerrors.IO
	CorruptData      = xerrors.CorruptData
	NotFound         = xerrors.NotFound
	AmbiguousPath    = xerrors.AmbiguousPath
	BadBlock         = xerrors.BadBlock
	DecompressFailed = xerrors.DecompressFailed
	BadExpression    = xerrors.BadExpression
	BadPayload       = xerrors.BadPayload
	BadColumn        = xerrors.BadColumn
	CountConstraint  = xerrors.CountConstraint
)

// Game is a convenience façade over a set of SqPack archives plus the Excel
// sheets stored inside them. It does not perform installation discovery
// (out of scope per spec.md §1); callers supply a function that opens each
// category's archive.
type Game struct {
	archives map[string]*sqpack.Archive
	open     func(category string) (*sqpack.Archive, error)
}

// NewGame builds a Game whose archives are opened on demand via open, keyed
// by the SqPack category name that prefixes every Excel/exd path (e.g. "exd").
// This mirrors how the game itself shards files into one archive set per
// top-level category.
func NewGame(open func(category string) (*sqpack.Archive, error)) *Game {
	return &Game{archives: map[string]*sqpack.Archive{}, open: open}
}

// Sheet opens the named Excel sheet (e.g. "Item", "Action") from the "exd"
// category archive, parsing its header eagerly and its pages lazily.
func (g *Game) Sheet(name string) (*excel.Sheet, error) {
	archive, err := g.archiveFor("exd")
	if err != nil {
		return nil, err
	}
	return excel.OpenSheet(archive, name)
}

func (g *Game) archiveFor(category string) (*sqpack.Archive, error) {
	if a, ok := g.archives[category]; ok {
		return a, nil
	}
	a, err := g.open(category)
	if err != nil {
		return nil, err
	}
	g.archives[category] = a
	return a, nil
}

// Close closes every archive this Game has opened so far.
func (g *Game) Close() error {
	var first error
	for _, a := range g.archives {
		if err := a.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
