package excel

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Soreepeong/pyxivdata/pathspec"
	"github.com/Soreepeong/pyxivdata/sqpack"
	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// defaultLanguageOrder is the order a Sheet tries requested languages in
// when a caller doesn't specify one, mirroring ExcelReader's
// "list(GameLanguage)" fallback.
var defaultLanguageOrder = []Language{
	LanguageUndefined, LanguageJapanese, LanguageEnglish, LanguageGerman,
	LanguageFrench, LanguageChineseSimplified, LanguageChineseTraditional, LanguageKorean,
}

const pageCacheSize = 32

// pageKey identifies one cached .exd page by its owning page's start_id and
// the language it was loaded for (spec.md §4.J).
type pageKey struct {
	startID  uint32
	language Language
}

// Sheet is the row façade over one Excel sheet's header and lazily-loaded,
// cached pages (spec.md §4.J).
type Sheet struct {
	archive *sqpack.Archive
	name    string
	header  *Header
	cache   *lru.Cache[pageKey, *page]

	columnIndex map[string]int // optional, set via SetColumnNames
}

// OpenSheet loads name's .exh header from archive's "exd" category. Pages
// are fetched lazily as rows are requested.
func OpenSheet(archive *sqpack.Archive, name string) (*Sheet, error) {
	spec, err := pathspec.New(fmt.Sprintf("exd/%s.exh", name))
	if err != nil {
		return nil, err
	}
	data, err := archive.Open(spec)
	if err != nil {
		return nil, err
	}
	header, err := loadHeader(data)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[pageKey, *page](pageCacheSize)
	if err != nil {
		return nil, xiv.New(xiv.KindIO, "allocate page cache", err)
	}
	return &Sheet{archive: archive, name: name, header: header, cache: cache}, nil
}

// Header exposes the sheet's parsed .exh contents.
func (s *Sheet) Header() *Header { return s.header }

// SetColumnNames establishes a name-to-index schema for Column lookups.
// names must have exactly one entry per column; unknown names later passed
// to Column fail loudly rather than silently returning a zero value.
func (s *Sheet) SetColumnNames(names []string) error {
	if len(names) != s.header.ColumnCount() {
		return xiv.New(xiv.KindCorruptData, "column name schema length does not match column count", nil)
	}
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	s.columnIndex = idx
	return nil
}

// resolveLanguage implements spec.md §4.J's language-fallback rule: the
// header's own Undefined declaration, if present, always wins; otherwise
// the first requested language the header actually has pages for.
func (s *Sheet) resolveLanguage(requested []Language) (Language, error) {
	if s.header.hasLanguage(LanguageUndefined) {
		return LanguageUndefined, nil
	}
	if len(requested) == 0 {
		requested = defaultLanguageOrder
	}
	for _, l := range requested {
		if s.header.hasLanguage(l) {
			return l, nil
		}
	}
	return 0, xiv.New(xiv.KindNotFound, "no requested language has pages in this sheet", nil)
}

// pageFor bisects the header's page list for the page covering rowID,
// failing with NotFound if rowID falls outside every page's range. A rowID
// inside a page's range that the page skipped is not detected here; the
// page lookup in Row reports it as NotFound.
func (s *Sheet) pageFor(rowID uint32) (exhPageDefinition, error) {
	pages := s.header.pages
	i := sort.Search(len(pages), func(i int) bool {
		return pages[i].StartID+pages[i].RowCountWithSkip > rowID
	})
	if i >= len(pages) || rowID < pages[i].StartID {
		return exhPageDefinition{}, xiv.New(xiv.KindNotFound, "row_id not covered by any page", nil)
	}
	return pages[i], nil
}

// getPage loads (and caches) the .exd page for pd in language l.
func (s *Sheet) getPage(pd exhPageDefinition, l Language) (*page, error) {
	key := pageKey{startID: pd.StartID, language: l}
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}
	path := fmt.Sprintf("exd/%s_%d%s.exd", s.name, pd.StartID, languageSuffix(l))
	spec, err := pathspec.New(path)
	if err != nil {
		return nil, err
	}
	data, err := s.archive.Open(spec)
	if err != nil {
		return nil, err
	}
	pg, err := loadPage(data, s.header)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, pg)
	return pg, nil
}

// Row resolves rowID to its decoded row, trying languages in requested
// order (or the default order if none are given).
func (s *Sheet) Row(rowID uint32, requested ...Language) (*Row, error) {
	lang, err := s.resolveLanguage(requested)
	if err != nil {
		return nil, err
	}
	pd, err := s.pageFor(rowID)
	if err != nil {
		return nil, err
	}
	pg, err := s.getPage(pd, lang)
	if err != nil {
		return nil, err
	}
	rec, err := pg.get(rowID)
	if err != nil {
		return nil, err
	}
	return s.buildRow(rec)
}

// RowIDs returns every row_id declared across this sheet's pages, resolved
// under the default (or given) language, in ascending order.
func (s *Sheet) RowIDs(requested ...Language) ([]uint32, error) {
	lang, err := s.resolveLanguage(requested)
	if err != nil {
		return nil, err
	}
	var ids []uint32
	for _, pd := range s.header.pages {
		pg, err := s.getPage(pd, lang)
		if err != nil {
			return nil, err
		}
		ids = append(ids, pg.ids()...)
	}
	return ids, nil
}

// Each visits every row across every page in page order. For each page, the
// first language in requested (or the default order) that successfully
// loads that page is used for every row in it (spec.md §4.J iteration
// rule); fn is called once per row_id with its decoded Row. Iteration stops
// and returns fn's error if it returns one. If no requested language loads a
// given page, it returns the error from the last language tried, or
// NotFound if the header declares none of the requested languages.
func (s *Sheet) Each(fn func(rowID uint32, r *Row) error, requested ...Language) error {
	langs := requested
	if len(langs) == 0 {
		langs = defaultLanguageOrder
	}
	if s.header.hasLanguage(LanguageUndefined) {
		langs = []Language{LanguageUndefined}
	}

	for _, pd := range s.header.pages {
		var pg *page
		var lastErr error
		for _, l := range langs {
			if !s.header.hasLanguage(l) {
				continue
			}
			candidate, err := s.getPage(pd, l)
			if err != nil {
				lastErr = err
				continue
			}
			pg = candidate
			break
		}
		if pg == nil {
			if lastErr == nil {
				lastErr = xiv.New(xiv.KindNotFound, "no requested language yields this page", nil)
			}
			return lastErr
		}
		for _, id := range pg.ids() {
			rec, err := pg.get(id)
			if err != nil {
				return err
			}
			r, err := s.buildRow(rec)
			if err != nil {
				return err
			}
			if err := fn(id, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sheet) buildRow(rec row) (*Row, error) {
	subRows := make([]*SubRow, len(rec.fixed))
	for i, fixed := range rec.fixed {
		cells := make([]any, len(s.header.columns))
		for c, col := range s.header.columns {
			v, err := decodeCell(col, fixed, rec.variable)
			if err != nil {
				return nil, err
			}
			cells[c] = v
		}
		subRows[i] = &SubRow{cells: cells, sheet: s}
	}
	return &Row{subRows: subRows}, nil
}

// Row is one decoded record: one SubRow in flat-mode sheets, zero or more
// in sub-rowed sheets.
type Row struct {
	subRows []*SubRow
}

// SubRowCount is the number of sub-rows this record carries (always 1 for
// flat-mode sheets).
func (r *Row) SubRowCount() int { return len(r.subRows) }

// SubRow returns the i'th sub-row.
func (r *Row) SubRow(i int) (*SubRow, error) {
	if i < 0 || i >= len(r.subRows) {
		return nil, xiv.New(xiv.KindBadColumn, "sub-row index out of range", nil)
	}
	return r.subRows[i], nil
}

// At is a convenience for flat-mode rows: the first (only) sub-row's i'th
// column value.
func (r *Row) At(i int) (any, error) {
	sr, err := r.SubRow(0)
	if err != nil {
		return nil, err
	}
	return sr.At(i)
}

// Column is a convenience for flat-mode rows: the first (only) sub-row's
// named column value, per the sheet's schema.
func (r *Row) Column(name string) (any, error) {
	sr, err := r.SubRow(0)
	if err != nil {
		return nil, err
	}
	return sr.Column(name)
}

// SubRow is one sub-row's decoded cell values, addressable positionally or
// (given a schema) by column name.
type SubRow struct {
	cells []any
	sheet *Sheet
}

// At returns the i'th column's decoded value.
func (sr *SubRow) At(i int) (any, error) {
	if i < 0 || i >= len(sr.cells) {
		return nil, xiv.New(xiv.KindBadColumn, "column index out of range", nil)
	}
	return sr.cells[i], nil
}

// Column returns the named column's decoded value. The sheet must have had
// SetColumnNames called; an unresolved name fails loudly rather than
// returning a zero value.
func (sr *SubRow) Column(name string) (any, error) {
	if sr.sheet.columnIndex == nil {
		return nil, xiv.New(xiv.KindBadColumn, "sheet has no column-name schema set", nil)
	}
	i, ok := sr.sheet.columnIndex[name]
	if !ok {
		return nil, xiv.New(xiv.KindBadColumn, fmt.Sprintf("unknown column name %q", name), nil)
	}
	return sr.At(i)
}
