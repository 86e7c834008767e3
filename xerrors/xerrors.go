// Package xerrors defines the error taxonomy (spec.md §7) shared by every
// sqpack/excel/sestring decode failure. It is kept dependency-free (no
// sub-package imports) so both the leaf decoders and the root façade can
// import it without a cycle.
package xerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure. It is deliberately coarse: callers are
// expected to branch on Kind, not on the wrapped cause.
type Kind int

const (
	// KindIO covers plain I/O failures from the underlying file/reader.
	KindIO Kind = iota
	// KindCorruptData covers structural mismatches: bad signatures, sizes
	// that don't divide evenly, headers whose declared size disagrees with
	// the struct actually read.
	KindCorruptData
	// KindNotFound covers hash or row misses.
	KindNotFound
	// KindAmbiguousPath covers a synonym hit resolved without a full path.
	KindAmbiguousPath
	// KindBadBlock covers a malformed block header or truncated block body.
	KindBadBlock
	// KindDecompressFailed covers a DEFLATE stream that fails to inflate.
	KindDecompressFailed
	// KindBadExpression covers an invalid SeExpression marker byte.
	KindBadExpression
	// KindBadPayload covers SePayload framing errors (missing 0x03, short read).
	KindBadPayload
	// KindBadColumn covers an out-of-range Excel cell decode.
	KindBadColumn
	// KindCountConstraint covers a payload built with an expression count
	// outside its declared [min, max].
	KindCountConstraint
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindCorruptData:
		return "corrupt data"
	case KindNotFound:
		return "not found"
	case KindAmbiguousPath:
		return "ambiguous path"
	case KindBadBlock:
		return "bad block"
	case KindDecompressFailed:
		return "decompress failed"
	case KindBadExpression:
		return "bad expression"
	case KindBadPayload:
		return "bad payload"
	case KindBadColumn:
		return "bad column"
	case KindCountConstraint:
		return "count constraint"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every sub-package returns. It carries a
// Kind for programmatic branching (errors.Is against the Kind sentinels
// below) and an optional wrapped cause for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the Kind sentinel matching e.Kind, so that
// errors.Is(err, xerrors.NotFound) works without exposing *Error directly.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && k.kind == e.Kind
}

type kindSentinel struct{ kind Kind }

func (k kindSentinel) Error() string { return k.kind.String() }

// Sentinels usable with errors.Is against any error returned by this module
// or its sub-packages.
var (
	IO               error = kindSentinel{KindIO}
	CorruptData      error = kindSentinel{KindCorruptData}
	NotFound         error = kindSentinel{KindNotFound}
	AmbiguousPath    error = kindSentinel{KindAmbiguousPath}
	BadBlock         error = kindSentinel{KindBadBlock}
	DecompressFailed error = kindSentinel{KindDecompressFailed}
	BadExpression    error = kindSentinel{KindBadExpression}
	BadPayload       error = kindSentinel{KindBadPayload}
	BadColumn        error = kindSentinel{KindBadColumn}
	CountConstraint  error = kindSentinel{KindCountConstraint}
)

// New builds an *Error of the given kind wrapping cause (which may be nil).
func New(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// As is a small helper so sub-packages can test "is this one of ours" without
// importing errors directly at every call site.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
