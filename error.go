package blockstore

import (
	"errors"
	"strconv"
	"strings"
)

// Kind classifies the outcome of a store operation.
//
// There is no "block not in use" or generic warning kind: no operation
// produces either. Access to an unallocated block is KindMismatch.
type Kind uint8

const (
	KindOK Kind = iota
	KindParam
	KindInternal
	KindFull
	KindInUse
	KindFileAccess
	KindFatal
	KindFileIO
	KindMemory
	// KindMismatch reports a completed read or write against a block that
	// is not allocated. It is advisory.
	KindMismatch
)

func (kind Kind) String() string {
	switch kind {
	case KindOK:
		return "ok"
	case KindParam:
		return "parameter error"
	case KindInternal:
		return "generic internal error"
	case KindFull:
		return "device full"
	case KindInUse:
		return "block in use"
	case KindFileAccess:
		return "could not access file"
	case KindFatal:
		return "generic fatal error"
	case KindFileIO:
		return "error during disk I/O"
	case KindMemory:
		return "memory allocation failure"
	case KindMismatch:
		return "read/write request to a block not marked in use"
	default:
		return "kind(" + strconv.Itoa(int(kind)) + ")"
	}
}

// Error lets a Kind serve as its own sentinel.
func (kind Kind) Error() string {
	return kind.String()
}

// Sentinels for errors.Is.
var (
	ErrParam      error = KindParam
	ErrInternal   error = KindInternal
	ErrFull       error = KindFull
	ErrInUse      error = KindInUse
	ErrFileAccess error = KindFileAccess
	ErrFatal      error = KindFatal
	ErrFileIO     error = KindFileIO
	ErrMemory     error = KindMemory
	ErrMismatch   error = KindMismatch
)

var (
	ErrClosed         = errors.New("closed")
	ErrInvalidBlockID = errors.New("invalid block id")
	ErrEmptyBuffer    = errors.New("empty buffer")
	ErrOutOfBounds    = errors.New("out of bounds")
	ErrEmptyPath      = errors.New("empty path")
	ErrImageSize      = errors.New("bad image size")
	ErrCorruptImage   = errors.New("corrupt image")
)

// Error is returned by every failing Store operation.
type Error struct {
	Op   string
	Kind Kind
	ID   BlockID // 0 when the operation is not about one block
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("blockstore: ")
	b.WriteString(e.Op)
	if e.ID != 0 {
		b.WriteString(" block ")
		b.WriteString(strconv.FormatUint(uint64(e.ID), 10))
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.Kind
}

// KindOf classifies err. nil is KindOK; errors not produced by this
// package are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}
	return KindInternal
}

// IsAdvisory reports whether err describes an operation that completed.
func IsAdvisory(err error) bool {
	return KindOf(err) == KindMismatch
}

func paramError(op string, id BlockID, err error) *Error {
	return &Error{Op: op, Kind: KindParam, ID: id, Err: err}
}
