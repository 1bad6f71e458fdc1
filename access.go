package blockstore

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Read copies len(p) bytes starting at off inside block id into p.
//
// Reading a block that is not allocated is permitted: the copy happens,
// len(p) is returned, and the error is an advisory KindMismatch.
// On invalid arguments Read returns 0 and a KindParam error.
func (store *Store) Read(id BlockID, p []byte, off Offset) (n int, err error) {
	if err = store.usable(opRead); err != nil {
		return 0, err
	}
	pos, err := span(opRead, id, len(p), off)
	if err != nil {
		return 0, err
	}

	n = copy(p, store.data[pos:pos+len(p)])
	return n, store.mismatch(opRead, id)
}

// Write copies p into block id starting at off and marks the block dirty.
//
// Writing a block that is not allocated is permitted and reported like
// Read does. On invalid arguments Write returns 0, changes nothing and
// reports KindParam.
func (store *Store) Write(id BlockID, p []byte, off Offset) (n int, err error) {
	if err = store.usable(opWrite); err != nil {
		return 0, err
	}
	pos, err := span(opWrite, id, len(p), off)
	if err != nil {
		return 0, err
	}

	store.dbm.Set(int(id))
	n = copy(store.data[pos:pos+len(p)], p)
	return n, store.mismatch(opWrite, id)
}

// span validates a byte range and returns its position in the data region.
func span(op string, id BlockID, n int, off Offset) (int, error) {
	if !id.Valid() {
		return 0, paramError(op, id, ErrInvalidBlockID)
	}
	if n == 0 {
		return 0, paramError(op, id, ErrEmptyBuffer)
	}
	if uint64(off)+uint64(n) > BlockSize {
		return 0, paramError(op, id, fmt.Errorf("%w: offset %d + length %d > %d", ErrOutOfBounds, off, n, BlockSize))
	}

	pos := id.pos(off)
	assertSpan(op, pos, n)
	return pos, nil
}

func (store *Store) mismatch(op string, id BlockID) error {
	if store.fbm.Test(int(id)) {
		return nil
	}
	store.log.WithFields(logrus.Fields{"op": op, "block": id}).Debug("access to block not marked in use")
	return &Error{Op: op, Kind: KindMismatch, ID: id}
}
