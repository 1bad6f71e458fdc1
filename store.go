// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package blockstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/dacapoday/blockstore/arena"
	"github.com/dacapoday/blockstore/internal/bitmap"
	"github.com/sirupsen/logrus"
)

const (
	opCreate   = "create"
	opClose    = "close"
	opAllocate = "allocate"
	opRequest  = "request"
	opRelease  = "release"
	opRead     = "read"
	opWrite    = "write"
	opExport   = "export"
	opImport   = "import"
	opLoad     = "load"
	opWriteTo  = "write image"
)

// Store is a block device held in memory.
//
// The zero value is not usable; obtain a Store from Create, Import or Load.
type Store struct {
	// bit i set: block i is allocated
	fbm *bitmap.Bitmap
	// bit i set: block i was written since Create or Import
	dbm  *bitmap.Bitmap
	data []byte

	alloc arena.Allocator
	mode  os.FileMode
	log   logrus.FieldLogger
}

// Create returns an empty store: only the reserved blocks are marked
// allocated and dirty, every data byte is zero.
func Create(opts ...Option) (*Store, error) {
	store, err := create(opCreate, newConfig(opts))
	if err != nil {
		return nil, err
	}
	store.log.WithField("op", opCreate).Debug("block store created")
	return store, nil
}

func create(op string, cfg config) (*Store, error) {
	sizes := [...]int{bitmap.Size(BlockCount), bitmap.Size(BlockCount), dataSize}
	var bufs [len(sizes)][]byte
	release := func(bufs [][]byte) {
		for _, buf := range bufs {
			if err := cfg.alloc.Free(buf); err != nil {
				cfg.log.WithField("op", op).WithError(err).Error("release buffer")
			}
		}
	}

	for i, size := range sizes {
		buf, err := cfg.alloc.Alloc(size)
		if err != nil {
			release(bufs[:i])
			return nil, &Error{Op: op, Kind: KindMemory, Err: err}
		}
		bufs[i] = buf
	}

	fbm, err := bitmap.New(bufs[0], BlockCount)
	if err != nil {
		release(bufs[:])
		return nil, &Error{Op: op, Kind: KindInternal, Err: err}
	}
	dbm, err := bitmap.New(bufs[1], BlockCount)
	if err != nil {
		release(bufs[:])
		return nil, &Error{Op: op, Kind: KindInternal, Err: err}
	}
	fbm.SetRange(0, ReservedBlocks)
	dbm.SetRange(0, ReservedBlocks)

	return &Store{
		fbm:   fbm,
		dbm:   dbm,
		data:  bufs[2],
		alloc: cfg.alloc,
		mode:  cfg.mode,
		log:   cfg.log,
	}, nil
}

// Close returns the store's memory to its allocator. The store must not be
// used afterwards; doing so panics.
func (store *Store) Close() error {
	if err := store.usable(opClose); err != nil {
		return err
	}

	err := errors.Join(
		store.alloc.Free(store.fbm.Bytes()),
		store.alloc.Free(store.dbm.Bytes()),
		store.alloc.Free(store.data),
	)
	store.fbm, store.dbm, store.data = nil, nil, nil

	if err != nil {
		return &Error{Op: opClose, Kind: KindInternal, Err: err}
	}
	store.log.WithField("op", opClose).Debug("block store closed")
	return nil
}

// usable rejects a nil store and panics on a closed one.
func (store *Store) usable(op string) error {
	if store == nil {
		return &Error{Op: op, Kind: KindParam, Err: errors.New("nil store")}
	}
	if store.fbm == nil || store.dbm == nil || store.data == nil {
		panic(&Error{Op: op, Kind: KindFatal, Err: fmt.Errorf("use of %w store", ErrClosed)})
	}
	return nil
}
