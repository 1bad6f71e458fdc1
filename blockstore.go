// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package blockstore implements a fixed-capacity block device held in memory.
//
// A Store has BlockCount blocks of BlockSize bytes. The leading
// ReservedBlocks IDs stand for the space the serialized free-block map
// occupies in an image and are never handed out. Blocks are claimed with
// Allocate or Request, given back with Release, and accessed by byte range
// with Read and Write. Export and Import move the whole device to and from
// a flat image file:
//
//	[0, ReservedBlocks*BlockSize)          free-block map, bit i at byte i/8, mask 1<<(i%8)
//	[ReservedBlocks*BlockSize, ImageSize)  payload of blocks ReservedBlocks..BlockCount-1
//
// A Store is not safe for concurrent use.
package blockstore

const (
	BlockCount = 1 << 16
	BlockSize  = 1 << 10

	// ReservedBlocks is the number of leading block IDs covered by the
	// serialized free-block map.
	ReservedBlocks = (BlockCount >> 3) / BlockSize

	// ImageSize is the exact size of an exported image.
	ImageSize = BlockSize * BlockCount

	fbmSize  = ReservedBlocks * BlockSize
	dataSize = BlockSize * (BlockCount - ReservedBlocks)
)

// The free-block map must fill the reserved blocks exactly.
var _ [ReservedBlocks*BlockSize*8 - BlockCount]struct{} = [0]struct{}{}

// BlockID addresses a block.
type BlockID uint32

// Valid reports whether id addresses a data block.
func (id BlockID) Valid() bool {
	return id >= ReservedBlocks && id < BlockCount
}

// pos maps a valid id and in-block offset to a position in the data region.
func (id BlockID) pos(off Offset) int {
	return int(off) + BlockSize*int(id-ReservedBlocks)
}

// Offset is a byte position inside a block.
type Offset uint32
