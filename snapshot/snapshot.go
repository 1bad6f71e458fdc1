// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package snapshot stores block store images in a compressed, checksummed
// container.
//
// Layout, little endian:
//
//	0       4  magic "BSNP"
//	4       1  codec
//	5       3  zero
//	8       8  payload length N
//	16      N  payload: the image encoded with codec
//	16+N    8  xxhash64 of the decoded image
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/dacapoday/blockstore"
	"github.com/dacapoday/blockstore/mem"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrUnknownMagic = errors.New("unknown magic code")
	ErrUnknownCodec = errors.New("unknown compression codec")
	ErrBadChecksum  = errors.New("bad checksum")
	ErrBadPayload   = errors.New("bad payload")
)

const (
	magic      = "BSNP"
	headerSize = 16
	footerSize = 8

	// payloads above this are rejected before any allocation
	maxPayload = blockstore.ImageSize + blockstore.ImageSize/8 + 1<<16
)

// Codec selects how the image payload is encoded.
type Codec uint8

const (
	None Codec = iota
	Snappy
	Zstd
)

func (codec Codec) String() string {
	switch codec {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(codec))
	}
}

// ParseCodec accepts the names String returns.
func ParseCodec(name string) (Codec, error) {
	for _, codec := range []Codec{None, Snappy, Zstd} {
		if codec.String() == name {
			return codec, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// image stages the store's image in memory for encoding.
func image(store *blockstore.Store) ([]byte, error) {
	var file mem.File
	// grow then empty: the image is appended without reallocating
	if err := file.Truncate(blockstore.ImageSize); err != nil {
		return nil, err
	}
	if err := file.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := store.WriteTo(&file); err != nil {
		return nil, err
	}
	return file.Bytes(), nil
}

// Fingerprint returns the xxhash64 of the store's image.
// Stores with equal images have equal fingerprints regardless of write history.
func Fingerprint(store *blockstore.Store) (uint64, error) {
	digest := xxhash.New()
	if _, err := store.WriteTo(digest); err != nil {
		return 0, err
	}
	return digest.Sum64(), nil
}

func encode(codec Codec, img []byte) ([]byte, error) {
	switch codec {
	case None:
		return img, nil
	case Snappy:
		return snappy.Encode(nil, img), nil
	case Zstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create ZSTD encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(img, make([]byte, 0, len(img)/4)), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}

func decode(codec Codec, payload []byte) ([]byte, error) {
	switch codec {
	case None:
		return payload, nil
	case Snappy:
		size, err := snappy.DecodedLen(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		if size != blockstore.ImageSize {
			return nil, fmt.Errorf("%w: %w: %d bytes", ErrBadPayload, blockstore.ErrImageSize, size)
		}
		img, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		return img, nil
	case Zstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(2*blockstore.ImageSize))
		if err != nil {
			return nil, fmt.Errorf("failed to create ZSTD decoder: %w", err)
		}
		defer dec.Close()
		img, err := dec.DecodeAll(payload, make([]byte, 0, blockstore.ImageSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}

// Save writes store to w as a snapshot encoded with codec.
func Save(w io.Writer, store *blockstore.Store, codec Codec) (n int64, err error) {
	img, err := image(store)
	if err != nil {
		return 0, err
	}
	payload, err := encode(codec, img)
	if err != nil {
		return 0, err
	}

	var header [headerSize]byte
	copy(header[:4], magic)
	header[4] = byte(codec)
	binary.LittleEndian.PutUint64(header[8:], uint64(len(payload)))

	var footer [footerSize]byte
	binary.LittleEndian.PutUint64(footer[:], xxhash.Sum64(img))

	for _, part := range [][]byte{header[:], payload, footer[:]} {
		c, err := w.Write(part)
		n += int64(c)
		if err != nil {
			return n, fmt.Errorf("snapshot.Save: %w", err)
		}
	}
	return n, nil
}

// Restore reads a snapshot written by Save and builds a store from it.
func Restore(r io.Reader, opts ...blockstore.Option) (*blockstore.Store, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("snapshot.Restore: header: %w", err)
	}
	if string(header[:4]) != magic {
		return nil, fmt.Errorf("snapshot.Restore: %w: %q", ErrUnknownMagic, header[:4])
	}
	codec := Codec(header[4])
	if codec > Zstd {
		return nil, fmt.Errorf("snapshot.Restore: %w: %v", ErrUnknownCodec, codec)
	}
	size := binary.LittleEndian.Uint64(header[8:])
	if size == 0 || size > maxPayload {
		return nil, fmt.Errorf("snapshot.Restore: %w: payload length %d", ErrBadPayload, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("snapshot.Restore: payload: %w", err)
	}
	var footer [footerSize]byte
	if _, err := io.ReadFull(r, footer[:]); err != nil {
		return nil, fmt.Errorf("snapshot.Restore: footer: %w", err)
	}

	img, err := decode(codec, payload)
	if err != nil {
		return nil, fmt.Errorf("snapshot.Restore: %v: %w", codec, err)
	}
	if len(img) != blockstore.ImageSize {
		return nil, fmt.Errorf("snapshot.Restore: %w: %d bytes", blockstore.ErrImageSize, len(img))
	}
	if sum, want := xxhash.Sum64(img), binary.LittleEndian.Uint64(footer[:]); sum != want {
		return nil, fmt.Errorf("snapshot.Restore: %w: file has %x, calculated %x", ErrBadChecksum, want, sum)
	}

	store, err := blockstore.Load(bytes.NewReader(img), opts...)
	if err != nil {
		return nil, fmt.Errorf("snapshot.Restore: %w", err)
	}
	return store, nil
}

// SaveFile writes a snapshot of store to path, replacing any existing file.
func SaveFile(path string, store *blockstore.Store, codec Codec) (n int64, err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Save(file, store, codec)
}

// RestoreFile reads the snapshot at path.
func RestoreFile(path string, opts ...blockstore.Option) (*blockstore.Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Restore(file, opts...)
}
