package motioncam

import (
	"encoding/binary"
	"io"
)

// All on-disk integers in a .mcraw container are little-endian
// regardless of host byte order. Every struct below is serialized
// field-by-field rather than via a raw memory cast, so that the wire
// layout matches the original C++ structs (compiled with default
// alignment on a 64-bit little-endian target) independent of Go's own
// struct layout rules.

// Header is the fixed record at the very start of the file.
type Header struct {
	Ident   [4]byte
	Version uint32
}

const headerSize = 4 + 4

func readHeader(r nReader) (Header, error) {
	var h Header
	ident, err := r.readN(4)
	if err != nil {
		return h, err
	}
	copy(h.Ident[:], ident)
	version, err := r.readUint32()
	if err != nil {
		return h, err
	}
	h.Version = version
	return h, nil
}

func (h Header) marshal(w io.Writer) error {
	buf := make([]byte, headerSize)
	copy(buf[0:4], h.Ident[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	_, err := w.Write(buf)
	return err
}

// Item is the tag-length record that precedes every payload.
type Item struct {
	Type itemType
	Size uint32
}

const itemSize = 4 + 4

func readItem(r nReader) (Item, error) {
	var it Item
	t, err := r.readUint32()
	if err != nil {
		return it, err
	}
	size, err := r.readUint32()
	if err != nil {
		return it, err
	}
	it.Type = itemType(t)
	it.Size = size
	return it, nil
}

func (it Item) marshal(w io.Writer) error {
	buf := make([]byte, itemSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(it.Type))
	binary.LittleEndian.PutUint32(buf[4:8], it.Size)
	_, err := w.Write(buf)
	return err
}

// BufferOffset is a locator for a frame or audio chunk; Timestamp is in
// nanoseconds.
type BufferOffset struct {
	Timestamp int64
	Offset    int64
}

const bufferOffsetSize = 8 + 8

func readBufferOffset(r nReader) (BufferOffset, error) {
	var bo BufferOffset
	ts, err := r.readInt64()
	if err != nil {
		return bo, err
	}
	off, err := r.readInt64()
	if err != nil {
		return bo, err
	}
	bo.Timestamp = ts
	bo.Offset = off
	return bo, nil
}

func (bo BufferOffset) marshal(w io.Writer) error {
	buf := make([]byte, bufferOffsetSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(bo.Timestamp))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(bo.Offset))
	_, err := w.Write(buf)
	return err
}

// BufferIndex is the tail-anchored index record.
type BufferIndex struct {
	MagicNumber     uint32
	NumOffsets      uint32
	IndexDataOffset int64
}

const bufferIndexSize = 4 + 4 + 8

func readBufferIndex(r nReader) (BufferIndex, error) {
	var bi BufferIndex
	magic, err := r.readUint32()
	if err != nil {
		return bi, err
	}
	num, err := r.readUint32()
	if err != nil {
		return bi, err
	}
	dataOffset, err := r.readInt64()
	if err != nil {
		return bi, err
	}
	bi.MagicNumber = magic
	bi.NumOffsets = num
	bi.IndexDataOffset = dataOffset
	return bi, nil
}

func (bi BufferIndex) marshal(w io.Writer) error {
	buf := make([]byte, bufferIndexSize)
	binary.LittleEndian.PutUint32(buf[0:4], bi.MagicNumber)
	binary.LittleEndian.PutUint32(buf[4:8], bi.NumOffsets)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(bi.IndexDataOffset))
	_, err := w.Write(buf)
	return err
}

// AudioIndex is the offset table header for audio items; the
// BufferOffset records immediately follow it on disk.
type AudioIndex struct {
	NumOffsets uint32
}

const audioIndexSize = 4

func readAudioIndex(r nReader) (AudioIndex, error) {
	var ai AudioIndex
	num, err := r.readUint32()
	if err != nil {
		return ai, err
	}
	ai.NumOffsets = num
	return ai, nil
}

func (ai AudioIndex) marshal(w io.Writer) error {
	buf := make([]byte, audioIndexSize)
	binary.LittleEndian.PutUint32(buf, ai.NumOffsets)
	_, err := w.Write(buf)
	return err
}

// AudioMetadata carries the timestamp for the AUDIO_DATA item
// immediately preceding it, when present.
type AudioMetadata struct {
	TimestampNs int64
}

const audioMetadataSize = 8

func readAudioMetadata(r nReader) (AudioMetadata, error) {
	var am AudioMetadata
	ts, err := r.readInt64()
	if err != nil {
		return am, err
	}
	am.TimestampNs = ts
	return am, nil
}

func (am AudioMetadata) marshal(w io.Writer) error {
	buf := make([]byte, audioMetadataSize)
	binary.LittleEndian.PutUint64(buf, uint64(am.TimestampNs))
	_, err := w.Write(buf)
	return err
}
