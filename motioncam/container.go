package motioncam

import (
	"encoding/binary"
	"io"
	"os"
	"sort"
)

// AudioChunk is one decoded audio record. TimestampNs is -1 when the
// record's AUDIO_DATA_METADATA item was absent (older files).
type AudioChunk struct {
	TimestampNs int64
	Samples     []int16
}

// Container is a single open .mcraw file. It owns one underlying
// io.ReadSeeker and is not safe for concurrent use: LoadFrame and
// LoadAudio share the handle's seek position.
type Container struct {
	r      io.ReadSeeker
	closer io.Closer

	meta *ContainerMetadata

	offsets        []BufferOffset
	frameList      []int64
	frameOffsetMap map[int64]int64

	audioOffsets []BufferOffset
}

// Open opens path as a .mcraw file, reads and validates its header and
// index, and returns a ready-to-use Container. The caller must Close it.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fail("open", err)
	}
	c, err := NewContainer(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

// NewContainer opens an existing reader, reading from its start, for
// callers that don't want Container to own a file.
func NewContainer(r io.ReadSeeker) (*Container, error) {
	c := &Container{r: r}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fail("open", err)
	}
	h, err := readHeader(nReader{r})
	if err != nil {
		return nil, fail("read header", err)
	}
	if h.Ident != containerIdent {
		return nil, failf("open", "bad container identifier %q", h.Ident)
	}
	if h.Version != containerVersion {
		return nil, failf("open", "unsupported container version %d", h.Version)
	}

	it, err := readItem(nReader{r})
	if err != nil {
		return nil, fail("read container metadata item", err)
	}
	if it.Type != itemMetadata {
		return nil, failf("open", "expected METADATA item, got %s", it.Type)
	}
	buf, err := nReader{r}.readN(int(it.Size))
	if err != nil {
		return nil, fail("read container metadata payload", err)
	}
	meta, err := ParseContainerMetadata(buf)
	if err != nil {
		return nil, err
	}
	c.meta = meta

	if err := c.readIndex(); err != nil {
		return nil, err
	}
	c.reindexOffsets()
	if err := c.readExtra(); err != nil {
		return nil, err
	}

	return c, nil
}

// readIndex reads the tail-anchored BufferIndex and its offset table.
func (c *Container) readIndex() error {
	if _, err := c.r.Seek(-int64(bufferIndexSize+itemSize), io.SeekEnd); err != nil {
		return failf("read index", "invalid end chunk: %v", err)
	}
	it, err := readItem(nReader{c.r})
	if err != nil {
		return failf("read index", "invalid end chunk: %v", err)
	}
	if it.Type != itemBufferIndex {
		return failf("read index", "invalid end chunk: expected BUFFER_INDEX item, got %s", it.Type)
	}
	bi, err := readBufferIndex(nReader{c.r})
	if err != nil {
		return failf("read index", "invalid end chunk: %v", err)
	}
	if bi.MagicNumber != indexMagicNumber {
		return failf("read index", "invalid end chunk: bad index magic number %#x", bi.MagicNumber)
	}

	if _, err := c.r.Seek(bi.IndexDataOffset, io.SeekStart); err != nil {
		return fail("read index", err)
	}
	offsets := make([]BufferOffset, bi.NumOffsets)
	for i := range offsets {
		bo, err := readBufferOffset(nReader{c.r})
		if err != nil {
			return fail("read index", err)
		}
		offsets[i] = bo
	}
	c.offsets = offsets
	return nil
}

// reindexOffsets stable-sorts c.offsets by ascending timestamp and
// publishes frameList and frameOffsetMap.
func (c *Container) reindexOffsets() {
	offsets := make([]BufferOffset, len(c.offsets))
	copy(offsets, c.offsets)
	sort.SliceStable(offsets, func(i, j int) bool {
		return offsets[i].Timestamp < offsets[j].Timestamp
	})

	frameList := make([]int64, len(offsets))
	frameOffsetMap := make(map[int64]int64, len(offsets))
	for i, bo := range offsets {
		frameList[i] = bo.Timestamp
		frameOffsetMap[bo.Timestamp] = bo.Offset
	}
	c.frameList = frameList
	c.frameOffsetMap = frameOffsetMap
}

// readExtra scans forward from the highest-addressed frame offset,
// looking for the optional AUDIO_INDEX item. Known item types are
// skipped by their declared size; any unrecognized type (including the
// BUFFER_INDEX at the very end of the file) ends the scan.
func (c *Container) readExtra() error {
	if len(c.offsets) == 0 {
		return nil
	}
	maxOffset := c.offsets[0].Offset
	for _, bo := range c.offsets[1:] {
		if bo.Offset > maxOffset {
			maxOffset = bo.Offset
		}
	}

	if _, err := c.r.Seek(maxOffset, io.SeekStart); err != nil {
		return fail("read extra", err)
	}

	for {
		it, err := readItem(nReader{c.r})
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return fail("read extra", err)
		}

		switch it.Type {
		case itemBuffer, itemMetadata, itemAudioData, itemAudioDataMetadata:
			if _, err := c.r.Seek(int64(it.Size), io.SeekCurrent); err != nil {
				return fail("read extra", err)
			}
		case itemAudioIndex:
			ai, err := readAudioIndex(nReader{c.r})
			if err != nil {
				return fail("read extra", err)
			}
			offsets := make([]BufferOffset, ai.NumOffsets)
			for i := range offsets {
				bo, err := readBufferOffset(nReader{c.r})
				if err != nil {
					return fail("read extra", err)
				}
				offsets[i] = bo
			}
			c.audioOffsets = offsets
			// AUDIO_INDEX is always the last scannable item; what
			// follows is the main frame index's raw offset data, not
			// another Item record.
			return nil
		default:
			return nil
		}
	}
}

// Frames returns the ordered list of frame timestamps.
func (c *Container) Frames() []int64 {
	out := make([]int64, len(c.frameList))
	copy(out, c.frameList)
	return out
}

// ContainerMetadata returns the container-level camera calibration
// metadata parsed at open time.
func (c *Container) ContainerMetadata() *ContainerMetadata {
	m := *c.meta
	return &m
}

// AudioSampleRateHz returns the recorded audio sample rate, or 0 if the
// container carries no audio metadata.
func (c *Container) AudioSampleRateHz() int {
	return c.meta.ExtraData.AudioSampleRate
}

// NumAudioChannels returns the recorded channel count, or 0 if the
// container carries no audio metadata.
func (c *Container) NumAudioChannels() int {
	return c.meta.ExtraData.AudioChannels
}

// LoadFrame decodes the frame recorded at timestamp into a Bayer pixel
// buffer and its per-frame metadata.
func (c *Container) LoadFrame(timestamp int64) ([]uint16, *FrameMetadata, error) {
	offset, ok := c.frameOffsetMap[timestamp]
	if !ok {
		return nil, nil, failf("load frame", "no frame at timestamp %d", timestamp)
	}
	if _, err := c.r.Seek(offset, io.SeekStart); err != nil {
		return nil, nil, fail("load frame", err)
	}

	bufferItem, err := readItem(nReader{c.r})
	if err != nil {
		return nil, nil, fail("load frame", err)
	}
	if bufferItem.Type != itemBuffer {
		return nil, nil, failf("load frame", "expected BUFFER item, got %s", bufferItem.Type)
	}
	compressed, err := nReader{c.r}.readN(int(bufferItem.Size))
	if err != nil {
		return nil, nil, fail("load frame", err)
	}

	metaItem, err := readItem(nReader{c.r})
	if err != nil {
		return nil, nil, fail("load frame", err)
	}
	if metaItem.Type != itemMetadata {
		return nil, nil, failf("load frame", "expected METADATA item, got %s", metaItem.Type)
	}
	metaBuf, err := nReader{c.r}.readN(int(metaItem.Size))
	if err != nil {
		return nil, nil, fail("load frame", err)
	}
	frameMeta, err := ParseFrameMetadata(metaBuf)
	if err != nil {
		return nil, nil, err
	}
	if frameMeta.CompressionType != motionCamCompressionType {
		return nil, nil, failf("load frame", "unsupported compressionType %d", frameMeta.CompressionType)
	}

	pixels, err := decodeFrame(compressed, frameMeta.Width, frameMeta.Height)
	if err != nil {
		return nil, nil, err
	}
	return pixels, frameMeta, nil
}

// LoadAudio decodes every audio chunk referenced by the container's
// AUDIO_INDEX, in index order.
func (c *Container) LoadAudio() ([]AudioChunk, error) {
	chunks := make([]AudioChunk, 0, len(c.audioOffsets))
	for _, bo := range c.audioOffsets {
		if _, err := c.r.Seek(bo.Offset, io.SeekStart); err != nil {
			return nil, fail("load audio", err)
		}
		it, err := readItem(nReader{c.r})
		if err != nil {
			return nil, fail("load audio", err)
		}
		if it.Type != itemAudioData {
			return nil, failf("load audio", "expected AUDIO_DATA item, got %s", it.Type)
		}
		if it.Size%2 != 0 {
			return nil, failf("load audio", "odd AUDIO_DATA size %d", it.Size)
		}
		raw, err := nReader{c.r}.readN(int(it.Size))
		if err != nil {
			return nil, fail("load audio", err)
		}
		samples := make([]int16, len(raw)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		}

		chunk := AudioChunk{TimestampNs: -1, Samples: samples}
		if nextItem, err := readItem(nReader{c.r}); err == nil && nextItem.Type == itemAudioDataMetadata {
			am, err := readAudioMetadata(nReader{c.r})
			if err != nil {
				return nil, fail("load audio", err)
			}
			chunk.TimestampNs = am.TimestampNs
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Close releases the underlying file handle, if Container opened it.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
