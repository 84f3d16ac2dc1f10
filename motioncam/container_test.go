package motioncam

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixtureFrame is one frame record to embed in a built-up .mcraw
// fixture: a timestamp, a compressed buffer, and its JSON metadata.
type fixtureFrame struct {
	timestamp int64
	buffer    []byte
	metaJSON  string
}

// buildContainer assembles a complete in-memory .mcraw byte stream:
// header, container metadata, frame records in write order, and a
// tail-anchored index sorted by nothing (callers choose the write
// order; reindexOffsets does the sorting on open).
func buildContainer(t *testing.T, containerJSON string, frames []fixtureFrame) []byte {
	t.Helper()
	buf := &bytes.Buffer{}

	require.NoError(t, Header{Ident: containerIdent, Version: containerVersion}.marshal(buf))

	metaBytes := []byte(containerJSON)
	require.NoError(t, Item{Type: itemMetadata, Size: uint32(len(metaBytes))}.marshal(buf))
	buf.Write(metaBytes)

	offsets := make([]BufferOffset, len(frames))
	for i, f := range frames {
		offset := int64(buf.Len())
		require.NoError(t, Item{Type: itemBuffer, Size: uint32(len(f.buffer))}.marshal(buf))
		buf.Write(f.buffer)

		metaJSON := []byte(f.metaJSON)
		require.NoError(t, Item{Type: itemMetadata, Size: uint32(len(metaJSON))}.marshal(buf))
		buf.Write(metaJSON)

		offsets[i] = BufferOffset{Timestamp: f.timestamp, Offset: offset}
	}

	indexDataOffset := int64(buf.Len())
	for _, o := range offsets {
		require.NoError(t, o.marshal(buf))
	}

	require.NoError(t, Item{Type: itemBufferIndex, Size: bufferIndexSize}.marshal(buf))
	require.NoError(t, BufferIndex{
		MagicNumber:     indexMagicNumber,
		NumOffsets:      uint32(len(offsets)),
		IndexDataOffset: indexDataOffset,
	}.marshal(buf))

	return buf.Bytes()
}

func zeroFrameJSON(width, height int) string {
	return `{"width":` + itoa(width) + `,"height":` + itoa(height) + `,"compressionType":7,"asShotNeutral":[1,1,1]}`
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

const containerJSONFixture = `{
	"blackLevel": [0,0,0,0],
	"whiteLevel": 1023,
	"sensorArrangment": "rggb",
	"colorMatrix1": [1,0,0,0,1,0,0,0,1],
	"colorMatrix2": [1,0,0,0,1,0,0,0,1],
	"forwardMatrix1": [1,0,0,0,1,0,0,0,1],
	"forwardMatrix2": [1,0,0,0,1,0,0,0,1],
	"extraData": {"audioSampleRate": 0, "audioChannels": 0}
}`

func zeroFrameBuffer(t *testing.T) []byte {
	t.Helper()
	var blocks [4][64]uint16
	return buildFrameBuffer(64, 4, [4]uint16{0, 0, 0, 0}, [4]uint16{0, 0, 0, 0}, blocks)
}

func TestOpenEmptyIndexFileSucceeds(t *testing.T) {
	data := buildContainer(t, containerJSONFixture, nil)
	c, err := NewContainer(bytes.NewReader(data))
	require.NoError(t, err)
	defer c.Close()

	require.Empty(t, c.Frames())
	audio, err := c.LoadAudio()
	require.NoError(t, err)
	require.Empty(t, audio)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	data := buildContainer(t, containerJSONFixture, nil)
	data[0] = 'X'
	_, err := NewContainer(bytes.NewReader(data))
	require.Error(t, err)
}

// TestOpenWithoutIndexFailsWithInvalidEndChunk builds a minimal file
// that has only a header and a METADATA item, with no BUFFER_INDEX at
// all, matching S1: opening it must fail with "invalid end chunk".
func TestOpenWithoutIndexFailsWithInvalidEndChunk(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Header{Ident: containerIdent, Version: containerVersion}.marshal(buf))

	metaBytes := []byte(containerJSONFixture)
	require.NoError(t, Item{Type: itemMetadata, Size: uint32(len(metaBytes))}.marshal(buf))
	buf.Write(metaBytes)

	_, err := NewContainer(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid end chunk")
}

func TestFramesAreTimestampSorted(t *testing.T) {
	frameBuf := zeroFrameBuffer(t)
	frames := []fixtureFrame{
		{timestamp: 200, buffer: frameBuf, metaJSON: zeroFrameJSON(64, 4)},
		{timestamp: 100, buffer: frameBuf, metaJSON: zeroFrameJSON(64, 4)},
	}
	data := buildContainer(t, containerJSONFixture, frames)

	c, err := NewContainer(bytes.NewReader(data))
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, []int64{100, 200}, c.Frames())

	pixels, meta, err := c.LoadFrame(100)
	require.NoError(t, err)
	require.Equal(t, 64, meta.Width)
	require.Len(t, pixels, 256)
}

func TestLoadFrameUnknownTimestampErrors(t *testing.T) {
	data := buildContainer(t, containerJSONFixture, nil)
	c, err := NewContainer(bytes.NewReader(data))
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.LoadFrame(999)
	require.Error(t, err)
}

func TestContainerMetadataIsExposed(t *testing.T) {
	data := buildContainer(t, containerJSONFixture, nil)
	c, err := NewContainer(bytes.NewReader(data))
	require.NoError(t, err)
	defer c.Close()

	meta := c.ContainerMetadata()
	require.Equal(t, SensorRGGB, meta.SensorArrangment)
	require.Equal(t, float64(1023), meta.WhiteLevel)
}

// TestAudioChunkWithoutMetadataHasUnknownTimestamp builds a container
// with one frame followed by an audio chunk that has no
// AUDIO_DATA_METADATA record, matching an older file's layout.
func TestAudioChunkWithoutMetadataHasUnknownTimestamp(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Header{Ident: containerIdent, Version: containerVersion}.marshal(buf))

	metaBytes := []byte(containerJSONFixture)
	require.NoError(t, Item{Type: itemMetadata, Size: uint32(len(metaBytes))}.marshal(buf))
	buf.Write(metaBytes)

	frameBuf := zeroFrameBuffer(t)
	frameOffset := int64(buf.Len())
	require.NoError(t, Item{Type: itemBuffer, Size: uint32(len(frameBuf))}.marshal(buf))
	buf.Write(frameBuf)
	frameMetaJSON := []byte(zeroFrameJSON(64, 4))
	require.NoError(t, Item{Type: itemMetadata, Size: uint32(len(frameMetaJSON))}.marshal(buf))
	buf.Write(frameMetaJSON)

	audioOffset := int64(buf.Len())
	samples := []int16{1, 2, 3, 4}
	sampleBytes := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(sampleBytes[i*2:i*2+2], uint16(s))
	}
	require.NoError(t, Item{Type: itemAudioData, Size: uint32(len(sampleBytes))}.marshal(buf))
	buf.Write(sampleBytes)

	require.NoError(t, Item{Type: itemAudioIndex, Size: audioIndexSize + bufferOffsetSize}.marshal(buf))
	require.NoError(t, AudioIndex{NumOffsets: 1}.marshal(buf))
	require.NoError(t, BufferOffset{Timestamp: -1, Offset: audioOffset}.marshal(buf))

	indexDataOffset := int64(buf.Len())
	require.NoError(t, BufferOffset{Timestamp: 42, Offset: frameOffset}.marshal(buf))
	require.NoError(t, Item{Type: itemBufferIndex, Size: bufferIndexSize}.marshal(buf))
	require.NoError(t, BufferIndex{
		MagicNumber:     indexMagicNumber,
		NumOffsets:      1,
		IndexDataOffset: indexDataOffset,
	}.marshal(buf))

	c, err := NewContainer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer c.Close()

	chunks, err := c.LoadAudio()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, int64(-1), chunks[0].TimestampNs)
	require.Equal(t, samples, chunks[0].Samples)
}
