package dng

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetBitsPerSampleRequiresSamplesPerPixelFirst(t *testing.T) {
	d := &DNGImage{}
	err := d.SetBitsPerSample(16)
	assert.Error(t, err)
}

func TestSetBlackLevelRequiresSamplesPerPixelFirst(t *testing.T) {
	d := &DNGImage{}
	err := d.SetBlackLevel([4]uint16{0, 0, 0, 0})
	assert.Error(t, err)
}

func TestSetWhiteLevelRequiresSamplesPerPixelFirst(t *testing.T) {
	d := &DNGImage{}
	err := d.SetWhiteLevel(1023)
	assert.Error(t, err)
}

func TestAddStripTwiceErrors(t *testing.T) {
	d := &DNGImage{}
	require.NoError(t, d.AddStrip([]byte{1, 2, 3, 4}))
	err := d.AddStrip([]byte{5, 6})
	assert.Error(t, err)
}

func TestWriteWithoutStripErrors(t *testing.T) {
	d := &DNGImage{}
	require.NoError(t, d.SetImageSize(4, 4))
	var buf bytes.Buffer
	err := d.Write(&buf)
	assert.Error(t, err)
}

func TestWriteTwiceErrors(t *testing.T) {
	d := &DNGImage{}
	require.NoError(t, d.SetImageSize(4, 4))
	require.NoError(t, d.AddStrip([]byte{1, 2, 3, 4}))
	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))
	err := d.Write(&buf)
	assert.Error(t, err)
}

// parsedEntry mirrors one 12-byte IFD record for assertions.
type parsedEntry struct {
	Tag    uint16
	Type   uint16
	Count  uint32
	ValOff uint32
}

func parseSingleIFD(t *testing.T, data []byte) []parsedEntry {
	t.Helper()
	require.GreaterOrEqual(t, len(data), headerSize)
	order := binary.ByteOrder(binary.LittleEndian)
	if data[0] == 'M' {
		order = binary.BigEndian
	}
	ifdOffset := order.Uint32(data[4:8])
	pos := int(ifdOffset)
	count := order.Uint16(data[pos : pos+2])
	pos += 2
	entries := make([]parsedEntry, count)
	for i := 0; i < int(count); i++ {
		base := pos + i*12
		entries[i] = parsedEntry{
			Tag:    order.Uint16(data[base : base+2]),
			Type:   order.Uint16(data[base+2 : base+4]),
			Count:  order.Uint32(data[base+4 : base+8]),
			ValOff: order.Uint32(data[base+8 : base+12]),
		}
	}
	return entries
}

func buildScenarioFrame(t *testing.T) *DNGImage {
	t.Helper()
	d := &DNGImage{}
	require.NoError(t, d.SetImageSize(64, 4))
	require.NoError(t, d.SetSamplesPerPixel(1))
	require.NoError(t, d.SetBitsPerSample(16))
	require.NoError(t, d.SetCompressionNone())
	require.NoError(t, d.SetPhotometricCFA())
	require.NoError(t, d.SetPlanarConfigContig())
	require.NoError(t, d.SetRowsPerStrip(4))
	require.NoError(t, d.SetCFA("bggr"))
	require.NoError(t, d.SetBlackLevel([4]uint16{0, 0, 0, 0}))
	require.NoError(t, d.SetWhiteLevel(1023))
	identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	require.NoError(t, d.SetColorMatrix1(identity))
	require.NoError(t, d.SetColorMatrix2(identity))
	require.NoError(t, d.SetForwardMatrix1(identity))
	require.NoError(t, d.SetForwardMatrix2(identity))
	require.NoError(t, d.SetActiveArea(0, 0, 4, 64))
	require.NoError(t, d.AddStrip(make([]byte, 64*4*2)))
	return d
}

func TestWriteMinimalDNGMatchesScenario(t *testing.T) {
	d := buildScenarioFrame(t)
	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))
	data := buf.Bytes()

	assert.Equal(t, byte('I'), data[0])
	assert.Equal(t, byte('I'), data[1])

	entries := parseSingleIFD(t, data)
	require.NotEmpty(t, entries)

	byTag := make(map[uint16]parsedEntry)
	for i, e := range entries {
		byTag[e.Tag] = e
		if i > 0 {
			assert.Less(t, entries[i-1].Tag, e.Tag, "IFD entries must be sorted ascending by tag")
		}
	}

	bps, ok := byTag[tagBitsPerSample]
	require.True(t, ok)
	assert.Equal(t, uint32(16), bps.ValOff)

	sbc, ok := byTag[tagStripByteCounts]
	require.True(t, ok)
	assert.Equal(t, uint32(512), sbc.ValOff)

	cfa, ok := byTag[tagCFAPattern]
	require.True(t, ok)
	// CFAPattern is 4 bytes (TypeByte x4), so it is stored inline in the
	// entry's value field rather than as a blob offset.
	inlineBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(inlineBytes, cfa.ValOff)
	assert.Equal(t, []byte{2, 1, 1, 0}, inlineBytes)

	aa, ok := byTag[tagActiveArea]
	require.True(t, ok)
	off := int(aa.ValOff)
	assert.Equal(t, []uint32{0, 0, 4, 64}, []uint32{
		binary.LittleEndian.Uint32(data[off : off+4]),
		binary.LittleEndian.Uint32(data[off+4 : off+8]),
		binary.LittleEndian.Uint32(data[off+8 : off+12]),
		binary.LittleEndian.Uint32(data[off+12 : off+16]),
	})
}

func TestWriteMultiChainsIFDs(t *testing.T) {
	a := buildScenarioFrame(t)
	b := buildScenarioFrame(t)
	var buf bytes.Buffer
	require.NoError(t, WriteMulti(&buf, []*DNGImage{a, b}))
	data := buf.Bytes()

	order := binary.LittleEndian
	firstIFD := order.Uint32(data[4:8])
	pos := int(firstIFD)
	count := order.Uint16(data[pos : pos+2])
	nextOff := pos + 2 + int(count)*12
	next := order.Uint32(data[nextOff : nextOff+4])
	assert.NotZero(t, next, "first IFD must point to the second")

	pos2 := int(next)
	count2 := order.Uint16(data[pos2 : pos2+2])
	nextOff2 := pos2 + 2 + int(count2)*12
	last := order.Uint32(data[nextOff2 : nextOff2+4])
	assert.Zero(t, last, "last IFD's next pointer must be 0")
}
