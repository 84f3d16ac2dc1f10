package dng

import (
	"encoding/binary"
	"io"
	"os"
)

// dngColorPlanes is the number of colorimetric planes (R, G, B) the
// calibration tags (ColorMatrix, ForwardMatrix, AnalogBalance,
// AsShotNeutral...) are defined over. It is independent of
// SamplesPerPixel, which for a Bayer mosaic is always 1: each pixel
// records a single raw sample, but that sample belongs to one of three
// underlying color planes depending on its CFA position.
const dngColorPlanes = 3

const headerSize = 8 // magic(2) + version(2) + first-IFD offset(4)

// DNGImage builds a single TIFF IFD describing one decoded frame. Use
// it as: construct a zero value, call the Set* methods in any order
// that respects the documented constraints, call AddStrip exactly
// once with the pixel data, then Write or WriteFile exactly once.
// Reusing a DNGImage after Write is a programmer error.
type DNGImage struct {
	bigEndian bool

	entries []ifdEntry
	blob    []byte

	samplesPerPixel    uint16
	samplesPerPixelSet bool
	bitsPerSample      uint16

	stripOffset int
	stripLen    int
	stripSet    bool

	written bool
}

// SetBigEndian selects MM/big-endian TIFF byte order. The default is
// II/little-endian.
func (d *DNGImage) SetBigEndian(big bool) {
	d.bigEndian = big
}

func (d *DNGImage) order() binary.ByteOrder {
	if d.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (d *DNGImage) checkNotWritten(op string) error {
	if d.written {
		return failf(op, "DNGImage already written")
	}
	return nil
}

// addInline registers a tag whose payload is 4 bytes or shorter,
// stored directly in the IFD entry rather than the data blob.
func (d *DNGImage) addInline(tag, typ uint16, count uint32, payload []byte) {
	d.entries = append(d.entries, ifdEntry{Tag: tag, Type: typ, Count: count, Payload: payload})
}

// addBlob registers a tag whose payload does not fit inline, copying
// it into the image's data blob immediately and recording its
// blob-relative offset.
func (d *DNGImage) addBlob(tag, typ uint16, count uint32, payload []byte) {
	offset := len(d.blob)
	d.blob = append(d.blob, payload...)
	d.entries = append(d.entries, ifdEntry{Tag: tag, Type: typ, Count: count, Offset: offset, Payload: payload})
}

// addTag stores a tag's already-encoded payload, choosing between
// addInline and addBlob by its length. This is the single place that
// implements the "4 bytes or shorter inline, else out-of-line" rule.
func (d *DNGImage) addTag(tag, typ uint16, count uint32, payload []byte) {
	if len(payload) <= 4 {
		d.addInline(tag, typ, count, payload)
		return
	}
	d.addBlob(tag, typ, count, payload)
}

func (d *DNGImage) putUint16s(vals ...uint16) []byte {
	buf := make([]byte, len(vals)*2)
	for i, v := range vals {
		d.order().PutUint16(buf[i*2:i*2+2], v)
	}
	return buf
}

func (d *DNGImage) putUint32s(vals ...uint32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		d.order().PutUint32(buf[i*4:i*4+4], v)
	}
	return buf
}

func (d *DNGImage) putRationals(vals []Rational) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		d.order().PutUint32(buf[i*8:i*8+4], v.Numerator)
		d.order().PutUint32(buf[i*8+4:i*8+8], v.Denominator)
	}
	return buf
}

func (d *DNGImage) putSRationals(vals []SRational) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		d.order().PutUint32(buf[i*8:i*8+4], uint32(v.Numerator))
		d.order().PutUint32(buf[i*8+4:i*8+8], uint32(v.Denominator))
	}
	return buf
}

// SetImageSize sets ImageWidth and ImageLength.
func (d *DNGImage) SetImageSize(width, height uint32) error {
	if err := d.checkNotWritten("set image size"); err != nil {
		return err
	}
	d.addTag(tagImageWidth, TypeLong, 1, d.putUint32s(width))
	d.addTag(tagImageLength, TypeLong, 1, d.putUint32s(height))
	return nil
}

// SetSamplesPerPixel sets SamplesPerPixel. It must be called before
// SetBitsPerSample, SetBlackLevel, SetBlackLevelRational, and
// SetWhiteLevel.
func (d *DNGImage) SetSamplesPerPixel(n uint16) error {
	if err := d.checkNotWritten("set samples per pixel"); err != nil {
		return err
	}
	d.samplesPerPixel = n
	d.samplesPerPixelSet = true
	d.addTag(tagSamplesPerPixel, TypeShort, 1, d.putUint16s(n))
	return nil
}

// SetBitsPerSample sets BitsPerSample, repeated once per sample plane.
func (d *DNGImage) SetBitsPerSample(bits uint16) error {
	if err := d.checkNotWritten("set bits per sample"); err != nil {
		return err
	}
	if !d.samplesPerPixelSet {
		return failf("set bits per sample", "SetSamplesPerPixel must be called before SetBitsPerSample")
	}
	d.bitsPerSample = bits
	vals := make([]uint16, d.samplesPerPixel)
	for i := range vals {
		vals[i] = bits
	}
	d.addTag(tagBitsPerSample, TypeShort, uint32(len(vals)), d.putUint16s(vals...))
	return nil
}

// SetCompressionNone sets Compression to the uncompressed value.
func (d *DNGImage) SetCompressionNone() error {
	if err := d.checkNotWritten("set compression"); err != nil {
		return err
	}
	d.addTag(tagCompression, TypeShort, 1, d.putUint16s(compressionNone))
	return nil
}

// SetPhotometricCFA sets PhotometricInterpretation to the DNG CFA
// value.
func (d *DNGImage) SetPhotometricCFA() error {
	if err := d.checkNotWritten("set photometric interpretation"); err != nil {
		return err
	}
	d.addTag(tagPhotometricInterpretation, TypeShort, 1, d.putUint16s(photometricCFA))
	return nil
}

// SetPlanarConfigContig sets PlanarConfiguration to contiguous.
func (d *DNGImage) SetPlanarConfigContig() error {
	if err := d.checkNotWritten("set planar configuration"); err != nil {
		return err
	}
	d.addTag(tagPlanarConfiguration, TypeShort, 1, d.putUint16s(planarConfigContig))
	return nil
}

// SetRowsPerStrip sets RowsPerStrip.
func (d *DNGImage) SetRowsPerStrip(n uint32) error {
	if err := d.checkNotWritten("set rows per strip"); err != nil {
		return err
	}
	d.addTag(tagRowsPerStrip, TypeLong, 1, d.putUint32s(n))
	return nil
}

// SetOrientation sets the optional Orientation tag.
func (d *DNGImage) SetOrientation(o uint16) error {
	if err := d.checkNotWritten("set orientation"); err != nil {
		return err
	}
	d.addTag(tagOrientation, TypeShort, 1, d.putUint16s(o))
	return nil
}

// SetSoftware sets the optional Software tag. Values longer than 4096
// bytes are rejected.
func (d *DNGImage) SetSoftware(s string) error {
	if err := d.checkNotWritten("set software"); err != nil {
		return err
	}
	if len(s) > 4096 {
		return failf("set software", "value too long: %d bytes", len(s))
	}
	payload := append([]byte(s), 0)
	d.addTag(tagSoftware, TypeASCII, uint32(len(payload)), payload)
	return nil
}

// SetUniqueCameraModel sets UniqueCameraModel. Values longer than
// 1<<20 bytes are rejected.
func (d *DNGImage) SetUniqueCameraModel(s string) error {
	if err := d.checkNotWritten("set unique camera model"); err != nil {
		return err
	}
	if len(s) > 1024*1024 {
		return failf("set unique camera model", "value too long: %d bytes", len(s))
	}
	payload := append([]byte(s), 0)
	d.addTag(tagUniqueCameraModel, TypeASCII, uint32(len(payload)), payload)
	return nil
}

// SetDNGVersion sets DNGVersion and DNGBackwardVersion to the same
// 4-byte value, e.g. {1, 4, 0, 0}.
func (d *DNGImage) SetDNGVersion(v [4]byte) error {
	if err := d.checkNotWritten("set DNG version"); err != nil {
		return err
	}
	d.addTag(tagDNGVersion, TypeByte, 4, v[:])
	d.addTag(tagDNGBackwardVersion, TypeByte, 4, v[:])
	return nil
}

// SetCFA sets CFARepeatPatternDim, CFAPattern and CFALayout from a
// sensorArrangment string ("rggb", "bggr", "grbg" or "gbrg").
func (d *DNGImage) SetCFA(arrangement string) error {
	if err := d.checkNotWritten("set CFA pattern"); err != nil {
		return err
	}
	d.addTag(tagCFARepeatPatternDim, TypeShort, 2, d.putUint16s(2, 2))
	pattern := CFAPattern(arrangement)
	d.addTag(tagCFAPattern, TypeByte, 4, pattern[:])
	d.addTag(tagCFALayout, TypeShort, 1, d.putUint16s(cfaLayoutRectangle))
	return nil
}

// SetBlackLevel sets BlackLevelRepeatDim and BlackLevel from 4
// per-CFA-position uint16 values. SetSamplesPerPixel must be called
// first.
func (d *DNGImage) SetBlackLevel(levels [4]uint16) error {
	if err := d.checkNotWritten("set black level"); err != nil {
		return err
	}
	if !d.samplesPerPixelSet {
		return failf("set black level", "SetSamplesPerPixel must be called before SetBlackLevel")
	}
	d.addTag(tagBlackLevelRepeatDim, TypeShort, 2, d.putUint16s(2, 2))
	d.addTag(tagBlackLevel, TypeShort, 4, d.putUint16s(levels[0], levels[1], levels[2], levels[3]))
	return nil
}

// SetBlackLevelRational is the floating-point sibling of SetBlackLevel,
// for cameras whose black level is not an integer. SetSamplesPerPixel
// must be called first.
func (d *DNGImage) SetBlackLevelRational(levels [4]float64) error {
	if err := d.checkNotWritten("set black level"); err != nil {
		return err
	}
	if !d.samplesPerPixelSet {
		return failf("set black level", "SetSamplesPerPixel must be called before SetBlackLevelRational")
	}
	d.addTag(tagBlackLevelRepeatDim, TypeShort, 2, d.putUint16s(2, 2))
	rats := make([]Rational, 4)
	for i, v := range levels {
		rats[i] = FloatToRational(v)
	}
	d.addTag(tagBlackLevel, TypeRational, 4, d.putRationals(rats))
	return nil
}

// SetWhiteLevel sets WhiteLevel. SetSamplesPerPixel must be called
// first.
func (d *DNGImage) SetWhiteLevel(level uint16) error {
	if err := d.checkNotWritten("set white level"); err != nil {
		return err
	}
	if !d.samplesPerPixelSet {
		return failf("set white level", "SetSamplesPerPixel must be called before SetWhiteLevel")
	}
	d.addTag(tagWhiteLevel, TypeShort, 1, d.putUint16s(level))
	return nil
}

func (d *DNGImage) setMatrix9(tag uint16, m [9]float64) {
	rats := make([]SRational, 9)
	for i, v := range m {
		rats[i] = FloatToSRational(v)
	}
	d.addTag(tag, TypeSRational, 9, d.putSRationals(rats))
}

// SetColorMatrix1/2 set the camera's color-to-XYZ matrices (row-major
// 3x3).
func (d *DNGImage) SetColorMatrix1(m [9]float64) error {
	if err := d.checkNotWritten("set color matrix 1"); err != nil {
		return err
	}
	d.setMatrix9(tagColorMatrix1, m)
	return nil
}

func (d *DNGImage) SetColorMatrix2(m [9]float64) error {
	if err := d.checkNotWritten("set color matrix 2"); err != nil {
		return err
	}
	d.setMatrix9(tagColorMatrix2, m)
	return nil
}

// SetForwardMatrix1/2 set the optional rendering-intent matrices.
func (d *DNGImage) SetForwardMatrix1(m [9]float64) error {
	if err := d.checkNotWritten("set forward matrix 1"); err != nil {
		return err
	}
	d.setMatrix9(tagForwardMatrix1, m)
	return nil
}

func (d *DNGImage) SetForwardMatrix2(m [9]float64) error {
	if err := d.checkNotWritten("set forward matrix 2"); err != nil {
		return err
	}
	d.setMatrix9(tagForwardMatrix2, m)
	return nil
}

// SetCameraCalibration1/2 set the optional per-unit calibration
// matrices.
func (d *DNGImage) SetCameraCalibration1(m [9]float64) error {
	if err := d.checkNotWritten("set camera calibration 1"); err != nil {
		return err
	}
	d.setMatrix9(tagCameraCalibration1, m)
	return nil
}

func (d *DNGImage) SetCameraCalibration2(m [9]float64) error {
	if err := d.checkNotWritten("set camera calibration 2"); err != nil {
		return err
	}
	d.setMatrix9(tagCameraCalibration2, m)
	return nil
}

// SetAnalogBalance sets the per-color-plane analog gain applied before
// the raw data was recorded.
func (d *DNGImage) SetAnalogBalance(v [dngColorPlanes]float64) error {
	if err := d.checkNotWritten("set analog balance"); err != nil {
		return err
	}
	rats := make([]Rational, dngColorPlanes)
	for i, x := range v {
		rats[i] = FloatToRational(x)
	}
	d.addTag(tagAnalogBalance, TypeRational, dngColorPlanes, d.putRationals(rats))
	return nil
}

// SetAsShotNeutral sets the as-shot white balance as camera-neutral
// multipliers, one per color plane.
func (d *DNGImage) SetAsShotNeutral(v [dngColorPlanes]float64) error {
	if err := d.checkNotWritten("set as-shot neutral"); err != nil {
		return err
	}
	rats := make([]Rational, dngColorPlanes)
	for i, x := range v {
		rats[i] = FloatToRational(x)
	}
	d.addTag(tagAsShotNeutral, TypeRational, dngColorPlanes, d.putRationals(rats))
	return nil
}

// SetAsShotWhiteXY sets the as-shot white balance as a chromaticity
// coordinate.
func (d *DNGImage) SetAsShotWhiteXY(x, y float64) error {
	if err := d.checkNotWritten("set as-shot white xy"); err != nil {
		return err
	}
	rats := []Rational{FloatToRational(x), FloatToRational(y)}
	d.addTag(tagAsShotWhiteXY, TypeRational, 2, d.putRationals(rats))
	return nil
}

// SetActiveArea sets the sensor's active pixel region as
// {top, left, bottom, right}.
func (d *DNGImage) SetActiveArea(top, left, bottom, right uint32) error {
	if err := d.checkNotWritten("set active area"); err != nil {
		return err
	}
	d.addTag(tagActiveArea, TypeLong, 4, d.putUint32s(top, left, bottom, right))
	return nil
}

// AddStrip appends the single image strip this writer supports. It
// must be called exactly once, after every Set* call and before Write.
func (d *DNGImage) AddStrip(data []byte) error {
	if err := d.checkNotWritten("add strip"); err != nil {
		return err
	}
	if d.stripSet {
		return failf("add strip", "AddStrip already called")
	}
	d.stripOffset = len(d.blob)
	d.blob = append(d.blob, data...)
	d.stripLen = len(data)
	d.stripSet = true
	return nil
}

// finalize appends the tags whose value is fixed or only knowable once
// every Set*/AddStrip call has happened, then sorts the IFD by tag
// number.
func (d *DNGImage) finalize(stripAbsOffset int64) ([]ifdEntry, error) {
	if !d.stripSet {
		return nil, failf("write", "AddStrip was never called")
	}
	entries := make([]ifdEntry, len(d.entries))
	copy(entries, d.entries)

	entries = append(entries,
		ifdEntry{Tag: tagSubfileType, Type: TypeLong, Count: 1, Payload: d.putUint32s(dngSubfileTypeMain)},
		ifdEntry{Tag: tagCalibrationIlluminant1, Type: TypeShort, Count: 1, Payload: d.putUint16s(calibrationIlluminantD65)},
		ifdEntry{Tag: tagCalibrationIlluminant2, Type: TypeShort, Count: 1, Payload: d.putUint16s(calibrationIlluminantStandardA)},
		ifdEntry{Tag: tagStripOffsets, Type: TypeLong, Count: 1, Payload: d.putUint32s(uint32(stripAbsOffset))},
		ifdEntry{Tag: tagStripByteCounts, Type: TypeLong, Count: 1, Payload: d.putUint32s(uint32(d.stripLen))},
	)

	// Stable: two identical-tag entries never occur, but keep
	// deterministic output regardless.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Tag > entries[j].Tag; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
	return entries, nil
}

// Write serializes this image as a single-IFD TIFF/DNG file.
func (d *DNGImage) Write(w io.Writer) error {
	if err := d.checkNotWritten("write"); err != nil {
		return err
	}
	return WriteMulti(w, []*DNGImage{d})
}

// WriteFile serializes this image to a newly created file at path.
func (d *DNGImage) WriteFile(path string) error {
	if err := d.checkNotWritten("write file"); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fail("write file", err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteMulti serializes multiple DNGImage values as one multi-IFD TIFF
// file, chained by next-IFD pointers, matching a camera app's "burst"
// DNG output. All images must use the same endianness.
func WriteMulti(w io.Writer, images []*DNGImage) error {
	if len(images) == 0 {
		return failf("write", "no images")
	}
	order := images[0].order()

	type prepared struct {
		img       *DNGImage
		entries   []ifdEntry
		blobStart int64
	}

	var totalDataLen int64
	prep := make([]prepared, len(images))
	for i, img := range images {
		if err := img.checkNotWritten("write"); err != nil {
			return err
		}
		blobStart := totalDataLen
		stripAbs := blobStart + int64(img.stripOffset) + headerSize
		entries, err := img.finalize(stripAbs)
		if err != nil {
			return err
		}
		prep[i] = prepared{img: img, entries: entries, blobStart: blobStart}
		totalDataLen += int64(len(img.blob))
	}

	firstIFDOffset := headerSize + totalDataLen

	// Header: 2-byte endian magic, 2-byte TIFF version, 4-byte first-IFD offset.
	header := make([]byte, headerSize)
	if images[0].bigEndian {
		header[0], header[1] = 'M', 'M'
	} else {
		header[0], header[1] = 'I', 'I'
	}
	order.PutUint16(header[2:4], 42)
	order.PutUint32(header[4:8], uint32(firstIFDOffset))
	if _, err := w.Write(header); err != nil {
		return fail("write", err)
	}

	for _, p := range prep {
		if _, err := w.Write(p.img.blob); err != nil {
			return fail("write", err)
		}
	}

	ifdPos := firstIFDOffset
	for i, p := range prep {
		n, err := writeIFD(w, order, p.entries, p.blobStart+headerSize)
		if err != nil {
			return err
		}
		ifdPos += int64(n)

		var next uint32
		if i != len(prep)-1 {
			next = uint32(ifdPos + 4)
		}
		buf := make([]byte, 4)
		order.PutUint32(buf, next)
		if _, err := w.Write(buf); err != nil {
			return fail("write", err)
		}
		ifdPos += 4
	}

	images[0].markAllWritten(images)
	return nil
}

func (d *DNGImage) markAllWritten(images []*DNGImage) {
	for _, img := range images {
		img.written = true
	}
}

// writeIFD writes one IFD: a 2-byte entry count followed by each
// entry's 12-byte record (tag, type, count, offset-or-value).
// dataBaseOffset is this image's data blob's absolute file offset,
// used to turn blob-relative offsets into absolute ones.
func writeIFD(w io.Writer, order binary.ByteOrder, entries []ifdEntry, dataBaseOffset int64) (int, error) {
	buf := make([]byte, 2+len(entries)*12)
	order.PutUint16(buf[0:2], uint16(len(entries)))

	for i, e := range entries {
		pos := 2 + i*12
		order.PutUint16(buf[pos:pos+2], e.Tag)
		order.PutUint16(buf[pos+2:pos+4], e.Type)
		order.PutUint32(buf[pos+4:pos+8], e.Count)

		if len(e.Payload) <= 4 {
			copy(buf[pos+8:pos+12], e.Payload)
			continue
		}
		order.PutUint32(buf[pos+8:pos+12], uint32(dataBaseOffset+int64(e.Offset)))
	}

	_, err := w.Write(buf)
	if err != nil {
		return 0, fail("write", err)
	}
	return len(buf), nil
}
