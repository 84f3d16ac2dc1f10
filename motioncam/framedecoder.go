package motioncam

import "encoding/binary"

// decodeFrame decodes one compressed frame buffer into width*height
// 16-bit Bayer samples, row-major, trimmed to the logical width.
//
// A frame buffer starts with a 16-byte header (four little-endian
// uint32s: encodedWidth, encodedHeight, bitsOffset, refsOffset),
// followed at byte 16 by the compressed tile payload. bitsOffset and
// refsOffset point elsewhere in the buffer to two block streams
// (decodeBlockStream) giving, respectively, the bit width and the
// 12-bit reference for every block in the tile payload.
//
// Tiles are 4 rows high and 64 columns wide. Each tile is four blocks
// (p0..p3) that reconstruct four output rows via a fixed interleaving;
// see the loop below. encodedWidth must be a multiple of 64 and at
// least width.
func decodeFrame(data []byte, width, height int) ([]uint16, error) {
	if len(data) < 16 {
		return nil, failf("decode frame", "buffer too short for header: %d bytes", len(data))
	}
	encodedWidth := int(binary.LittleEndian.Uint32(data[0:4]))
	encodedHeight := int(binary.LittleEndian.Uint32(data[4:8]))
	bitsOffset := int(binary.LittleEndian.Uint32(data[8:12]))
	refsOffset := int(binary.LittleEndian.Uint32(data[12:16]))

	if bitsOffset > len(data) || refsOffset > len(data) {
		return nil, failf("decode frame", "bits/refs offset beyond buffer length %d", len(data))
	}
	if encodedWidth%encodingBlock != 0 {
		return nil, failf("decode frame", "encoded width %d not a multiple of %d", encodedWidth, encodingBlock)
	}
	if encodedWidth < width {
		return nil, failf("decode frame", "encoded width %d smaller than logical width %d", encodedWidth, width)
	}
	if encodedHeight < height {
		return nil, failf("decode frame", "encoded height %d smaller than logical height %d", encodedHeight, height)
	}

	bitsStream, _, err := decodeBlockStream(data, bitsOffset)
	if err != nil {
		return nil, err
	}
	refsStream, _, err := decodeBlockStream(data, refsOffset)
	if err != nil {
		return nil, err
	}

	out := make([]uint16, width*height)
	cursor := metadataOffset
	tilesPerRow := encodedWidth / encodingBlock

	row0 := make([]uint16, encodedWidth)
	row1 := make([]uint16, encodedWidth)
	row2 := make([]uint16, encodedWidth)
	row3 := make([]uint16, encodedWidth)
	var p0, p1, p2, p3 [64]uint16

	for y := 0; y+4 <= encodedHeight; y += 4 {
		for tx := 0; tx < tilesPerRow; tx++ {
			metaIdx := ((y/4)*tilesPerRow + tx) * 4
			if metaIdx+4 > len(bitsStream) || metaIdx+4 > len(refsStream) {
				return nil, failf("decode frame", "block-stream index %d out of range", metaIdx)
			}
			blockBits := [4]uint16{bitsStream[metaIdx], bitsStream[metaIdx+1], bitsStream[metaIdx+2], bitsStream[metaIdx+3]}
			blockRef := [4]uint16{refsStream[metaIdx], refsStream[metaIdx+1], refsStream[metaIdx+2], refsStream[metaIdx+3]}

			planes := [4]*[64]uint16{&p0, &p1, &p2, &p3}
			for i, plane := range planes {
				bits := uint8(blockBits[i])
				want := blockLength[resolveBits(bits)]
				got := decodeBlock(bits, data, cursor, plane)
				if got < want {
					return nil, failf("decode frame", "truncated block at byte %d: got %d of %d bytes", cursor, got, want)
				}
				cursor += got
			}

			x := tx * encodingBlock
			for i := 0; i < 64; i += 2 {
				half := i / 2
				row0[x+i] = p0[half] + blockRef[0]
				row0[x+i+1] = p1[half] + blockRef[1]
				row1[x+i] = p2[half] + blockRef[2]
				row1[x+i+1] = p3[half] + blockRef[3]
				row2[x+i] = p0[32+half] + blockRef[0]
				row2[x+i+1] = p1[32+half] + blockRef[1]
				row3[x+i] = p2[32+half] + blockRef[2]
				row3[x+i+1] = p3[32+half] + blockRef[3]
			}
		}

		for r, src := range [4][]uint16{row0, row1, row2, row3} {
			outRow := y + r
			if outRow >= height {
				break
			}
			copy(out[outRow*width:outRow*width+width], src[:width])
		}
	}

	return out, nil
}
