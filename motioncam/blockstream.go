package motioncam

import "encoding/binary"

// decodeBlockStream decodes a "block stream": a 4-byte little-endian
// sample count followed by ceil(count/64) fixed-width blocks, each
// prefixed by a 2-byte header. The high nibble of the header's first
// byte is the block's bit width; the low nibble together with the
// second byte is a 12-bit reference value added to every sample the
// block decodes to. Both the per-tile bit-width stream and the
// per-tile reference stream inside a frame buffer use this format.
//
// It returns exactly count decoded samples and the number of bytes
// consumed from data starting at offset.
func decodeBlockStream(data []byte, offset int) ([]uint16, int, error) {
	if offset+4 > len(data) {
		return nil, 0, failf("decode block stream", "truncated count at offset %d", offset)
	}
	count := binary.LittleEndian.Uint32(data[offset : offset+4])
	pos := offset + 4

	numBlocks := (int(count) + encodingBlock - 1) / encodingBlock
	samples := make([]uint16, numBlocks*encodingBlock)

	var block [64]uint16
	for i := 0; i < numBlocks; i++ {
		if pos+2 > len(data) {
			return nil, 0, failf("decode block stream", "truncated block header at offset %d", pos)
		}
		b0, b1 := data[pos], data[pos+1]
		bits := b0 >> 4
		reference := uint16(b0&0x0F)<<8 | uint16(b1)
		pos += 2

		consumed := decodeBlock(bits, data, pos, &block)
		pos += consumed

		dst := samples[i*encodingBlock : i*encodingBlock+encodingBlock]
		for j, s := range block {
			dst[j] = s + reference
		}
	}

	return samples[:count], pos - offset, nil
}
