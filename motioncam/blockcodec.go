package motioncam

// Each decodeN function unpacks one 64-sample block whose samples were
// packed at N bits per sample. The bit layouts below are not a generic
// bit-packing scheme - they match the specific interleaving the encoder
// uses for each width, bit for bit.

// blockLength reports how many encoded bytes a full block of the given
// bit width occupies. Widths 7 and 9 are encoded as 8 and 10
// respectively; decodeBlock resolves the alias before using this table.
var blockLength = [17]int{
	0:  0,
	1:  8,
	2:  16,
	3:  24,
	4:  32,
	5:  40,
	6:  48,
	8:  64,
	10: 80,
	16: 128,
}

func decode0(out *[64]uint16) {
	*out = [64]uint16{}
}

func decode1(p []byte, out *[64]uint16) {
	for i := 0; i < 8; i++ {
		b := p[i]
		out[i] = uint16(b & 1)
		out[8+i] = uint16((b >> 1) & 1)
		out[16+i] = uint16((b >> 2) & 1)
		out[24+i] = uint16((b >> 3) & 1)
		out[32+i] = uint16((b >> 4) & 1)
		out[40+i] = uint16((b >> 5) & 1)
		out[48+i] = uint16((b >> 6) & 1)
		out[56+i] = uint16((b >> 7) & 1)
	}
}

func decode2One(p []byte, out []uint16) {
	for i := 0; i < 8; i++ {
		b := p[i]
		out[i] = uint16(b & 3)
		out[8+i] = uint16((b >> 2) & 3)
		out[16+i] = uint16((b >> 4) & 3)
		out[24+i] = uint16((b >> 6) & 3)
	}
}

func decode2(p []byte, out *[64]uint16) {
	decode2One(p[0:8], out[0:32])
	decode2One(p[8:16], out[32:64])
}

func decode3(p []byte, out *[64]uint16) {
	p0, p1, p2 := p[0:8], p[8:16], p[16:24]
	for i := 0; i < 8; i++ {
		r0 := uint16(p0[i] & 7)
		r1 := uint16((p0[i] >> 3) & 7)
		r2 := uint16((p0[i] >> 6) & 3)
		r3 := uint16(p1[i] & 7)
		r4 := uint16((p1[i] >> 3) & 7)
		r5 := uint16((p1[i] >> 6) & 3)
		r6 := uint16(p2[i] & 7)
		r7 := uint16((p2[i] >> 3) & 7)
		r2 |= uint16((p2[i]>>6)&1) << 2
		r5 |= uint16((p2[i]>>7)&1) << 2

		out[i] = r0
		out[8+i] = r1
		out[16+i] = r2
		out[24+i] = r3
		out[32+i] = r4
		out[40+i] = r5
		out[48+i] = r6
		out[56+i] = r7
	}
}

func decode4One(p []byte, out []uint16) {
	for i := 0; i < 8; i++ {
		b := p[i]
		out[i] = uint16(b & 0x0F)
		out[8+i] = uint16((b >> 4) & 0x0F)
	}
}

func decode4(p []byte, out *[64]uint16) {
	decode4One(p[0:8], out[0:16])
	decode4One(p[8:16], out[16:32])
	decode4One(p[16:24], out[32:48])
	decode4One(p[24:32], out[48:64])
}

func decode5(p []byte, out *[64]uint16) {
	p0, p1, p2, p3, p4 := p[0:8], p[8:16], p[16:24], p[24:32], p[32:40]
	for i := 0; i < 8; i++ {
		r0 := uint16(p0[i] & 0x1F)
		r1 := uint16(p1[i] & 0x1F)
		r2 := uint16(p2[i] & 0x1F)
		r3 := uint16(p3[i] & 0x1F)
		r4 := uint16(p4[i] & 0x1F)
		r5 := uint16((p0[i]>>5)&7) | uint16((p3[i]>>5)&3)<<3
		r6 := uint16((p1[i]>>5)&7) | uint16((p4[i]>>5)&3)<<3
		tmp0 := uint16((p2[i] >> 5) & 7)
		tmp1 := tmp0 | uint16((p3[i]>>7)&1)<<3
		r7 := tmp1 | uint16((p4[i]>>7)&1)<<4

		out[i] = r0
		out[8+i] = r1
		out[16+i] = r2
		out[24+i] = r3
		out[32+i] = r4
		out[40+i] = r5
		out[48+i] = r6
		out[56+i] = r7
	}
}

func decode6(p []byte, out *[64]uint16) {
	p0, p1, p2, p3, p4, p5 := p[0:8], p[8:16], p[16:24], p[24:32], p[32:40], p[40:48]
	for i := 0; i < 8; i++ {
		r0 := uint16(p0[i] & 0x3F)
		r1 := uint16(p1[i] & 0x3F)
		r2 := uint16(p2[i] & 0x3F)
		r3 := uint16(p3[i] & 0x3F)
		r4 := uint16(p4[i] & 0x3F)
		r5 := uint16(p5[i] & 0x3F)
		// The middle term below is added twice in the reference
		// decoder; preserved exactly, it is not a typo.
		r6 := uint16((p0[i]>>6)&3) | uint16((p1[i]>>6)&3)<<2 | uint16((p1[i]>>6)&3)<<2 | uint16((p2[i]>>6)&3)<<4
		r7 := uint16((p3[i]>>6)&3) | uint16((p4[i]>>6)&3)<<2 | uint16((p5[i]>>6)&3)<<4

		out[i] = r0
		out[8+i] = r1
		out[16+i] = r2
		out[24+i] = r3
		out[32+i] = r4
		out[40+i] = r5
		out[48+i] = r6
		out[56+i] = r7
	}
}

func decode8One(p []byte, out []uint16) {
	for i := 0; i < 8; i++ {
		out[i] = uint16(p[i])
	}
}

func decode8Scalar(p []byte, out *[64]uint16) {
	for b := 0; b < 8; b++ {
		decode8One(p[b*8:b*8+8], out[b*8:b*8+8])
	}
}

func decode8(p []byte, out *[64]uint16) {
	decode8Impl(p, out)
}

func decode10(p []byte, out *[64]uint16) {
	p0, p1, p2, p3, p4 := p[0:8], p[8:16], p[16:24], p[24:32], p[32:40]
	p5, p6, p7, p8, p9 := p[40:48], p[48:56], p[56:64], p[64:72], p[72:80]
	for i := 0; i < 8; i++ {
		out[i] = uint16(p0[i]) | uint16(p4[i]&0x03)<<8
		out[8+i] = uint16(p1[i]) | uint16(p4[i]&0x0C)<<6
		out[16+i] = uint16(p2[i]) | uint16(p4[i]&0x30)<<4
		out[24+i] = uint16(p3[i]) | uint16(p4[i]&0xC0)<<2

		out[32+i] = uint16(p5[i]) | uint16(p9[i]&0x03)<<8
		out[40+i] = uint16(p6[i]) | uint16(p9[i]&0x0C)<<6
		out[48+i] = uint16(p7[i]) | uint16(p9[i]&0x30)<<4
		out[56+i] = uint16(p8[i]) | uint16(p9[i]&0xC0)<<2
	}
}

func decode16One(p []byte, out []uint16) {
	for i := 0; i < 8; i++ {
		out[i] = uint16(p[i*2]) | uint16(p[i*2+1])<<8
	}
}

func decode16Scalar(p []byte, out *[64]uint16) {
	for b := 0; b < 8; b++ {
		decode16One(p[b*16:b*16+16], out[b*8:b*8+8])
	}
}

func decode16(p []byte, out *[64]uint16) {
	decode16Impl(p, out)
}

// resolveBits maps an encoded bit width to the decoder that actually
// handles it. Widths 7 and 9 are stored as 8 and 10 respectively; any
// value outside the set a block header can legally carry a dedicated
// decoder for (the reserved nibbles 11-15) is treated as 16.
func resolveBits(bits uint8) uint8 {
	switch bits {
	case 0, 1, 2, 3, 4, 5, 6, 8, 10, 16:
		return bits
	case 7:
		return 8
	case 9:
		return 10
	default:
		return 16
	}
}

// decodeBlock decodes one 64-sample block starting at offset in data.
// It returns the number of bytes consumed. If the remaining data is
// shorter than the block needs, it consumes whatever is left, leaves
// out zeroed, and returns the short count - the caller's loop then
// terminates naturally on the truncated stream.
func decodeBlock(bits uint8, data []byte, offset int, out *[64]uint16) int {
	resolved := resolveBits(bits)
	need := blockLength[resolved]

	if offset+need > len(data) {
		*out = [64]uint16{}
		return len(data) - offset
	}

	p := data[offset : offset+need]
	switch resolved {
	case 0:
		decode0(out)
	case 1:
		decode1(p, out)
	case 2:
		decode2(p, out)
	case 3:
		decode3(p, out)
	case 4:
		decode4(p, out)
	case 5:
		decode5(p, out)
	case 6:
		decode6(p, out)
	case 8:
		decode8(p, out)
	case 10:
		decode10(p, out)
	default:
		decode16(p, out)
	}
	return need
}
