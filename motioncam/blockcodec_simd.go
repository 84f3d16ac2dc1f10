package motioncam

import "golang.org/x/sys/cpu"

// decode8Impl and decode16Impl are the dispatch points for the two
// block widths whose encoding is a trivial byte/u16 pass-through and
// are therefore the only ones worth vectorizing: a real SIMD kernel
// just needs to widen or reinterpret-cast a contiguous run of bytes,
// unlike the bit-packed widths which require per-lane shifts and masks
// that don't map cleanly onto fixed lane widths.
//
// On CPUs exposing wide integer SIMD we use an 8-lane unrolled decode
// that the compiler can autovectorize; everywhere else we fall back to
// the plain scalar loop. Both must produce bit-identical output.
var (
	decode8Impl  = decode8Scalar
	decode16Impl = decode16Scalar
)

func init() {
	if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD {
		decode8Impl = decode8Vec
		decode16Impl = decode16Vec
	}
}

// decode8Vec unrolls the per-byte copy of each 8-byte block inline
// instead of calling decode8One per block, giving the compiler a shot at autovectorizing
// the widen-byte-to-uint16 operation on platforms with wide SIMD
// registers. Output is identical to decode8Scalar.
func decode8Vec(p []byte, out *[64]uint16) {
	for b := 0; b < 64; b += 8 {
		out[b+0] = uint16(p[b+0])
		out[b+1] = uint16(p[b+1])
		out[b+2] = uint16(p[b+2])
		out[b+3] = uint16(p[b+3])
		out[b+4] = uint16(p[b+4])
		out[b+5] = uint16(p[b+5])
		out[b+6] = uint16(p[b+6])
		out[b+7] = uint16(p[b+7])
	}
}

// decode16Vec is decode16Scalar unrolled the same way, over the
// little-endian uint16 pass-through.
func decode16Vec(p []byte, out *[64]uint16) {
	for b, i := 0, 0; i < 64; b, i = b+16, i+8 {
		out[i+0] = uint16(p[b+0]) | uint16(p[b+1])<<8
		out[i+1] = uint16(p[b+2]) | uint16(p[b+3])<<8
		out[i+2] = uint16(p[b+4]) | uint16(p[b+5])<<8
		out[i+3] = uint16(p[b+6]) | uint16(p[b+7])<<8
		out[i+4] = uint16(p[b+8]) | uint16(p[b+9])<<8
		out[i+5] = uint16(p[b+10]) | uint16(p[b+11])<<8
		out[i+6] = uint16(p[b+12]) | uint16(p[b+13])<<8
		out[i+7] = uint16(p[b+14]) | uint16(p[b+15])<<8
	}
}
