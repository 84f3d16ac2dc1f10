package dng

// CFAPattern maps a sensor's 2x2 color filter arrangement to the
// 4-byte DNG CFAPattern tag value (plane indices: 0=R, 1=G, 2=B).
func CFAPattern(arrangement string) [4]byte {
	switch arrangement {
	case "bggr":
		return [4]byte{2, 1, 1, 0}
	case "grbg":
		return [4]byte{1, 0, 2, 1}
	case "gbrg":
		return [4]byte{1, 2, 0, 1}
	default: // "rggb" and anything unrecognized
		return [4]byte{0, 1, 1, 2}
	}
}
