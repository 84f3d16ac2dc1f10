package dng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCFAPatternKnownArrangements(t *testing.T) {
	assert.Equal(t, [4]byte{0, 1, 1, 2}, CFAPattern("rggb"))
	assert.Equal(t, [4]byte{2, 1, 1, 0}, CFAPattern("bggr"))
	assert.Equal(t, [4]byte{1, 0, 2, 1}, CFAPattern("grbg"))
	assert.Equal(t, [4]byte{1, 2, 0, 1}, CFAPattern("gbrg"))
}

func TestCFAPatternUnknownDefaultsToRGGB(t *testing.T) {
	assert.Equal(t, CFAPattern("rggb"), CFAPattern("not-a-real-arrangement"))
}
