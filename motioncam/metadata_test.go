package motioncam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContainerMetadata(t *testing.T) {
	doc := `{
		"blackLevel": [1,2,3,4],
		"whiteLevel": 1023,
		"sensorArrangment": "bggr",
		"colorMatrix1": [1,0,0,0,1,0,0,0,1],
		"colorMatrix2": [1,0,0,0,1,0,0,0,1],
		"forwardMatrix1": [1,0,0,0,1,0,0,0,1],
		"forwardMatrix2": [1,0,0,0,1,0,0,0,1],
		"extraData": {"audioSampleRate": 48000, "audioChannels": 2, "futureField": "kept"}
	}`
	m, err := ParseContainerMetadata([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, m.BlackLevel)
	assert.Equal(t, SensorArrangement("bggr"), m.SensorArrangment)
	assert.Equal(t, 48000, m.ExtraData.AudioSampleRate)
	assert.Equal(t, 2, m.ExtraData.AudioChannels)
	_, ok := m.ExtraData.Extra["futureField"]
	assert.True(t, ok)
}

func TestSensorArrangmentDefaultsToRGGB(t *testing.T) {
	doc := `{"blackLevel":[0,0,0,0],"sensorArrangment":"not-a-real-one","extraData":{}}`
	m, err := ParseContainerMetadata([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, SensorRGGB, m.SensorArrangment)
}

func TestParseContainerMetadataRejectsWrongBlackLevelLength(t *testing.T) {
	doc := `{"blackLevel":[0,0,0],"extraData":{}}`
	_, err := ParseContainerMetadata([]byte(doc))
	assert.Error(t, err)
}

func TestParseFrameMetadata(t *testing.T) {
	doc := `{"width":64,"height":4,"compressionType":7,"asShotNeutral":[0.5,1,0.5]}`
	m, err := ParseFrameMetadata([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 64, m.Width)
	assert.Equal(t, 4, m.Height)
	assert.Equal(t, 7, m.CompressionType)
	assert.Equal(t, [3]float64{0.5, 1, 0.5}, m.AsShotNeutral)
}
