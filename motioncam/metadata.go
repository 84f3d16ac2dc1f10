package motioncam

import "encoding/json"

// SensorArrangement identifies the 2x2 CFA tile layout of the sensor
// that produced a recording.
type SensorArrangement string

const (
	SensorRGGB SensorArrangement = "rggb"
	SensorBGGR SensorArrangement = "bggr"
	SensorGRBG SensorArrangement = "grbg"
	SensorGBRG SensorArrangement = "gbrg"
)

// normalize returns s if it is one of the four documented arrangements,
// and SensorRGGB otherwise.
func (s SensorArrangement) normalize() SensorArrangement {
	switch s {
	case SensorRGGB, SensorBGGR, SensorGRBG, SensorGBRG:
		return s
	default:
		return SensorRGGB
	}
}

// ExtraData mirrors the container metadata's "extraData" object. Only
// the audio fields this library consumes are typed; everything else is
// kept as raw JSON so future fields don't get silently discarded.
type ExtraData struct {
	AudioSampleRate int                        `json:"audioSampleRate"`
	AudioChannels   int                        `json:"audioChannels"`
	Extra           map[string]json.RawMessage `json:"-"`
}

func (e *ExtraData) UnmarshalJSON(data []byte) error {
	type alias struct {
		AudioSampleRate int `json:"audioSampleRate"`
		AudioChannels   int `json:"audioChannels"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "audioSampleRate")
	delete(raw, "audioChannels")
	e.AudioSampleRate = a.AudioSampleRate
	e.AudioChannels = a.AudioChannels
	e.Extra = raw
	return nil
}

// ContainerMetadata mirrors the JSON object stored in the top-level
// METADATA item: camera calibration data that applies to every frame in
// the recording.
type ContainerMetadata struct {
	BlackLevel         []float64         `json:"blackLevel"`
	WhiteLevel         float64           `json:"whiteLevel"`
	SensorArrangment   SensorArrangement `json:"sensorArrangment"`
	ColorMatrix1       [9]float64        `json:"colorMatrix1"`
	ColorMatrix2       [9]float64        `json:"colorMatrix2"`
	ForwardMatrix1     [9]float64        `json:"forwardMatrix1"`
	ForwardMatrix2     [9]float64        `json:"forwardMatrix2"`
	CameraCalibration1 *[9]float64       `json:"cameraCalibration1,omitempty"`
	CameraCalibration2 *[9]float64       `json:"cameraCalibration2,omitempty"`
	Software           string            `json:"software,omitempty"`
	Orientation        *int              `json:"orientation,omitempty"`
	ExtraData          ExtraData         `json:"extraData"`
}

// ParseContainerMetadata parses the container-level JSON document and
// validates the invariants this package relies on: exactly 4
// black-level entries, one per CFA position.
func ParseContainerMetadata(data []byte) (*ContainerMetadata, error) {
	var m ContainerMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fail("parse container metadata", err)
	}
	if len(m.BlackLevel) != 4 {
		return nil, failf("parse container metadata", "blackLevel has %d entries, want 4", len(m.BlackLevel))
	}
	m.SensorArrangment = m.SensorArrangment.normalize()
	return &m, nil
}

// FrameMetadata mirrors the JSON object stored alongside each frame's
// compressed BUFFER item.
type FrameMetadata struct {
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	CompressionType int        `json:"compressionType"`
	AsShotNeutral   [3]float64 `json:"asShotNeutral"`

	raw map[string]json.RawMessage
}

// ParseFrameMetadata parses a per-frame JSON document. It does not
// validate compressionType; callers that need a decoded frame do that
// check themselves (LoadFrame) since some consumers only want the
// metadata.
func ParseFrameMetadata(data []byte) (*FrameMetadata, error) {
	var m FrameMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fail("parse frame metadata", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		m.raw = raw
	}
	return &m, nil
}

// Raw returns the named top-level field's raw JSON, for callers that
// need a field this package does not mirror.
func (m *FrameMetadata) Raw(key string) (json.RawMessage, bool) {
	v, ok := m.raw[key]
	return v, ok
}
