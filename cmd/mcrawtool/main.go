// Copyright 2018 The Cacophony Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// mcrawtool is a small diagnostic for .mcraw files: it prints the
// container's calibration metadata and frame timestamps and, given
// -n/--frame, decodes one frame to a raw uint16 dump or a DNG file.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	arg "github.com/alexflint/go-arg"

	"github.com/mirsadm/motioncam-decoder/dng"
	"github.com/mirsadm/motioncam-decoder/motioncam"
)

type args struct {
	Input string `arg:"positional,required" help:"path to a .mcraw file"`
	Frame int    `arg:"-n,--frame" help:"index into the frame list to decode (-1 = don't decode)"`
	Raw   string `arg:"--raw" help:"write the decoded frame as raw little-endian uint16 to this path"`
	DNG   string `arg:"--dng" help:"write the decoded frame as a DNG to this path"`
	Burst string `arg:"--burst" help:"decode every frame and write them as one multi-IFD DNG to this path"`
}

func (args) Version() string {
	return "mcrawtool 1.0"
}

func main() {
	var a args
	a.Frame = -1
	arg.MustParse(&a)

	if err := run(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(a args) error {
	c, err := motioncam.Open(a.Input)
	if err != nil {
		return err
	}
	defer c.Close()

	meta := c.ContainerMetadata()
	frames := c.Frames()

	fmt.Printf("sensorArrangment: %s\n", meta.SensorArrangment)
	fmt.Printf("blackLevel:       %v\n", meta.BlackLevel)
	fmt.Printf("whiteLevel:       %v\n", meta.WhiteLevel)
	fmt.Printf("audio:            %d Hz, %d channels\n", c.AudioSampleRateHz(), c.NumAudioChannels())
	fmt.Printf("frames:           %d\n", len(frames))
	for i, ts := range frames {
		fmt.Printf("  [%d] %d\n", i, ts)
	}

	if a.Burst != "" {
		if err := writeBurst(a.Burst, c, meta, frames); err != nil {
			return err
		}
	}

	if a.Frame < 0 {
		return nil
	}
	if a.Frame >= len(frames) {
		return fmt.Errorf("frame index %d out of range (have %d frames)", a.Frame, len(frames))
	}

	pixels, frameMeta, err := c.LoadFrame(frames[a.Frame])
	if err != nil {
		return err
	}
	fmt.Printf("decoded frame %d: %dx%d, asShotNeutral=%v\n", a.Frame, frameMeta.Width, frameMeta.Height, frameMeta.AsShotNeutral)

	if a.Raw != "" {
		if err := writeRaw(a.Raw, pixels); err != nil {
			return err
		}
	}
	if a.DNG != "" {
		if err := writeDNG(a.DNG, pixels, meta, frameMeta); err != nil {
			return err
		}
	}
	return nil
}

// skipReport collects frame-decode failures during a burst export. A
// corrupt container can fail every frame, so only the first few are
// printed individually; the rest are folded into a trailing count.
type skipReport struct {
	total int
}

const maxSkipLines = 3

func (r *skipReport) record(i int, err error) {
	r.total++
	if r.total <= maxSkipLines {
		fmt.Fprintf(os.Stderr, "skipping frame %d: %v\n", i, err)
	}
}

func (r *skipReport) flush() {
	if r.total > maxSkipLines {
		fmt.Fprintf(os.Stderr, "... %d more frames skipped\n", r.total-maxSkipLines)
	}
}

// writeBurst decodes every frame in the container and writes them as a
// single multi-IFD DNG, the way a camera app's burst-capture export
// would. A frame that fails to decode is skipped rather than aborting
// the whole export.
func writeBurst(path string, c *motioncam.Container, meta *motioncam.ContainerMetadata, frames []int64) error {
	var skips skipReport

	images := make([]*dng.DNGImage, 0, len(frames))
	for i, ts := range frames {
		pixels, frameMeta, err := c.LoadFrame(ts)
		if err != nil {
			skips.record(i, err)
			continue
		}
		img, err := buildDNGImage(pixels, meta, frameMeta)
		if err != nil {
			skips.record(i, err)
			continue
		}
		images = append(images, img)
	}
	skips.flush()
	if len(images) == 0 {
		return fmt.Errorf("no frames decoded successfully")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return dng.WriteMulti(f, images)
}

func writeRaw(path string, pixels []uint16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, len(pixels)*2)
	for i, v := range pixels {
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], v)
	}
	_, err = f.Write(buf)
	return err
}

func writeDNG(path string, pixels []uint16, meta *motioncam.ContainerMetadata, frameMeta *motioncam.FrameMetadata) error {
	img, err := buildDNGImage(pixels, meta, frameMeta)
	if err != nil {
		return err
	}
	return img.WriteFile(path)
}

// buildDNGImage bridges MotionCam container/frame metadata into a DNG
// tag sequence. This glue intentionally lives here rather than in the
// dng or motioncam packages: dng stays a domain-agnostic TIFF/DNG
// writer and motioncam stays a reader, so neither needs to know about
// the other.
func buildDNGImage(pixels []uint16, meta *motioncam.ContainerMetadata, frameMeta *motioncam.FrameMetadata) (*dng.DNGImage, error) {
	strip := make([]byte, len(pixels)*2)
	for i, v := range pixels {
		binary.LittleEndian.PutUint16(strip[i*2:i*2+2], v)
	}

	img := &dng.DNGImage{}
	if err := img.SetImageSize(uint32(frameMeta.Width), uint32(frameMeta.Height)); err != nil {
		return nil, err
	}
	if err := img.SetSamplesPerPixel(1); err != nil {
		return nil, err
	}
	if err := img.SetBitsPerSample(16); err != nil {
		return nil, err
	}
	if err := img.SetCompressionNone(); err != nil {
		return nil, err
	}
	if err := img.SetPhotometricCFA(); err != nil {
		return nil, err
	}
	if err := img.SetPlanarConfigContig(); err != nil {
		return nil, err
	}
	if err := img.SetRowsPerStrip(uint32(frameMeta.Height)); err != nil {
		return nil, err
	}
	if err := img.SetDNGVersion([4]byte{1, 4, 0, 0}); err != nil {
		return nil, err
	}
	if err := img.SetCFA(string(meta.SensorArrangment)); err != nil {
		return nil, err
	}

	var blackLevel [4]uint16
	for i, v := range meta.BlackLevel {
		blackLevel[i] = uint16(v)
	}
	if err := img.SetBlackLevel(blackLevel); err != nil {
		return nil, err
	}
	if err := img.SetWhiteLevel(uint16(meta.WhiteLevel)); err != nil {
		return nil, err
	}
	if err := img.SetColorMatrix1(meta.ColorMatrix1); err != nil {
		return nil, err
	}
	if err := img.SetColorMatrix2(meta.ColorMatrix2); err != nil {
		return nil, err
	}
	if err := img.SetForwardMatrix1(meta.ForwardMatrix1); err != nil {
		return nil, err
	}
	if err := img.SetForwardMatrix2(meta.ForwardMatrix2); err != nil {
		return nil, err
	}
	if err := img.SetAsShotNeutral([3]float64{frameMeta.AsShotNeutral[0], frameMeta.AsShotNeutral[1], frameMeta.AsShotNeutral[2]}); err != nil {
		return nil, err
	}
	if err := img.SetActiveArea(0, 0, uint32(frameMeta.Height), uint32(frameMeta.Width)); err != nil {
		return nil, err
	}
	if err := img.AddStrip(strip); err != nil {
		return nil, err
	}

	return img, nil
}
