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

package motioncam

// containerIdent is the fixed 4-byte identifier at the start of every
// .mcraw file. containerVersion is the only version this reader accepts.
var containerIdent = [4]byte{'M', 'C', 'R', 'W'}

const containerVersion uint32 = 1

// indexMagicNumber guards the tail-anchored BufferIndex record against a
// truncated or corrupted file being mistaken for a valid one.
const indexMagicNumber uint32 = 0x4d435258 // "MCRX" in hex digits; stored little-endian as "XRCM"

// motionCamCompressionType is the only compressionType value a per-frame
// metadata record may carry; anything else is rejected.
const motionCamCompressionType = 7

// itemType is the 4-byte tag preceding every payload in the container.
type itemType uint32

const (
	itemMetadata          itemType = 0
	itemBuffer            itemType = 1
	itemBufferIndex       itemType = 2
	itemAudioData         itemType = 3
	itemAudioDataMetadata itemType = 4
	itemAudioIndex        itemType = 5
)

func (t itemType) String() string {
	switch t {
	case itemMetadata:
		return "METADATA"
	case itemBuffer:
		return "BUFFER"
	case itemBufferIndex:
		return "BUFFER_INDEX"
	case itemAudioData:
		return "AUDIO_DATA"
	case itemAudioDataMetadata:
		return "AUDIO_DATA_METADATA"
	case itemAudioIndex:
		return "AUDIO_INDEX"
	default:
		return "UNKNOWN"
	}
}

// encodingBlock is the number of samples packed into a single bit-plane
// block, and metadataOffset is where compressed tile payloads begin
// within a frame buffer, immediately after the 16-byte frame header.
const (
	encodingBlock  = 64
	metadataOffset = 16
)
