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

import (
	"encoding/binary"
	"io"
)

// nReader wraps an io.Reader providing convenience methods for reading
// exact-length little-endian fields, the wire format used throughout
// the container regardless of host byte order.
type nReader struct {
	io.Reader
}

func (r nReader) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r nReader) readUint32() (uint32, error) {
	buf, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (r nReader) readInt64() (int64, error) {
	buf, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}
