// Copyright RTPS Go Authors
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

package paramlist

// StatusInfoKind is the low-3-bits-of-byte-3 flags carried by the
// STATUS_INFO inline QoS parameter (spec.md §4.1).
type StatusInfoKind byte

const (
	StatusInfoDisposed     StatusInfoKind = 0x1
	StatusInfoUnregistered StatusInfoKind = 0x2
	StatusInfoFiltered     StatusInfoKind = 0x4
)

// EncodeStatusInfo serializes a STATUS_INFO parameter value: 4 bytes, flags
// in the low 3 bits of the last byte.
func EncodeStatusInfo(kind StatusInfoKind) []byte {
	return []byte{0, 0, 0, byte(kind) & 0x7}
}

// DecodeStatusInfo parses a STATUS_INFO parameter value.
func DecodeStatusInfo(value []byte) StatusInfoKind {
	if len(value) < 4 {
		return 0
	}
	return StatusInfoKind(value[3] & 0x7)
}

// KeyHashLength is the fixed wire length of a KEY_HASH parameter.
const KeyHashLength = 16

// EncodeKeyHash wraps a 16-byte instance handle as a KEY_HASH parameter
// value.
func EncodeKeyHash(handle [KeyHashLength]byte) []byte {
	out := make([]byte, KeyHashLength)
	copy(out, handle[:])
	return out
}

// DecodeKeyHash parses a KEY_HASH parameter value.
func DecodeKeyHash(value []byte) (handle [KeyHashLength]byte, ok bool) {
	if len(value) != KeyHashLength {
		return handle, false
	}
	copy(handle[:], value)
	return handle, true
}
