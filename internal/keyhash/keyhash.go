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

// Package keyhash computes the InstanceHandle identifying a CacheChange's
// instance from its serialized key fields, per spec.md §4.5: key fields are
// CDR-serialized (XCDR2, big-endian) into the handle buffer; if the result
// fits in 16 bytes it becomes the (zero-padded) handle directly, otherwise
// the handle is the MD5 digest of the full serialization.
package keyhash

import (
	"crypto/md5"

	"github.com/projectrtps/rtps/internal/cdr"
)

// Length is the fixed byte width of an InstanceHandle / KEY_HASH value.
const Length = 16

// Handle is the 16-byte instance identifier of spec.md §3/§4.5.
type Handle [Length]byte

// KeyWriter lets a type serialize its own key fields into w, in the field
// order its topic type defines, without knowing anything about hashing.
type KeyWriter func(w *cdr.Writer)

// Compute derives the InstanceHandle for a set of key fields, serialized by
// write. Serialization always uses XCDR2 big-endian, independent of the
// endianness/version used for the sample's data payload.
func Compute(write KeyWriter) Handle {
	w := cdr.NewWriter(cdr.XCDR2, cdr.BigEndian)
	write(w)
	return fromSerializedKey(w.Bytes())
}

func fromSerializedKey(key []byte) Handle {
	var h Handle
	if len(key) <= Length {
		copy(h[:], key) // short key: zero-padded in place, no hashing needed
		return h
	}
	sum := md5.Sum(key)
	return Handle(sum)
}

// representationHeader is the 4-byte CDR encapsulation header RTPS prefixes
// onto a serialized-key wire form: schema {0x00,0x01,0x00,0x00} selecting
// CDR_LE (plain CDR, little-endian), with the padding count folded
// into byte 3 per spec.md §4.5.
var representationHeader = [4]byte{0x00, 0x01, 0x00, 0x00}

// SerializedKeyWireForm builds the XCDR1 little-endian "serialized key" wire
// representation used when a KEY_HASH cannot be computed without the full
// key (e.g. unregistering an instance from a remote reader that never saw
// the data): a 4-byte representation header (with the padding count needed
// to round the whole buffer to a multiple of 4 recorded in its low byte),
// followed by the little-endian XCDR1 serialization of the key fields,
// zero-padded to a 4-byte boundary.
func SerializedKeyWireForm(write KeyWriter) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	write(w)
	body := w.Bytes()
	pad := (4 - len(body)%4) % 4
	hdr := representationHeader
	hdr[3] = byte(pad)
	out := make([]byte, 0, 4+len(body)+pad)
	out = append(out, hdr[:]...)
	out = append(out, body...)
	for i := 0; i < pad; i++ {
		out = append(out, 0)
	}
	return out
}
