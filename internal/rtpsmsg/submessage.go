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

package rtpsmsg

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/projectrtps/rtps/internal/cdr"
)

// SubmessageID identifies the kind of a submessage (spec.md §6).
type SubmessageID byte

const (
	IDPad           SubmessageID = 0x01
	IDAckNack       SubmessageID = 0x06
	IDHeartbeat     SubmessageID = 0x07
	IDGap           SubmessageID = 0x08
	IDInfoTS        SubmessageID = 0x09
	IDInfoSrc       SubmessageID = 0x0c
	IDInfoReplyIP4  SubmessageID = 0x0d
	IDInfoDst       SubmessageID = 0x0e
	IDInfoReply     SubmessageID = 0x0f
	IDNackFrag      SubmessageID = 0x12
	IDHeartbeatFrag SubmessageID = 0x13
	IDData          SubmessageID = 0x15
	IDDataFrag      SubmessageID = 0x16
)

// flagEndianness is bit 0 of every submessage's flags byte: 1 selects
// little-endian, 0 selects big-endian, independent of any other submessage
// in the same message (spec.md §4.1).
const flagEndianness = 0x01

func endianOf(flags byte) cdr.Endian {
	if flags&flagEndianness != 0 {
		return cdr.LittleEndian
	}
	return cdr.BigEndian
}

func byteOrderOf(endian cdr.Endian) binary.ByteOrder {
	if endian == cdr.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// flagsWithEndian sets/clears the endianness bit of a flags byte, leaving
// any other (kind-specific) flag bits in extra untouched.
func flagsWithEndian(endian cdr.Endian, extra byte) byte {
	f := extra &^ flagEndianness
	if endian == cdr.LittleEndian {
		f |= flagEndianness
	}
	return f
}

// RawSubmessage is a still-undispatched submessage: header fields plus its
// body bytes, ready for kind-specific decoding by the entity that owns the
// addressed EntityId.
type RawSubmessage struct {
	ID     SubmessageID
	Flags  byte
	Endian cdr.Endian
	Body   []byte
}

// MarshalSubmessage appends id/flags/length framing and body to buf. The
// length field's own byte order follows flags' endianness bit, same as the
// body.
func MarshalSubmessage(buf []byte, id SubmessageID, flags byte, body []byte) []byte {
	buf = append(buf, byte(id), flags)
	lenField := make([]byte, 2)
	byteOrderOf(endianOf(flags)).PutUint16(lenField, uint16(len(body)))
	buf = append(buf, lenField...)
	buf = append(buf, body...)
	return buf
}

// ParseSubmessages splits buf (the bytes following the RTPS message header)
// into a sequence of RawSubmessage values, in wire order. PAD submessages
// are consumed but not returned.
func ParseSubmessages(buf []byte) ([]RawSubmessage, error) {
	var out []RawSubmessage
	for len(buf) > 0 {
		if len(buf) < 4 {
			return nil, errors.New("rtpsmsg: short submessage header")
		}
		id := SubmessageID(buf[0])
		flags := buf[1]
		endian := endianOf(flags)
		length := byteOrderOf(endian).Uint16(buf[2:4])
		buf = buf[4:]
		if int(length) > len(buf) {
			return nil, errors.Errorf("rtpsmsg: submessage 0x%02x declares length %d, only %d bytes remain", id, length, len(buf))
		}
		body := buf[:length]
		buf = buf[length:]
		if id == IDPad {
			continue
		}
		out = append(out, RawSubmessage{ID: id, Flags: flags, Endian: endian, Body: body})
	}
	return out, nil
}
