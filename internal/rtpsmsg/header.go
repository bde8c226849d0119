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

// Package rtpsmsg implements the RTPS message and submessage framing of
// spec.md §4.1/§4.2/§6: the fixed message header, the per-submessage
// endianness bit, and the full set of submessage kinds the receiver and
// stateful writer/reader understand.
package rtpsmsg

import (
	"github.com/pkg/errors"

	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// HeaderLength is the fixed wire size of the RTPS message header.
const HeaderLength = 20

var magic = [4]byte{'R', 'T', 'P', 'S'}

// Header is the RTPS message header preceding every submessage sequence.
type Header struct {
	Version    rtpstypes.ProtocolVersion
	VendorId   rtpstypes.VendorId
	GuidPrefix rtpstypes.GuidPrefix
}

// Marshal appends the wire form of h to buf.
func (h Header) Marshal(buf []byte) []byte {
	buf = append(buf, magic[:]...)
	buf = append(buf, h.Version.Major, h.Version.Minor)
	buf = append(buf, h.VendorId[:]...)
	buf = append(buf, h.GuidPrefix[:]...)
	return buf
}

// ParseHeader decodes a Header from the start of buf, returning the
// remainder.
func ParseHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderLength {
		return Header{}, nil, errors.Errorf("rtpsmsg: short header: need %d bytes, have %d", HeaderLength, len(buf))
	}
	if [4]byte(buf[0:4]) != magic {
		return Header{}, nil, errors.New("rtpsmsg: bad magic, not an RTPS message")
	}
	var h Header
	h.Version = rtpstypes.ProtocolVersion{Major: buf[4], Minor: buf[5]}
	h.VendorId = rtpstypes.VendorId{buf[6], buf[7]}
	copy(h.GuidPrefix[:], buf[8:20])
	return h, buf[HeaderLength:], nil
}
