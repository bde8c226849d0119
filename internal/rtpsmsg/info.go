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
	"github.com/pkg/errors"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

const flagInvalidate = 0x02

// InfoTS carries (or invalidates) the source timestamp applied to
// subsequent DATA submessages in the same message (spec.md §4.1/§4.2).
type InfoTS struct {
	Invalidate bool
	Timestamp  rtpstypes.Timestamp
}

// Marshal serializes ts.
func (ts InfoTS) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	var flags byte
	if ts.Invalidate {
		flags |= flagInvalidate
	} else {
		w.WriteInt32(ts.Timestamp.Seconds)
		w.WriteUint32(ts.Timestamp.Fraction)
	}
	return RawSubmessage{ID: IDInfoTS, Flags: flagsWithEndian(endian, flags), Body: w.Bytes()}
}

// ParseInfoTS decodes an InfoTS body.
func ParseInfoTS(raw RawSubmessage) (InfoTS, error) {
	if raw.Flags&flagInvalidate != 0 {
		return InfoTS{Invalidate: true, Timestamp: rtpstypes.TimestampInvalid}, nil
	}
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	sec, err := r.ReadInt32()
	if err != nil {
		return InfoTS{}, errors.Wrap(err, "info_ts: seconds")
	}
	frac, err := r.ReadUint32()
	if err != nil {
		return InfoTS{}, errors.Wrap(err, "info_ts: fraction")
	}
	return InfoTS{Timestamp: rtpstypes.Timestamp{Seconds: sec, Fraction: frac}}, nil
}

// InfoSrc updates the interpreted source protocol version/vendor/guid
// prefix for subsequent submessages (spec.md §4.2).
type InfoSrc struct {
	Version    rtpstypes.ProtocolVersion
	VendorId   rtpstypes.VendorId
	GuidPrefix rtpstypes.GuidPrefix
}

// Marshal serializes is.
func (is InfoSrc) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	w.WriteUint32(0) // unused
	w.WriteUint8(is.Version.Major)
	w.WriteUint8(is.Version.Minor)
	w.Raw(is.VendorId[:])
	w.Raw(is.GuidPrefix[:])
	return RawSubmessage{ID: IDInfoSrc, Flags: flagsWithEndian(endian, 0), Body: w.Bytes()}
}

// ParseInfoSrc decodes an InfoSrc body.
func ParseInfoSrc(raw RawSubmessage) (InfoSrc, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	if _, err := r.ReadUint32(); err != nil {
		return InfoSrc{}, err
	}
	major, err := r.ReadUint8()
	if err != nil {
		return InfoSrc{}, err
	}
	minor, err := r.ReadUint8()
	if err != nil {
		return InfoSrc{}, err
	}
	vendor, err := r.Raw(2)
	if err != nil {
		return InfoSrc{}, err
	}
	prefix, err := r.Raw(rtpstypes.GuidPrefixLength)
	if err != nil {
		return InfoSrc{}, err
	}
	is := InfoSrc{Version: rtpstypes.ProtocolVersion{Major: major, Minor: minor}}
	copy(is.VendorId[:], vendor)
	copy(is.GuidPrefix[:], prefix)
	return is, nil
}

// InfoDst updates the interpreted destination guid prefix (spec.md §4.2).
type InfoDst struct {
	GuidPrefix rtpstypes.GuidPrefix
}

// Marshal serializes d.
func (d InfoDst) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	w.Raw(d.GuidPrefix[:])
	return RawSubmessage{ID: IDInfoDst, Flags: flagsWithEndian(endian, 0), Body: w.Bytes()}
}

// ParseInfoDst decodes an InfoDst body.
func ParseInfoDst(raw RawSubmessage) (InfoDst, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	prefix, err := r.Raw(rtpstypes.GuidPrefixLength)
	if err != nil {
		return InfoDst{}, err
	}
	var d InfoDst
	copy(d.GuidPrefix[:], prefix)
	return d, nil
}

const flagMulticast = 0x02

// InfoReply supplies locators to use when replying to the message it's
// attached to (spec.md §4.1/§4.2).
type InfoReply struct {
	UnicastLocatorList   rtpstypes.LocatorList
	MulticastLocatorList rtpstypes.LocatorList
}

// Marshal serializes ir.
func (ir InfoReply) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	w.WriteSequenceLength(len(ir.UnicastLocatorList))
	for _, l := range ir.UnicastLocatorList {
		WriteLocator(w, l)
	}
	var flags byte
	if len(ir.MulticastLocatorList) > 0 {
		flags |= flagMulticast
		w.WriteSequenceLength(len(ir.MulticastLocatorList))
		for _, l := range ir.MulticastLocatorList {
			WriteLocator(w, l)
		}
	}
	return RawSubmessage{ID: IDInfoReply, Flags: flagsWithEndian(endian, flags), Body: w.Bytes()}
}

// ParseInfoReply decodes an InfoReply body.
func ParseInfoReply(raw RawSubmessage) (InfoReply, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	var ir InfoReply
	n, err := r.ReadSequenceLength()
	if err != nil {
		return InfoReply{}, err
	}
	for i := 0; i < n; i++ {
		l, err := ReadLocator(r)
		if err != nil {
			return InfoReply{}, err
		}
		ir.UnicastLocatorList = append(ir.UnicastLocatorList, l)
	}
	if raw.Flags&flagMulticast != 0 {
		n, err := r.ReadSequenceLength()
		if err != nil {
			return InfoReply{}, err
		}
		for i := 0; i < n; i++ {
			l, err := ReadLocator(r)
			if err != nil {
				return InfoReply{}, err
			}
			ir.MulticastLocatorList = append(ir.MulticastLocatorList, l)
		}
	}
	return ir, nil
}
