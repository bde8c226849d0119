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
	"github.com/projectrtps/rtps/internal/paramlist"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// RepresentationIdentifier is the 2-byte payload encoding tag preceding
// every DATA/DATA_FRAG serialized payload (spec.md §4.1/§6).
type RepresentationIdentifier uint16

const (
	ReprCDRBE   RepresentationIdentifier = 0x0000
	ReprCDRLE   RepresentationIdentifier = 0x0001
	ReprPLCDRBE RepresentationIdentifier = 0x0002
	ReprPLCDRLE RepresentationIdentifier = 0x0003
)

const (
	flagDataInlineQos = 0x02
	flagDataData      = 0x04
	flagDataKey       = 0x08
	flagDataNonStd    = 0x10
)

// Data carries one CacheChange's payload and/or inline QoS (spec.md §4.1).
// Exactly one of HasData/HasKey should be set when a payload is present.
type Data struct {
	ReaderId             rtpstypes.EntityId
	WriterId             rtpstypes.EntityId
	WriterSN             rtpstypes.SequenceNumber
	InlineQos            paramlist.List
	HasInlineQos         bool
	HasData              bool
	HasKey               bool
	NonStandardPayload   bool
	RepresentationId     RepresentationIdentifier
	RepresentationOption uint16
	SerializedPayload    []byte
}

// Marshal serializes d.
func (d Data) Marshal(endian cdr.Endian) (RawSubmessage, error) {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	w.WriteUint16(0) // extraFlags, reserved
	octetsToInlineQosOffset := w.Offset()
	w.WriteUint16(0) // placeholder, patched below
	writeEntityId(w, d.ReaderId)
	writeEntityId(w, d.WriterId)
	WriteSequenceNumber(w, d.WriterSN)

	afterWriterSN := w.Offset()
	octetsToInlineQos := afterWriterSN - (octetsToInlineQosOffset + 2)
	buf := w.Bytes()
	byteOrderOf(endian).PutUint16(buf[octetsToInlineQosOffset:], uint16(octetsToInlineQos))

	var flags byte
	if d.HasInlineQos {
		flags |= flagDataInlineQos
		if err := paramlist.Write(w, d.InlineQos); err != nil {
			return RawSubmessage{}, errors.Wrap(err, "data: inline qos")
		}
	}
	if d.HasData {
		flags |= flagDataData
	}
	if d.HasKey {
		flags |= flagDataKey
	}
	if d.NonStandardPayload {
		flags |= flagDataNonStd
	}
	if d.HasData || d.HasKey {
		w.WriteUint16(uint16(d.RepresentationId))
		w.WriteUint16(d.RepresentationOption)
		w.Raw(d.SerializedPayload)
	}
	return RawSubmessage{ID: IDData, Flags: flagsWithEndian(endian, flags), Body: w.Bytes()}, nil
}

// ParseData decodes a Data body.
func ParseData(raw RawSubmessage) (Data, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	d := Data{
		HasInlineQos:       raw.Flags&flagDataInlineQos != 0,
		HasData:            raw.Flags&flagDataData != 0,
		HasKey:             raw.Flags&flagDataKey != 0,
		NonStandardPayload: raw.Flags&flagDataNonStd != 0,
	}
	if _, err := r.ReadUint16(); err != nil { // extraFlags
		return Data{}, err
	}
	octetsToInlineQos, err := r.ReadUint16()
	if err != nil {
		return Data{}, err
	}
	start := r.Offset()
	var errI error
	if d.ReaderId, errI = readEntityId(r); errI != nil {
		return Data{}, errors.Wrap(errI, "data: reader id")
	}
	if d.WriterId, errI = readEntityId(r); errI != nil {
		return Data{}, errors.Wrap(errI, "data: writer id")
	}
	if d.WriterSN, errI = ReadSequenceNumber(r); errI != nil {
		return Data{}, errors.Wrap(errI, "data: writer sn")
	}
	// Skip any vendor-specific bytes between writerSN and inline QoS/payload.
	consumed := r.Offset() - start
	if skip := int(octetsToInlineQos) - consumed; skip > 0 {
		if _, err := r.Raw(skip); err != nil {
			return Data{}, errors.Wrap(err, "data: skipping to inline qos")
		}
	}
	if d.HasInlineQos {
		d.InlineQos, err = paramlist.Read(r)
		if err != nil {
			return Data{}, errors.Wrap(err, "data: inline qos")
		}
	}
	if d.HasData || d.HasKey {
		reprId, err := r.ReadUint16()
		if err != nil {
			return Data{}, err
		}
		reprOpt, err := r.ReadUint16()
		if err != nil {
			return Data{}, err
		}
		payload, err := r.Raw(r.Remaining())
		if err != nil {
			return Data{}, err
		}
		d.RepresentationId = RepresentationIdentifier(reprId)
		d.RepresentationOption = reprOpt
		d.SerializedPayload = append([]byte(nil), payload...)
	}
	return d, nil
}
