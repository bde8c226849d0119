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

// DataFrag carries one fragment of a CacheChange whose serialized payload
// is larger than fragment_size (spec.md §4.1/§4.3).
type DataFrag struct {
	ReaderId            rtpstypes.EntityId
	WriterId            rtpstypes.EntityId
	WriterSN            rtpstypes.SequenceNumber
	FragmentStartingNum uint32
	FragmentsInSubmsg   uint16
	FragmentSize        uint16
	SampleSize          uint32
	InlineQos           paramlist.List
	HasInlineQos        bool
	KeyFlag             bool
	NonStandardPayload  bool
	FragmentData        []byte
}

const (
	flagDataFragKey    = 0x04
	flagDataFragNonStd = 0x08
)

// Marshal serializes df.
func (df DataFrag) Marshal(endian cdr.Endian) (RawSubmessage, error) {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	w.WriteUint16(0) // extraFlags
	octetsToInlineQosOffset := w.Offset()
	w.WriteUint16(0)
	writeEntityId(w, df.ReaderId)
	writeEntityId(w, df.WriterId)
	WriteSequenceNumber(w, df.WriterSN)

	octetsToInlineQos := w.Offset() - (octetsToInlineQosOffset + 2)
	buf := w.Bytes()
	byteOrderOf(endian).PutUint16(buf[octetsToInlineQosOffset:], uint16(octetsToInlineQos))

	w.WriteUint32(df.FragmentStartingNum)
	w.WriteUint16(df.FragmentsInSubmsg)
	w.WriteUint16(df.FragmentSize)
	w.WriteUint32(df.SampleSize)

	var flags byte
	if df.HasInlineQos {
		flags |= flagDataInlineQos
		if err := paramlist.Write(w, df.InlineQos); err != nil {
			return RawSubmessage{}, errors.Wrap(err, "data_frag: inline qos")
		}
	}
	if df.KeyFlag {
		flags |= flagDataFragKey
	}
	if df.NonStandardPayload {
		flags |= flagDataFragNonStd
	}
	w.Raw(df.FragmentData)
	return RawSubmessage{ID: IDDataFrag, Flags: flagsWithEndian(endian, flags), Endian: endian, Body: w.Bytes()}, nil
}

// ParseDataFrag decodes a DataFrag body.
func ParseDataFrag(raw RawSubmessage) (DataFrag, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	df := DataFrag{
		HasInlineQos:       raw.Flags&flagDataInlineQos != 0,
		KeyFlag:            raw.Flags&flagDataFragKey != 0,
		NonStandardPayload: raw.Flags&flagDataFragNonStd != 0,
	}
	if _, err := r.ReadUint16(); err != nil {
		return DataFrag{}, err
	}
	octetsToInlineQos, err := r.ReadUint16()
	if err != nil {
		return DataFrag{}, err
	}
	start := r.Offset()
	var errI error
	if df.ReaderId, errI = readEntityId(r); errI != nil {
		return DataFrag{}, errors.Wrap(errI, "data_frag: reader id")
	}
	if df.WriterId, errI = readEntityId(r); errI != nil {
		return DataFrag{}, errors.Wrap(errI, "data_frag: writer id")
	}
	if df.WriterSN, errI = ReadSequenceNumber(r); errI != nil {
		return DataFrag{}, errors.Wrap(errI, "data_frag: writer sn")
	}
	if df.FragmentStartingNum, errI = r.ReadUint32(); errI != nil {
		return DataFrag{}, errors.Wrap(errI, "data_frag: starting num")
	}
	if df.FragmentsInSubmsg, errI = r.ReadUint16(); errI != nil {
		return DataFrag{}, errors.Wrap(errI, "data_frag: fragments in submessage")
	}
	if df.FragmentSize, errI = r.ReadUint16(); errI != nil {
		return DataFrag{}, errors.Wrap(errI, "data_frag: fragment size")
	}
	if df.SampleSize, errI = r.ReadUint32(); errI != nil {
		return DataFrag{}, errors.Wrap(errI, "data_frag: sample size")
	}
	consumed := r.Offset() - start
	if skip := int(octetsToInlineQos) - consumed; skip > 0 {
		if _, err := r.Raw(skip); err != nil {
			return DataFrag{}, errors.Wrap(err, "data_frag: skipping to inline qos")
		}
	}
	if df.HasInlineQos {
		df.InlineQos, err = paramlist.Read(r)
		if err != nil {
			return DataFrag{}, errors.Wrap(err, "data_frag: inline qos")
		}
	}
	payload, err := r.Raw(r.Remaining())
	if err != nil {
		return DataFrag{}, err
	}
	df.FragmentData = append([]byte(nil), payload...)
	return df, nil
}
