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

const (
	flagLiveliness = 0x04
)

// Heartbeat tells a reader the [first,last] sequence number range a writer
// currently holds (spec.md §4.3).
type Heartbeat struct {
	ReaderId        rtpstypes.EntityId
	WriterId        rtpstypes.EntityId
	FirstSN, LastSN rtpstypes.SequenceNumber
	Count           int32
	FinalFlag       bool
	LivelinessFlag  bool
}

// Marshal serializes h.
func (h Heartbeat) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	writeEntityId(w, h.ReaderId)
	writeEntityId(w, h.WriterId)
	WriteSequenceNumber(w, h.FirstSN)
	WriteSequenceNumber(w, h.LastSN)
	w.WriteInt32(h.Count)
	var flags byte
	if h.FinalFlag {
		flags |= flagFinal
	}
	if h.LivelinessFlag {
		flags |= flagLiveliness
	}
	return RawSubmessage{ID: IDHeartbeat, Flags: flagsWithEndian(endian, flags), Body: w.Bytes()}
}

// ParseHeartbeat decodes a Heartbeat body.
func ParseHeartbeat(raw RawSubmessage) (Heartbeat, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	h := Heartbeat{
		FinalFlag:      raw.Flags&flagFinal != 0,
		LivelinessFlag: raw.Flags&flagLiveliness != 0,
	}
	var err error
	if h.ReaderId, err = readEntityId(r); err != nil {
		return Heartbeat{}, errors.Wrap(err, "heartbeat: reader id")
	}
	if h.WriterId, err = readEntityId(r); err != nil {
		return Heartbeat{}, errors.Wrap(err, "heartbeat: writer id")
	}
	if h.FirstSN, err = ReadSequenceNumber(r); err != nil {
		return Heartbeat{}, errors.Wrap(err, "heartbeat: first sn")
	}
	if h.LastSN, err = ReadSequenceNumber(r); err != nil {
		return Heartbeat{}, errors.Wrap(err, "heartbeat: last sn")
	}
	if h.Count, err = r.ReadInt32(); err != nil {
		return Heartbeat{}, errors.Wrap(err, "heartbeat: count")
	}
	return h, nil
}

// HeartbeatFrag tells a reader the highest fragment number available for a
// DATA_FRAG still being reassembled (spec.md §4.4).
type HeartbeatFrag struct {
	ReaderId        rtpstypes.EntityId
	WriterId        rtpstypes.EntityId
	WriterSN        rtpstypes.SequenceNumber
	LastFragmentNum uint32
	Count           int32
}

// Marshal serializes hf.
func (hf HeartbeatFrag) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	writeEntityId(w, hf.ReaderId)
	writeEntityId(w, hf.WriterId)
	WriteSequenceNumber(w, hf.WriterSN)
	w.WriteUint32(hf.LastFragmentNum)
	w.WriteInt32(hf.Count)
	return RawSubmessage{ID: IDHeartbeatFrag, Flags: flagsWithEndian(endian, 0), Body: w.Bytes()}
}

// ParseHeartbeatFrag decodes a HeartbeatFrag body.
func ParseHeartbeatFrag(raw RawSubmessage) (HeartbeatFrag, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	var hf HeartbeatFrag
	var err error
	if hf.ReaderId, err = readEntityId(r); err != nil {
		return HeartbeatFrag{}, err
	}
	if hf.WriterId, err = readEntityId(r); err != nil {
		return HeartbeatFrag{}, err
	}
	if hf.WriterSN, err = ReadSequenceNumber(r); err != nil {
		return HeartbeatFrag{}, err
	}
	if hf.LastFragmentNum, err = r.ReadUint32(); err != nil {
		return HeartbeatFrag{}, err
	}
	if hf.Count, err = r.ReadInt32(); err != nil {
		return HeartbeatFrag{}, err
	}
	return hf, nil
}

// NackFrag requests retransmission of specific fragments of a DATA_FRAG
// change (spec.md §4.3/§4.4).
type NackFrag struct {
	ReaderId       rtpstypes.EntityId
	WriterId       rtpstypes.EntityId
	WriterSN       rtpstypes.SequenceNumber
	FragmentNumberState NumberSet
	Count          int32
}

// Marshal serializes nf.
func (nf NackFrag) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	writeEntityId(w, nf.ReaderId)
	writeEntityId(w, nf.WriterId)
	WriteSequenceNumber(w, nf.WriterSN)
	WriteNumberSet(w, nf.FragmentNumberState)
	w.WriteInt32(nf.Count)
	return RawSubmessage{ID: IDNackFrag, Flags: flagsWithEndian(endian, 0), Body: w.Bytes()}
}

// ParseNackFrag decodes a NackFrag body.
func ParseNackFrag(raw RawSubmessage) (NackFrag, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	var nf NackFrag
	var err error
	if nf.ReaderId, err = readEntityId(r); err != nil {
		return NackFrag{}, err
	}
	if nf.WriterId, err = readEntityId(r); err != nil {
		return NackFrag{}, err
	}
	if nf.WriterSN, err = ReadSequenceNumber(r); err != nil {
		return NackFrag{}, err
	}
	if nf.FragmentNumberState, err = ReadNumberSet(r); err != nil {
		return NackFrag{}, err
	}
	if nf.Count, err = r.ReadInt32(); err != nil {
		return NackFrag{}, err
	}
	return nf, nil
}
