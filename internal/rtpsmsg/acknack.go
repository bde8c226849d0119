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

const flagFinal = 0x02

// AckNack is sent by a reader to acknowledge/request retransmission of a
// writer's changes (spec.md §4.3/§4.4).
type AckNack struct {
	ReaderId        rtpstypes.EntityId
	WriterId        rtpstypes.EntityId
	ReaderSNState   NumberSet
	Count           int32
	FinalFlag       bool
}

// Marshal serializes a into a RawSubmessage using endian.
func (a AckNack) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	writeEntityId(w, a.ReaderId)
	writeEntityId(w, a.WriterId)
	WriteNumberSet(w, a.ReaderSNState)
	w.WriteInt32(a.Count)
	var flags byte
	if a.FinalFlag {
		flags |= flagFinal
	}
	return RawSubmessage{ID: IDAckNack, Flags: flagsWithEndian(endian, flags), Endian: endian, Body: w.Bytes()}
}

// ParseAckNack decodes an AckNack body.
func ParseAckNack(raw RawSubmessage) (AckNack, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	a := AckNack{FinalFlag: raw.Flags&flagFinal != 0}
	var err error
	if a.ReaderId, err = readEntityId(r); err != nil {
		return AckNack{}, errors.Wrap(err, "acknack: reader id")
	}
	if a.WriterId, err = readEntityId(r); err != nil {
		return AckNack{}, errors.Wrap(err, "acknack: writer id")
	}
	if a.ReaderSNState, err = ReadNumberSet(r); err != nil {
		return AckNack{}, errors.Wrap(err, "acknack: reader sn state")
	}
	if a.Count, err = r.ReadInt32(); err != nil {
		return AckNack{}, errors.Wrap(err, "acknack: count")
	}
	return a, nil
}

func writeEntityId(w *cdr.Writer, id rtpstypes.EntityId) {
	w.Raw(id.Key[:])
	w.WriteUint8(byte(id.Kind))
}

func readEntityId(r *cdr.Reader) (rtpstypes.EntityId, error) {
	key, err := r.Raw(3)
	if err != nil {
		return rtpstypes.EntityId{}, err
	}
	kind, err := r.ReadUint8()
	if err != nil {
		return rtpstypes.EntityId{}, err
	}
	var id rtpstypes.EntityId
	copy(id.Key[:], key)
	id.Kind = rtpstypes.EntityKind(kind)
	return id, nil
}
