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

// Gap tells a reader that a range of sequence numbers will never be sent,
// either because they were irrelevant or already dropped (spec.md §4.3).
type Gap struct {
	ReaderId   rtpstypes.EntityId
	WriterId   rtpstypes.EntityId
	GapStart   rtpstypes.SequenceNumber
	GapList    NumberSet
}

// Marshal serializes g.
func (g Gap) Marshal(endian cdr.Endian) RawSubmessage {
	w := cdr.NewWriter(cdr.XCDR1, endian)
	writeEntityId(w, g.ReaderId)
	writeEntityId(w, g.WriterId)
	WriteSequenceNumber(w, g.GapStart)
	WriteNumberSet(w, g.GapList)
	return RawSubmessage{ID: IDGap, Flags: flagsWithEndian(endian, 0), Endian: endian, Body: w.Bytes()}
}

// ParseGap decodes a Gap body.
func ParseGap(raw RawSubmessage) (Gap, error) {
	r := cdr.NewReader(cdr.XCDR1, raw.Endian, raw.Body)
	var g Gap
	var err error
	if g.ReaderId, err = readEntityId(r); err != nil {
		return Gap{}, errors.Wrap(err, "gap: reader id")
	}
	if g.WriterId, err = readEntityId(r); err != nil {
		return Gap{}, errors.Wrap(err, "gap: writer id")
	}
	if g.GapStart, err = ReadSequenceNumber(r); err != nil {
		return Gap{}, errors.Wrap(err, "gap: gap start")
	}
	if g.GapList, err = ReadNumberSet(r); err != nil {
		return Gap{}, errors.Wrap(err, "gap: gap list")
	}
	return g, nil
}
