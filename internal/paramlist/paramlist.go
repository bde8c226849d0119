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

import (
	"math"

	"github.com/pkg/errors"

	"github.com/projectrtps/rtps/internal/cdr"
)

// Parameter is one (pid, value) entry of a ParameterList. Value is the
// already-serialized parameter body. Write pads it to a 4-byte boundary;
// Read returns the padded body as declared on the wire, pad bytes included.
type Parameter struct {
	PID   PID
	Value []byte
}

// List is an ordered sequence of Parameters, terminated on the wire by
// PIDSentinel. Order is preserved because ParticipantProxy and built-in
// topic data occasionally repeat a PID (e.g. multiple locators).
type List []Parameter

// Get returns the first parameter with the given pid, if present.
func (l List) Get(pid PID) (Parameter, bool) {
	for _, p := range l {
		if p.PID == pid {
			return p, true
		}
	}
	return Parameter{}, false
}

// GetAll returns every parameter with the given pid, in wire order.
func (l List) GetAll(pid PID) []Parameter {
	var out []Parameter
	for _, p := range l {
		if p.PID == pid {
			out = append(out, p)
		}
	}
	return out
}

// maxParamLength is the largest length a parameter value may declare before
// 4-byte padding, matching the u16 length field on the wire (spec.md §4.1:
// "the codec must reject parameters whose padded length exceeds u16::MAX").
const maxParamLength = math.MaxUint16

// Write serializes l, terminated by PIDSentinel, using write_with_default
// parameter-list semantics (spec.md §9 Open Questions): every parameter the
// caller supplies is written, its value padded with zero bytes up to a
// 4-byte boundary and its length field carrying the padded length.
func Write(w *cdr.Writer, l List) error {
	for _, p := range l {
		padded := (len(p.Value) + 3) &^ 3
		if padded > maxParamLength {
			return errors.Errorf("paramlist: parameter 0x%04x padded length %d exceeds u16 max", p.PID, padded)
		}
		w.WriteInt16(int16(p.PID))
		w.WriteUint16(uint16(padded))
		w.Raw(p.Value)
		for i := len(p.Value); i < padded; i++ {
			w.WriteUint8(0)
		}
	}
	w.WriteInt16(int16(PIDSentinel))
	w.WriteUint16(0)
	return nil
}

// Read deserializes a ParameterList terminated by PIDSentinel. Unknown PIDs
// are preserved verbatim (not dropped), so a higher layer may still choose
// to ignore them; the decoder never errors on an unrecognized pid.
func Read(r *cdr.Reader) (List, error) {
	var l List
	for {
		pid, err := r.ReadInt16()
		if err != nil {
			return nil, errors.Wrap(err, "paramlist: reading pid")
		}
		if PID(pid) == PIDSentinel {
			// PIDSentinel still carries a (possibly zero) length field.
			if _, err := r.ReadUint16(); err != nil {
				return nil, errors.Wrap(err, "paramlist: reading sentinel length")
			}
			return l, nil
		}
		length, err := r.ReadUint16()
		if err != nil {
			return nil, errors.Wrap(err, "paramlist: reading length")
		}
		value, err := r.Raw(int(length))
		if err != nil {
			return nil, errors.Wrap(err, "paramlist: reading value")
		}
		cp := make([]byte, len(value))
		copy(cp, value)
		l = append(l, Parameter{PID: PID(pid), Value: cp})
	}
}
