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
	"github.com/pkg/errors"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// EncodeLocator serializes a Locator as a parameter value: kind(i32),
// port(u32), address(16 bytes).
func EncodeLocator(version cdr.Version, endian cdr.Endian, l rtpstypes.Locator) []byte {
	w := cdr.NewWriter(version, endian)
	w.WriteInt32(int32(l.Kind))
	w.WriteUint32(l.Port)
	w.Raw(l.Address[:])
	return w.Bytes()
}

// DecodeLocator parses a Locator parameter value.
func DecodeLocator(version cdr.Version, endian cdr.Endian, value []byte) (rtpstypes.Locator, error) {
	r := cdr.NewReader(version, endian, value)
	kind, err := r.ReadInt32()
	if err != nil {
		return rtpstypes.Locator{}, errors.Wrap(err, "paramlist: locator kind")
	}
	port, err := r.ReadUint32()
	if err != nil {
		return rtpstypes.Locator{}, errors.Wrap(err, "paramlist: locator port")
	}
	addr, err := r.Raw(16)
	if err != nil {
		return rtpstypes.Locator{}, errors.Wrap(err, "paramlist: locator address")
	}
	var l rtpstypes.Locator
	l.Kind = rtpstypes.LocatorKind(kind)
	l.Port = port
	copy(l.Address[:], addr)
	return l, nil
}

// EncodeGuid serializes a Guid as a parameter value: 12-byte prefix, 4-byte
// entity id.
func EncodeGuid(g rtpstypes.Guid) []byte {
	out := make([]byte, 16)
	copy(out[:12], g.Prefix[:])
	copy(out[12:15], g.EntityId.Key[:])
	out[15] = byte(g.EntityId.Kind)
	return out
}

// DecodeGuid parses a Guid parameter value.
func DecodeGuid(value []byte) (rtpstypes.Guid, error) {
	if len(value) != 16 {
		return rtpstypes.Guid{}, errors.Errorf("paramlist: guid value must be 16 bytes, got %d", len(value))
	}
	var g rtpstypes.Guid
	copy(g.Prefix[:], value[:12])
	copy(g.EntityId.Key[:], value[12:15])
	g.EntityId.Kind = rtpstypes.EntityKind(value[15])
	return g, nil
}
