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

// Package rtpstypes holds the wire-level identifiers shared by every other
// package in the engine: GUIDs, entity ids, sequence numbers, locators and
// the RTPS protocol/vendor constants. Keeping them dependency-free avoids
// import cycles between the codec, history and protocol state machines.
package rtpstypes

import (
	"fmt"

	"github.com/google/uuid"
)

// GuidPrefixLength is the byte length of a GuidPrefix.
const GuidPrefixLength = 12

// EntityIdLength is the byte length of an EntityId.
const EntityIdLength = 4

// GuidPrefix uniquely identifies a participant within a domain.
type GuidPrefix [GuidPrefixLength]byte

func (p GuidPrefix) String() string {
	return fmt.Sprintf("%x", [GuidPrefixLength]byte(p))
}

// NewGuidPrefix generates a random prefix suitable for a new participant.
// The entropy comes from a version 4 UUID rather than a raw crypto/rand
// read, so a prefix can be traced back to a single globally-unique token
// when it shows up in logs or packet captures.
func NewGuidPrefix() (GuidPrefix, error) {
	var p GuidPrefix
	id, err := uuid.NewRandom()
	if err != nil {
		return p, fmt.Errorf("generating guid prefix: %w", err)
	}
	copy(p[:], id[:GuidPrefixLength])
	return p, nil
}

// EntityKind is the single byte selecting the class of entity an EntityId
// names, per spec.md §3.
type EntityKind byte

const (
	EntityKindUnknown              EntityKind = 0x00
	EntityKindParticipant          EntityKind = 0x01
	EntityKindWriterWithKey        EntityKind = 0x02
	EntityKindWriterNoKey          EntityKind = 0x03
	EntityKindReaderNoKey          EntityKind = 0x04
	EntityKindReaderWithKey        EntityKind = 0x07
	EntityKindWriterGroup          EntityKind = 0x08
	EntityKindReaderGroup          EntityKind = 0x09
	EntityKindBuiltinParticipant   EntityKind = 0xc1
	EntityKindBuiltinWriterWithKey EntityKind = 0xc2
	EntityKindBuiltinWriterNoKey   EntityKind = 0xc3
	EntityKindBuiltinReaderNoKey   EntityKind = 0xc4
	EntityKindBuiltinReaderWithKey EntityKind = 0xc7
	EntityKindBuiltinWriterGroup   EntityKind = 0xc8
	EntityKindBuiltinReaderGroup   EntityKind = 0xc9
)

// IsBuiltin reports whether the kind denotes an SPDP/SEDP built-in entity.
func (k EntityKind) IsBuiltin() bool {
	return k >= 0xc0
}

// EntityId identifies an entity within its owning participant: a 3-byte key
// plus a 1-byte kind.
type EntityId struct {
	Key  [3]byte
	Kind EntityKind
}

func (e EntityId) String() string {
	return fmt.Sprintf("%x.%02x", e.Key, byte(e.Kind))
}

// Well-known EntityIds from spec.md §6.
var (
	EntityIdUnknown          = EntityId{}
	EntityIdParticipant      = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinParticipant}
	EntityIdSPDPWriter       = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSPDPReader       = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdSEDPTopicWriter  = EntityId{Key: [3]byte{0x00, 0x00, 0x02}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPTopicReader  = EntityId{Key: [3]byte{0x00, 0x00, 0x02}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdSEDPPubWriter    = EntityId{Key: [3]byte{0x00, 0x00, 0x03}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPPubReader    = EntityId{Key: [3]byte{0x00, 0x00, 0x03}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdSEDPSubWriter    = EntityId{Key: [3]byte{0x00, 0x00, 0x04}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPSubReader    = EntityId{Key: [3]byte{0x00, 0x00, 0x04}, Kind: EntityKindBuiltinReaderWithKey}
)

// Guid is the 16-byte (GuidPrefix, EntityId) pair that names an entity
// globally.
type Guid struct {
	Prefix   GuidPrefix
	EntityId EntityId
}

func (g Guid) String() string {
	return fmt.Sprintf("%s:%s", g.Prefix, g.EntityId)
}

// IsUnknown reports whether g is the GUID_UNKNOWN sentinel.
func (g Guid) IsUnknown() bool {
	return g.EntityId == EntityIdUnknown
}

// SequenceNumber is a signed 64-bit monotone per-writer counter, per
// spec.md §3. The zero value is SequenceNumberUnknown.
type SequenceNumber int64

// SequenceNumberUnknown marks "no sequence number" (e.g. an empty range).
const SequenceNumberUnknown SequenceNumber = 0

// ProtocolVersion is the two-byte RTPS version, {major, minor}.
type ProtocolVersion struct {
	Major, Minor byte
}

// ProtocolVersion24 is the version this engine implements (spec.md §6).
var ProtocolVersion24 = ProtocolVersion{Major: 2, Minor: 4}

// VendorId is the two-byte RTPS vendor identifier.
type VendorId [2]byte

// VendorIdUnknown is the VENDORID_UNKNOWN value.
var VendorIdUnknown = VendorId{0x00, 0x00}

// VendorIdThisImplementation is the vendor id this engine announces in
// message headers and SPDP payloads.
var VendorIdThisImplementation = VendorId{0x01, 0x0f}
