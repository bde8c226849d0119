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

// Package qos gives the DDS QoS policies concrete Go types sufficient for
// SEDP matching (spec.md §4.6) and the immutable-policy-on-enabled-entity
// check of spec.md §7. Each policy implements Offers, reporting whether an
// offered (writer-side) value satisfies a requested (reader-side) value;
// callers compare a reader's requested policy against its matched writer's
// offered policy of the same kind.
package qos

// ReliabilityKind selects best-effort or reliable delivery.
type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

// Reliability is the RELIABILITY policy.
type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime int64 // nanoseconds; writer-side only, ignored by Offers
}

// Offers reports whether offered (writer) satisfies requested (reader):
// Reliable offered satisfies any request, BestEffort offered only satisfies
// a BestEffort request.
func (offered Reliability) Offers(requested Reliability) bool {
	if offered.Kind == Reliable {
		return true
	}
	return requested.Kind == BestEffort
}

// DurabilityKind ranks how much history a late-joining reader can recover.
type DurabilityKind int

const (
	DurabilityVolatile DurabilityKind = iota
	DurabilityTransientLocal
	DurabilityTransient
	DurabilityPersistent
)

// Durability is the DURABILITY policy. Higher Kind values offer a superset
// of the guarantees of lower ones.
type Durability struct {
	Kind DurabilityKind
}

func (offered Durability) Offers(requested Durability) bool {
	return offered.Kind >= requested.Kind
}

// Deadline is the DEADLINE policy: the maximum expected period between
// samples of an instance. Smaller periods are stricter.
type Deadline struct {
	Period int64 // nanoseconds; 0 means infinite (no deadline)
}

func (offered Deadline) Offers(requested Deadline) bool {
	if requested.Period == 0 {
		return true
	}
	if offered.Period == 0 {
		return false
	}
	return offered.Period <= requested.Period
}

// LatencyBudget is the LATENCY_BUDGET policy: a hint, not a hard bound, but
// still participates in matching as "offered <= requested is compatible".
type LatencyBudget struct {
	Duration int64 // nanoseconds
}

func (offered LatencyBudget) Offers(requested LatencyBudget) bool {
	return offered.Duration <= requested.Duration
}

// LivelinessKind selects how liveliness is asserted.
type LivelinessKind int

const (
	LivelinessAutomatic LivelinessKind = iota
	LivelinessManualByParticipant
	LivelinessManualByTopic
)

// Liveliness is the LIVELINESS policy.
type Liveliness struct {
	Kind          LivelinessKind
	LeaseDuration int64 // nanoseconds; 0 means infinite
}

func (offered Liveliness) Offers(requested Liveliness) bool {
	if offered.Kind < requested.Kind {
		return false
	}
	if requested.LeaseDuration == 0 {
		return true
	}
	if offered.LeaseDuration == 0 {
		return false
	}
	return offered.LeaseDuration <= requested.LeaseDuration
}

// DestinationOrderKind selects sample delivery ordering.
type DestinationOrderKind int

const (
	ByReceptionTimestamp DestinationOrderKind = iota
	BySourceTimestamp
)

// DestinationOrder is the DESTINATION_ORDER policy.
type DestinationOrder struct {
	Kind DestinationOrderKind
}

func (offered DestinationOrder) Offers(requested DestinationOrder) bool {
	return offered.Kind >= requested.Kind
}

// OwnershipKind selects shared or exclusive instance ownership.
type OwnershipKind int

const (
	OwnershipShared OwnershipKind = iota
	OwnershipExclusive
)

// Ownership is the OWNERSHIP policy. Both sides must agree on Kind; there is
// no partial order between Shared and Exclusive, unlike the other policies.
type Ownership struct {
	Kind     OwnershipKind
	Strength int32 // meaningful only when Kind == OwnershipExclusive
}

func (offered Ownership) Offers(requested Ownership) bool {
	return offered.Kind == requested.Kind
}

// HistoryKind selects KEEP_LAST or KEEP_ALL retention.
type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

// History is the HISTORY policy (spec.md §4.8). Depth is meaningful only
// for KeepLast and must be >= 1. History does not participate in request/
// offered matching; it governs local HistoryCache retention only.
type History struct {
	Kind  HistoryKind
	Depth int
}

// ResourceLimits is the RESOURCE_LIMITS policy bounding a HistoryCache
// (spec.md §3/§4.8). A limit of 0 means unlimited.
type ResourceLimits struct {
	MaxSamples            int
	MaxSamplesPerInstance int
	MaxInstances          int
}

// Partition is the PARTITION policy: a reader and writer match only if at
// least one name in each list glob-matches a name in the other (spec.md
// §4.6). Empty lists are equivalent to a single "" (default partition).
type Partition struct {
	Names []string
}

// UserData and TopicData carry opaque, unmatched bytes attached to an
// entity (spec.md §3); they never affect matching.
type UserData []byte
type TopicData []byte
