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

package qos

import "path"

// Policy enumerates the QoS policy kinds that participate in
// OfferedIncompatibleQos/RequestedIncompatibleQos reporting (spec.md §4.6).
type Policy int

const (
	PolicyReliability Policy = iota
	PolicyDurability
	PolicyDeadline
	PolicyLatencyBudget
	PolicyLiveliness
	PolicyDestinationOrder
	PolicyOwnership
	PolicyPartition
)

func (p Policy) String() string {
	switch p {
	case PolicyReliability:
		return "Reliability"
	case PolicyDurability:
		return "Durability"
	case PolicyDeadline:
		return "Deadline"
	case PolicyLatencyBudget:
		return "LatencyBudget"
	case PolicyLiveliness:
		return "Liveliness"
	case PolicyDestinationOrder:
		return "DestinationOrder"
	case PolicyOwnership:
		return "Ownership"
	case PolicyPartition:
		return "Partition"
	default:
		return "Unknown"
	}
}

// EndpointQos bundles the policies a WriterEntity/ReaderEntity carries that
// affect matching. Depth/ResourceLimits/UserData/TopicData are omitted:
// they don't participate in compatibility.
type EndpointQos struct {
	Reliability      Reliability
	Durability       Durability
	Deadline         Deadline
	LatencyBudget    LatencyBudget
	Liveliness       Liveliness
	DestinationOrder DestinationOrder
	Ownership        Ownership
	Partition        Partition
}

// Incompatibility names the first policy on which a writer's offer failed
// to satisfy a reader's request (spec.md §4.6, §7 incident reporting).
type Incompatibility struct {
	Policy Policy
}

// Match compares a reader's requested QoS against a candidate writer's
// offered QoS. ok is true iff every policy is compatible and the partitions
// intersect; otherwise the first incompatible policy is returned so the
// caller can raise OfferedIncompatibleQos/RequestedIncompatibleQos.
func Match(offered, requested EndpointQos) (ok bool, reason Incompatibility) {
	switch {
	case !offered.Reliability.Offers(requested.Reliability):
		return false, Incompatibility{PolicyReliability}
	case !offered.Durability.Offers(requested.Durability):
		return false, Incompatibility{PolicyDurability}
	case !offered.Deadline.Offers(requested.Deadline):
		return false, Incompatibility{PolicyDeadline}
	case !offered.LatencyBudget.Offers(requested.LatencyBudget):
		return false, Incompatibility{PolicyLatencyBudget}
	case !offered.Liveliness.Offers(requested.Liveliness):
		return false, Incompatibility{PolicyLiveliness}
	case !offered.DestinationOrder.Offers(requested.DestinationOrder):
		return false, Incompatibility{PolicyDestinationOrder}
	case !offered.Ownership.Offers(requested.Ownership):
		return false, Incompatibility{PolicyOwnership}
	case !PartitionsIntersect(offered.Partition, requested.Partition):
		return false, Incompatibility{PolicyPartition}
	}
	return true, Incompatibility{}
}

// PartitionsIntersect reports whether a and b share at least one matching
// name, treating an empty list as the single default partition "" and names
// as shell globs matched in both directions (spec.md §4.6).
func PartitionsIntersect(a, b Partition) bool {
	an, bn := a.Names, b.Names
	if len(an) == 0 {
		an = []string{""}
	}
	if len(bn) == 0 {
		bn = []string{""}
	}
	for _, x := range an {
		for _, y := range bn {
			if globMatch(x, y) || globMatch(y, x) {
				return true
			}
		}
	}
	return false
}

func globMatch(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
