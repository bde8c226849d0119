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

package discovery

import (
	"time"

	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// ParticipantProxy is the SPDP built-in topic data a remote participant
// announces about itself (spec.md §4.6).
type ParticipantProxy struct {
	GuidPrefix            rtpstypes.GuidPrefix
	ProtocolVersion       rtpstypes.ProtocolVersion
	VendorId              rtpstypes.VendorId
	DomainId              int
	DomainTag             string
	MetatrafficUnicast    rtpstypes.LocatorList
	MetatrafficMulticast  rtpstypes.LocatorList
	DefaultUnicast        rtpstypes.LocatorList
	DefaultMulticast      rtpstypes.LocatorList
	LeaseDuration         time.Duration
	LastSeen              time.Time
}

// Expired reports whether this proxy's lease has lapsed as of now.
func (p ParticipantProxy) Expired(now time.Time) bool {
	return now.Sub(p.LastSeen) > p.LeaseDuration
}

// EndpointBuiltinTopicData is the common fields every SEDP built-in topic
// sample carries about a remote publication or subscription (spec.md §4.6).
type EndpointBuiltinTopicData struct {
	Guid        rtpstypes.Guid
	ParticipantGuid rtpstypes.GuidPrefix
	TopicName   string
	TypeName    string
	Qos         qos.EndpointQos
}

// PublicationBuiltinTopicData describes a remote DataWriter.
type PublicationBuiltinTopicData struct {
	EndpointBuiltinTopicData
	UnicastLocators   rtpstypes.LocatorList
	MulticastLocators rtpstypes.LocatorList
}

// SubscriptionBuiltinTopicData describes a remote DataReader.
type SubscriptionBuiltinTopicData struct {
	EndpointBuiltinTopicData
	UnicastLocators   rtpstypes.LocatorList
	MulticastLocators rtpstypes.LocatorList
}

// TopicBuiltinTopicData describes a Topic a remote participant has
// registered, for consistency checking (spec.md §4.6's TopicKind check).
type TopicBuiltinTopicData struct {
	Name     string
	TypeName string
}

// IncompatibilityReason names why two endpoints did not match, for the
// Offered/RequestedIncompatibleQos incident spec.md §4.6 raises.
type IncompatibilityReason struct {
	Policy qos.Policy
}

// MatchResult is the outcome of comparing a local endpoint against a
// remote discovery sample.
type MatchResult struct {
	Matched         bool
	Incompatibility IncompatibilityReason
}

// MatchPublicationToSubscription applies spec.md §4.6's full matching rule
// set: topic/type name equality, then QoS compatibility via
// internal/qos.Match, which checks partition intersection last.
func MatchPublicationToSubscription(pub PublicationBuiltinTopicData, sub SubscriptionBuiltinTopicData) MatchResult {
	if pub.TopicName != sub.TopicName || pub.TypeName != sub.TypeName {
		return MatchResult{Matched: false}
	}
	ok, reason := qos.Match(pub.Qos, sub.Qos)
	if !ok {
		return MatchResult{Matched: false, Incompatibility: IncompatibilityReason{Policy: reason.Policy}}
	}
	return MatchResult{Matched: true}
}
