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

package participant

import (
	"net"

	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// Well-known port offsets from spec.md §6 / the RTPS specification's
// Well-Known-Ports algorithm: each participant in a domain gets a unicast
// metatraffic port and a unicast user-traffic ("default") port, spaced by
// PG so each participantId in a domain gets its own pair of ports.
const (
	portBase                 = 7400
	domainGain               = 250
	participantGain          = 2
	spdpMulticastOffset      = 0
	metatrafficUnicastOffset = 10
	defaultUnicastOffset     = 11
)

// spdpMulticastPort returns the well-known SPDP multicast port for domainId,
// shared by every participant in the domain.
func spdpMulticastPort(domainId int) uint32 {
	return uint32(portBase + domainGain*domainId + spdpMulticastOffset)
}

// metatrafficUnicastPort returns the discovery-traffic unicast port for the
// participantId'th participant in domainId.
func metatrafficUnicastPort(domainId, participantId int) uint32 {
	return uint32(portBase + domainGain*domainId + metatrafficUnicastOffset + participantGain*participantId)
}

// defaultUnicastPort returns the user-traffic unicast port for the
// participantId'th participant in domainId. This engine runs discovery and
// user traffic over the same socket, so in practice this is the only port
// actually bound; metatrafficUnicastPort is neither bound nor announced, and
// SPDP announces the default unicast locator as the metatraffic locator.
func defaultUnicastPort(domainId, participantId int) uint32 {
	return uint32(portBase + domainGain*domainId + defaultUnicastOffset + participantGain*participantId)
}

// DefaultUnicastPort exposes defaultUnicastPort to cmd/rtps, which must bind
// its UDP socket to the right well-known port before calling New.
func DefaultUnicastPort(domainId, participantId int) uint32 {
	return defaultUnicastPort(domainId, participantId)
}

// SPDPMulticastLocator exposes the domain's SPDP multicast locator to
// cmd/rtps, which must join this group on its transport before calling New.
func SPDPMulticastLocator(domainId int) rtpstypes.Locator {
	return rtpstypes.NewLocatorUDPv4(net.IPv4(239, 255, 0, 1), spdpMulticastPort(domainId))
}
