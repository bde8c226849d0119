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

// Package config holds the Configuration a participant process is built
// from, populated from CLI flags in cmd/rtps via kingpin.
package config

import "time"

// Configuration covers every field spec.md §6 names plus the additional
// domain/timer fields the stateful writer/reader/discovery layers need.
type Configuration struct {
	// DomainId selects the RTPS well-known port range (spec.md §6).
	DomainId int

	// DomainTag, when non-empty, is mixed into SPDP discovery to separate
	// otherwise-colliding domains sharing one network (spec.md §6).
	DomainTag string

	// InterfaceName, when non-empty, restricts transport binding to one
	// network interface instead of all of them.
	InterfaceName string

	// FragmentSize is the maximum DATA_FRAG payload size in bytes.
	FragmentSize int

	// UDPReceiveBufferSize sets SO_RCVBUF on the inbound UDP sockets.
	UDPReceiveBufferSize int

	// ParticipantAnnouncementInterval is the SPDP periodic announcement
	// period.
	ParticipantAnnouncementInterval time.Duration

	// LeaseDuration is the SPDP ParticipantProxy lease a remote participant
	// is purged after, absent a refreshing announcement.
	LeaseDuration time.Duration

	// HeartbeatPeriod is a StatefulWriter's periodic HEARTBEAT interval.
	HeartbeatPeriod time.Duration

	// NackResponseDelay is carried in the configuration only: no writer
	// reads it, so requested changes are resent on the StatefulWriter's next
	// SendPass with no added delay and no coalescing of NACKs.
	NackResponseDelay time.Duration

	// NackSuppressionDuration is carried in the configuration only: no
	// reader or writer reads it, so duplicate ACKNACKs are not suppressed.
	NackSuppressionDuration time.Duration
}

// Defaults returns the configuration defaults lifted from
// original_source/dds/src/domain/configuration.rs: fragment_size 1344,
// 5 second announcement interval, 100 second lease duration.
func Defaults() Configuration {
	return Configuration{
		DomainId:                        0,
		FragmentSize:                    1344,
		UDPReceiveBufferSize:            1 << 20,
		ParticipantAnnouncementInterval: 5 * time.Second,
		LeaseDuration:                   100 * time.Second,
		HeartbeatPeriod:                 500 * time.Millisecond,
		NackResponseDelay:               200 * time.Millisecond,
		NackSuppressionDuration:         0,
	}
}
