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

// Package facade implements the thin inbound/outbound DDS contract of
// spec.md §6: StatusCondition/WaitSet as actor mail over internal/actor's
// mailbox/reply primitives, and listener dispatch as asynchronous mail to a
// per-entity listener actor rather than a synchronous callback invoked from
// inside a writer/reader state machine.
package facade

// StatusKind is one of the DDS communication statuses a StatusCondition can
// track and a listener actor can dispatch.
type StatusKind int

const (
	StatusInconsistentTopic StatusKind = iota
	StatusOfferedDeadlineMissed
	StatusRequestedDeadlineMissed
	StatusOfferedIncompatibleQos
	StatusRequestedIncompatibleQos
	StatusSampleLost
	StatusSampleRejected
	StatusDataOnReaders
	StatusDataAvailable
	StatusLivelinessLost
	StatusLivelinessChanged
	StatusPublicationMatched
	StatusSubscriptionMatched
)

func (k StatusKind) String() string {
	switch k {
	case StatusInconsistentTopic:
		return "InconsistentTopic"
	case StatusOfferedDeadlineMissed:
		return "OfferedDeadlineMissed"
	case StatusRequestedDeadlineMissed:
		return "RequestedDeadlineMissed"
	case StatusOfferedIncompatibleQos:
		return "OfferedIncompatibleQos"
	case StatusRequestedIncompatibleQos:
		return "RequestedIncompatibleQos"
	case StatusSampleLost:
		return "SampleLost"
	case StatusSampleRejected:
		return "SampleRejected"
	case StatusDataOnReaders:
		return "DataOnReaders"
	case StatusDataAvailable:
		return "DataAvailable"
	case StatusLivelinessLost:
		return "LivelinessLost"
	case StatusLivelinessChanged:
		return "LivelinessChanged"
	case StatusPublicationMatched:
		return "PublicationMatched"
	case StatusSubscriptionMatched:
		return "SubscriptionMatched"
	default:
		return "Unknown"
	}
}

// DefaultEnabledStatuses is the statuses a freshly-created StatusCondition
// tracks until SetEnabledStatuses narrows the mask, matching every status
// kind named above.
func DefaultEnabledStatuses() []StatusKind {
	return []StatusKind{
		StatusInconsistentTopic,
		StatusOfferedDeadlineMissed,
		StatusRequestedDeadlineMissed,
		StatusOfferedIncompatibleQos,
		StatusRequestedIncompatibleQos,
		StatusSampleLost,
		StatusSampleRejected,
		StatusDataOnReaders,
		StatusDataAvailable,
		StatusLivelinessLost,
		StatusLivelinessChanged,
		StatusPublicationMatched,
		StatusSubscriptionMatched,
	}
}

func containsStatus(mask []StatusKind, k StatusKind) bool {
	for _, m := range mask {
		if m == k {
			return true
		}
	}
	return false
}
