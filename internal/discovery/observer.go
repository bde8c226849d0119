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

// Package discovery implements the SPDP/SEDP built-in discovery protocols
// of spec.md §4.6: participant announcement and lease-based purge, and
// reliable exchange of Publication/Subscription/Topic built-in topic data
// feeding the QoS matching rules of internal/qos.
package discovery

// MatchObserver is notified when a participant's discovery state changes in
// a way that might newly match or unmatch local endpoints — a new/updated
// PublicationBuiltinTopicData or SubscriptionBuiltinTopicData arrived, or a
// participant's lease expired. Endpoint matching re-runs its scan from
// here instead of on every single discovery sample.
type MatchObserver interface {
	Refresh()
}

// MatchObserverFunc implements MatchObserver by calling itself. It may be
// nil, in which case Refresh is a no-op.
type MatchObserverFunc func()

func (f MatchObserverFunc) Refresh() {
	if f != nil {
		f()
	}
}

var _ MatchObserver = MatchObserverFunc(nil)

// ComposeObservers returns a MatchObserver that calls each of observers in
// turn, so discovery can fan a single change out to every subsystem that
// might care (endpoint matching, metrics, a user-facing listener) without
// each of them re-subscribing individually.
func ComposeObservers(observers ...MatchObserver) MatchObserver {
	return MatchObserverFunc(func() {
		for _, o := range observers {
			if o != nil {
				o.Refresh()
			}
		}
	})
}
