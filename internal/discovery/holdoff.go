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
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	holdoffDelay    = 100 * time.Millisecond
	holdoffMaxDelay = 500 * time.Millisecond
)

// HoldoffNotifier delays calls to Refresh in the hope of coalescing a burst
// of back-to-back SPDP/SEDP samples into a single re-match pass, so a
// participant joining with several endpoints at once doesn't thrash
// matching once per sample.
type HoldoffNotifier struct {
	MatchObserver
	logrus.FieldLogger

	mu      sync.Mutex
	timer   *time.Timer
	last    time.Time
	pending counter
}

// NewHoldoffNotifier wraps target so its Refresh calls are coalesced.
func NewHoldoffNotifier(log logrus.FieldLogger, target MatchObserver) *HoldoffNotifier {
	return &HoldoffNotifier{MatchObserver: target, FieldLogger: log}
}

// Refresh implements MatchObserver.
func (hn *HoldoffNotifier) Refresh() {
	hn.pending.inc()
	hn.mu.Lock()
	defer hn.mu.Unlock()
	if hn.timer != nil {
		hn.timer.Stop()
	}

	since := time.Since(hn.last)
	if since > holdoffMaxDelay {
		hn.WithField("last_update", since).WithField("pending", hn.pending.reset()).Debug("discovery: forcing update")
		hn.MatchObserver.Refresh()
		hn.last = time.Now()
		return
	}

	hn.timer = time.AfterFunc(holdoffDelay, func() {
		hn.mu.Lock()
		defer hn.mu.Unlock()
		hn.WithField("pending", hn.pending.reset()).Debug("discovery: performing delayed update")
		hn.MatchObserver.Refresh()
		hn.last = time.Now()
	})
}

type counter uint64

func (c *counter) inc() uint64 {
	return atomic.AddUint64((*uint64)(c), 1)
}

func (c *counter) reset() uint64 {
	return atomic.SwapUint64((*uint64)(c), 0)
}
