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

package rtpsreader

import (
	"time"

	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// fragAssembly collects a change's DATA_FRAGs until every fragment has
// arrived (spec.md §4.4). The instance identity and change kind travel on
// the first fragment's inline QoS (the writer only attaches it there), so
// they're remembered here until assemble() has something to attach them to.
type fragAssembly struct {
	sampleSize   int
	fragmentSize int
	fragments    map[uint32][]byte
	lastActivity time.Time

	handle    keyhash.Handle
	handleSet bool
	kind      history.ChangeKind
}

func newFragAssembly(sampleSize, fragmentSize int) *fragAssembly {
	return &fragAssembly{
		sampleSize:   sampleSize,
		fragmentSize: fragmentSize,
		fragments:    make(map[uint32][]byte),
		lastActivity: time.Now(),
		kind:         history.Alive,
	}
}

func (fa *fragAssembly) addFragment(startingNum uint32, data []byte) {
	fa.fragments[startingNum] = data
	fa.lastActivity = time.Now()
}

// setInline records the instance identity/kind carried by a fragment's
// inline QoS, once decoded by the caller.
func (fa *fragAssembly) setInline(handle keyhash.Handle, kind history.ChangeKind) {
	fa.handle = handle
	fa.handleSet = true
	fa.kind = kind
}

func (fa *fragAssembly) complete() bool {
	numFrags := (fa.sampleSize + fa.fragmentSize - 1) / fa.fragmentSize
	return len(fa.fragments) >= numFrags
}

func (fa *fragAssembly) assemble() []byte {
	numFrags := (fa.sampleSize + fa.fragmentSize - 1) / fa.fragmentSize
	out := make([]byte, 0, fa.sampleSize)
	for i := uint32(1); i <= uint32(numFrags); i++ {
		out = append(out, fa.fragments[i]...)
	}
	return out
}

// WriterProxy is a StatefulReader's per-matched-writer bookkeeping: which
// sequence numbers have arrived, which the writer has announced as
// available but not yet delivered, and any in-progress fragment reassembly
// (spec.md §3/§4.4).
type WriterProxy struct {
	WriterGuid        rtpstypes.Guid
	Reliable          bool
	UnicastLocators   rtpstypes.LocatorList
	MulticastLocators rtpstypes.LocatorList

	received       map[rtpstypes.SequenceNumber]bool
	irrelevant     map[rtpstypes.SequenceNumber]bool
	firstAvailable rtpstypes.SequenceNumber
	availableUpTo  rtpstypes.SequenceNumber

	lastHeartbeatCount int32
	ackNackCount       int32

	fragments map[rtpstypes.SequenceNumber]*fragAssembly
}

func newWriterProxy(guid rtpstypes.Guid, reliable bool, unicast, multicast rtpstypes.LocatorList) *WriterProxy {
	return &WriterProxy{
		WriterGuid:        guid,
		Reliable:          reliable,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		received:          make(map[rtpstypes.SequenceNumber]bool),
		irrelevant:        make(map[rtpstypes.SequenceNumber]bool),
		fragments:         make(map[rtpstypes.SequenceNumber]*fragAssembly),
	}
}

// destinationFor returns the locator ACKNACK/NACK_FRAG should be sent to
// for this proxy, mirroring rtpswriter's own ReaderProxy destination pick.
func (wp *WriterProxy) destinationFor() rtpstypes.Locator {
	if len(wp.UnicastLocators) > 0 {
		return wp.UnicastLocators[0]
	}
	if len(wp.MulticastLocators) > 0 {
		return wp.MulticastLocators[0]
	}
	return rtpstypes.LocatorInvalid
}

// markReceived records a fully reassembled change as delivered.
func (wp *WriterProxy) markReceived(seq rtpstypes.SequenceNumber) {
	wp.received[seq] = true
	delete(wp.fragments, seq)
	if seq > wp.availableUpTo {
		wp.availableUpTo = seq
	}
}

// markIrrelevant records a GAP range as never-to-be-delivered.
func (wp *WriterProxy) markIrrelevant(from, to rtpstypes.SequenceNumber) {
	for s := from; s <= to; s++ {
		wp.irrelevant[s] = true
		if s > wp.availableUpTo {
			wp.availableUpTo = s
		}
	}
}

// observeHeartbeat applies a HEARTBEAT's announced range, ignoring stale or
// duplicate counts (spec.md §4.4's monotone-count requirement). Returns
// false if the heartbeat was stale and should not trigger an ACKNACK.
func (wp *WriterProxy) observeHeartbeat(firstSN, lastSN rtpstypes.SequenceNumber, count int32) bool {
	if count <= wp.lastHeartbeatCount {
		return false
	}
	wp.lastHeartbeatCount = count
	if lastSN > wp.availableUpTo {
		wp.availableUpTo = lastSN
	}
	if firstSN > wp.firstAvailable {
		wp.firstAvailable = firstSN
	}
	return true
}

// missingSequenceNumbers returns every sequence number in
// [firstAvailable,availableUpTo] not yet received or marked irrelevant,
// ascending. Sequence numbers below firstAvailable are ones the writer has
// already told us (via HEARTBEAT.firstSN) it no longer holds, so requesting
// them would just NACK forever for a sample that will never arrive.
func (wp *WriterProxy) missingSequenceNumbers() []rtpstypes.SequenceNumber {
	start := rtpstypes.SequenceNumber(1)
	if wp.firstAvailable > start {
		start = wp.firstAvailable
	}
	var out []rtpstypes.SequenceNumber
	for s := start; s <= wp.availableUpTo; s++ {
		if !wp.received[s] && !wp.irrelevant[s] {
			out = append(out, s)
		}
	}
	return out
}

// fragAssemblyFor returns (creating if needed) the in-progress reassembly
// state for seq.
func (wp *WriterProxy) fragAssemblyFor(seq rtpstypes.SequenceNumber, sampleSize, fragmentSize int) *fragAssembly {
	fa, ok := wp.fragments[seq]
	if !ok {
		fa = newFragAssembly(sampleSize, fragmentSize)
		wp.fragments[seq] = fa
	}
	return fa
}

// expireStaleFragments drops any in-progress reassembly idle longer than
// maxAge, returning the abandoned sequence numbers (surfaced as SampleLost).
func (wp *WriterProxy) expireStaleFragments(maxAge time.Duration, now time.Time) []rtpstypes.SequenceNumber {
	var lost []rtpstypes.SequenceNumber
	for seq, fa := range wp.fragments {
		if now.Sub(fa.lastActivity) > maxAge {
			lost = append(lost, seq)
			delete(wp.fragments, seq)
		}
	}
	return lost
}
