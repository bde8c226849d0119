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

package rtpswriter

import "github.com/projectrtps/rtps/internal/rtpstypes"

// ChangeForReaderStatus tracks one CacheChange's delivery status relative
// to a single matched reader (spec.md §4.3).
type ChangeForReaderStatus int

const (
	Unsent ChangeForReaderStatus = iota
	Unacknowledged
	Requested
	Acknowledged
	Underway
)

// ReaderProxy is a StatefulWriter's per-matched-reader bookkeeping: which
// changes it has/hasn't acknowledged, and the locators to reach it at
// (spec.md §3/§4.3).
type ReaderProxy struct {
	ReaderGuid       rtpstypes.Guid
	Reliable         bool
	UnicastLocators  rtpstypes.LocatorList
	MulticastLocators rtpstypes.LocatorList

	statuses map[rtpstypes.SequenceNumber]ChangeForReaderStatus
	lastAckNackCount int32
}

func newReaderProxy(guid rtpstypes.Guid, reliable bool, unicast, multicast rtpstypes.LocatorList) *ReaderProxy {
	return &ReaderProxy{
		ReaderGuid:        guid,
		Reliable:          reliable,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		statuses:          make(map[rtpstypes.SequenceNumber]ChangeForReaderStatus),
		lastAckNackCount:  0,
	}
}

// addUnsent records a newly written change as Unsent for this reader.
func (rp *ReaderProxy) addUnsent(seq rtpstypes.SequenceNumber) {
	rp.statuses[seq] = Unsent
}

// unsentSequenceNumbers returns the Unsent changes, ascending.
func (rp *ReaderProxy) unsentSequenceNumbers() []rtpstypes.SequenceNumber {
	return rp.sequenceNumbersWithStatus(Unsent)
}

// requestedSequenceNumbers returns the Requested changes, ascending.
func (rp *ReaderProxy) requestedSequenceNumbers() []rtpstypes.SequenceNumber {
	return rp.sequenceNumbersWithStatus(Requested)
}

func (rp *ReaderProxy) sequenceNumbersWithStatus(want ChangeForReaderStatus) []rtpstypes.SequenceNumber {
	var out []rtpstypes.SequenceNumber
	for seq, st := range rp.statuses {
		if st == want {
			out = append(out, seq)
		}
	}
	sortSequenceNumbers(out)
	return out
}

func sortSequenceNumbers(s []rtpstypes.SequenceNumber) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// markUnderway transitions seq from Unsent/Requested to Underway, after a
// DATA/DATA_FRAG has just been sent for it.
func (rp *ReaderProxy) markUnderway(seq rtpstypes.SequenceNumber) {
	if rp.Reliable {
		rp.statuses[seq] = Underway
	} else {
		delete(rp.statuses, seq) // BestEffort: no ack tracking needed
	}
}

// acknowledge applies an ACKNACK's ReaderSNState: every sequence number
// strictly below Base that this proxy still tracks is Acknowledged; every
// number the bitmap marks missing becomes Requested (spec.md §4.3/§4.4).
// Stale or duplicate ACKNACKs (count <= last seen) are ignored to preserve
// monotone processing.
func (rp *ReaderProxy) acknowledge(base rtpstypes.SequenceNumber, missing func(rtpstypes.SequenceNumber) bool, count int32) bool {
	if count <= rp.lastAckNackCount {
		return false
	}
	rp.lastAckNackCount = count
	for seq, st := range rp.statuses {
		if st == Acknowledged {
			continue
		}
		if seq < base {
			rp.statuses[seq] = Acknowledged
		} else if missing(seq) {
			rp.statuses[seq] = Requested
		}
	}
	return true
}

// allAcknowledged reports whether every change this proxy tracks has been
// Acknowledged. Nothing in this package calls it.
func (rp *ReaderProxy) allAcknowledged() bool {
	for _, st := range rp.statuses {
		if st != Acknowledged {
			return false
		}
	}
	return true
}
