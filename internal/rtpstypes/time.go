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

package rtpstypes

import "time"

// Timestamp is the RTPS wire time representation: seconds since the epoch
// plus a fractional part in 1/2^32 second units, as carried by INFO_TS and
// source-timestamp inline QoS.
type Timestamp struct {
	Seconds  int32
	Fraction uint32
}

// TimestampInvalid marks "no timestamp" (INFO_TS with the invalidate flag
// set).
var TimestampInvalid = Timestamp{Seconds: -1, Fraction: 0xffffffff}

// IsValid reports whether t is not TimestampInvalid.
func (t Timestamp) IsValid() bool {
	return t != TimestampInvalid
}

// FromTime converts a time.Time to the wire Timestamp representation.
func FromTime(t time.Time) Timestamp {
	sec := t.Unix()
	nsec := t.Nanosecond()
	frac := uint32((int64(nsec) << 32) / 1e9)
	return Timestamp{Seconds: int32(sec), Fraction: frac}
}

// Time converts a wire Timestamp back to a time.Time.
func (t Timestamp) Time() time.Time {
	nsec := (int64(t.Fraction) * 1e9) >> 32
	return time.Unix(int64(t.Seconds), nsec).UTC()
}

// Before reports whether t happens before other; ties are not ordered here,
// source-order tiebreaks on writer GUID live in the history cache.
func (t Timestamp) Before(other Timestamp) bool {
	if t.Seconds != other.Seconds {
		return t.Seconds < other.Seconds
	}
	return t.Fraction < other.Fraction
}

// Duration is a coarser (seconds, nanoseconds) duration used by QoS
// policies and protocol timers on the wire.
type Duration struct {
	Seconds     int32
	NanoSeconds uint32
}

// DurationInfinite represents an unbounded duration (e.g. infinite
// deadline).
var DurationInfinite = Duration{Seconds: 0x7fffffff, NanoSeconds: 0xffffffff}

// DurationFromGo converts a time.Duration to the wire representation.
func DurationFromGo(d time.Duration) Duration {
	return Duration{
		Seconds:     int32(d / time.Second),
		NanoSeconds: uint32(d % time.Second),
	}
}

// Go converts a wire Duration back to a time.Duration.
func (d Duration) Go() time.Duration {
	if d == DurationInfinite {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(d.Seconds)*time.Second + time.Duration(d.NanoSeconds)
}
