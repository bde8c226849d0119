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

// Package history implements the DDS data-centric HistoryCache of spec.md
// §3/§4.8: per-writer ordered CacheChanges, KeepLast/KeepAll retention, and
// ResourceLimits enforcement.
package history

import (
	"time"

	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// ChangeKind distinguishes a live sample from a disposal/unregistration
// marker (spec.md §3).
type ChangeKind int

const (
	Alive ChangeKind = iota
	NotAliveDisposed
	NotAliveUnregistered
)

// CacheChange is one sample or lifecycle marker attached to a writer's
// sequence number stream (spec.md §3).
type CacheChange struct {
	WriterGuid      rtpstypes.Guid
	SequenceNumber  rtpstypes.SequenceNumber
	InstanceHandle  keyhash.Handle
	Kind            ChangeKind
	SourceTimestamp time.Time
	ReceptionTime   time.Time
	Data            []byte
}
