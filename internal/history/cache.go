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

package history

import (
	"sort"

	"github.com/projectrtps/rtps/internal/ddserror"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/qos"
)

// Cache is a HistoryCache: the ordered set of CacheChanges a local or
// remote endpoint is currently holding, governed by HISTORY and
// RESOURCE_LIMITS (spec.md §3/§4.8).
type Cache struct {
	history qos.History
	limits  qos.ResourceLimits
	order   qos.DestinationOrder

	bySeq      map[rtpsSeqKey]*CacheChange
	byInstance map[keyhash.Handle][]*CacheChange
	all        []*CacheChange // insertion order: total count, oldest-first drop, All()
}

type rtpsSeqKey struct {
	writer string
	seq    int64
}

// New builds an empty Cache governed by h/limits/order.
func New(h qos.History, limits qos.ResourceLimits, order qos.DestinationOrder) *Cache {
	return &Cache{
		history:    h,
		limits:     limits,
		order:      order,
		bySeq:      make(map[rtpsSeqKey]*CacheChange),
		byInstance: make(map[keyhash.Handle][]*CacheChange),
	}
}

// Len returns the total number of changes currently held.
func (c *Cache) Len() int { return len(c.all) }

// InstanceCount returns the number of distinct instances held.
func (c *Cache) InstanceCount() int { return len(c.byInstance) }

// Add inserts change, applying HISTORY/RESOURCE_LIMITS eviction. When
// reliable is true and adding would exceed MaxSamples/MaxSamplesPerInstance/
// MaxInstances under KeepAll, Add blocks the write by returning
// ddserror.OutOfResources instead of evicting (spec.md §4.8: "Reliable
// blocking-write"); a BestEffort writer (reliable == false) instead drops
// the oldest sample to make room.
func (c *Cache) Add(change CacheChange, reliable bool) error {
	key := rtpsSeqKey{writer: change.WriterGuid.String(), seq: int64(change.SequenceNumber)}
	if _, exists := c.bySeq[key]; exists {
		return nil // duplicate delivery, ignore
	}

	if c.history.Kind == qos.KeepLast {
		c.evictKeepLast(change.InstanceHandle)
	} else if err := c.enforceResourceLimits(change.InstanceHandle, reliable); err != nil {
		return err
	}

	cc := change
	c.bySeq[key] = &cc
	c.all = append(c.all, &cc)
	c.insertOrdered(cc.InstanceHandle, &cc)
	return nil
}

func (c *Cache) evictKeepLast(handle keyhash.Handle) {
	depth := c.history.Depth
	if depth <= 0 {
		depth = 1
	}
	samples := c.byInstance[handle]
	for len(samples) >= depth {
		oldest := samples[0]
		c.remove(oldest)
		samples = c.byInstance[handle]
	}
}

func (c *Cache) enforceResourceLimits(handle keyhash.Handle, reliable bool) error {
	limits := c.limits
	overTotal := limits.MaxSamples > 0 && len(c.all) >= limits.MaxSamples
	overInstance := limits.MaxSamplesPerInstance > 0 && len(c.byInstance[handle]) >= limits.MaxSamplesPerInstance
	_, instanceExists := c.byInstance[handle]
	overInstanceCount := limits.MaxInstances > 0 && !instanceExists && len(c.byInstance) >= limits.MaxInstances

	if !overTotal && !overInstance && !overInstanceCount {
		return nil
	}
	if reliable {
		return ddserror.New(ddserror.OutOfResources, "history cache resource limits exceeded")
	}
	// BestEffort: drop the globally oldest sample to make room.
	if len(c.all) > 0 {
		c.remove(c.all[0])
	}
	return nil
}

func (c *Cache) insertOrdered(handle keyhash.Handle, cc *CacheChange) {
	samples := append(c.byInstance[handle], cc)
	sort.SliceStable(samples, func(i, j int) bool {
		return c.less(samples[i], samples[j])
	})
	c.byInstance[handle] = samples
}

func (c *Cache) less(a, b *CacheChange) bool {
	if c.order.Kind == qos.BySourceTimestamp {
		if !a.SourceTimestamp.Equal(b.SourceTimestamp) {
			return a.SourceTimestamp.Before(b.SourceTimestamp)
		}
		return a.WriterGuid.String() < b.WriterGuid.String()
	}
	return a.ReceptionTime.Before(b.ReceptionTime)
}

func (c *Cache) remove(cc *CacheChange) {
	key := rtpsSeqKey{writer: cc.WriterGuid.String(), seq: int64(cc.SequenceNumber)}
	delete(c.bySeq, key)

	for i, x := range c.all {
		if x == cc {
			c.all = append(c.all[:i], c.all[i+1:]...)
			break
		}
	}
	samples := c.byInstance[cc.InstanceHandle]
	for i, x := range samples {
		if x == cc {
			samples = append(samples[:i], samples[i+1:]...)
			break
		}
	}
	if len(samples) == 0 {
		delete(c.byInstance, cc.InstanceHandle)
	} else {
		c.byInstance[cc.InstanceHandle] = samples
	}
}

// InstanceSamples returns an instance's samples in DestinationOrder
// delivery order, oldest first.
func (c *Cache) InstanceSamples(handle keyhash.Handle) []CacheChange {
	samples := c.byInstance[handle]
	out := make([]CacheChange, len(samples))
	for i, s := range samples {
		out[i] = *s
	}
	return out
}

// All returns every change currently held, in insertion order.
func (c *Cache) All() []CacheChange {
	out := make([]CacheChange, len(c.all))
	for i, cc := range c.all {
		out[i] = *cc
	}
	return out
}

// Get returns the change at (writer, seq), if still held.
func (c *Cache) Get(writerGuid string, seq int64) (CacheChange, bool) {
	cc, ok := c.bySeq[rtpsSeqKey{writer: writerGuid, seq: seq}]
	if !ok {
		return CacheChange{}, false
	}
	return *cc, true
}
