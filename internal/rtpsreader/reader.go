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

// Package rtpsreader implements the StatefulReader of spec.md §4.4:
// per-writer missing/received tracking via WriterProxy, GAP handling,
// HEARTBEAT-driven ACKNACK generation with final+empty-missing suppression,
// DATA_FRAG reassembly, and stale-fragment abandonment surfaced as
// SampleLost.
package rtpsreader

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/paramlist"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/receiver"
	"github.com/projectrtps/rtps/internal/rtpsmsg"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// Sender is the narrow outbound capability a StatefulReader needs; an
// internal/transport.Transport satisfies it.
type Sender interface {
	Send(ctx context.Context, dst rtpstypes.Locator, payload []byte) error
}

// Listener receives delivery and status events from a StatefulReader,
// mirroring the DDS DataReaderListener of spec.md §6.
type Listener interface {
	OnDataAvailable(change history.CacheChange)
	OnSampleLost(writerGuid rtpstypes.Guid, seq rtpstypes.SequenceNumber)
}

// NopListener discards every event; useful when nobody has attached a real
// listener yet.
type NopListener struct{}

func (NopListener) OnDataAvailable(history.CacheChange)                      {}
func (NopListener) OnSampleLost(rtpstypes.Guid, rtpstypes.SequenceNumber) {}

// Config bundles a StatefulReader's immutable construction parameters.
type Config struct {
	Guid           rtpstypes.Guid
	Reliability    qos.Reliability
	History        qos.History
	Limits         qos.ResourceLimits
	Order          qos.DestinationOrder
	FragmentSize   int
	FragmentMaxAge time.Duration
}

// StatefulReader is the local reader-side endpoint of spec.md §3/§4.4.
type StatefulReader struct {
	log      logrus.FieldLogger
	cfg      Config
	sender   Sender
	listener Listener

	mu      sync.Mutex
	cache   *history.Cache
	writers map[string]*WriterProxy
}

// New builds a StatefulReader. If listener is nil, events are discarded.
func New(log logrus.FieldLogger, cfg Config, sender Sender, listener Listener) *StatefulReader {
	if cfg.FragmentSize <= 0 {
		cfg.FragmentSize = 1344
	}
	if cfg.FragmentMaxAge <= 0 {
		cfg.FragmentMaxAge = 30 * time.Second
	}
	if listener == nil {
		listener = NopListener{}
	}
	return &StatefulReader{
		log:      log,
		cfg:      cfg,
		sender:   sender,
		listener: listener,
		cache:    history.New(cfg.History, cfg.Limits, cfg.Order),
		writers:  make(map[string]*WriterProxy),
	}
}

func (r *StatefulReader) reliable() bool { return r.cfg.Reliability.Kind == qos.Reliable }

// MatchedWriterAdd registers a newly matched remote writer, remembering its
// unicast/multicast locators so ACKNACK can be routed back to it.
func (r *StatefulReader) MatchedWriterAdd(writerGuid rtpstypes.Guid, writerReliable bool, unicast, multicast rtpstypes.LocatorList) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writers[writerGuid.String()] = newWriterProxy(writerGuid, writerReliable && r.reliable(), unicast, multicast)
}

// MatchedWriterRemove drops a no-longer-matched remote writer.
func (r *StatefulReader) MatchedWriterRemove(writerGuid rtpstypes.Guid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.writers, writerGuid.String())
}

func (r *StatefulReader) proxyFor(prefix rtpstypes.GuidPrefix, writerId rtpstypes.EntityId) (*WriterProxy, bool) {
	g := rtpstypes.Guid{Prefix: prefix, EntityId: writerId}
	wp, ok := r.writers[g.String()]
	return wp, ok
}

// HandleData implements receiver.ReaderSink.
func (r *StatefulReader) HandleData(ctx receiver.MessageContext, d rtpsmsg.Data) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wp, ok := r.proxyFor(ctx.SourcePrefix, d.WriterId)
	if !ok {
		return
	}
	if wp.received[d.WriterSN] {
		return // duplicate delivery
	}
	cc := history.CacheChange{
		WriterGuid:      wp.WriterGuid,
		SequenceNumber:  d.WriterSN,
		InstanceHandle:  instanceHandleFromInline(d.HasInlineQos, d.InlineQos, d.SerializedPayload),
		Kind:            changeKindFromInline(d.HasInlineQos, d.InlineQos, d.HasKey, d.HasData),
		SourceTimestamp: ctx.Timestamp.Time(),
		ReceptionTime:   time.Now(),
		Data:            d.SerializedPayload,
	}
	r.deliver(wp, cc)
}

// instanceHandleFromInline recovers the InstanceHandle a writer attached via
// KEY_HASH inline QoS (spec.md §4.5), rather than hashing the whole data
// payload — two samples of the same instance with different field values
// must resolve to the same handle, which only the key (or its precomputed
// hash) determines. Hashing the payload is a last-resort fallback for a peer
// that omitted KEY_HASH; every writer in this package always sets it.
func instanceHandleFromInline(hasInlineQos bool, inlineQos paramlist.List, payload []byte) keyhash.Handle {
	if hasInlineQos {
		if p, ok := inlineQos.Get(paramlist.PIDKeyHash); ok {
			if h, ok := paramlist.DecodeKeyHash(p.Value); ok {
				return keyhash.Handle(h)
			}
		}
	}
	return keyhash.Compute(func(w *cdr.Writer) { w.Raw(payload) })
}

// changeKindFromInline reads STATUS_INFO to tell a dispose from an
// unregister; d.HasKey/d.HasData alone can only tell "no payload" from
// "payload", not which kind of absence it is.
func changeKindFromInline(hasInlineQos bool, inlineQos paramlist.List, hasKey, hasData bool) history.ChangeKind {
	if hasInlineQos {
		if p, ok := inlineQos.Get(paramlist.PIDStatusInfo); ok {
			switch paramlist.DecodeStatusInfo(p.Value) {
			case paramlist.StatusInfoDisposed:
				return history.NotAliveDisposed
			case paramlist.StatusInfoUnregistered:
				return history.NotAliveUnregistered
			}
		}
	}
	if hasKey && !hasData {
		return history.NotAliveDisposed
	}
	return history.Alive
}

// HandleDataFrag implements receiver.ReaderSink.
func (r *StatefulReader) HandleDataFrag(ctx receiver.MessageContext, df rtpsmsg.DataFrag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wp, ok := r.proxyFor(ctx.SourcePrefix, df.WriterId)
	if !ok {
		return
	}
	if wp.received[df.WriterSN] {
		return
	}
	fragSize := int(df.FragmentSize)
	if fragSize <= 0 {
		fragSize = r.cfg.FragmentSize
	}
	fa := wp.fragAssemblyFor(df.WriterSN, int(df.SampleSize), fragSize)
	fa.addFragment(df.FragmentStartingNum, df.FragmentData)
	if df.HasInlineQos {
		handle := instanceHandleFromInline(true, df.InlineQos, nil)
		fa.setInline(handle, changeKindFromInline(true, df.InlineQos, true, true))
	}
	if !fa.complete() {
		return
	}
	payload := fa.assemble()
	handle, kind := fa.handle, fa.kind
	delete(wp.fragments, df.WriterSN)

	if !fa.handleSet {
		handle = keyhash.Compute(func(w *cdr.Writer) { w.Raw(payload) })
	}
	cc := history.CacheChange{
		WriterGuid:      wp.WriterGuid,
		SequenceNumber:  df.WriterSN,
		InstanceHandle:  handle,
		Kind:            kind,
		SourceTimestamp: ctx.Timestamp.Time(),
		ReceptionTime:   time.Now(),
		Data:            payload,
	}
	r.deliver(wp, cc)
}

func (r *StatefulReader) deliver(wp *WriterProxy, cc history.CacheChange) {
	wp.markReceived(cc.SequenceNumber)
	if err := r.cache.Add(cc, r.reliable()); err != nil {
		r.log.WithError(err).WithField("writer", wp.WriterGuid.String()).Debug("rtpsreader: dropping change, resource limits exceeded")
		return
	}
	r.listener.OnDataAvailable(cc)
}

// HandleHeartbeat implements receiver.ReaderSink: it updates the writer
// proxy's available range and, unless the heartbeat is Final with no
// missing changes, replies with an ACKNACK (spec.md §4.4).
func (r *StatefulReader) HandleHeartbeat(ctx receiver.MessageContext, hb rtpsmsg.Heartbeat) {
	r.mu.Lock()
	wp, ok := r.proxyFor(ctx.SourcePrefix, hb.WriterId)
	if !ok {
		r.mu.Unlock()
		return
	}
	if !wp.observeHeartbeat(hb.FirstSN, hb.LastSN, hb.Count) {
		r.mu.Unlock()
		return
	}
	missing := wp.missingSequenceNumbers()
	if hb.FinalFlag && len(missing) == 0 {
		r.mu.Unlock()
		return
	}
	if !wp.Reliable {
		r.mu.Unlock()
		return
	}
	ack := r.buildAckNack(wp, missing)
	dst := wp.destinationFor()
	r.mu.Unlock()

	if dst == rtpstypes.LocatorInvalid {
		return
	}
	r.sendSubmessage(context.Background(), dst, ack.Marshal(cdr.LittleEndian))
}

func (r *StatefulReader) buildAckNack(wp *WriterProxy, missing []rtpstypes.SequenceNumber) rtpsmsg.AckNack {
	wp.ackNackCount++
	base := wp.availableUpTo + 1
	var bits []uint32
	length := uint32(0)
	if len(missing) > 0 {
		base = missing[0]
		for _, s := range missing {
			offset := uint32(s - base)
			if offset >= rtpsmsg.MaxBitmapBits {
				break
			}
			bits = append(bits, offset)
			if offset+1 > length {
				length = offset + 1
			}
		}
	}
	return rtpsmsg.AckNack{
		ReaderId:      r.cfg.Guid.EntityId,
		WriterId:      wp.WriterGuid.EntityId,
		ReaderSNState: rtpsmsg.NumberSet{Base: int64(base), Bits: bits, Length: length},
		Count:         wp.ackNackCount,
	}
}

// HandleHeartbeatFrag implements receiver.ReaderSink: requests any missing
// fragments of an in-progress reassembly via NACK_FRAG.
func (r *StatefulReader) HandleHeartbeatFrag(ctx receiver.MessageContext, hf rtpsmsg.HeartbeatFrag) {
	r.mu.Lock()
	wp, ok := r.proxyFor(ctx.SourcePrefix, hf.WriterId)
	if !ok {
		r.mu.Unlock()
		return
	}
	fa, ok := wp.fragments[hf.WriterSN]
	if !ok || !wp.Reliable {
		r.mu.Unlock()
		return
	}
	var bits []uint32
	for frag := uint32(1); frag <= hf.LastFragmentNum; frag++ {
		if _, got := fa.fragments[frag]; !got {
			bits = append(bits, frag-1)
		}
	}
	dst := wp.destinationFor()
	if len(bits) == 0 {
		r.mu.Unlock()
		return
	}
	nf := rtpsmsg.NackFrag{
		ReaderId:            r.cfg.Guid.EntityId,
		WriterId:            wp.WriterGuid.EntityId,
		WriterSN:            hf.WriterSN,
		FragmentNumberState: rtpsmsg.NumberSet{Base: 1, Bits: bits, Length: hf.LastFragmentNum},
		Count:               hf.Count,
	}
	r.mu.Unlock()

	if dst == rtpstypes.LocatorInvalid {
		return
	}
	r.sendSubmessage(context.Background(), dst, nf.Marshal(cdr.LittleEndian))
}

// HandleGap implements receiver.ReaderSink.
func (r *StatefulReader) HandleGap(ctx receiver.MessageContext, g rtpsmsg.Gap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wp, ok := r.proxyFor(ctx.SourcePrefix, g.WriterId)
	if !ok {
		return
	}
	// GapStart is itself irrelevant; GapList.Bits names only the specific
	// additional offsets from Base that are, not a contiguous range up to
	// the highest one (spec.md §4.3: unset bits stay pending/retransmittable).
	wp.markIrrelevant(g.GapStart, g.GapStart)
	for _, b := range g.GapList.Bits {
		s := rtpstypes.SequenceNumber(g.GapList.Base) + rtpstypes.SequenceNumber(b)
		wp.markIrrelevant(s, s)
	}
}

// ExpireStaleFragments drops abandoned fragment reassemblies across every
// matched writer, reporting each as SampleLost.
func (r *StatefulReader) ExpireStaleFragments(now time.Time) {
	r.mu.Lock()
	type lost struct {
		wp  *WriterProxy
		seq rtpstypes.SequenceNumber
	}
	var all []lost
	for _, wp := range r.writers {
		for _, seq := range wp.expireStaleFragments(r.cfg.FragmentMaxAge, now) {
			all = append(all, lost{wp, seq})
		}
	}
	r.mu.Unlock()

	for _, l := range all {
		r.listener.OnSampleLost(l.wp.WriterGuid, l.seq)
	}
}

func (r *StatefulReader) sendSubmessage(ctx context.Context, dst rtpstypes.Locator, sub rtpsmsg.RawSubmessage) {
	h := rtpsmsg.Header{GuidPrefix: r.cfg.Guid.Prefix, Version: rtpstypes.ProtocolVersion24, VendorId: rtpstypes.VendorIdThisImplementation}
	m := rtpsmsg.Message{Header: h, Submessages: []rtpsmsg.RawSubmessage{sub}}
	if err := r.sender.Send(ctx, dst, m.Marshal()); err != nil {
		r.log.WithError(err).WithField("dst", dst).Warn("rtpsreader: send failed")
	}
}

var _ receiver.ReaderSink = (*StatefulReader)(nil)
