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

// Package rtpswriter implements the StatefulWriter of spec.md §4.3: per-
// reader status/relevance tracking via ReaderProxy, new_change, periodic
// heartbeat, ACKNACK/NACK_FRAG-driven retransmission, fragmentation of
// oversized changes, and BestEffort-vs-Reliable delivery behavior.
package rtpswriter

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
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

// Sender is the narrow outbound capability a StatefulWriter needs; an
// internal/transport.Transport satisfies it.
type Sender interface {
	Send(ctx context.Context, dst rtpstypes.Locator, payload []byte) error
}

// Config bundles a StatefulWriter's immutable construction parameters.
type Config struct {
	Guid         rtpstypes.Guid
	Reliability  qos.Reliability
	History      qos.History
	Limits       qos.ResourceLimits
	Order        qos.DestinationOrder
	FragmentSize int
}

// StatefulWriter is the local writer-side endpoint of spec.md §3/§4.3.
type StatefulWriter struct {
	log    logrus.FieldLogger
	cfg    Config
	sender Sender

	mu       sync.Mutex
	cache    *history.Cache
	lastSeq  rtpstypes.SequenceNumber
	proxies  map[string]*ReaderProxy
	hbCount  int32
}

// New builds a StatefulWriter.
func New(log logrus.FieldLogger, cfg Config, sender Sender) *StatefulWriter {
	if cfg.FragmentSize <= 0 {
		cfg.FragmentSize = 1344
	}
	return &StatefulWriter{
		log:     log,
		cfg:     cfg,
		sender:  sender,
		cache:   history.New(cfg.History, cfg.Limits, cfg.Order),
		proxies: make(map[string]*ReaderProxy),
	}
}

// reliable reports whether this writer's RELIABILITY policy is Reliable.
func (w *StatefulWriter) reliable() bool { return w.cfg.Reliability.Kind == qos.Reliable }

// MatchedReaderAdd registers a newly matched remote reader.
func (w *StatefulWriter) MatchedReaderAdd(readerGuid rtpstypes.Guid, readerReliable bool, unicast, multicast rtpstypes.LocatorList) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rp := newReaderProxy(readerGuid, readerReliable && w.reliable(), unicast, multicast)
	for _, cc := range w.cache.All() {
		rp.addUnsent(cc.SequenceNumber)
	}
	w.proxies[readerGuid.String()] = rp
}

// MatchedReaderRemove drops a no-longer-matched remote reader.
func (w *StatefulWriter) MatchedReaderRemove(readerGuid rtpstypes.Guid) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.proxies, readerGuid.String())
}

// NewChange adds data as a new CacheChange and marks it Unsent for every
// matched reader proxy, per spec.md §4.3's new_change operation. Sequence
// numbers are strictly monotone per the writer's correctness invariant.
func (w *StatefulWriter) NewChange(kind history.ChangeKind, instance keyhash.Handle, data []byte, sourceTimestamp time.Time) (rtpstypes.SequenceNumber, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastSeq++
	cc := history.CacheChange{
		WriterGuid:      w.cfg.Guid,
		SequenceNumber:  w.lastSeq,
		InstanceHandle:  instance,
		Kind:            kind,
		SourceTimestamp: sourceTimestamp,
		ReceptionTime:   time.Now(),
		Data:            data,
	}
	if err := w.cache.Add(cc, w.reliable()); err != nil {
		return 0, errors.Wrap(err, "rtpswriter: new_change")
	}
	for _, rp := range w.proxies {
		rp.addUnsent(cc.SequenceNumber)
	}
	return cc.SequenceNumber, nil
}

// SendPass sends every Requested change (retransmissions) before every
// Unsent change (new data), ascending by sequence number, to every matched
// reader proxy — the ordering spec.md §4.3's send-pass invariant requires.
// Oversized payloads are fragmented into DATA_FRAG submessages of at most
// FragmentSize bytes each.
func (w *StatefulWriter) SendPass(ctx context.Context) {
	w.mu.Lock()
	proxies := make([]*ReaderProxy, 0, len(w.proxies))
	for _, rp := range w.proxies {
		proxies = append(proxies, rp)
	}
	w.mu.Unlock()

	for _, rp := range proxies {
		for _, seq := range rp.requestedSequenceNumbers() {
			w.sendChange(ctx, rp, seq)
		}
		for _, seq := range rp.unsentSequenceNumbers() {
			w.sendChange(ctx, rp, seq)
		}
	}
}

func (w *StatefulWriter) sendChange(ctx context.Context, rp *ReaderProxy, seq rtpstypes.SequenceNumber) {
	w.mu.Lock()
	cc, ok := w.cache.Get(w.cfg.Guid.String(), int64(seq))
	w.mu.Unlock()

	dst := destinationFor(rp)
	if dst == rtpstypes.LocatorInvalid {
		return
	}

	if !ok {
		// The change was evicted (KeepLast) or is otherwise no longer in the
		// cache: announce it as irrelevant via GAP so a reader waiting on it
		// doesn't re-request it forever (spec.md §4.3 send-pass invariant 1).
		w.sendGap(ctx, rp, seq, dst)
		rp.markUnderway(seq)
		return
	}

	if len(cc.Data) > w.cfg.FragmentSize {
		w.sendFragmented(ctx, rp, cc, dst)
	} else {
		w.sendWhole(ctx, rp, cc, dst)
	}
	rp.markUnderway(seq)
}

func (w *StatefulWriter) sendGap(ctx context.Context, rp *ReaderProxy, seq rtpstypes.SequenceNumber, dst rtpstypes.Locator) {
	g := rtpsmsg.Gap{
		ReaderId: readerEntityId(rp),
		WriterId: w.cfg.Guid.EntityId,
		GapStart: seq,
		GapList:  rtpsmsg.NumberSet{Base: int64(seq) + 1},
	}
	w.sendSubmessage(ctx, dst, g.Marshal(cdr.LittleEndian))
}

// inlineQosFor builds the KEY_HASH (and, for a dispose/unregister, STATUS_INFO)
// inline QoS parameters a DATA/DATA_FRAG submessage carries so the receiving
// reader can recover the instance identity without hashing the whole
// payload (spec.md §4.5) — essential for a dispose/unregister, which has no
// payload to hash in the first place.
func inlineQosFor(cc history.CacheChange) paramlist.List {
	list := paramlist.List{
		{PID: paramlist.PIDKeyHash, Value: paramlist.EncodeKeyHash([paramlist.KeyHashLength]byte(cc.InstanceHandle))},
	}
	switch cc.Kind {
	case history.NotAliveDisposed:
		list = append(list, paramlist.Parameter{PID: paramlist.PIDStatusInfo, Value: paramlist.EncodeStatusInfo(paramlist.StatusInfoDisposed)})
	case history.NotAliveUnregistered:
		list = append(list, paramlist.Parameter{PID: paramlist.PIDStatusInfo, Value: paramlist.EncodeStatusInfo(paramlist.StatusInfoUnregistered)})
	}
	return list
}

func (w *StatefulWriter) sendWhole(ctx context.Context, rp *ReaderProxy, cc history.CacheChange, dst rtpstypes.Locator) {
	d := rtpsmsg.Data{
		ReaderId:          readerEntityId(rp),
		WriterId:          w.cfg.Guid.EntityId,
		WriterSN:          cc.SequenceNumber,
		HasInlineQos:      true,
		InlineQos:         inlineQosFor(cc),
		HasData:           cc.Kind == history.Alive,
		HasKey:            cc.Kind != history.Alive,
		RepresentationId:  rtpsmsg.ReprCDRLE,
		SerializedPayload: cc.Data,
	}
	raw, err := d.Marshal(cdr.LittleEndian)
	if err != nil {
		w.log.WithError(err).Warn("rtpswriter: failed to marshal DATA")
		return
	}
	w.sendSubmessage(ctx, dst, raw)
}

func (w *StatefulWriter) sendFragmented(ctx context.Context, rp *ReaderProxy, cc history.CacheChange, dst rtpstypes.Locator) {
	fragSize := w.cfg.FragmentSize
	total := len(cc.Data)
	numFrags := (total + fragSize - 1) / fragSize
	for i := 0; i < numFrags; i++ {
		start := i * fragSize
		end := start + fragSize
		if end > total {
			end = total
		}
		df := rtpsmsg.DataFrag{
			ReaderId:            readerEntityId(rp),
			WriterId:            w.cfg.Guid.EntityId,
			WriterSN:            cc.SequenceNumber,
			FragmentStartingNum: uint32(i + 1),
			FragmentsInSubmsg:   1,
			FragmentSize:        uint16(fragSize),
			SampleSize:          uint32(total),
			FragmentData:        cc.Data[start:end],
		}
		if i == 0 {
			// Only the first fragment needs to carry the instance identity;
			// the reader keeps it until reassembly completes.
			df.HasInlineQos = true
			df.InlineQos = inlineQosFor(cc)
		}
		raw, err := df.Marshal(cdr.LittleEndian)
		if err != nil {
			w.log.WithError(err).Warn("rtpswriter: failed to marshal DATA_FRAG")
			return
		}
		w.sendSubmessage(ctx, dst, raw)
	}
}

func (w *StatefulWriter) sendSubmessage(ctx context.Context, dst rtpstypes.Locator, sub rtpsmsg.RawSubmessage) {
	h := rtpsmsg.Header{GuidPrefix: w.cfg.Guid.Prefix, Version: rtpstypes.ProtocolVersion24, VendorId: rtpstypes.VendorIdThisImplementation}
	m := rtpsmsg.Message{Header: h, Submessages: []rtpsmsg.RawSubmessage{sub}}
	if err := w.sender.Send(ctx, dst, m.Marshal()); err != nil {
		w.log.WithError(err).WithField("dst", dst).Warn("rtpswriter: send failed")
	}
}

// SendHeartbeat broadcasts a HEARTBEAT to every reliable matched reader
// proxy, advertising the [firstSN, lastSN] range currently in the cache.
func (w *StatefulWriter) SendHeartbeat(ctx context.Context) {
	if !w.reliable() {
		return
	}
	w.mu.Lock()
	w.hbCount++
	count := w.hbCount
	first, last := w.sequenceRangeLocked()
	proxies := make([]*ReaderProxy, 0, len(w.proxies))
	for _, rp := range w.proxies {
		if rp.Reliable {
			proxies = append(proxies, rp)
		}
	}
	w.mu.Unlock()

	for _, rp := range proxies {
		hb := rtpsmsg.Heartbeat{
			ReaderId: readerEntityId(rp),
			WriterId: w.cfg.Guid.EntityId,
			FirstSN:  first,
			LastSN:   last,
			Count:    count,
		}
		dst := destinationFor(rp)
		if dst == rtpstypes.LocatorInvalid {
			continue
		}
		w.sendSubmessage(ctx, dst, hb.Marshal(cdr.LittleEndian))
	}
}

func (w *StatefulWriter) sequenceRangeLocked() (first, last rtpstypes.SequenceNumber) {
	all := w.cache.All()
	if len(all) == 0 {
		return w.lastSeq + 1, w.lastSeq
	}
	return all[0].SequenceNumber, w.lastSeq
}

// HandleAckNack implements receiver.WriterSink.
func (w *StatefulWriter) HandleAckNack(ctx receiver.MessageContext, a rtpsmsg.AckNack) {
	w.mu.Lock()
	rp, ok := w.proxies[proxyKey(ctx.SourcePrefix, a.ReaderId)]
	w.mu.Unlock()
	if !ok {
		return
	}
	state := a.ReaderSNState
	rp.acknowledge(rtpstypes.SequenceNumber(state.Base), func(seq rtpstypes.SequenceNumber) bool {
		offset := int64(seq) - state.Base
		return offset >= 0 && state.Contains(uint32(offset))
	}, a.Count)
}

// HandleNackFrag implements receiver.WriterSink. Fragment-granular
// retransmission bookkeeping is approximated by re-marking the whole
// change Requested, since this writer always resends a fragmented change
// in full on retransmission.
func (w *StatefulWriter) HandleNackFrag(ctx receiver.MessageContext, nf rtpsmsg.NackFrag) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rp, ok := w.proxies[proxyKey(ctx.SourcePrefix, nf.ReaderId)]
	if !ok {
		return
	}
	rp.statuses[nf.WriterSN] = Requested
}

func proxyKey(prefix rtpstypes.GuidPrefix, readerId rtpstypes.EntityId) string {
	g := rtpstypes.Guid{Prefix: prefix, EntityId: readerId}
	return g.String()
}

func readerEntityId(rp *ReaderProxy) rtpstypes.EntityId { return rp.ReaderGuid.EntityId }

func destinationFor(rp *ReaderProxy) rtpstypes.Locator {
	if len(rp.UnicastLocators) > 0 {
		return rp.UnicastLocators[0]
	}
	if len(rp.MulticastLocators) > 0 {
		return rp.MulticastLocators[0]
	}
	return rtpstypes.LocatorInvalid
}
