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

package rtpsreader_test

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/paramlist"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/receiver"
	"github.com/projectrtps/rtps/internal/rtpsmsg"
	"github.com/projectrtps/rtps/internal/rtpsreader"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []rtpsmsg.Message
}

func (f *fakeSender) Send(ctx context.Context, dst rtpstypes.Locator, payload []byte) error {
	m, err := rtpsmsg.Parse(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) submessagesOfKind(id rtpsmsg.SubmessageID) []rtpsmsg.RawSubmessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rtpsmsg.RawSubmessage
	for _, m := range f.sent {
		for _, s := range m.Submessages {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out
}

type capturingListener struct {
	mu   sync.Mutex
	data []history.CacheChange
	lost []rtpstypes.SequenceNumber
}

func (c *capturingListener) OnDataAvailable(cc history.CacheChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, cc)
}

func (c *capturingListener) OnSampleLost(writerGuid rtpstypes.Guid, seq rtpstypes.SequenceNumber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lost = append(c.lost, seq)
}

var writerGuid = rtpstypes.Guid{EntityId: rtpstypes.EntityId{Key: [3]byte{5, 0, 0}, Kind: rtpstypes.EntityKindWriterWithKey}}
var writerLoc = rtpstypes.NewLocatorUDPv4(net.IPv4(127, 0, 0, 1), 7400)

func newReader(t *testing.T, reliable bool, sender rtpsreader.Sender, l rtpsreader.Listener) *rtpsreader.StatefulReader {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	kind := qos.BestEffort
	if reliable {
		kind = qos.Reliable
	}
	cfg := rtpsreader.Config{
		Guid:        rtpstypes.Guid{EntityId: rtpstypes.EntityId{Key: [3]byte{6, 0, 0}, Kind: rtpstypes.EntityKindReaderWithKey}},
		Reliability: qos.Reliability{Kind: kind},
		History:     qos.History{Kind: qos.KeepLast, Depth: 10},
		Order:       qos.DestinationOrder{Kind: qos.ByReceptionTimestamp},
	}
	return rtpsreader.New(log, cfg, sender, l)
}

func TestHandleDataDeliversToListener(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, false, sender, listener)
	r.MatchedWriterAdd(writerGuid, false, rtpstypes.LocatorList{writerLoc}, nil)

	d := rtpsmsg.Data{WriterId: writerGuid.EntityId, WriterSN: 1, HasData: true, SerializedPayload: []byte("hi")}
	r.HandleData(receiver.MessageContext{SourcePrefix: writerGuid.Prefix}, d)

	require.Len(t, listener.data, 1)
	assert.Equal(t, []byte("hi"), listener.data[0].Data)
}

func TestDuplicateDataIsIgnored(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, false, sender, listener)
	r.MatchedWriterAdd(writerGuid, false, rtpstypes.LocatorList{writerLoc}, nil)

	d := rtpsmsg.Data{WriterId: writerGuid.EntityId, WriterSN: 1, HasData: true, SerializedPayload: []byte("hi")}
	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	r.HandleData(ctx, d)
	r.HandleData(ctx, d)

	assert.Len(t, listener.data, 1)
}

func TestHeartbeatTriggersAckNackWhenMissing(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, true, sender, listener)
	r.MatchedWriterAdd(writerGuid, true, rtpstypes.LocatorList{writerLoc}, nil)

	hb := rtpsmsg.Heartbeat{WriterId: writerGuid.EntityId, FirstSN: 1, LastSN: 3, Count: 1}
	r.HandleHeartbeat(receiver.MessageContext{SourcePrefix: writerGuid.Prefix}, hb)

	acks := sender.submessagesOfKind(rtpsmsg.IDAckNack)
	require.Len(t, acks, 1)
	a, err := rtpsmsg.ParseAckNack(acks[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ReaderSNState.Base)
}

func TestFinalHeartbeatWithNoMissingSuppressesAckNack(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, true, sender, listener)
	r.MatchedWriterAdd(writerGuid, true, rtpstypes.LocatorList{writerLoc}, nil)

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	r.HandleData(ctx, rtpsmsg.Data{WriterId: writerGuid.EntityId, WriterSN: 1, HasData: true, SerializedPayload: []byte("a")})

	hb := rtpsmsg.Heartbeat{WriterId: writerGuid.EntityId, FirstSN: 1, LastSN: 1, Count: 1, FinalFlag: true}
	r.HandleHeartbeat(ctx, hb)

	acks := sender.submessagesOfKind(rtpsmsg.IDAckNack)
	assert.Len(t, acks, 0)
}

func TestGapMarksRangeIrrelevantNotMissing(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, true, sender, listener)
	r.MatchedWriterAdd(writerGuid, true, rtpstypes.LocatorList{writerLoc}, nil)

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	r.HandleGap(ctx, rtpsmsg.Gap{WriterId: writerGuid.EntityId, GapStart: 1, GapList: rtpsmsg.NumberSet{Base: 1, Length: 1, Bits: []uint32{0}}})

	hb := rtpsmsg.Heartbeat{WriterId: writerGuid.EntityId, FirstSN: 1, LastSN: 2, Count: 1, FinalFlag: true}
	r.HandleHeartbeat(ctx, hb)

	acks := sender.submessagesOfKind(rtpsmsg.IDAckNack)
	require.Len(t, acks, 1, "seq 2 is still missing, so an ACKNACK must still be sent despite the gapped seq 1")
}

func TestHeartbeatFirstSNExcludesSequenceNumbersTheWriterNoLongerHolds(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, true, sender, listener)
	r.MatchedWriterAdd(writerGuid, true, rtpstypes.LocatorList{writerLoc}, nil)

	// A late-joining reader's first HEARTBEAT from this writer reports
	// FirstSN=5: SNs 1-4 were already evicted and will never be retransmitted.
	hb := rtpsmsg.Heartbeat{WriterId: writerGuid.EntityId, FirstSN: 5, LastSN: 7, Count: 1}
	r.HandleHeartbeat(receiver.MessageContext{SourcePrefix: writerGuid.Prefix}, hb)

	acks := sender.submessagesOfKind(rtpsmsg.IDAckNack)
	require.Len(t, acks, 1)
	a, err := rtpsmsg.ParseAckNack(acks[0])
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.ReaderSNState.Base, "must not NACK sequence numbers below FirstSN")
}

func TestGapOnlyMarksReportedOffsetsNotTheWholeRange(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, true, sender, listener)
	r.MatchedWriterAdd(writerGuid, true, rtpstypes.LocatorList{writerLoc}, nil)

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	// GapStart=10 plus offset 5 (SN 15) are irrelevant; SNs 11-14 are not
	// named by the bitmap and must remain pending/retransmittable.
	r.HandleGap(ctx, rtpsmsg.Gap{WriterId: writerGuid.EntityId, GapStart: 10, GapList: rtpsmsg.NumberSet{Base: 10, Length: 6, Bits: []uint32{5}}})

	hb := rtpsmsg.Heartbeat{WriterId: writerGuid.EntityId, FirstSN: 10, LastSN: 15, Count: 1, FinalFlag: true}
	r.HandleHeartbeat(ctx, hb)

	acks := sender.submessagesOfKind(rtpsmsg.IDAckNack)
	require.Len(t, acks, 1)
	a, err := rtpsmsg.ParseAckNack(acks[0])
	require.NoError(t, err)
	assert.Equal(t, int64(11), a.ReaderSNState.Base, "SNs 11-14 must still be requested, not swallowed by the gap range")
}

func TestDataFragReassemblyDeliversOnceComplete(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, false, sender, listener)
	r.MatchedWriterAdd(writerGuid, false, rtpstypes.LocatorList{writerLoc}, nil)

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	full := []byte("0123456789abcdef")
	df1 := rtpsmsg.DataFrag{WriterId: writerGuid.EntityId, WriterSN: 1, FragmentStartingNum: 1, FragmentSize: 8, SampleSize: uint32(len(full)), FragmentData: full[0:8]}
	df2 := rtpsmsg.DataFrag{WriterId: writerGuid.EntityId, WriterSN: 1, FragmentStartingNum: 2, FragmentSize: 8, SampleSize: uint32(len(full)), FragmentData: full[8:16]}

	r.HandleDataFrag(ctx, df1)
	assert.Empty(t, listener.data, "should not deliver until all fragments arrive")
	r.HandleDataFrag(ctx, df2)
	require.Len(t, listener.data, 1)
	assert.Equal(t, full, listener.data[0].Data)
}

func TestHandleDataDerivesInstanceHandleFromKeyHashNotPayload(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, false, sender, listener)
	r.MatchedWriterAdd(writerGuid, false, rtpstypes.LocatorList{writerLoc}, nil)

	instance := keyhash.Compute(func(w *cdr.Writer) { w.WriteInt32(1) })
	keyHash := paramlist.EncodeKeyHash([paramlist.KeyHashLength]byte(instance))
	inline := paramlist.List{{PID: paramlist.PIDKeyHash, Value: keyHash}}

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	r.HandleData(ctx, rtpsmsg.Data{WriterId: writerGuid.EntityId, WriterSN: 1, HasInlineQos: true, InlineQos: inline, HasData: true, SerializedPayload: []byte("square")})
	r.HandleData(ctx, rtpsmsg.Data{WriterId: writerGuid.EntityId, WriterSN: 2, HasInlineQos: true, InlineQos: inline, HasData: true, SerializedPayload: []byte("not-square-anymore")})

	require.Len(t, listener.data, 2)
	assert.Equal(t, instance, listener.data[0].InstanceHandle)
	assert.Equal(t, listener.data[0].InstanceHandle, listener.data[1].InstanceHandle,
		"same KEY_HASH but different payload bytes must resolve to the same instance handle")
}

func TestHandleDataFallsBackToPayloadHashWithoutKeyHash(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, false, sender, listener)
	r.MatchedWriterAdd(writerGuid, false, rtpstypes.LocatorList{writerLoc}, nil)

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	r.HandleData(ctx, rtpsmsg.Data{WriterId: writerGuid.EntityId, WriterSN: 1, HasData: true, SerializedPayload: []byte("hi")})

	require.Len(t, listener.data, 1)
	want := keyhash.Compute(func(w *cdr.Writer) { w.Raw([]byte("hi")) })
	assert.Equal(t, want, listener.data[0].InstanceHandle)
}

func TestHandleDataDecodesStatusInfoForDisposeAndUnregister(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, false, sender, listener)
	r.MatchedWriterAdd(writerGuid, false, rtpstypes.LocatorList{writerLoc}, nil)

	instance := keyhash.Compute(func(w *cdr.Writer) { w.WriteInt32(1) })
	keyHash := paramlist.EncodeKeyHash([paramlist.KeyHashLength]byte(instance))
	disposeInline := paramlist.List{
		{PID: paramlist.PIDKeyHash, Value: keyHash},
		{PID: paramlist.PIDStatusInfo, Value: paramlist.EncodeStatusInfo(paramlist.StatusInfoDisposed)},
	}
	unregisterInline := paramlist.List{
		{PID: paramlist.PIDKeyHash, Value: keyHash},
		{PID: paramlist.PIDStatusInfo, Value: paramlist.EncodeStatusInfo(paramlist.StatusInfoUnregistered)},
	}

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	r.HandleData(ctx, rtpsmsg.Data{WriterId: writerGuid.EntityId, WriterSN: 1, HasInlineQos: true, InlineQos: disposeInline, HasKey: true})
	r.HandleData(ctx, rtpsmsg.Data{WriterId: writerGuid.EntityId, WriterSN: 2, HasInlineQos: true, InlineQos: unregisterInline, HasKey: true})

	require.Len(t, listener.data, 2)
	assert.Equal(t, history.NotAliveDisposed, listener.data[0].Kind)
	assert.Equal(t, instance, listener.data[0].InstanceHandle)
	assert.Equal(t, history.NotAliveUnregistered, listener.data[1].Kind)
	assert.Equal(t, instance, listener.data[1].InstanceHandle)
}

func TestDataFragCarriesInstanceHandleFromFirstFragmentOnly(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, false, sender, listener)
	r.MatchedWriterAdd(writerGuid, false, rtpstypes.LocatorList{writerLoc}, nil)

	instance := keyhash.Compute(func(w *cdr.Writer) { w.WriteInt32(7) })
	inline := paramlist.List{{PID: paramlist.PIDKeyHash, Value: paramlist.EncodeKeyHash([paramlist.KeyHashLength]byte(instance))}}

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	full := []byte("0123456789abcdef")
	df1 := rtpsmsg.DataFrag{WriterId: writerGuid.EntityId, WriterSN: 1, FragmentStartingNum: 1, FragmentSize: 8, SampleSize: uint32(len(full)), FragmentData: full[0:8], HasInlineQos: true, InlineQos: inline}
	df2 := rtpsmsg.DataFrag{WriterId: writerGuid.EntityId, WriterSN: 1, FragmentStartingNum: 2, FragmentSize: 8, SampleSize: uint32(len(full)), FragmentData: full[8:16]}

	r.HandleDataFrag(ctx, df1)
	r.HandleDataFrag(ctx, df2)

	require.Len(t, listener.data, 1)
	assert.Equal(t, instance, listener.data[0].InstanceHandle)
}

func TestExpireStaleFragmentsReportsSampleLost(t *testing.T) {
	sender := &fakeSender{}
	listener := &capturingListener{}
	r := newReader(t, false, sender, listener)
	r.MatchedWriterAdd(writerGuid, false, rtpstypes.LocatorList{writerLoc}, nil)

	ctx := receiver.MessageContext{SourcePrefix: writerGuid.Prefix}
	df := rtpsmsg.DataFrag{WriterId: writerGuid.EntityId, WriterSN: 9, FragmentStartingNum: 1, FragmentSize: 4, SampleSize: 8, FragmentData: []byte("half")}
	r.HandleDataFrag(ctx, df)

	r.ExpireStaleFragments(time.Now().Add(time.Hour))
	require.Len(t, listener.lost, 1)
	assert.Equal(t, rtpstypes.SequenceNumber(9), listener.lost[0])
}
