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

package receiver_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/receiver"
	"github.com/projectrtps/rtps/internal/rtpsmsg"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

type fakeReaderSink struct {
	gotData      []rtpsmsg.Data
	gotHeartbeat []rtpsmsg.Heartbeat
	lastCtx      receiver.MessageContext
}

func (f *fakeReaderSink) HandleData(ctx receiver.MessageContext, d rtpsmsg.Data) {
	f.gotData = append(f.gotData, d)
	f.lastCtx = ctx
}
func (f *fakeReaderSink) HandleDataFrag(ctx receiver.MessageContext, df rtpsmsg.DataFrag) {}
func (f *fakeReaderSink) HandleHeartbeat(ctx receiver.MessageContext, hb rtpsmsg.Heartbeat) {
	f.gotHeartbeat = append(f.gotHeartbeat, hb)
	f.lastCtx = ctx
}
func (f *fakeReaderSink) HandleHeartbeatFrag(ctx receiver.MessageContext, hf rtpsmsg.HeartbeatFrag) {
}
func (f *fakeReaderSink) HandleGap(ctx receiver.MessageContext, g rtpsmsg.Gap) {}

type fakeWriterSink struct {
	gotAckNack []rtpsmsg.AckNack
}

func (f *fakeWriterSink) HandleAckNack(ctx receiver.MessageContext, a rtpsmsg.AckNack) {
	f.gotAckNack = append(f.gotAckNack, a)
}
func (f *fakeWriterSink) HandleNackFrag(ctx receiver.MessageContext, nf rtpsmsg.NackFrag) {}

type fakeEndpoints struct {
	readers map[rtpstypes.EntityId]receiver.ReaderSink
	writers map[rtpstypes.EntityId]receiver.WriterSink
}

func (f *fakeEndpoints) LookupReader(id rtpstypes.EntityId) (receiver.ReaderSink, bool) {
	s, ok := f.readers[id]
	return s, ok
}
func (f *fakeEndpoints) LookupWriter(id rtpstypes.EntityId) (receiver.WriterSink, bool) {
	s, ok := f.writers[id]
	return s, ok
}

var readerId = rtpstypes.EntityId{Key: [3]byte{1, 0, 0}, Kind: rtpstypes.EntityKindReaderWithKey}
var writerId = rtpstypes.EntityId{Key: [3]byte{2, 0, 0}, Kind: rtpstypes.EntityKindWriterWithKey}

func TestReceiverRoutesDataToMatchingReader(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	sink := &fakeReaderSink{}
	eps := &fakeEndpoints{readers: map[rtpstypes.EntityId]receiver.ReaderSink{readerId: sink}}
	rcv := receiver.New(log, eps)

	d := rtpsmsg.Data{ReaderId: readerId, WriterId: writerId, WriterSN: 1, HasData: true, SerializedPayload: []byte("x")}
	raw, err := d.Marshal(cdr.LittleEndian)
	require.NoError(t, err)

	h := rtpsmsg.Header{Version: rtpstypes.ProtocolVersion24, VendorId: rtpstypes.VendorIdThisImplementation}
	m := rtpsmsg.Message{Header: h, Submessages: []rtpsmsg.RawSubmessage{raw}}

	rcv.Process(rtpstypes.Locator{}, m.Marshal())
	require.Len(t, sink.gotData, 1)
	assert.Equal(t, d.WriterSN, sink.gotData[0].WriterSN)
}

func TestReceiverDropsSubmessagesWithNoMatchingLocalEndpoint(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	eps := &fakeEndpoints{readers: map[rtpstypes.EntityId]receiver.ReaderSink{}}
	rcv := receiver.New(log, eps)

	d := rtpsmsg.Data{ReaderId: readerId, WriterId: writerId, WriterSN: 1}
	raw, err := d.Marshal(cdr.LittleEndian)
	require.NoError(t, err)
	h := rtpsmsg.Header{Version: rtpstypes.ProtocolVersion24}
	m := rtpsmsg.Message{Header: h, Submessages: []rtpsmsg.RawSubmessage{raw}}

	assert.NotPanics(t, func() { rcv.Process(rtpstypes.Locator{}, m.Marshal()) })
}

func TestReceiverUpdatesContextFromInfoSubmessages(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	sink := &fakeReaderSink{}
	eps := &fakeEndpoints{readers: map[rtpstypes.EntityId]receiver.ReaderSink{readerId: sink}}
	rcv := receiver.New(log, eps)

	ts := rtpsmsg.InfoTS{Timestamp: rtpstypes.Timestamp{Seconds: 123}}
	hb := rtpsmsg.Heartbeat{ReaderId: readerId, WriterId: writerId, FirstSN: 1, LastSN: 2, Count: 1}

	h := rtpsmsg.Header{Version: rtpstypes.ProtocolVersion24}
	m := rtpsmsg.Message{
		Header: h,
		Submessages: []rtpsmsg.RawSubmessage{
			ts.Marshal(cdr.LittleEndian),
			hb.Marshal(cdr.LittleEndian),
		},
	}
	rcv.Process(rtpstypes.Locator{}, m.Marshal())
	require.Len(t, sink.gotHeartbeat, 1)
	assert.True(t, sink.lastCtx.HasTimestamp)
	assert.Equal(t, int32(123), sink.lastCtx.Timestamp.Seconds)
}
