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

package rtpsmsg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/rtpsmsg"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

var readerId = rtpstypes.EntityId{Key: [3]byte{1, 2, 3}, Kind: rtpstypes.EntityKindReaderWithKey}
var writerId = rtpstypes.EntityId{Key: [3]byte{4, 5, 6}, Kind: rtpstypes.EntityKindWriterWithKey}

func TestHeaderRoundTrip(t *testing.T) {
	h := rtpsmsg.Header{
		Version:    rtpstypes.ProtocolVersion24,
		VendorId:   rtpstypes.VendorIdThisImplementation,
		GuidPrefix: rtpstypes.GuidPrefix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	buf := h.Marshal(nil)
	got, rest, err := rtpsmsg.ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.Empty(t, rest)
}

func TestAckNackRoundTrip(t *testing.T) {
	for _, endian := range []cdr.Endian{cdr.LittleEndian, cdr.BigEndian} {
		a := rtpsmsg.AckNack{
			ReaderId:      readerId,
			WriterId:      writerId,
			ReaderSNState: rtpsmsg.NumberSet{Base: 1, Bits: []uint32{0, 2, 4}, Length: 5},
			Count:         7,
			FinalFlag:     true,
		}
		raw := a.Marshal(endian)
		got, err := rtpsmsg.ParseAckNack(raw)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	h := rtpsmsg.Heartbeat{
		ReaderId: readerId,
		WriterId: writerId,
		FirstSN:  1,
		LastSN:   5,
		Count:    3,
	}
	raw := h.Marshal(cdr.LittleEndian)
	got, err := rtpsmsg.ParseHeartbeat(raw)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestGapRoundTrip(t *testing.T) {
	g := rtpsmsg.Gap{
		ReaderId: readerId,
		WriterId: writerId,
		GapStart: 3,
		GapList:  rtpsmsg.NumberSet{Base: 3, Bits: []uint32{0, 1}, Length: 2},
	}
	raw := g.Marshal(cdr.BigEndian)
	got, err := rtpsmsg.ParseGap(raw)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestInfoTSRoundTrip(t *testing.T) {
	ts := rtpsmsg.InfoTS{Timestamp: rtpstypes.Timestamp{Seconds: 100, Fraction: 42}}
	raw := ts.Marshal(cdr.LittleEndian)
	got, err := rtpsmsg.ParseInfoTS(raw)
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	inval := rtpsmsg.InfoTS{Invalidate: true}
	raw = inval.Marshal(cdr.LittleEndian)
	got, err = rtpsmsg.ParseInfoTS(raw)
	require.NoError(t, err)
	assert.True(t, got.Invalidate)
}

func TestDataRoundTrip(t *testing.T) {
	d := rtpsmsg.Data{
		ReaderId:         readerId,
		WriterId:         writerId,
		WriterSN:         1,
		HasData:          true,
		RepresentationId: rtpsmsg.ReprCDRLE,
		SerializedPayload: []byte("hello world"),
	}
	raw, err := d.Marshal(cdr.LittleEndian)
	require.NoError(t, err)
	got, err := rtpsmsg.ParseData(raw)
	require.NoError(t, err)
	assert.Equal(t, d.SerializedPayload, got.SerializedPayload)
	assert.Equal(t, d.ReaderId, got.ReaderId)
	assert.Equal(t, d.WriterSN, got.WriterSN)
}

func TestDataFragRoundTrip(t *testing.T) {
	df := rtpsmsg.DataFrag{
		ReaderId:            readerId,
		WriterId:            writerId,
		WriterSN:            2,
		FragmentStartingNum: 1,
		FragmentsInSubmsg:   1,
		FragmentSize:        16,
		SampleSize:          100,
		FragmentData:        []byte("0123456789abcdef"),
	}
	raw, err := df.Marshal(cdr.BigEndian)
	require.NoError(t, err)
	got, err := rtpsmsg.ParseDataFrag(raw)
	require.NoError(t, err)
	assert.Equal(t, df.FragmentData, got.FragmentData)
	assert.Equal(t, df.SampleSize, got.SampleSize)
}

func TestMessageRoundTrip(t *testing.T) {
	h := rtpsmsg.Header{Version: rtpstypes.ProtocolVersion24, VendorId: rtpstypes.VendorIdThisImplementation}
	hb := rtpsmsg.Heartbeat{ReaderId: readerId, WriterId: writerId, FirstSN: 1, LastSN: 2, Count: 1}
	m := rtpsmsg.Message{Header: h, Submessages: []rtpsmsg.RawSubmessage{hb.Marshal(cdr.LittleEndian)}}
	buf := m.Marshal()
	got, err := rtpsmsg.Parse(buf)
	require.NoError(t, err)
	require.Len(t, got.Submessages, 1)
	assert.Equal(t, rtpsmsg.IDHeartbeat, got.Submessages[0].ID)
}
