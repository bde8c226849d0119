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

package sedp_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectrtps/rtps/internal/discovery"
	"github.com/projectrtps/rtps/internal/discovery/sedp"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/rtpsmsg"
	"github.com/projectrtps/rtps/internal/rtpstypes"
	"github.com/projectrtps/rtps/internal/rtpswriter"
)

type capturingSender struct {
	mu   sync.Mutex
	sent []rtpsmsg.Message
}

func (s *capturingSender) Send(ctx context.Context, dst rtpstypes.Locator, payload []byte) error {
	m, err := rtpsmsg.Parse(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, m)
	s.mu.Unlock()
	return nil
}

func (s *capturingSender) dataSubmessages() []rtpsmsg.RawSubmessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []rtpsmsg.RawSubmessage
	for _, m := range s.sent {
		for _, sub := range m.Submessages {
			if sub.ID == rtpsmsg.IDData {
				out = append(out, sub)
			}
		}
	}
	return out
}

func newLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var localPrefix = rtpstypes.GuidPrefix{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
var remotePrefix = rtpstypes.GuidPrefix{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}

func endpointQos(reliable bool) qos.EndpointQos {
	kind := qos.BestEffort
	if reliable {
		kind = qos.Reliable
	}
	return qos.EndpointQos{Reliability: qos.Reliability{Kind: kind}, Durability: qos.Durability{Kind: qos.DurabilityVolatile}}
}

func newPubWriter(t *testing.T, prefix rtpstypes.GuidPrefix, sender rtpswriter.Sender) *rtpswriter.StatefulWriter {
	t.Helper()
	return rtpswriter.New(newLogger(), rtpswriter.Config{
		Guid:        rtpstypes.Guid{Prefix: prefix, EntityId: rtpstypes.EntityIdSEDPPubWriter},
		Reliability: qos.Reliability{Kind: qos.Reliable},
		History:     qos.History{Kind: qos.KeepLast, Depth: 10},
		Order:       qos.DestinationOrder{Kind: qos.ByReceptionTimestamp},
	}, sender)
}

func TestAnnouncePublicationSendsEncodedSampleToMatchedReaders(t *testing.T) {
	sender := &capturingSender{}
	w := newPubWriter(t, localPrefix, sender)
	ps := sedp.New(newLogger(), localPrefix, sedp.EndpointSet{Writer: w}, sedp.EndpointSet{}, nil)

	pub := discovery.PublicationBuiltinTopicData{EndpointBuiltinTopicData: discovery.EndpointBuiltinTopicData{
		Guid:      rtpstypes.Guid{Prefix: localPrefix, EntityId: rtpstypes.EntityId{Key: [3]byte{3, 0, 0}, Kind: rtpstypes.EntityKindWriterWithKey}},
		TopicName: "weather", TypeName: "Temperature",
		Qos: endpointQos(true),
	}}
	require.NoError(t, ps.AnnouncePublication(pub))

	reader := rtpstypes.Guid{Prefix: remotePrefix, EntityId: rtpstypes.EntityIdSEDPPubReader}
	w.MatchedReaderAdd(reader, true, rtpstypes.LocatorList{rtpstypes.Locator{}}, nil)
	w.SendPass(context.Background())

	require.NotEmpty(t, sender.dataSubmessages())
}

func TestPublicationListenerDecodesSampleIntoRemoteSet(t *testing.T) {
	sender := &capturingSender{}
	remoteWriter := newPubWriter(t, remotePrefix, sender)
	remote := sedp.New(newLogger(), remotePrefix, sedp.EndpointSet{Writer: remoteWriter}, sedp.EndpointSet{}, nil)

	remoteGuid := rtpstypes.Guid{Prefix: remotePrefix, EntityId: rtpstypes.EntityId{Key: [3]byte{4, 0, 0}, Kind: rtpstypes.EntityKindWriterWithKey}}
	pub := discovery.PublicationBuiltinTopicData{EndpointBuiltinTopicData: discovery.EndpointBuiltinTopicData{
		Guid: remoteGuid, TopicName: "weather", TypeName: "Temperature", Qos: endpointQos(false),
	}}
	require.NoError(t, remote.AnnouncePublication(pub))
	reader := rtpstypes.Guid{Prefix: localPrefix, EntityId: rtpstypes.EntityIdSEDPPubReader}
	remoteWriter.MatchedReaderAdd(reader, true, rtpstypes.LocatorList{rtpstypes.Locator{}}, nil)
	remoteWriter.SendPass(context.Background())

	subs := sender.dataSubmessages()
	require.NotEmpty(t, subs)
	d, err := rtpsmsg.ParseData(subs[0])
	require.NoError(t, err)

	var refreshed int32
	local := sedp.New(newLogger(), localPrefix, sedp.EndpointSet{}, sedp.EndpointSet{}, discovery.MatchObserverFunc(func() { atomic.AddInt32(&refreshed, 1) }))

	cc := history.CacheChange{Kind: history.Alive, Data: d.SerializedPayload}
	local.PublicationListener().OnDataAvailable(cc)

	remotes := local.RemotePublications()
	require.Len(t, remotes, 1)
	assert.Equal(t, "weather", remotes[0].TopicName)
	assert.Equal(t, "Temperature", remotes[0].TypeName)
	assert.Equal(t, qos.BestEffort, remotes[0].Qos.Reliability.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshed))
}

func TestDisposedPublicationSampleRemovesFromRemoteSet(t *testing.T) {
	local := sedp.New(newLogger(), localPrefix, sedp.EndpointSet{}, sedp.EndpointSet{}, nil)
	handle := keyhash.Handle{9, 9, 9}

	local.PublicationListener().OnDataAvailable(history.CacheChange{Kind: history.Alive, InstanceHandle: handle, Data: encodeMinimalPublication(t)})
	require.Len(t, local.RemotePublications(), 1)

	local.PublicationListener().OnDataAvailable(history.CacheChange{Kind: history.NotAliveDisposed, InstanceHandle: handle})
	assert.Empty(t, local.RemotePublications())
}

func encodeMinimalPublication(t *testing.T) []byte {
	t.Helper()
	sender := &capturingSender{}
	w := newPubWriter(t, remotePrefix, sender)
	ps := sedp.New(newLogger(), remotePrefix, sedp.EndpointSet{Writer: w}, sedp.EndpointSet{}, nil)
	pub := discovery.PublicationBuiltinTopicData{EndpointBuiltinTopicData: discovery.EndpointBuiltinTopicData{
		Guid:      rtpstypes.Guid{Prefix: remotePrefix, EntityId: rtpstypes.EntityId{Key: [3]byte{5, 0, 0}, Kind: rtpstypes.EntityKindWriterWithKey}},
		TopicName: "t", TypeName: "T", Qos: endpointQos(true),
	}}
	require.NoError(t, ps.AnnouncePublication(pub))
	reader := rtpstypes.Guid{Prefix: localPrefix, EntityId: rtpstypes.EntityIdSEDPPubReader}
	w.MatchedReaderAdd(reader, true, rtpstypes.LocatorList{rtpstypes.Locator{}}, nil)
	w.SendPass(context.Background())
	d, err := rtpsmsg.ParseData(sender.dataSubmessages()[0])
	require.NoError(t, err)
	return d.SerializedPayload
}
