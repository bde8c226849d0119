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

// Package participant wires together one DomainParticipant's worth of
// machinery: the transport socket, the SPDP/SEDP discovery protocols, the
// registry of local DataWriter/DataReader entities, and the periodic
// background work (announce, heartbeat, lease purge, fragment expiry)
// spec.md §4/§6 describe, all driven under one internal/lifecycle.Group.
package participant

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/projectrtps/rtps/internal/actor"
	"github.com/projectrtps/rtps/internal/config"
	"github.com/projectrtps/rtps/internal/ddserror"
	"github.com/projectrtps/rtps/internal/discovery"
	"github.com/projectrtps/rtps/internal/discovery/sedp"
	"github.com/projectrtps/rtps/internal/discovery/spdp"
	"github.com/projectrtps/rtps/internal/metrics"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/receiver"
	"github.com/projectrtps/rtps/internal/rtpsreader"
	"github.com/projectrtps/rtps/internal/rtpstypes"
	"github.com/projectrtps/rtps/internal/rtpswriter"
	"github.com/projectrtps/rtps/internal/transport"
)

// sedpHistoryDepth bounds the built-in publication/subscription caches;
// a domain's endpoint count rarely approaches it.
const sedpHistoryDepth = 256

// localWriter bundles a user DataWriter's built-in topic data alongside its
// StatefulWriter, so matchEndpoints can re-derive a PublicationBuiltinTopicData
// without a separate side table.
type localWriter struct {
	guid     rtpstypes.Guid
	topic    string
	typeName string
	qos      qos.EndpointQos
	writer   *rtpswriter.StatefulWriter
}

// localReader is localWriter's reader-side counterpart.
type localReader struct {
	guid     rtpstypes.Guid
	topic    string
	typeName string
	qos      qos.EndpointQos
	reader   *rtpsreader.StatefulReader
}

// matchKey identifies one (local entity, remote entity) relationship
// already reflected in a ReaderProxy/WriterProxy, so matchEndpoints only
// calls MatchedReaderAdd/MatchedWriterAdd once per pair and can detect when
// a previously-matched remote has disappeared.
type matchKey struct {
	local  rtpstypes.EntityId
	remote rtpstypes.Guid
}

// Participant is one local DomainParticipant: it owns the transport socket,
// runs SPDP/SEDP discovery, and hosts every local DataWriter/DataReader.
type Participant struct {
	log        logrus.FieldLogger
	cfg        config.Configuration
	clock      actor.Clock
	guidPrefix rtpstypes.GuidPrefix

	transport transport.Transport
	receiver  *receiver.Receiver

	spdpMulticastLocator rtpstypes.Locator
	spdp                 *spdp.SPDP
	sedp                 *sedp.PubSub

	mu          sync.Mutex
	nextKey     uint32
	writers     map[rtpstypes.EntityId]*localWriter
	readers     map[rtpstypes.EntityId]*localReader
	matchedW    map[matchKey]struct{}
	matchedR    map[matchKey]struct{}
	matchedSEDP map[string]rtpstypes.GuidPrefix

	metrics *metrics.Metrics
}

// SetMetrics attaches m so discovery matches are recorded from this point
// on; incompatible-QoS incidents are not recorded. A Participant built without calling
// SetMetrics simply records nothing; cmd/rtps calls this once after
// construction.
func (p *Participant) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// New builds a Participant bound to domainId, generating a fresh random
// GuidPrefix and binding tport's well-known ports are the caller's
// responsibility: tport must already be listening on
// metatrafficUnicastPort/defaultUnicastPort(domainId, participantId) for
// some participantId, and have joined the domain's SPDP multicast group.
func New(log logrus.FieldLogger, cfg config.Configuration, clock actor.Clock, tport transport.Transport) (*Participant, error) {
	guidPrefix, err := rtpstypes.NewGuidPrefix()
	if err != nil {
		return nil, errors.Wrap(err, "participant: generating guid prefix")
	}

	p := &Participant{
		log:                  log,
		cfg:                  cfg,
		clock:                clock,
		guidPrefix:           guidPrefix,
		transport:            tport,
		spdpMulticastLocator: rtpstypes.NewLocatorUDPv4(net.IPv4(239, 255, 0, 1), spdpMulticastPort(cfg.DomainId)),
		writers:              make(map[rtpstypes.EntityId]*localWriter),
		readers:              make(map[rtpstypes.EntityId]*localReader),
		matchedW:             make(map[matchKey]struct{}),
		matchedR:             make(map[matchKey]struct{}),
		matchedSEDP:          make(map[string]rtpstypes.GuidPrefix),
	}
	p.receiver = receiver.New(log, p)

	observer := discovery.NewHoldoffNotifier(log, discovery.MatchObserverFunc(p.matchEndpoints))

	local := spdp.LocalInfo{
		GuidPrefix:         guidPrefix,
		DomainId:           cfg.DomainId,
		DomainTag:          cfg.DomainTag,
		MetatrafficUnicast: rtpstypes.LocatorList{tport.DefaultUnicastLocator()},
		DefaultUnicast:     rtpstypes.LocatorList{tport.DefaultUnicastLocator()},
		LeaseDuration:      cfg.LeaseDuration,
	}
	p.spdp = spdp.New(log, local, tport, p.spdpMulticastLocator, observer)

	ps := sedp.New(log, guidPrefix, sedp.EndpointSet{}, sedp.EndpointSet{}, observer)
	ps.Publications = p.newBuiltinEndpointSet(rtpstypes.EntityIdSEDPPubWriter, rtpstypes.EntityIdSEDPPubReader, ps.PublicationListener())
	ps.Subscriptions = p.newBuiltinEndpointSet(rtpstypes.EntityIdSEDPSubWriter, rtpstypes.EntityIdSEDPSubReader, ps.SubscriptionListener())
	p.sedp = ps

	return p, nil
}

func (p *Participant) newBuiltinEndpointSet(writerId, readerId rtpstypes.EntityId, listener rtpsreader.Listener) sedp.EndpointSet {
	w := rtpswriter.New(p.log, rtpswriter.Config{
		Guid:         rtpstypes.Guid{Prefix: p.guidPrefix, EntityId: writerId},
		Reliability:  qos.Reliability{Kind: qos.Reliable},
		History:      qos.History{Kind: qos.KeepLast, Depth: sedpHistoryDepth},
		Order:        qos.DestinationOrder{Kind: qos.ByReceptionTimestamp},
		FragmentSize: p.cfg.FragmentSize,
	}, p.transport)
	r := rtpsreader.New(p.log, rtpsreader.Config{
		Guid:         rtpstypes.Guid{Prefix: p.guidPrefix, EntityId: readerId},
		Reliability:  qos.Reliability{Kind: qos.Reliable},
		History:      qos.History{Kind: qos.KeepLast, Depth: sedpHistoryDepth},
		Order:        qos.DestinationOrder{Kind: qos.ByReceptionTimestamp},
		FragmentSize: p.cfg.FragmentSize,
	}, p.transport, listener)
	return sedp.EndpointSet{Writer: w, Reader: r}
}

// Guid returns the participant's own GUID.
func (p *Participant) Guid() rtpstypes.Guid {
	return rtpstypes.Guid{Prefix: p.guidPrefix, EntityId: rtpstypes.EntityIdParticipant}
}

// LookupReader implements receiver.Endpoints.
func (p *Participant) LookupReader(id rtpstypes.EntityId) (receiver.ReaderSink, bool) {
	switch id {
	case rtpstypes.EntityIdSPDPReader:
		return p.spdp, true
	case rtpstypes.EntityIdSEDPPubReader:
		return p.sedp.Publications.Reader, true
	case rtpstypes.EntityIdSEDPSubReader:
		return p.sedp.Subscriptions.Reader, true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	lr, ok := p.readers[id]
	if !ok {
		return nil, false
	}
	return lr.reader, true
}

// LookupWriter implements receiver.Endpoints.
func (p *Participant) LookupWriter(id rtpstypes.EntityId) (receiver.WriterSink, bool) {
	switch id {
	case rtpstypes.EntityIdSEDPPubWriter:
		return p.sedp.Publications.Writer, true
	case rtpstypes.EntityIdSEDPSubWriter:
		return p.sedp.Subscriptions.Writer, true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	lw, ok := p.writers[id]
	if !ok {
		return nil, false
	}
	return lw.writer, true
}

var _ receiver.Endpoints = (*Participant)(nil)

// allocEntityId reserves the next user EntityId of kind, under p.mu.
func (p *Participant) allocEntityId(kind rtpstypes.EntityKind) rtpstypes.EntityId {
	p.nextKey++
	k := p.nextKey
	return rtpstypes.EntityId{Key: [3]byte{byte(k >> 16), byte(k >> 8), byte(k)}, Kind: kind}
}

// WriterOption overrides a field of the rtpswriter.Config CreateDataWriter
// builds from q that qos.EndpointQos itself doesn't carry (History,
// ResourceLimits: they don't participate in offer/request compatibility,
// see qos.EndpointQos's doc comment).
type WriterOption func(*rtpswriter.Config)

// WithWriterHistory overrides the writer's retention from the default of
// KeepLast depth 1.
func WithWriterHistory(h qos.History) WriterOption {
	return func(c *rtpswriter.Config) { c.History = h }
}

// WithWriterResourceLimits bounds the writer's cache independently of its
// History kind.
func WithWriterResourceLimits(l qos.ResourceLimits) WriterOption {
	return func(c *rtpswriter.Config) { c.Limits = l }
}

// ReaderOption is WriterOption's reader-side counterpart.
type ReaderOption func(*rtpsreader.Config)

// WithReaderHistory overrides the reader's retention from the default of
// KeepLast depth 1.
func WithReaderHistory(h qos.History) ReaderOption {
	return func(c *rtpsreader.Config) { c.History = h }
}

// WithReaderResourceLimits bounds the reader's cache independently of its
// History kind.
func WithReaderResourceLimits(l qos.ResourceLimits) ReaderOption {
	return func(c *rtpsreader.Config) { c.Limits = l }
}

// WithReaderFragmentMaxAge overrides how long a partially-reassembled
// sample is retained before being dropped as incomplete.
func WithReaderFragmentMaxAge(d time.Duration) ReaderOption {
	return func(c *rtpsreader.Config) { c.FragmentMaxAge = d }
}

// CreateDataWriter creates a local DataWriter publishing topic/typeName
// under q, registers it for dispatch, and announces it over SEDP.
func (p *Participant) CreateDataWriter(topic, typeName string, q qos.EndpointQos, hasKey bool, opts ...WriterOption) (*rtpswriter.StatefulWriter, rtpstypes.Guid, error) {
	kind := rtpstypes.EntityKindWriterNoKey
	if hasKey {
		kind = rtpstypes.EntityKindWriterWithKey
	}

	p.mu.Lock()
	id := p.allocEntityId(kind)
	guid := rtpstypes.Guid{Prefix: p.guidPrefix, EntityId: id}
	cfg := rtpswriter.Config{
		Guid:         guid,
		Reliability:  q.Reliability,
		History:      qos.History{Kind: qos.KeepLast, Depth: 1},
		Order:        q.DestinationOrder,
		FragmentSize: p.cfg.FragmentSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	w := rtpswriter.New(p.log, cfg, p.transport)
	p.writers[id] = &localWriter{guid: guid, topic: topic, typeName: typeName, qos: q, writer: w}
	p.mu.Unlock()

	pub := discovery.PublicationBuiltinTopicData{
		EndpointBuiltinTopicData: discovery.EndpointBuiltinTopicData{
			Guid: guid, ParticipantGuid: p.guidPrefix, TopicName: topic, TypeName: typeName, Qos: q,
		},
		UnicastLocators: rtpstypes.LocatorList{p.transport.DefaultUnicastLocator()},
	}
	if err := p.sedp.AnnouncePublication(pub); err != nil {
		p.mu.Lock()
		delete(p.writers, id)
		p.mu.Unlock()
		return nil, rtpstypes.Guid{}, errors.Wrap(err, "participant: announcing new data writer")
	}
	p.sedp.Publications.Writer.SendPass(context.Background())

	p.log.WithField("topic", topic).WithField("guid", guid).Info("participant: created data writer")
	return w, guid, nil
}

// CreateDataReader creates a local DataReader subscribing to topic/typeName
// under q, registers it for dispatch, and announces it over SEDP.
func (p *Participant) CreateDataReader(topic, typeName string, q qos.EndpointQos, hasKey bool, listener rtpsreader.Listener, opts ...ReaderOption) (*rtpsreader.StatefulReader, rtpstypes.Guid, error) {
	kind := rtpstypes.EntityKindReaderNoKey
	if hasKey {
		kind = rtpstypes.EntityKindReaderWithKey
	}

	p.mu.Lock()
	id := p.allocEntityId(kind)
	guid := rtpstypes.Guid{Prefix: p.guidPrefix, EntityId: id}
	cfg := rtpsreader.Config{
		Guid:         guid,
		Reliability:  q.Reliability,
		History:      qos.History{Kind: qos.KeepLast, Depth: 1},
		Order:        q.DestinationOrder,
		FragmentSize: p.cfg.FragmentSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := rtpsreader.New(p.log, cfg, p.transport, listener)
	p.readers[id] = &localReader{guid: guid, topic: topic, typeName: typeName, qos: q, reader: r}
	p.mu.Unlock()

	sub := discovery.SubscriptionBuiltinTopicData{
		EndpointBuiltinTopicData: discovery.EndpointBuiltinTopicData{
			Guid: guid, ParticipantGuid: p.guidPrefix, TopicName: topic, TypeName: typeName, Qos: q,
		},
		UnicastLocators: rtpstypes.LocatorList{p.transport.DefaultUnicastLocator()},
	}
	if err := p.sedp.AnnounceSubscription(sub); err != nil {
		p.mu.Lock()
		delete(p.readers, id)
		p.mu.Unlock()
		return nil, rtpstypes.Guid{}, errors.Wrap(err, "participant: announcing new data reader")
	}
	p.sedp.Subscriptions.Writer.SendPass(context.Background())

	p.log.WithField("topic", topic).WithField("guid", guid).Info("participant: created data reader")
	return r, guid, nil
}

// DeleteDataWriter removes a local DataWriter previously returned by
// CreateDataWriter and disposes it over SEDP.
func (p *Participant) DeleteDataWriter(guid rtpstypes.Guid) error {
	p.mu.Lock()
	_, ok := p.writers[guid.EntityId]
	delete(p.writers, guid.EntityId)
	for k := range p.matchedW {
		if k.local == guid.EntityId {
			delete(p.matchedW, k)
		}
	}
	p.mu.Unlock()
	if !ok {
		return ddserror.New(ddserror.AlreadyDeleted, "participant: data writer already deleted")
	}
	return p.sedp.DisposePublication(guid)
}

// DeleteDataReader removes a local DataReader previously returned by
// CreateDataReader and disposes it over SEDP.
func (p *Participant) DeleteDataReader(guid rtpstypes.Guid) error {
	p.mu.Lock()
	_, ok := p.readers[guid.EntityId]
	delete(p.readers, guid.EntityId)
	for k := range p.matchedR {
		if k.local == guid.EntityId {
			delete(p.matchedR, k)
		}
	}
	p.mu.Unlock()
	if !ok {
		return ddserror.New(ddserror.AlreadyDeleted, "participant: data reader already deleted")
	}
	return p.sedp.DisposeSubscription(guid)
}

// matchEndpoints re-scans every local writer/reader against the current
// SEDP-discovered remote endpoint set, registering newly-compatible pairs
// and unregistering pairs that are no longer matched (spec.md §4.6). It
// runs as the discovery.MatchObserver callback, coalesced by a
// HoldoffNotifier so a burst of discovery samples triggers one scan.
func (p *Participant) matchEndpoints() {
	p.matchBuiltinSEDP(p.spdp.Remotes())

	p.mu.Lock()
	writers := make([]*localWriter, 0, len(p.writers))
	for _, lw := range p.writers {
		writers = append(writers, lw)
	}
	readers := make([]*localReader, 0, len(p.readers))
	for _, lr := range p.readers {
		readers = append(readers, lr)
	}
	p.mu.Unlock()

	remoteSubs := p.sedp.RemoteSubscriptions()
	remotePubs := p.sedp.RemotePublications()

	p.matchWriters(writers, remoteSubs)
	p.matchReaders(readers, remotePubs)
}

// matchBuiltinSEDP matches this participant's own built-in SEDP
// publication/subscription writer and reader pairs against every SPDP-
// discovered remote participant's well-known SEDP endpoints, using its
// announced metatraffic locators. Without this, user endpoint discovery
// would never actually flow between participants: SEDP data only reaches a
// remote once its built-in reader/writer is a matched proxy, and nothing
// else in the system establishes that match.
func (p *Participant) matchBuiltinSEDP(remotes []discovery.ParticipantProxy) {
	present := make(map[string]struct{}, len(remotes))
	for _, r := range remotes {
		present[r.GuidPrefix.String()] = struct{}{}
	}

	p.mu.Lock()
	var stale []rtpstypes.GuidPrefix
	for key, prefix := range p.matchedSEDP {
		if _, ok := present[key]; !ok {
			delete(p.matchedSEDP, key)
			stale = append(stale, prefix)
		}
	}
	p.mu.Unlock()
	for _, prefix := range stale {
		p.unmatchBuiltinSEDP(prefix)
	}

	for _, r := range remotes {
		key := r.GuidPrefix.String()
		p.mu.Lock()
		_, already := p.matchedSEDP[key]
		if !already {
			p.matchedSEDP[key] = r.GuidPrefix
		}
		p.mu.Unlock()
		if already {
			continue
		}

		unicast, multicast := r.MetatrafficUnicast, r.MetatrafficMulticast
		p.sedp.Publications.Writer.MatchedReaderAdd(rtpstypes.Guid{Prefix: r.GuidPrefix, EntityId: rtpstypes.EntityIdSEDPPubReader}, true, unicast, multicast)
		p.sedp.Publications.Reader.MatchedWriterAdd(rtpstypes.Guid{Prefix: r.GuidPrefix, EntityId: rtpstypes.EntityIdSEDPPubWriter}, true, unicast, multicast)
		p.sedp.Subscriptions.Writer.MatchedReaderAdd(rtpstypes.Guid{Prefix: r.GuidPrefix, EntityId: rtpstypes.EntityIdSEDPSubReader}, true, unicast, multicast)
		p.sedp.Subscriptions.Reader.MatchedWriterAdd(rtpstypes.Guid{Prefix: r.GuidPrefix, EntityId: rtpstypes.EntityIdSEDPSubWriter}, true, unicast, multicast)
	}
}

func (p *Participant) unmatchBuiltinSEDP(prefix rtpstypes.GuidPrefix) {
	p.sedp.Publications.Writer.MatchedReaderRemove(rtpstypes.Guid{Prefix: prefix, EntityId: rtpstypes.EntityIdSEDPPubReader})
	p.sedp.Publications.Reader.MatchedWriterRemove(rtpstypes.Guid{Prefix: prefix, EntityId: rtpstypes.EntityIdSEDPPubWriter})
	p.sedp.Subscriptions.Writer.MatchedReaderRemove(rtpstypes.Guid{Prefix: prefix, EntityId: rtpstypes.EntityIdSEDPSubReader})
	p.sedp.Subscriptions.Reader.MatchedWriterRemove(rtpstypes.Guid{Prefix: prefix, EntityId: rtpstypes.EntityIdSEDPSubWriter})
}

func (p *Participant) matchWriters(writers []*localWriter, remoteSubs []discovery.SubscriptionBuiltinTopicData) {
	present := make(map[rtpstypes.Guid]discovery.SubscriptionBuiltinTopicData, len(remoteSubs))
	for _, sub := range remoteSubs {
		present[sub.Guid] = sub
	}

	for _, lw := range writers {
		pub := discovery.PublicationBuiltinTopicData{EndpointBuiltinTopicData: discovery.EndpointBuiltinTopicData{
			Guid: lw.guid, TopicName: lw.topic, TypeName: lw.typeName, Qos: lw.qos,
		}}
		for _, sub := range remoteSubs {
			key := matchKey{local: lw.guid.EntityId, remote: sub.Guid}
			res := discovery.MatchPublicationToSubscription(pub, sub)
			p.mu.Lock()
			_, already := p.matchedW[key]
			if res.Matched {
				p.matchedW[key] = struct{}{}
			} else {
				delete(p.matchedW, key)
			}
			p.mu.Unlock()

			switch {
			case res.Matched && !already:
				lw.writer.MatchedReaderAdd(sub.Guid, sub.Qos.Reliability.Kind == qos.Reliable, sub.UnicastLocators, sub.MulticastLocators)
				if p.metrics != nil {
					p.metrics.IncDiscoveryMatch("writer-to-reader")
				}
			case !res.Matched && already:
				lw.writer.MatchedReaderRemove(sub.Guid)
			}
		}

		p.mu.Lock()
		for key := range p.matchedW {
			if key.local != lw.guid.EntityId {
				continue
			}
			if _, ok := present[key.remote]; !ok {
				delete(p.matchedW, key)
				lw.writer.MatchedReaderRemove(key.remote)
			}
		}
		p.mu.Unlock()
	}
}

func (p *Participant) matchReaders(readers []*localReader, remotePubs []discovery.PublicationBuiltinTopicData) {
	present := make(map[rtpstypes.Guid]discovery.PublicationBuiltinTopicData, len(remotePubs))
	for _, pub := range remotePubs {
		present[pub.Guid] = pub
	}

	for _, lr := range readers {
		sub := discovery.SubscriptionBuiltinTopicData{EndpointBuiltinTopicData: discovery.EndpointBuiltinTopicData{
			Guid: lr.guid, TopicName: lr.topic, TypeName: lr.typeName, Qos: lr.qos,
		}}
		for _, pub := range remotePubs {
			key := matchKey{local: lr.guid.EntityId, remote: pub.Guid}
			res := discovery.MatchPublicationToSubscription(pub, sub)
			p.mu.Lock()
			_, already := p.matchedR[key]
			if res.Matched {
				p.matchedR[key] = struct{}{}
			} else {
				delete(p.matchedR, key)
			}
			p.mu.Unlock()

			switch {
			case res.Matched && !already:
				lr.reader.MatchedWriterAdd(pub.Guid, pub.Qos.Reliability.Kind == qos.Reliable, pub.UnicastLocators, pub.MulticastLocators)
				if p.metrics != nil {
					p.metrics.IncDiscoveryMatch("reader-to-writer")
				}
			case !res.Matched && already:
				lr.reader.MatchedWriterRemove(pub.Guid)
			}
		}

		p.mu.Lock()
		for key := range p.matchedR {
			if key.local != lr.guid.EntityId {
				continue
			}
			if _, ok := present[key.remote]; !ok {
				delete(p.matchedR, key)
				lr.reader.MatchedWriterRemove(key.remote)
			}
		}
		p.mu.Unlock()
	}
}

// Run drives the participant's background work under spawner until ctx is
// done or any of its loops returns an error: the receive loop, SPDP
// announce and lease-purge ticks, the reliable-writer heartbeat/send pass,
// and reader fragment-reassembly expiry.
func (p *Participant) Run(ctx context.Context, spawner actor.Spawner) {
	spawner.Add(func(stop <-chan struct{}) error {
		return p.runReceiveLoop(ctx, stop)
	})
	spawner.Add(func(stop <-chan struct{}) error {
		p.runAnnounceLoop(ctx, stop)
		return nil
	})
	spawner.Add(func(stop <-chan struct{}) error {
		p.runPurgeLoop(ctx, stop)
		return nil
	})
	spawner.Add(func(stop <-chan struct{}) error {
		p.runHeartbeatLoop(ctx, stop)
		return nil
	})
	spawner.Add(func(stop <-chan struct{}) error {
		p.runFragmentExpiryLoop(ctx, stop)
		return nil
	})
}

func (p *Participant) runReceiveLoop(ctx context.Context, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		dg, err := p.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.WithError(err).Warn("participant: receive failed")
			continue
		}
		p.receiver.Process(dg.From, dg.Payload)
	}
}

func (p *Participant) runAnnounceLoop(ctx context.Context, stop <-chan struct{}) {
	if err := p.spdp.Announce(ctx); err != nil {
		p.log.WithError(err).Warn("participant: initial spdp announce failed")
	}
	for {
		select {
		case <-stop:
			return
		case <-p.clock.After(p.cfg.ParticipantAnnouncementInterval):
			if err := p.spdp.Announce(ctx); err != nil {
				p.log.WithError(err).Warn("participant: spdp announce failed")
			}
		}
	}
}

func (p *Participant) runPurgeLoop(ctx context.Context, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-p.clock.After(p.cfg.LeaseDuration / 2):
			p.spdp.PurgeExpired(p.clock.Now())
		}
	}
}

func (p *Participant) runHeartbeatLoop(ctx context.Context, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-p.clock.After(p.cfg.HeartbeatPeriod):
			p.sedp.Publications.Writer.SendPass(ctx)
			p.sedp.Publications.Writer.SendHeartbeat(ctx)
			p.sedp.Subscriptions.Writer.SendPass(ctx)
			p.sedp.Subscriptions.Writer.SendHeartbeat(ctx)

			p.mu.Lock()
			writers := make([]*rtpswriter.StatefulWriter, 0, len(p.writers))
			for _, lw := range p.writers {
				writers = append(writers, lw.writer)
			}
			p.mu.Unlock()
			for _, w := range writers {
				w.SendPass(ctx)
				w.SendHeartbeat(ctx)
			}
		}
	}
}

func (p *Participant) runFragmentExpiryLoop(ctx context.Context, stop <-chan struct{}) {
	const sweepInterval = 5
	for {
		select {
		case <-stop:
			return
		case <-p.clock.After(p.cfg.HeartbeatPeriod * sweepInterval):
			now := p.clock.Now()
			p.sedp.Publications.Reader.ExpireStaleFragments(now)
			p.sedp.Subscriptions.Reader.ExpireStaleFragments(now)

			p.mu.Lock()
			readers := make([]*rtpsreader.StatefulReader, 0, len(p.readers))
			for _, lr := range p.readers {
				readers = append(readers, lr.reader)
			}
			p.mu.Unlock()
			for _, r := range readers {
				r.ExpireStaleFragments(now)
			}
		}
	}
}

// Close releases the participant's transport.
func (p *Participant) Close() error {
	return p.transport.Close()
}
