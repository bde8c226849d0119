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

// Package sedp implements the Simple Endpoint Discovery Protocol of
// spec.md §4.6: reliable, stateful exchange of Publication/Subscription
// built-in topic data over the well-known SEDP endpoints, feeding
// internal/discovery's matching rules.
package sedp

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/discovery"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/paramlist"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/rtpsreader"
	"github.com/projectrtps/rtps/internal/rtpstypes"
	"github.com/projectrtps/rtps/internal/rtpswriter"
)

// EndpointSet bundles the reliable writer/reader pair SEDP runs one of
// (publications, subscriptions, or topics) over its well-known entity ids.
type EndpointSet struct {
	Writer *rtpswriter.StatefulWriter
	Reader *rtpsreader.StatefulReader
}

// PubSub runs SEDP's publication and subscription exchange for one local
// participant, maintaining the discovered remote endpoint set and
// notifying observer whenever it changes.
type PubSub struct {
	log           logrus.FieldLogger
	localGuid     rtpstypes.GuidPrefix
	Publications  EndpointSet
	Subscriptions EndpointSet
	observer      discovery.MatchObserver

	remotePubs map[keyhash.Handle]discovery.PublicationBuiltinTopicData
	remoteSubs map[keyhash.Handle]discovery.SubscriptionBuiltinTopicData
}

// New builds a PubSub instance driven by the given reliable SEDP publication
// and subscription endpoint pairs.
func New(log logrus.FieldLogger, localGuid rtpstypes.GuidPrefix, pubs, subs EndpointSet, observer discovery.MatchObserver) *PubSub {
	return &PubSub{
		log:           log,
		localGuid:     localGuid,
		Publications:  pubs,
		Subscriptions: subs,
		observer:      observer,
		remotePubs:    make(map[keyhash.Handle]discovery.PublicationBuiltinTopicData),
		remoteSubs:    make(map[keyhash.Handle]discovery.SubscriptionBuiltinTopicData),
	}
}

// sedpListener adapts StatefulReader sample delivery into a PubSub update.
type sedpListener struct {
	rtpsreader.NopListener
	onData func(history.CacheChange)
}

func (l sedpListener) OnDataAvailable(cc history.CacheChange) {
	if l.onData != nil {
		l.onData(cc)
	}
}

// PublicationListener returns the rtpsreader.Listener to attach to the
// SEDP publication reader.
func (p *PubSub) PublicationListener() rtpsreader.Listener {
	return sedpListener{onData: p.handlePublicationSample}
}

// SubscriptionListener returns the rtpsreader.Listener to attach to the
// SEDP subscription reader.
func (p *PubSub) SubscriptionListener() rtpsreader.Listener {
	return sedpListener{onData: p.handleSubscriptionSample}
}

func (p *PubSub) handlePublicationSample(cc history.CacheChange) {
	if cc.Kind != history.Alive {
		delete(p.remotePubs, cc.InstanceHandle)
		p.notify()
		return
	}
	data, err := decodeEndpointData(cc.Data)
	if err != nil {
		p.log.WithError(err).Debug("sedp: malformed PublicationBuiltinTopicData")
		return
	}
	pub := discovery.PublicationBuiltinTopicData{EndpointBuiltinTopicData: data.EndpointBuiltinTopicData, UnicastLocators: data.UnicastLocators, MulticastLocators: data.MulticastLocators}
	p.remotePubs[cc.InstanceHandle] = pub
	p.notify()
}

func (p *PubSub) handleSubscriptionSample(cc history.CacheChange) {
	if cc.Kind != history.Alive {
		delete(p.remoteSubs, cc.InstanceHandle)
		p.notify()
		return
	}
	data, err := decodeEndpointData(cc.Data)
	if err != nil {
		p.log.WithError(err).Debug("sedp: malformed SubscriptionBuiltinTopicData")
		return
	}
	sub := discovery.SubscriptionBuiltinTopicData{EndpointBuiltinTopicData: data.EndpointBuiltinTopicData, UnicastLocators: data.UnicastLocators, MulticastLocators: data.MulticastLocators}
	p.remoteSubs[cc.InstanceHandle] = sub
	p.notify()
}

// LocalGuidPrefix returns the participant prefix this PubSub announces
// local endpoints under.
func (p *PubSub) LocalGuidPrefix() rtpstypes.GuidPrefix { return p.localGuid }

func (p *PubSub) notify() {
	if p.observer != nil {
		p.observer.Refresh()
	}
}

// RemotePublications returns a snapshot of every discovered remote
// publication.
func (p *PubSub) RemotePublications() []discovery.PublicationBuiltinTopicData {
	out := make([]discovery.PublicationBuiltinTopicData, 0, len(p.remotePubs))
	for _, v := range p.remotePubs {
		out = append(out, v)
	}
	return out
}

// RemoteSubscriptions returns a snapshot of every discovered remote
// subscription.
func (p *PubSub) RemoteSubscriptions() []discovery.SubscriptionBuiltinTopicData {
	out := make([]discovery.SubscriptionBuiltinTopicData, 0, len(p.remoteSubs))
	for _, v := range p.remoteSubs {
		out = append(out, v)
	}
	return out
}

// AnnouncePublication publishes a local DataWriter's built-in topic data
// over the SEDP publication writer.
func (p *PubSub) AnnouncePublication(data discovery.PublicationBuiltinTopicData) error {
	body := encodeEndpointData(endpointWire{EndpointBuiltinTopicData: data.EndpointBuiltinTopicData, UnicastLocators: data.UnicastLocators, MulticastLocators: data.MulticastLocators})
	_, err := p.Publications.Writer.NewChange(history.Alive, instanceHandleFor(data.Guid), body, time.Now())
	return err
}

// AnnounceSubscription publishes a local DataReader's built-in topic data
// over the SEDP subscription writer.
func (p *PubSub) AnnounceSubscription(data discovery.SubscriptionBuiltinTopicData) error {
	body := encodeEndpointData(endpointWire{EndpointBuiltinTopicData: data.EndpointBuiltinTopicData, UnicastLocators: data.UnicastLocators, MulticastLocators: data.MulticastLocators})
	_, err := p.Subscriptions.Writer.NewChange(history.Alive, instanceHandleFor(data.Guid), body, time.Now())
	return err
}

// DisposePublication announces that guid's DataWriter no longer exists, so
// matched remote subscriptions drop it from their discovered set.
func (p *PubSub) DisposePublication(guid rtpstypes.Guid) error {
	_, err := p.Publications.Writer.NewChange(history.NotAliveDisposed, instanceHandleFor(guid), nil, time.Now())
	return err
}

// DisposeSubscription announces that guid's DataReader no longer exists.
func (p *PubSub) DisposeSubscription(guid rtpstypes.Guid) error {
	_, err := p.Subscriptions.Writer.NewChange(history.NotAliveDisposed, instanceHandleFor(guid), nil, time.Now())
	return err
}

func instanceHandleFor(g rtpstypes.Guid) keyhash.Handle {
	return keyhash.Compute(func(w *cdr.Writer) {
		w.Raw(g.Prefix[:])
		w.Raw(g.EntityId.Key[:])
		w.WriteUint8(uint8(g.EntityId.Kind))
	})
}

type endpointWire struct {
	discovery.EndpointBuiltinTopicData
	UnicastLocators   rtpstypes.LocatorList
	MulticastLocators rtpstypes.LocatorList
}

func encodeEndpointData(e endpointWire) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	var list paramlist.List
	list = append(list, paramlist.Parameter{PID: paramlist.PIDEndpointGuid, Value: paramlist.EncodeGuid(e.Guid)})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDTopicName, Value: encodeString(e.TopicName)})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDTypeName, Value: encodeString(e.TypeName)})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDReliability, Value: encodeReliability(e.Qos.Reliability)})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDDurability, Value: []byte{byte(e.Qos.Durability.Kind)}})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDDeadline, Value: encodeInt64(e.Qos.Deadline.Period)})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDLiveliness, Value: encodeLiveliness(e.Qos.Liveliness)})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDOwnership, Value: encodeOwnership(e.Qos.Ownership)})
	for _, name := range e.Qos.Partition.Names {
		list = append(list, paramlist.Parameter{PID: paramlist.PIDPartition, Value: encodeString(name)})
	}
	for _, l := range e.UnicastLocators {
		list = append(list, paramlist.Parameter{PID: paramlist.PIDUnicastLocator, Value: paramlist.EncodeLocator(cdr.XCDR1, cdr.LittleEndian, l)})
	}
	for _, l := range e.MulticastLocators {
		list = append(list, paramlist.Parameter{PID: paramlist.PIDMulticastLocator, Value: paramlist.EncodeLocator(cdr.XCDR1, cdr.LittleEndian, l)})
	}
	_ = paramlist.Write(w, list)
	return w.Bytes()
}

func decodeEndpointData(payload []byte) (endpointWire, error) {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, payload)
	list, err := paramlist.Read(r)
	if err != nil {
		return endpointWire{}, err
	}

	var e endpointWire
	if v, ok := list.Get(paramlist.PIDEndpointGuid); ok {
		if g, err := paramlist.DecodeGuid(v.Value); err == nil {
			e.Guid = g
		}
	}
	if v, ok := list.Get(paramlist.PIDTopicName); ok {
		e.TopicName = decodeString(v.Value)
	}
	if v, ok := list.Get(paramlist.PIDTypeName); ok {
		e.TypeName = decodeString(v.Value)
	}
	if v, ok := list.Get(paramlist.PIDReliability); ok {
		e.Qos.Reliability = decodeReliability(v.Value)
	}
	if v, ok := list.Get(paramlist.PIDDurability); ok && len(v.Value) >= 1 {
		e.Qos.Durability.Kind = qos.DurabilityKind(v.Value[0])
	}
	if v, ok := list.Get(paramlist.PIDDeadline); ok {
		e.Qos.Deadline.Period = decodeInt64(v.Value)
	}
	if v, ok := list.Get(paramlist.PIDLiveliness); ok {
		e.Qos.Liveliness = decodeLiveliness(v.Value)
	}
	if v, ok := list.Get(paramlist.PIDOwnership); ok {
		e.Qos.Ownership = decodeOwnership(v.Value)
	}
	for _, v := range list.GetAll(paramlist.PIDPartition) {
		e.Qos.Partition.Names = append(e.Qos.Partition.Names, decodeString(v.Value))
	}
	for _, v := range list.GetAll(paramlist.PIDUnicastLocator) {
		if l, err := paramlist.DecodeLocator(cdr.XCDR1, cdr.LittleEndian, v.Value); err == nil {
			e.UnicastLocators = append(e.UnicastLocators, l)
		}
	}
	for _, v := range list.GetAll(paramlist.PIDMulticastLocator) {
		if l, err := paramlist.DecodeLocator(cdr.XCDR1, cdr.LittleEndian, v.Value); err == nil {
			e.MulticastLocators = append(e.MulticastLocators, l)
		}
	}
	return e, nil
}

func encodeReliability(r qos.Reliability) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	w.WriteInt32(int32(r.Kind))
	w.WriteInt64(r.MaxBlockingTime)
	return w.Bytes()
}

func decodeReliability(b []byte) qos.Reliability {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, b)
	kind, _ := r.ReadInt32()
	maxBlocking, _ := r.ReadInt64()
	return qos.Reliability{Kind: qos.ReliabilityKind(kind), MaxBlockingTime: maxBlocking}
}

func encodeLiveliness(l qos.Liveliness) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	w.WriteInt32(int32(l.Kind))
	w.WriteInt64(l.LeaseDuration)
	return w.Bytes()
}

func decodeLiveliness(b []byte) qos.Liveliness {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, b)
	kind, _ := r.ReadInt32()
	lease, _ := r.ReadInt64()
	return qos.Liveliness{Kind: qos.LivelinessKind(kind), LeaseDuration: lease}
}

func encodeOwnership(o qos.Ownership) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	w.WriteInt32(int32(o.Kind))
	w.WriteInt32(o.Strength)
	return w.Bytes()
}

func decodeOwnership(b []byte) qos.Ownership {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, b)
	kind, _ := r.ReadInt32()
	strength, _ := r.ReadInt32()
	return qos.Ownership{Kind: qos.OwnershipKind(kind), Strength: strength}
}

func encodeInt64(v int64) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	w.WriteInt64(v)
	return w.Bytes()
}

func decodeInt64(b []byte) int64 {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, b)
	v, _ := r.ReadInt64()
	return v
}

func encodeString(s string) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	w.WriteString(s)
	return w.Bytes()
}

func decodeString(b []byte) string {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, b)
	s, _ := r.ReadString()
	return s
}
