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

package facade

import (
	"github.com/projectrtps/rtps/internal/actor"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/rtpsreader"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// EntityListener receives outbound DDS events for one DataReader or
// DataWriter. Implementations are user code; the facade guarantees every
// method is invoked from the listener actor's own goroutine, never from
// inside a reader/writer's state-machine goroutine.
type EntityListener interface {
	OnDataAvailable(change history.CacheChange)
	OnSampleLost(writerGuid rtpstypes.Guid, seq rtpstypes.SequenceNumber)
	OnSampleRejected(writerGuid rtpstypes.Guid, seq rtpstypes.SequenceNumber)
	OnSubscriptionMatched(remote rtpstypes.Guid)
	OnPublicationMatched(remote rtpstypes.Guid)
	OnOfferedIncompatibleQos(reason qos.Incompatibility)
	OnRequestedIncompatibleQos(reason qos.Incompatibility)
}

// NopEntityListener discards every event.
type NopEntityListener struct{}

func (NopEntityListener) OnDataAvailable(history.CacheChange)                       {}
func (NopEntityListener) OnSampleLost(rtpstypes.Guid, rtpstypes.SequenceNumber)     {}
func (NopEntityListener) OnSampleRejected(rtpstypes.Guid, rtpstypes.SequenceNumber) {}
func (NopEntityListener) OnSubscriptionMatched(rtpstypes.Guid)                      {}
func (NopEntityListener) OnPublicationMatched(rtpstypes.Guid)                       {}
func (NopEntityListener) OnOfferedIncompatibleQos(qos.Incompatibility)              {}
func (NopEntityListener) OnRequestedIncompatibleQos(qos.Incompatibility)            {}

var _ EntityListener = NopEntityListener{}

// listenerMail is the typed mail a ListenerActor dispatches, one variant per
// EntityListener method.
type listenerMail interface {
	status() StatusKind
	deliver(EntityListener)
}

type dataAvailableMail struct{ change history.CacheChange }

func (dataAvailableMail) status() StatusKind         { return StatusDataAvailable }
func (m dataAvailableMail) deliver(l EntityListener) { l.OnDataAvailable(m.change) }

type sampleLostMail struct {
	writerGuid rtpstypes.Guid
	seq        rtpstypes.SequenceNumber
}

func (sampleLostMail) status() StatusKind { return StatusSampleLost }
func (m sampleLostMail) deliver(l EntityListener) {
	l.OnSampleLost(m.writerGuid, m.seq)
}

type sampleRejectedMail struct {
	writerGuid rtpstypes.Guid
	seq        rtpstypes.SequenceNumber
}

func (sampleRejectedMail) status() StatusKind { return StatusSampleRejected }
func (m sampleRejectedMail) deliver(l EntityListener) {
	l.OnSampleRejected(m.writerGuid, m.seq)
}

type subscriptionMatchedMail struct{ remote rtpstypes.Guid }

func (subscriptionMatchedMail) status() StatusKind { return StatusSubscriptionMatched }
func (m subscriptionMatchedMail) deliver(l EntityListener) {
	l.OnSubscriptionMatched(m.remote)
}

type publicationMatchedMail struct{ remote rtpstypes.Guid }

func (publicationMatchedMail) status() StatusKind { return StatusPublicationMatched }
func (m publicationMatchedMail) deliver(l EntityListener) {
	l.OnPublicationMatched(m.remote)
}

type offeredIncompatibleQosMail struct{ reason qos.Incompatibility }

func (offeredIncompatibleQosMail) status() StatusKind { return StatusOfferedIncompatibleQos }
func (m offeredIncompatibleQosMail) deliver(l EntityListener) {
	l.OnOfferedIncompatibleQos(m.reason)
}

type requestedIncompatibleQosMail struct{ reason qos.Incompatibility }

func (requestedIncompatibleQosMail) status() StatusKind { return StatusRequestedIncompatibleQos }
func (m requestedIncompatibleQosMail) deliver(l EntityListener) {
	l.OnRequestedIncompatibleQos(m.reason)
}

// ListenerActor owns one EntityListener and dispatches mail to it from its
// own goroutine, updating an attached StatusCondition's communication state
// alongside every dispatch, mirroring how the original implementation's
// listener actors and status condition actor are driven by the same events.
type ListenerActor struct {
	mailbox   *actor.Mailbox[listenerMail]
	listener  EntityListener
	condition *StatusCondition
}

// NewListenerActor starts a ListenerActor's run loop under spawner. listener
// may be nil, in which case events still update condition but are otherwise
// discarded; condition may be nil if the owning entity has none attached
// yet.
func NewListenerActor(spawner actor.Spawner, listener EntityListener, condition *StatusCondition) *ListenerActor {
	if listener == nil {
		listener = NopEntityListener{}
	}
	a := &ListenerActor{
		mailbox:   actor.NewMailbox[listenerMail](),
		listener:  listener,
		condition: condition,
	}
	spawner.Add(a.run)
	return a
}

func (a *ListenerActor) run(stop <-chan struct{}) error {
	for {
		select {
		case mail, ok := <-a.mailbox.Recv():
			if !ok {
				return nil
			}
			if a.condition != nil {
				a.condition.AddCommunicationState(mail.status())
			}
			mail.deliver(a.listener)
		case <-stop:
			return nil
		}
	}
}

var _ rtpsreader.Listener = (*DataReaderListenerAdapter)(nil)

// DataReaderListenerAdapter implements rtpsreader.Listener by forwarding
// every event as mail to a ListenerActor instead of invoking user code
// directly from the StatefulReader's own goroutine.
type DataReaderListenerAdapter struct {
	Actor *ListenerActor
}

func (d DataReaderListenerAdapter) OnDataAvailable(change history.CacheChange) {
	d.Actor.enqueue(dataAvailableMail{change: change})
}

func (d DataReaderListenerAdapter) OnSampleLost(writerGuid rtpstypes.Guid, seq rtpstypes.SequenceNumber) {
	d.Actor.enqueue(sampleLostMail{writerGuid: writerGuid, seq: seq})
}

// enqueue blocks only up to the mailbox's bounded capacity (cooperative
// back-pressure per internal/actor), never calling listener code inline.
func (a *ListenerActor) enqueue(mail listenerMail) {
	a.mailbox.Send(mail, nil)
}

// NotifySubscriptionMatched and the methods below let a DataWriter/
// DataReader's discovery matching code (internal/participant) report
// status-changing events the same way data delivery does, without that code
// depending on rtpsreader.Listener's narrower interface.

func (a *ListenerActor) NotifySubscriptionMatched(remote rtpstypes.Guid) {
	a.enqueue(subscriptionMatchedMail{remote: remote})
}

func (a *ListenerActor) NotifyPublicationMatched(remote rtpstypes.Guid) {
	a.enqueue(publicationMatchedMail{remote: remote})
}

func (a *ListenerActor) NotifyOfferedIncompatibleQos(reason qos.Incompatibility) {
	a.enqueue(offeredIncompatibleQosMail{reason: reason})
}

func (a *ListenerActor) NotifyRequestedIncompatibleQos(reason qos.Incompatibility) {
	a.enqueue(requestedIncompatibleQosMail{reason: reason})
}

func (a *ListenerActor) NotifySampleRejected(writerGuid rtpstypes.Guid, seq rtpstypes.SequenceNumber) {
	a.enqueue(sampleRejectedMail{writerGuid: writerGuid, seq: seq})
}
