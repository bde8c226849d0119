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

import "github.com/projectrtps/rtps/internal/actor"

// conditionMail is the closed set of operations a StatusCondition's actor
// loop understands, mirroring the original implementation's
// StatusConditionMail variants.
type conditionMail interface{ applyTo(*conditionState) }

type getEnabledStatusesMail struct{ reply actor.Reply[[]StatusKind] }

func (m getEnabledStatusesMail) applyTo(s *conditionState) {
	m.reply.Send(append([]StatusKind(nil), s.enabled...))
}

type setEnabledStatusesMail struct{ mask []StatusKind }

func (m setEnabledStatusesMail) applyTo(s *conditionState) {
	s.enabled = append([]StatusKind(nil), m.mask...)
	s.notifyChanged()
}

type getTriggerValueMail struct{ reply actor.Reply[bool] }

func (m getTriggerValueMail) applyTo(s *conditionState) {
	m.reply.Send(s.triggerValue())
}

type addStateMail struct{ state StatusKind }

func (m addStateMail) applyTo(s *conditionState) {
	if containsStatus(s.changes, m.state) {
		return
	}
	s.changes = append(s.changes, m.state)
	s.notifyChanged()
}

type removeStateMail struct{ state StatusKind }

func (m removeStateMail) applyTo(s *conditionState) {
	for i, c := range s.changes {
		if c == m.state {
			s.changes = append(s.changes[:i], s.changes[i+1:]...)
			s.notifyChanged()
			return
		}
	}
}

type subscribeMail struct{ reply actor.Reply[<-chan struct{}] }

func (m subscribeMail) applyTo(s *conditionState) {
	m.reply.Send(s.changed)
}

// conditionState is the actor-owned state behind a StatusCondition: never
// touched outside the run loop goroutine.
type conditionState struct {
	enabled []StatusKind
	changes []StatusKind
	changed chan struct{}
}

func newConditionState() *conditionState {
	return &conditionState{
		enabled: DefaultEnabledStatuses(),
		changed: make(chan struct{}),
	}
}

func (s *conditionState) triggerValue() bool {
	for _, c := range s.changes {
		if containsStatus(s.enabled, c) {
			return true
		}
	}
	return false
}

// notifyChanged wakes every current subscriber by closing the channel
// Changed handed out, then installs a fresh one for the next wait.
func (s *conditionState) notifyChanged() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// StatusCondition is a specific Condition associated with an entity, whose
// trigger value depends on the entity's communication status filtered by
// its enabled-statuses mask. It runs as its own actor: every accessor is a
// mailbox round trip, so concurrent readers and the actor's own
// AddCommunicationState calls never race.
type StatusCondition struct {
	mailbox *actor.Mailbox[conditionMail]
}

// NewStatusCondition starts a StatusCondition's run loop under spawner.
func NewStatusCondition(spawner actor.Spawner) *StatusCondition {
	c := &StatusCondition{mailbox: actor.NewMailbox[conditionMail]()}
	spawner.Add(c.run)
	return c
}

func (c *StatusCondition) run(stop <-chan struct{}) error {
	state := newConditionState()
	for {
		select {
		case mail, ok := <-c.mailbox.Recv():
			if !ok {
				return nil
			}
			mail.applyTo(state)
		case <-stop:
			return nil
		}
	}
}

func (c *StatusCondition) send(mail conditionMail) {
	c.mailbox.Send(mail, nil)
}

// GetEnabledStatuses returns the statuses currently taken into account when
// computing TriggerValue.
func (c *StatusCondition) GetEnabledStatuses() []StatusKind {
	reply := actor.NewReply[[]StatusKind]()
	c.send(getEnabledStatusesMail{reply: reply})
	v, _ := reply.Wait()
	return v
}

// SetEnabledStatuses narrows or widens the mask used by TriggerValue. Any
// WaitSet this condition is attached to is potentially woken by this call.
func (c *StatusCondition) SetEnabledStatuses(mask []StatusKind) {
	c.send(setEnabledStatusesMail{mask: mask})
}

// TriggerValue implements Condition.
func (c *StatusCondition) TriggerValue() (bool, error) {
	reply := actor.NewReply[bool]()
	c.send(getTriggerValueMail{reply: reply})
	return reply.Wait()
}

// Changed implements Condition: the returned channel closes the next time
// this condition's trigger value could have changed. Callers must call
// Changed again after it fires to keep observing future changes.
func (c *StatusCondition) Changed() <-chan struct{} {
	reply := actor.NewReply[<-chan struct{}]()
	c.send(subscribeMail{reply: reply})
	ch, _ := reply.Wait()
	return ch
}

// AddCommunicationState records that state occurred on the owning entity,
// called by that entity's listener actor rather than by user code.
func (c *StatusCondition) AddCommunicationState(state StatusKind) {
	c.send(addStateMail{state: state})
}

// RemoveCommunicationState clears a previously-recorded state, e.g. once a
// listener has consumed it.
func (c *StatusCondition) RemoveCommunicationState(state StatusKind) {
	c.send(removeStateMail{state: state})
}

var _ Condition = (*StatusCondition)(nil)
