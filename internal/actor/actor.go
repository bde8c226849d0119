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

// Package actor provides the single-threaded-executor-per-entity runtime of
// spec.md §5: every participant/writer/reader/discovery endpoint is driven
// by one goroutine reading from a bounded mailbox, never sharing mutable
// state with any other actor directly.
package actor

import "github.com/projectrtps/rtps/internal/ddserror"

// DefaultMailboxCapacity is the bounded MPSC mailbox size of spec.md §5.
const DefaultMailboxCapacity = 64

// Mailbox is a bounded multi-producer single-consumer channel of mail. A
// Mailbox's zero value is not usable; construct with NewMailbox.
type Mailbox[T any] struct {
	ch chan T
}

// NewMailbox returns a Mailbox with DefaultMailboxCapacity capacity.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, DefaultMailboxCapacity)}
}

// Send enqueues mail, blocking if the mailbox is full (cooperative
// back-pressure), or returns false immediately if stop fires first.
func (m *Mailbox[T]) Send(mail T, stop <-chan struct{}) bool {
	select {
	case m.ch <- mail:
		return true
	case <-stop:
		return false
	}
}

// Recv returns the channel to range/select over; closing it (via Close) is
// how a single-threaded executor's "park on a condvar" is expressed: a
// blocking channel receive is the park, and a send or close is the wake.
func (m *Mailbox[T]) Recv() <-chan T { return m.ch }

// Close closes the mailbox, causing any pending Recv to drain then see a
// closed channel.
func (m *Mailbox[T]) Close() { close(m.ch) }

// Reply is a one-shot reply channel returned to a mail's sender. If the
// receiving actor is deleted (its goroutine exits) before replying, Wait
// reports ddserror.AlreadyDeleted instead of blocking forever.
type Reply[T any] struct {
	ch chan replyValue[T]
}

type replyValue[T any] struct {
	value T
	err   error
}

// NewReply creates a one-shot reply channel.
func NewReply[T any]() Reply[T] {
	return Reply[T]{ch: make(chan replyValue[T], 1)}
}

// Send delivers value as the reply. Send must be called at most once.
func (r Reply[T]) Send(value T) {
	r.ch <- replyValue[T]{value: value}
}

// SendError delivers an error reply. SendError must be called at most once,
// and not alongside Send.
func (r Reply[T]) SendError(err error) {
	r.ch <- replyValue[T]{err: err}
}

// Wait blocks for the reply, translating a dropped sender (the channel
// closed without a value ever being sent) to ddserror.AlreadyDeleted per
// spec.md §5/§7.
func (r Reply[T]) Wait() (T, error) {
	v, ok := <-r.ch
	if !ok {
		var zero T
		return zero, ddserror.New(ddserror.AlreadyDeleted, "actor was deleted before replying")
	}
	return v.value, v.err
}

// Close closes the reply channel without sending, causing Wait to observe
// AlreadyDeleted. Used by an actor's deferred cleanup when it exits with
// mail still pending a reply.
func (r Reply[T]) Close() { close(r.ch) }

// Spawner starts an actor's run loop under a lifetime-managed goroutine.
// internal/lifecycle.Group implements this.
type Spawner interface {
	Add(fn func(stop <-chan struct{}) error)
}
