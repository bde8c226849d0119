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

// Package featuretests_test runs spec.md §8's end-to-end scenarios against
// an in-memory fake network: two or more Participants wired together the
// same way internal/participant's own discovery test does, but driven
// through Ginkgo specs rather than table-driven testify, since each
// scenario is a narrative rather than an input/output pair.
package featuretests_test

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/projectrtps/rtps/internal/actor"
	"github.com/projectrtps/rtps/internal/config"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/participant"
	"github.com/projectrtps/rtps/internal/rtpstypes"
	"github.com/projectrtps/rtps/internal/transport"
)

func newLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func localhost() net.IP { return net.IPv4(127, 0, 0, 1) }

// epoch is the fixed starting point every testNode's FakeClock is seeded
// with; Date.Now()-style real time has no bearing on these scenarios.
var epoch = time.Unix(0, 0)

// fakeNetwork is an in-memory UDP stand-in, extended from
// internal/participant's own test network with per-locator isolation: a
// scenario can cut a node off from every inbound datagram for a while and
// then reconnect it, without needing real sockets or firewall rules.
type fakeNetwork struct {
	multicast rtpstypes.Locator

	mu       sync.Mutex
	nodes    map[rtpstypes.Locator]chan transport.Datagram
	isolated map[rtpstypes.Locator]bool
}

func newFakeNetwork(multicast rtpstypes.Locator) *fakeNetwork {
	return &fakeNetwork{multicast: multicast, nodes: make(map[rtpstypes.Locator]chan transport.Datagram)}
}

func (n *fakeNetwork) register(loc rtpstypes.Locator) chan transport.Datagram {
	ch := make(chan transport.Datagram, 256)
	n.mu.Lock()
	n.nodes[loc] = ch
	n.mu.Unlock()
	return ch
}

// isolate cuts loc off from every inbound datagram until isolate(loc, false).
// Outbound sends from loc are unaffected, mirroring a receiver-side network
// partition rather than a dead interface.
func (n *fakeNetwork) isolate(loc rtpstypes.Locator, cut bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.isolated == nil {
		n.isolated = make(map[rtpstypes.Locator]bool)
	}
	n.isolated[loc] = cut
}

func (n *fakeNetwork) deliver(from, dst rtpstypes.Locator, payload []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if dst == n.multicast {
		for loc, ch := range n.nodes {
			if loc == from || n.isolated[loc] {
				continue
			}
			trySend(ch, from, payload)
		}
		return
	}
	if n.isolated[dst] {
		return
	}
	if ch, ok := n.nodes[dst]; ok {
		trySend(ch, from, payload)
	}
}

func trySend(ch chan transport.Datagram, from rtpstypes.Locator, payload []byte) {
	cp := append([]byte(nil), payload...)
	select {
	case ch <- transport.Datagram{Payload: cp, From: from}:
	default:
	}
}

type fakeTransport struct {
	nw    *fakeNetwork
	self  rtpstypes.Locator
	inbox chan transport.Datagram
}

func newFakeTransport(nw *fakeNetwork, port uint32) *fakeTransport {
	self := rtpstypes.NewLocatorUDPv4(localhost(), port)
	return &fakeTransport{nw: nw, self: self, inbox: nw.register(self)}
}

func (t *fakeTransport) Send(ctx context.Context, dst rtpstypes.Locator, payload []byte) error {
	t.nw.deliver(t.self, dst, payload)
	return nil
}

func (t *fakeTransport) Receive(ctx context.Context) (transport.Datagram, error) {
	select {
	case dg := <-t.inbox:
		return dg, nil
	case <-ctx.Done():
		return transport.Datagram{}, ctx.Err()
	}
}

func (t *fakeTransport) DefaultUnicastLocator() rtpstypes.Locator { return t.self }
func (t *fakeTransport) Close() error                             { return nil }

var _ transport.Transport = (*fakeTransport)(nil)

// fakeSpawner runs each registered function on its own goroutine until
// close is called, standing in for internal/lifecycle.Group the way
// internal/participant's own tests do.
type fakeSpawner struct {
	mu   sync.Mutex
	fns  []func(stop <-chan struct{}) error
	stop chan struct{}
	wg   sync.WaitGroup
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{stop: make(chan struct{})}
}

func (s *fakeSpawner) Add(fn func(stop <-chan struct{}) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = fn(s.stop)
	}()
}

func (s *fakeSpawner) close() {
	close(s.stop)
	s.wg.Wait()
}

// testNode bundles one fake Participant together with the clock driving its
// background loops and the network it's attached to, so a scenario can
// advance discovery/heartbeat timers without a real wall-clock wait.
type testNode struct {
	participant *participant.Participant
	clock       *actor.FakeClock
	spawner     *fakeSpawner
	locator     rtpstypes.Locator
	stop        func()
}

// newTestNode builds and starts a Participant on nw at port, using cfg (or
// config.Defaults() if the zero value).
func newTestNode(nw *fakeNetwork, port uint32, cfg config.Configuration) *testNode {
	if cfg.HeartbeatPeriod == 0 {
		cfg = config.Defaults()
	}
	clock := actor.NewFakeClock(epoch)
	tport := newFakeTransport(nw, port)
	p, err := participant.New(newLogger(), cfg, clock, tport)
	if err != nil {
		panic(err)
	}
	spawner := newFakeSpawner()
	ctx, cancel := context.WithCancel(context.Background())
	p.Run(ctx, spawner)
	node := &testNode{participant: p, clock: clock, spawner: spawner, locator: tport.DefaultUnicastLocator(), stop: cancel}
	return node
}

// close cancels the node's background loops and waits for them to exit.
func (n *testNode) close() {
	n.stop()
	n.spawner.close()
	_ = n.participant.Close()
}

// settleDiscovery advances every node's clock in lockstep so SPDP/SEDP's
// periodic announce and heartbeat ticks run enough rounds for a full
// bidirectional handshake (builtin match, publication exchange, subscription
// exchange) to complete, mirroring internal/participant's own discovery
// test.
func settleDiscovery(nodes ...*testNode) {
	for i := 0; i < 60; i++ {
		for _, n := range nodes {
			n.clock.Advance(100 * time.Millisecond)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// recordingListener records every sample OnDataAvailable delivers, in
// order, for assertions about what a remote reader actually observed.
type recordingListener struct {
	mu  sync.Mutex
	got []history.CacheChange
}

func (l *recordingListener) OnDataAvailable(cc history.CacheChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, cc)
}

func (l *recordingListener) OnSampleLost(rtpstypes.Guid, rtpstypes.SequenceNumber) {}

func (l *recordingListener) samples() []history.CacheChange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]history.CacheChange(nil), l.got...)
}
