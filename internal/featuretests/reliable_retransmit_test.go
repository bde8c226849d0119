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

package featuretests_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectrtps/rtps/internal/config"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/participant"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

var _ = Describe("Reliable retransmit", func() {
	Specify("a reader isolated during 5 writes catches up once reconnected", func() {
		multicast := rtpstypes.NewLocatorUDPv4(localhost(), 7400)
		nw := newFakeNetwork(multicast)

		a := newTestNode(nw, 18011, config.Configuration{})
		b := newTestNode(nw, 18012, config.Configuration{})
		defer a.close()
		defer b.close()

		reliableQos := qos.EndpointQos{Reliability: qos.Reliability{Kind: qos.Reliable}}
		keepAll := qos.History{Kind: qos.KeepAll}

		w, _, err := a.participant.CreateDataWriter("Readings", "ReadingType", reliableQos, false,
			participant.WithWriterHistory(keepAll))
		Expect(err).NotTo(HaveOccurred())

		listener := &recordingListener{}
		_, _, err = b.participant.CreateDataReader("Readings", "ReadingType", reliableQos, false,
			listener, participant.WithReaderHistory(keepAll))
		Expect(err).NotTo(HaveOccurred())

		settleDiscovery(a, b)

		nw.isolate(b.locator, true)

		for i := 1; i <= 5; i++ {
			_, err := w.NewChange(history.Alive, keyhash.Handle{}, []byte(fmt.Sprintf("reading-%d", i)), time.Now())
			Expect(err).NotTo(HaveOccurred())
		}
		w.SendPass(context.Background())
		w.SendHeartbeat(context.Background())

		time.Sleep(200 * time.Millisecond)
		Expect(listener.samples()).To(BeEmpty(), "isolated reader should not have observed anything yet")

		nw.isolate(b.locator, false)

		// Drive the writer's periodic heartbeat/send-pass loop (HeartbeatPeriod
		// ticks) until the reader's ACKNACK round trip completes and every
		// sample has been retransmitted.
		Eventually(func() int {
			a.clock.Advance(100 * time.Millisecond)
			b.clock.Advance(100 * time.Millisecond)
			return len(listener.samples())
		}, 5*time.Second, 20*time.Millisecond).Should(Equal(5))

		seen := make(map[string]bool, 5)
		for _, cc := range listener.samples() {
			seen[string(cc.Data)] = true
		}
		for i := 1; i <= 5; i++ {
			Expect(seen[fmt.Sprintf("reading-%d", i)]).To(BeTrue())
		}
	})
})
