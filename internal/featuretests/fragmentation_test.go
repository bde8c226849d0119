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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectrtps/rtps/internal/config"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

var _ = Describe("Fragmentation", func() {
	Specify("a 100-byte sample fragmented at 16 bytes reassembles whole", func() {
		multicast := rtpstypes.NewLocatorUDPv4(localhost(), 7400)
		nw := newFakeNetwork(multicast)

		cfg := config.Defaults()
		cfg.FragmentSize = 16

		a := newTestNode(nw, 18021, cfg)
		b := newTestNode(nw, 18022, cfg)
		defer a.close()
		defer b.close()

		w, _, err := a.participant.CreateDataWriter("UserData", "UserDataType", qos.EndpointQos{}, false)
		Expect(err).NotTo(HaveOccurred())

		listener := &recordingListener{}
		_, _, err = b.participant.CreateDataReader("UserData", "UserDataType", qos.EndpointQos{}, false, listener)
		Expect(err).NotTo(HaveOccurred())

		settleDiscovery(a, b)

		payload := make([]byte, 100)
		for i := range payload {
			payload[i] = byte(i)
		}
		_, err = w.NewChange(history.Alive, keyhash.Handle{}, payload, time.Now())
		Expect(err).NotTo(HaveOccurred())
		w.SendPass(context.Background())

		Eventually(func() []history.CacheChange {
			return listener.samples()
		}, 2*time.Second, 10*time.Millisecond).Should(HaveLen(1))

		Expect(listener.samples()[0].Data).To(Equal(payload))
	})
})
