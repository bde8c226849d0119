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

var _ = Describe("Incompatible QoS", func() {
	Specify("a BestEffort writer never matches a Reliable reader on the same topic", func() {
		offered := qos.EndpointQos{Reliability: qos.Reliability{Kind: qos.BestEffort}}
		requested := qos.EndpointQos{Reliability: qos.Reliability{Kind: qos.Reliable}}

		ok, reason := qos.Match(offered, requested)
		Expect(ok).To(BeFalse())
		Expect(reason.Policy).To(Equal(qos.PolicyReliability))

		multicast := rtpstypes.NewLocatorUDPv4(localhost(), 7400)
		nw := newFakeNetwork(multicast)

		a := newTestNode(nw, 18041, config.Configuration{})
		b := newTestNode(nw, 18042, config.Configuration{})
		defer a.close()
		defer b.close()

		w, _, err := a.participant.CreateDataWriter("Temperature", "TemperatureType", offered, false)
		Expect(err).NotTo(HaveOccurred())

		listener := &recordingListener{}
		_, _, err = b.participant.CreateDataReader("Temperature", "TemperatureType", requested, false, listener)
		Expect(err).NotTo(HaveOccurred())

		settleDiscovery(a, b)

		_, err = w.NewChange(history.Alive, keyhash.Handle{}, []byte("23.5C"), time.Now())
		Expect(err).NotTo(HaveOccurred())
		w.SendPass(context.Background())

		Consistently(func() []history.CacheChange {
			return listener.samples()
		}, 300*time.Millisecond, 20*time.Millisecond).Should(BeEmpty())
	})
})
