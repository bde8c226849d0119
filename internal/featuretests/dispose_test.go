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

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/config"
	"github.com/projectrtps/rtps/internal/history"
	"github.com/projectrtps/rtps/internal/keyhash"
	"github.com/projectrtps/rtps/internal/qos"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

var _ = Describe("Dispose", func() {
	Specify("a disposed instance surfaces as a NotAliveDisposed marker after its live sample", func() {
		multicast := rtpstypes.NewLocatorUDPv4(localhost(), 7400)
		nw := newFakeNetwork(multicast)

		a := newTestNode(nw, 18031, config.Configuration{})
		b := newTestNode(nw, 18032, config.Configuration{})
		defer a.close()
		defer b.close()

		w, _, err := a.participant.CreateDataWriter("Shapes", "ShapeType", qos.EndpointQos{}, true)
		Expect(err).NotTo(HaveOccurred())

		listener := &recordingListener{}
		_, _, err = b.participant.CreateDataReader("Shapes", "ShapeType", qos.EndpointQos{}, true, listener)
		Expect(err).NotTo(HaveOccurred())

		settleDiscovery(a, b)

		instance := keyhash.Compute(func(cw *cdr.Writer) { cw.WriteInt32(1) })

		_, err = w.NewChange(history.Alive, instance, []byte("square"), time.Now())
		Expect(err).NotTo(HaveOccurred())
		w.SendPass(context.Background())

		Eventually(func() []history.CacheChange {
			return listener.samples()
		}, 2*time.Second, 10*time.Millisecond).Should(HaveLen(1))

		_, err = w.NewChange(history.NotAliveDisposed, instance, nil, time.Now())
		Expect(err).NotTo(HaveOccurred())
		w.SendPass(context.Background())

		Eventually(func() []history.CacheChange {
			return listener.samples()
		}, 2*time.Second, 10*time.Millisecond).Should(HaveLen(2))

		samples := listener.samples()
		Expect(samples[0].Kind).To(Equal(history.Alive))
		Expect(samples[0].InstanceHandle).To(Equal(instance))
		Expect(samples[1].Kind).To(Equal(history.NotAliveDisposed))
		Expect(samples[1].InstanceHandle).To(Equal(instance))
	})
})
