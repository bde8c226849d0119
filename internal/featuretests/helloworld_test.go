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

// encodeHelloWorld serializes {id: int32, msg: string} as XCDR2 little
// endian, the wire form spec.md §8's hello-world scenario names.
func encodeHelloWorld(id int32, msg string) []byte {
	w := cdr.NewWriter(cdr.XCDR2, cdr.LittleEndian)
	w.WriteInt32(id)
	w.WriteString(msg)
	return w.Bytes()
}

var _ = Describe("Hello world, BestEffort", func() {
	Specify("two participants discover each other and exchange one sample", func() {
		multicast := rtpstypes.NewLocatorUDPv4(localhost(), 7400)
		nw := newFakeNetwork(multicast)

		a := newTestNode(nw, 18001, config.Configuration{})
		b := newTestNode(nw, 18002, config.Configuration{})
		defer a.close()
		defer b.close()

		w, _, err := a.participant.CreateDataWriter("HelloWorld", "HelloWorldType", qos.EndpointQos{}, false)
		Expect(err).NotTo(HaveOccurred())

		listener := &recordingListener{}
		_, _, err = b.participant.CreateDataReader("HelloWorld", "HelloWorldType", qos.EndpointQos{}, false, listener)
		Expect(err).NotTo(HaveOccurred())

		settleDiscovery(a, b)

		payload := encodeHelloWorld(8, "Hello world!")
		_, err = w.NewChange(history.Alive, keyhash.Handle{}, payload, time.Now())
		Expect(err).NotTo(HaveOccurred())
		w.SendPass(context.Background())

		Eventually(func() []history.CacheChange {
			return listener.samples()
		}, 2*time.Second, 10*time.Millisecond).Should(HaveLen(1))

		got := listener.samples()[0]
		Expect(got.Kind).To(Equal(history.Alive))
		Expect(got.Data).To(Equal(payload))
	})
})
