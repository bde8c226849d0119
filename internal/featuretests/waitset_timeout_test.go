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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectrtps/rtps/internal/actor"
	"github.com/projectrtps/rtps/internal/ddserror"
	"github.com/projectrtps/rtps/internal/facade"
)

var _ = Describe("WaitSet timeout", func() {
	Specify("a DataAvailable condition on a reader with no publisher times out", func() {
		spawner := newFakeSpawner()
		defer spawner.close()

		cond := facade.NewStatusCondition(spawner)
		cond.SetEnabledStatuses([]facade.StatusKind{facade.StatusDataAvailable})

		ws := facade.NewWaitSet()
		Expect(ws.AttachCondition(cond)).To(Succeed())

		clock := actor.NewFakeClock(epoch)
		timeout := 500 * time.Millisecond

		done := make(chan error, 1)
		go func() {
			_, err := ws.Wait(clock, timeout)
			done <- err
		}()

		// Give Wait a chance to register its deadline timer before advancing,
		// matching internal/facade's own WaitSet tests.
		time.Sleep(20 * time.Millisecond)
		start := time.Now()
		clock.Advance(timeout)

		select {
		case err := <-done:
			Expect(ddserror.Is(err, ddserror.Timeout)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		case <-time.After(2 * time.Second):
			Fail("WaitSet never timed out")
		}
	})
})
