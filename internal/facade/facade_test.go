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

package facade_test

import "sync"

// fakeSpawner runs each registered function on its own goroutine; calling
// close lets every actor's run loop exit and waits for them.
type fakeSpawner struct {
	stop chan struct{}
	wg   sync.WaitGroup
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{stop: make(chan struct{})}
}

func (s *fakeSpawner) Add(fn func(stop <-chan struct{}) error) {
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
