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

import (
	"sync"
	"time"

	"github.com/projectrtps/rtps/internal/actor"
	"github.com/projectrtps/rtps/internal/ddserror"
)

// Condition is anything a WaitSet can block on: a StatusCondition today,
// matching the original implementation's single-variant Condition enum.
type Condition interface {
	TriggerValue() (bool, error)
	Changed() <-chan struct{}
}

// WaitSet blocks a caller until one of its attached conditions' trigger
// value becomes true, or timeout elapses. Unlike the poll-every-50ms loop
// the original implementation uses, Wait parks on a select over each
// condition's Changed channel plus the deadline timer: no busy work between
// a status change and the caller waking up.
type WaitSet struct {
	mu         sync.Mutex
	conditions []Condition
}

// NewWaitSet returns an empty WaitSet.
func NewWaitSet() *WaitSet {
	return &WaitSet{}
}

// AttachCondition adds cond to the set of conditions this WaitSet blocks on.
// Attaching the same condition twice is a no-op.
func (ws *WaitSet) AttachCondition(cond Condition) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, c := range ws.conditions {
		if c == cond {
			return nil
		}
	}
	ws.conditions = append(ws.conditions, cond)
	return nil
}

// DetachCondition removes cond, reporting PreconditionNotMet if it was never
// attached.
func (ws *WaitSet) DetachCondition(cond Condition) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for i, c := range ws.conditions {
		if c == cond {
			ws.conditions = append(ws.conditions[:i], ws.conditions[i+1:]...)
			return nil
		}
	}
	return ddserror.New(ddserror.PreconditionNotMet, "condition is not attached to this WaitSet")
}

// GetConditions returns the currently attached conditions.
func (ws *WaitSet) GetConditions() []Condition {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]Condition(nil), ws.conditions...)
}

// Wait blocks until at least one attached condition's trigger value is
// true, returning every condition that is true at that point, or reports
// ddserror.Timeout once timeout elapses. Reports PreconditionNotMet if no
// condition is attached, matching the original implementation.
func (ws *WaitSet) Wait(clock actor.Clock, timeout time.Duration) ([]Condition, error) {
	conditions := ws.GetConditions()
	if len(conditions) == 0 {
		return nil, ddserror.New(ddserror.PreconditionNotMet, "WaitSet has no attached conditions")
	}

	deadline := clock.After(timeout)
	for {
		triggered, err := triggeredConditions(conditions)
		if err != nil {
			return nil, err
		}
		if len(triggered) > 0 {
			return triggered, nil
		}

		woke := make(chan struct{}, 1)
		stopWatch := make(chan struct{})
		var wg sync.WaitGroup
		for _, c := range conditions {
			c := c
			wg.Add(1)
			go func() {
				defer wg.Done()
				select {
				case <-c.Changed():
					select {
					case woke <- struct{}{}:
					default:
					}
				case <-stopWatch:
				}
			}()
		}

		var timedOut bool
		select {
		case <-woke:
		case <-deadline:
			timedOut = true
		}
		close(stopWatch)
		wg.Wait()

		if timedOut {
			return nil, ddserror.New(ddserror.Timeout, "WaitSet timed out waiting for a condition")
		}
	}
}

func triggeredConditions(conditions []Condition) ([]Condition, error) {
	var triggered []Condition
	for _, c := range conditions {
		ok, err := c.TriggerValue()
		if err != nil {
			return nil, err
		}
		if ok {
			triggered = append(triggered, c)
		}
	}
	return triggered, nil
}
