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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectrtps/rtps/internal/facade"
)

func TestStatusConditionStartsUntriggered(t *testing.T) {
	s := newFakeSpawner()
	defer s.close()
	c := facade.NewStatusCondition(s)

	v, err := c.TriggerValue()
	require.NoError(t, err)
	assert.False(t, v)
}

func TestAddCommunicationStateTriggersWhenEnabled(t *testing.T) {
	s := newFakeSpawner()
	defer s.close()
	c := facade.NewStatusCondition(s)

	c.AddCommunicationState(facade.StatusDataAvailable)

	assert.Eventually(t, func() bool {
		v, _ := c.TriggerValue()
		return v
	}, time.Second, time.Millisecond)
}

func TestAddCommunicationStateIgnoredWhenDisabled(t *testing.T) {
	s := newFakeSpawner()
	defer s.close()
	c := facade.NewStatusCondition(s)
	c.SetEnabledStatuses([]facade.StatusKind{facade.StatusSampleLost})

	c.AddCommunicationState(facade.StatusDataAvailable)

	time.Sleep(20 * time.Millisecond)
	v, err := c.TriggerValue()
	require.NoError(t, err)
	assert.False(t, v)
}

func TestRemoveCommunicationStateUntriggers(t *testing.T) {
	s := newFakeSpawner()
	defer s.close()
	c := facade.NewStatusCondition(s)

	c.AddCommunicationState(facade.StatusDataAvailable)
	assert.Eventually(t, func() bool {
		v, _ := c.TriggerValue()
		return v
	}, time.Second, time.Millisecond)

	c.RemoveCommunicationState(facade.StatusDataAvailable)
	assert.Eventually(t, func() bool {
		v, _ := c.TriggerValue()
		return !v
	}, time.Second, time.Millisecond)
}

func TestChangedFiresOnStateChange(t *testing.T) {
	s := newFakeSpawner()
	defer s.close()
	c := facade.NewStatusCondition(s)

	changed := c.Changed()
	c.AddCommunicationState(facade.StatusDataAvailable)

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("Changed channel never fired after a communication state change")
	}
}

func TestGetEnabledStatusesDefaultsToEverything(t *testing.T) {
	s := newFakeSpawner()
	defer s.close()
	c := facade.NewStatusCondition(s)

	assert.ElementsMatch(t, facade.DefaultEnabledStatuses(), c.GetEnabledStatuses())
}
