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

package keyhash_test

import (
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/keyhash"
)

func TestComputeShortKeyIsZeroPaddedNotHashed(t *testing.T) {
	h := keyhash.Compute(func(w *cdr.Writer) {
		w.WriteUint32(42)
	})
	var want keyhash.Handle
	want[3] = 42 // big-endian uint32(42) in the first 4 bytes
	assert.Equal(t, want, h)
}

func TestComputeLongKeyIsMD5Hashed(t *testing.T) {
	longKey := make([]byte, 0)
	h := keyhash.Compute(func(w *cdr.Writer) {
		for i := 0; i < 20; i++ {
			w.WriteUint8(byte(i))
		}
	})
	for i := 0; i < 20; i++ {
		longKey = append(longKey, byte(i))
	}
	want := md5.Sum(longKey)
	assert.Equal(t, keyhash.Handle(want), h)
}

func TestComputeIsDeterministic(t *testing.T) {
	write := func(w *cdr.Writer) {
		w.WriteString("topic-instance-key")
	}
	assert.Equal(t, keyhash.Compute(write), keyhash.Compute(write))
}

func TestSerializedKeyWireFormPadsToFourBytes(t *testing.T) {
	out := keyhash.SerializedKeyWireForm(func(w *cdr.Writer) {
		w.WriteUint8(1)
		w.WriteUint8(2)
		w.WriteUint8(3)
	})
	assert.Equal(t, 0, len(out)%4)
	assert.Equal(t, byte(0x00), out[0])
	assert.Equal(t, byte(0x01), out[1])
	// pad count (1 byte needed to round 3 bytes to 4) recorded in header[3]
	assert.Equal(t, byte(1), out[3])
}
