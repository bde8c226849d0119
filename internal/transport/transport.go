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

// Package transport defines the Locator-addressed datagram transport the
// receiver and stateful writer/reader send and receive through, per spec.md
// §6's "transport is pluggable, addressed purely by Locator" design note.
// internal/transport/udp is the one production implementation.
package transport

import (
	"context"

	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// Datagram is one received UDP payload plus the Locator it arrived from.
type Datagram struct {
	Payload []byte
	From    rtpstypes.Locator
}

// Transport sends and receives RTPS datagrams addressed by Locator. It
// knows nothing about RTPS message framing; internal/receiver and
// internal/rtpswriter/rtpsreader own that layer.
type Transport interface {
	// Send writes payload to dst.
	Send(ctx context.Context, dst rtpstypes.Locator, payload []byte) error

	// Receive blocks until a datagram arrives or ctx is done.
	Receive(ctx context.Context) (Datagram, error)

	// DefaultUnicastLocator returns the locator this transport's unicast
	// receive socket can be reached at.
	DefaultUnicastLocator() rtpstypes.Locator

	// Close releases the transport's sockets.
	Close() error
}
