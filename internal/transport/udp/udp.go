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

// Package udp implements internal/transport.Transport over a UDPv4
// socket, including multicast group membership for SPDP discovery
// traffic, using golang.org/x/net/ipv4 for the group-join/interface
// control the standard library's net package doesn't expose directly.
// UDPv6 is not supported.
package udp

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"

	"github.com/projectrtps/rtps/internal/rtpstypes"
	"github.com/projectrtps/rtps/internal/transport"
)

// noDeadline clears any previously set read/write deadline.
var noDeadline time.Time

// Transport binds one UDPv4 socket and serves internal/transport.Transport
// over it. Multicast groups are joined via JoinMulticastGroup.
type Transport struct {
	log  logrus.FieldLogger
	conn *net.UDPConn
	pc   *ipv4.PacketConn
	ifi  *net.Interface
	self rtpstypes.Locator

	recvBuf int
}

// Option configures New.
type Option func(*Transport)

// WithInterface restricts the socket to one network interface, per
// spec.md §6's interface_name configuration field.
func WithInterface(ifi *net.Interface) Option {
	return func(t *Transport) { t.ifi = ifi }
}

// WithReceiveBufferSize sets the socket's SO_RCVBUF.
func WithReceiveBufferSize(bytes int) Option {
	return func(t *Transport) { t.recvBuf = bytes }
}

// New binds a UDPv4 socket on port, logging through log.
func New(log logrus.FieldLogger, port uint32, opts ...Option) (*Transport, error) {
	t := &Transport{log: log}
	for _, opt := range opts {
		opt(t)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, errors.Wrapf(err, "udp transport: binding port %d", port)
	}
	if t.recvBuf > 0 {
		if err := conn.SetReadBuffer(t.recvBuf); err != nil {
			log.WithError(err).Warn("udp transport: failed to set receive buffer size")
		}
	}

	t.conn = conn
	t.pc = ipv4.NewPacketConn(conn)
	t.self = rtpstypes.NewLocatorUDPv4(localAddr(conn), port)
	return t, nil
}

func localAddr(conn *net.UDPConn) net.IP {
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP != nil && !addr.IP.IsUnspecified() {
		return addr.IP
	}
	return net.IPv4zero
}

// JoinMulticastGroup joins the multicast group named by locator, so
// subsequent Receive calls observe datagrams sent to it (used for SPDP's
// well-known multicast locator).
func (t *Transport) JoinMulticastGroup(locator rtpstypes.Locator) error {
	group := &net.UDPAddr{IP: locator.IP()}
	if err := t.pc.JoinGroup(t.ifi, group); err != nil {
		return errors.Wrapf(err, "udp transport: joining multicast group %s", locator)
	}
	return nil
}

// Send implements transport.Transport.
func (t *Transport) Send(ctx context.Context, dst rtpstypes.Locator, payload []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(dl)
	}
	_, err := t.conn.WriteToUDP(payload, dst.UDPAddr())
	if err != nil {
		return errors.Wrapf(err, "udp transport: sending to %s", dst)
	}
	return nil
}

// Receive implements transport.Transport.
func (t *Transport) Receive(ctx context.Context) (transport.Datagram, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(dl)
	} else {
		_ = t.conn.SetReadDeadline(noDeadline)
	}
	buf := make([]byte, maxDatagramSize)
	n, from, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		return transport.Datagram{}, errors.Wrap(err, "udp transport: receiving")
	}
	return transport.Datagram{
		Payload: buf[:n],
		From:    rtpstypes.NewLocatorUDPv4(from.IP, uint32(from.Port)),
	}, nil
}

// DefaultUnicastLocator implements transport.Transport.
func (t *Transport) DefaultUnicastLocator() rtpstypes.Locator { return t.self }

// Close implements transport.Transport.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// maxDatagramSize is large enough for any single RTPS UDP datagram this
// engine sends (well above the default fragment_size of 1344 plus framing
// overhead).
const maxDatagramSize = 65507

var _ transport.Transport = (*Transport)(nil)
