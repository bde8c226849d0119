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

package rtpstypes

import (
	"fmt"
	"net"
)

// LocatorKind selects the address family a Locator names. The specification
// names two historical variants (a separate kind/port/address type and a
// flat struct); per spec.md §9 "Open questions" this engine adopts the flat
// struct as canonical.
type LocatorKind int32

const (
	LocatorKindInvalid LocatorKind = -1
	LocatorKindReserved LocatorKind = 0
	LocatorKindUDPv4    LocatorKind = 1
	LocatorKindUDPv6    LocatorKind = 2
)

// Locator is the (kind, port, address) triple identifying a transport
// endpoint, per spec.md §3. Address is always 16 bytes; UDPv4 addresses are
// right-padded (the last 4 bytes hold the IPv4 address).
type Locator struct {
	Kind    LocatorKind
	Port    uint32
	Address [16]byte
}

// LocatorInvalid is the LOCATOR_INVALID sentinel.
var LocatorInvalid = Locator{Kind: LocatorKindInvalid}

// NewLocatorUDPv4 builds a UDPv4 locator from a dotted-quad/hostname IP and
// a port number.
func NewLocatorUDPv4(ip net.IP, port uint32) Locator {
	var l Locator
	l.Kind = LocatorKindUDPv4
	l.Port = port
	v4 := ip.To4()
	if v4 != nil {
		copy(l.Address[12:], v4)
	}
	return l
}

// NewLocatorUDPv6 builds a UDPv6 locator.
func NewLocatorUDPv6(ip net.IP, port uint32) Locator {
	var l Locator
	l.Kind = LocatorKindUDPv6
	l.Port = port
	v6 := ip.To16()
	if v6 != nil {
		copy(l.Address[:], v6)
	}
	return l
}

// IP returns the net.IP this locator addresses.
func (l Locator) IP() net.IP {
	switch l.Kind {
	case LocatorKindUDPv4:
		return net.IP(l.Address[12:16])
	case LocatorKindUDPv6:
		addr := l.Address
		return net.IP(addr[:])
	default:
		return nil
	}
}

// UDPAddr returns the net.UDPAddr equivalent of the locator.
func (l Locator) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: l.IP(), Port: int(l.Port)}
}

// IsMulticast reports whether the locator addresses a multicast group.
func (l Locator) IsMulticast() bool {
	ip := l.IP()
	return ip != nil && ip.IsMulticast()
}

func (l Locator) String() string {
	switch l.Kind {
	case LocatorKindInvalid:
		return "LOCATOR_INVALID"
	default:
		return fmt.Sprintf("%s:%d", l.IP(), l.Port)
	}
}

// LocatorList is an ordered set of locators; equality of elements is by
// value, per spec.md §3.
type LocatorList []Locator

// Contains reports whether list already holds an equal locator.
func (list LocatorList) Contains(l Locator) bool {
	for _, e := range list {
		if e == l {
			return true
		}
	}
	return false
}
