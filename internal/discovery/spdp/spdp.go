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

// Package spdp implements the Simple Participant Discovery Protocol of
// spec.md §4.6: best-effort, stateless periodic announcement of this
// participant's ParticipantProxy, and lease-based purge of remote
// participants that stop announcing.
package spdp

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/discovery"
	"github.com/projectrtps/rtps/internal/paramlist"
	"github.com/projectrtps/rtps/internal/receiver"
	"github.com/projectrtps/rtps/internal/rtpsmsg"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// Sender is the narrow outbound capability SPDP needs.
type Sender interface {
	Send(ctx context.Context, dst rtpstypes.Locator, payload []byte) error
}

// LocalInfo is this participant's own announced ParticipantProxy content.
type LocalInfo struct {
	GuidPrefix           rtpstypes.GuidPrefix
	DomainId             int
	DomainTag            string
	MetatrafficUnicast   rtpstypes.LocatorList
	MetatrafficMulticast rtpstypes.LocatorList
	DefaultUnicast       rtpstypes.LocatorList
	DefaultMulticast     rtpstypes.LocatorList
	LeaseDuration        time.Duration
}

// SPDP runs the periodic-announce/lease-purge discovery protocol for one
// local participant.
type SPDP struct {
	log      logrus.FieldLogger
	local    LocalInfo
	sender   Sender
	dst      rtpstypes.Locator
	observer discovery.MatchObserver

	mu      sync.Mutex
	remotes map[string]discovery.ParticipantProxy
}

// New builds an SPDP instance announcing local to dst (the SPDP multicast
// locator) and notifying observer whenever the remote participant set
// changes.
func New(log logrus.FieldLogger, local LocalInfo, sender Sender, dst rtpstypes.Locator, observer discovery.MatchObserver) *SPDP {
	return &SPDP{
		log:      log,
		local:    local,
		sender:   sender,
		dst:      dst,
		observer: observer,
		remotes:  make(map[string]discovery.ParticipantProxy),
	}
}

// Announce sends one SPDP announcement of the local participant.
func (s *SPDP) Announce(ctx context.Context) error {
	body := encodeParticipantProxy(s.local)
	d := rtpsmsg.Data{
		ReaderId:          rtpstypes.EntityId{},
		WriterId:          rtpstypes.EntityIdSPDPWriter,
		HasData:           true,
		RepresentationId:  rtpsmsg.ReprPLCDRLE,
		SerializedPayload: body,
	}

	raw, err := d.Marshal(cdr.LittleEndian)
	if err != nil {
		return err
	}
	h := rtpsmsg.Header{GuidPrefix: s.local.GuidPrefix, Version: rtpstypes.ProtocolVersion24, VendorId: rtpstypes.VendorIdThisImplementation}
	m := rtpsmsg.Message{Header: h, Submessages: []rtpsmsg.RawSubmessage{raw}}
	return s.sender.Send(ctx, s.dst, m.Marshal())
}

// HandleData implements receiver.ReaderSink for the SPDP built-in reader:
// it decodes the remote ParticipantProxy and refreshes its lease.
func (s *SPDP) HandleData(ctx receiver.MessageContext, d rtpsmsg.Data) {
	if !d.HasData || len(d.SerializedPayload) == 0 {
		return
	}
	proxy, err := decodeParticipantProxy(d.SerializedPayload)
	if err != nil {
		s.log.WithError(err).Debug("spdp: malformed ParticipantProxy")
		return
	}
	proxy.GuidPrefix = ctx.SourcePrefix
	if proxy.GuidPrefix == s.local.GuidPrefix {
		return
	}
	proxy.LastSeen = time.Now()

	s.mu.Lock()
	_, existed := s.remotes[proxy.GuidPrefix.String()]
	s.remotes[proxy.GuidPrefix.String()] = proxy
	s.mu.Unlock()

	if !existed {
		s.log.WithField("participant", proxy.GuidPrefix.String()).Info("spdp: discovered new participant")
	}
	if s.observer != nil {
		s.observer.Refresh()
	}
}

func (s *SPDP) HandleDataFrag(receiver.MessageContext, rtpsmsg.DataFrag)           {}
func (s *SPDP) HandleHeartbeat(receiver.MessageContext, rtpsmsg.Heartbeat)         {}
func (s *SPDP) HandleHeartbeatFrag(receiver.MessageContext, rtpsmsg.HeartbeatFrag) {}
func (s *SPDP) HandleGap(receiver.MessageContext, rtpsmsg.Gap)                     {}

// Remotes returns a snapshot of every currently-leased remote participant.
func (s *SPDP) Remotes() []discovery.ParticipantProxy {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]discovery.ParticipantProxy, 0, len(s.remotes))
	for _, p := range s.remotes {
		out = append(out, p)
	}
	return out
}

// PurgeExpired drops every remote participant whose lease has lapsed as of
// now, notifying observer if anything was removed.
func (s *SPDP) PurgeExpired(now time.Time) {
	var removed bool
	s.mu.Lock()
	for key, p := range s.remotes {
		if p.Expired(now) {
			delete(s.remotes, key)
			removed = true
			s.log.WithField("participant", key).Info("spdp: participant lease expired")
		}
	}
	s.mu.Unlock()

	if removed && s.observer != nil {
		s.observer.Refresh()
	}
}

func encodeParticipantProxy(local LocalInfo) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	var list paramlist.List
	list = append(list, paramlist.Parameter{PID: paramlist.PIDProtocolVersion, Value: []byte{rtpstypes.ProtocolVersion24.Major, rtpstypes.ProtocolVersion24.Minor}})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDVendorId, Value: rtpstypes.VendorIdThisImplementation[:]})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDParticipantGuid, Value: paramlist.EncodeGuid(rtpstypes.Guid{Prefix: local.GuidPrefix, EntityId: rtpstypes.EntityIdParticipant})})
	list = append(list, paramlist.Parameter{PID: paramlist.PIDDomainId, Value: encodeUint32(uint32(local.DomainId))})
	if local.DomainTag != "" {
		list = append(list, paramlist.Parameter{PID: paramlist.PIDDomainTag, Value: encodeString(local.DomainTag)})
	}
	for _, l := range local.MetatrafficUnicast {
		list = append(list, paramlist.Parameter{PID: paramlist.PIDMetatrafficUnicastLocator, Value: paramlist.EncodeLocator(cdr.XCDR1, cdr.LittleEndian, l)})
	}
	for _, l := range local.MetatrafficMulticast {
		list = append(list, paramlist.Parameter{PID: paramlist.PIDMetatrafficMulticastLocator, Value: paramlist.EncodeLocator(cdr.XCDR1, cdr.LittleEndian, l)})
	}
	for _, l := range local.DefaultUnicast {
		list = append(list, paramlist.Parameter{PID: paramlist.PIDDefaultUnicastLocator, Value: paramlist.EncodeLocator(cdr.XCDR1, cdr.LittleEndian, l)})
	}
	for _, l := range local.DefaultMulticast {
		list = append(list, paramlist.Parameter{PID: paramlist.PIDDefaultMulticastLocator, Value: paramlist.EncodeLocator(cdr.XCDR1, cdr.LittleEndian, l)})
	}
	list = append(list, paramlist.Parameter{PID: paramlist.PIDParticipantLeaseDuration, Value: encodeDuration(local.LeaseDuration)})

	_ = paramlist.Write(w, list) // encodeUint32/encodeString/encodeDuration never fail
	return w.Bytes()
}

func decodeParticipantProxy(payload []byte) (discovery.ParticipantProxy, error) {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, payload)
	list, err := paramlist.Read(r)
	if err != nil {
		return discovery.ParticipantProxy{}, err
	}

	var p discovery.ParticipantProxy
	if v, ok := list.Get(paramlist.PIDProtocolVersion); ok && len(v.Value) >= 2 {
		p.ProtocolVersion = rtpstypes.ProtocolVersion{Major: v.Value[0], Minor: v.Value[1]}
	}
	if v, ok := list.Get(paramlist.PIDVendorId); ok && len(v.Value) >= 2 {
		p.VendorId = rtpstypes.VendorId{v.Value[0], v.Value[1]}
	}
	if v, ok := list.Get(paramlist.PIDDomainId); ok {
		p.DomainId = int(decodeUint32(v.Value))
	}
	if v, ok := list.Get(paramlist.PIDDomainTag); ok {
		p.DomainTag = decodeString(v.Value)
	}
	for _, v := range list.GetAll(paramlist.PIDMetatrafficUnicastLocator) {
		if l, err := paramlist.DecodeLocator(cdr.XCDR1, cdr.LittleEndian, v.Value); err == nil {
			p.MetatrafficUnicast = append(p.MetatrafficUnicast, l)
		}
	}
	for _, v := range list.GetAll(paramlist.PIDMetatrafficMulticastLocator) {
		if l, err := paramlist.DecodeLocator(cdr.XCDR1, cdr.LittleEndian, v.Value); err == nil {
			p.MetatrafficMulticast = append(p.MetatrafficMulticast, l)
		}
	}
	for _, v := range list.GetAll(paramlist.PIDDefaultUnicastLocator) {
		if l, err := paramlist.DecodeLocator(cdr.XCDR1, cdr.LittleEndian, v.Value); err == nil {
			p.DefaultUnicast = append(p.DefaultUnicast, l)
		}
	}
	for _, v := range list.GetAll(paramlist.PIDDefaultMulticastLocator) {
		if l, err := paramlist.DecodeLocator(cdr.XCDR1, cdr.LittleEndian, v.Value); err == nil {
			p.DefaultMulticast = append(p.DefaultMulticast, l)
		}
	}
	if v, ok := list.Get(paramlist.PIDParticipantLeaseDuration); ok {
		p.LeaseDuration = decodeDuration(v.Value)
	}
	return p, nil
}

func encodeUint32(v uint32) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	w.WriteUint32(v)
	return w.Bytes()
}

func decodeUint32(b []byte) uint32 {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, b)
	v, _ := r.ReadUint32()
	return v
}

func encodeString(s string) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	w.WriteString(s)
	return w.Bytes()
}

func decodeString(b []byte) string {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, b)
	s, _ := r.ReadString()
	return s
}

// encodeDuration serializes a Duration as a {sec:i32, nanosec:u32} pair,
// the layout internal/rtpstypes.Duration uses.
func encodeDuration(d time.Duration) []byte {
	w := cdr.NewWriter(cdr.XCDR1, cdr.LittleEndian)
	secs := int32(d / time.Second)
	frac := uint32((d % time.Second).Nanoseconds())
	w.WriteInt32(secs)
	w.WriteUint32(frac)
	return w.Bytes()
}

func decodeDuration(b []byte) time.Duration {
	r := cdr.NewReader(cdr.XCDR1, cdr.LittleEndian, b)
	secs, _ := r.ReadInt32()
	frac, _ := r.ReadUint32()
	return time.Duration(secs)*time.Second + time.Duration(frac)
}

var _ receiver.ReaderSink = (*SPDP)(nil)
