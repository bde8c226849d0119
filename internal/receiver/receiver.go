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

// Package receiver implements the per-datagram RTPS message interpreter of
// spec.md §4.2: it tracks the running source/destination/timestamp/reply-
// locator state INFO_* submessages update, then routes every other
// submessage to exactly one local endpoint by EntityId, dropping silently
// on no match.
package receiver

import (
	"github.com/sirupsen/logrus"

	"github.com/projectrtps/rtps/internal/rtpsmsg"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// MessageContext is the interpreter state in force when a submessage is
// dispatched: the source/destination identity and timestamp INFO_SRC/
// INFO_DST/INFO_TS last set within the enclosing Message, plus the reply
// locators INFO_REPLY last set (or the Locator the datagram itself arrived
// from, if none).
type MessageContext struct {
	SourceVersion  rtpstypes.ProtocolVersion
	SourceVendorId rtpstypes.VendorId
	SourcePrefix   rtpstypes.GuidPrefix
	DestPrefix     rtpstypes.GuidPrefix
	HasTimestamp   bool
	Timestamp      rtpstypes.Timestamp
	ReplyUnicast   rtpstypes.LocatorList
	ReplyMulticast rtpstypes.LocatorList
	From           rtpstypes.Locator
}

// ReaderSink is implemented by a local StatefulReader/stateless reader to
// receive submessages a remote writer addresses to it.
type ReaderSink interface {
	HandleData(ctx MessageContext, d rtpsmsg.Data)
	HandleDataFrag(ctx MessageContext, df rtpsmsg.DataFrag)
	HandleHeartbeat(ctx MessageContext, hb rtpsmsg.Heartbeat)
	HandleHeartbeatFrag(ctx MessageContext, hf rtpsmsg.HeartbeatFrag)
	HandleGap(ctx MessageContext, g rtpsmsg.Gap)
}

// WriterSink is implemented by a local StatefulWriter to receive
// submessages a remote reader addresses to it.
type WriterSink interface {
	HandleAckNack(ctx MessageContext, a rtpsmsg.AckNack)
	HandleNackFrag(ctx MessageContext, nf rtpsmsg.NackFrag)
}

// Endpoints resolves a submessage's addressed EntityId to the local
// endpoint that owns it. A participant registers/unregisters its entities
// here as they're created/deleted.
type Endpoints interface {
	LookupReader(id rtpstypes.EntityId) (ReaderSink, bool)
	LookupWriter(id rtpstypes.EntityId) (WriterSink, bool)
}

// Receiver interprets full RTPS messages and dispatches their submessages.
type Receiver struct {
	log       logrus.FieldLogger
	endpoints Endpoints
}

// New returns a Receiver dispatching to endpoints.
func New(log logrus.FieldLogger, endpoints Endpoints) *Receiver {
	return &Receiver{log: log, endpoints: endpoints}
}

// Process interprets one received datagram's worth of RTPS message.
func (r *Receiver) Process(from rtpstypes.Locator, buf []byte) {
	msg, err := rtpsmsg.Parse(buf)
	if err != nil {
		r.log.WithError(err).WithField("from", from).Debug("receiver: dropping unparseable datagram")
		return
	}

	ctx := MessageContext{
		SourceVersion:  msg.Header.Version,
		SourceVendorId: msg.Header.VendorId,
		SourcePrefix:   msg.Header.GuidPrefix,
		DestPrefix:     msg.Header.GuidPrefix,
		From:           from,
	}

	for _, sub := range msg.Submessages {
		r.dispatch(&ctx, sub)
	}
}

func (r *Receiver) dispatch(ctx *MessageContext, sub rtpsmsg.RawSubmessage) {
	switch sub.ID {
	case rtpsmsg.IDInfoTS:
		ts, err := rtpsmsg.ParseInfoTS(sub)
		if err != nil {
			r.log.WithError(err).Debug("receiver: malformed INFO_TS")
			return
		}
		ctx.HasTimestamp = !ts.Invalidate
		ctx.Timestamp = ts.Timestamp
	case rtpsmsg.IDInfoSrc:
		is, err := rtpsmsg.ParseInfoSrc(sub)
		if err != nil {
			r.log.WithError(err).Debug("receiver: malformed INFO_SRC")
			return
		}
		ctx.SourceVersion = is.Version
		ctx.SourceVendorId = is.VendorId
		ctx.SourcePrefix = is.GuidPrefix
	case rtpsmsg.IDInfoDst:
		id, err := rtpsmsg.ParseInfoDst(sub)
		if err != nil {
			r.log.WithError(err).Debug("receiver: malformed INFO_DST")
			return
		}
		ctx.DestPrefix = id.GuidPrefix
	case rtpsmsg.IDInfoReply, rtpsmsg.IDInfoReplyIP4:
		ir, err := rtpsmsg.ParseInfoReply(sub)
		if err != nil {
			r.log.WithError(err).Debug("receiver: malformed INFO_REPLY")
			return
		}
		ctx.ReplyUnicast = ir.UnicastLocatorList
		ctx.ReplyMulticast = ir.MulticastLocatorList
	case rtpsmsg.IDData:
		r.dispatchData(ctx, sub)
	case rtpsmsg.IDDataFrag:
		r.dispatchDataFrag(ctx, sub)
	case rtpsmsg.IDHeartbeat:
		r.dispatchHeartbeat(ctx, sub)
	case rtpsmsg.IDHeartbeatFrag:
		r.dispatchHeartbeatFrag(ctx, sub)
	case rtpsmsg.IDGap:
		r.dispatchGap(ctx, sub)
	case rtpsmsg.IDAckNack:
		r.dispatchAckNack(ctx, sub)
	case rtpsmsg.IDNackFrag:
		r.dispatchNackFrag(ctx, sub)
	default:
		r.log.WithField("id", sub.ID).Debug("receiver: unhandled submessage kind")
	}
}

func (r *Receiver) dispatchData(ctx *MessageContext, sub rtpsmsg.RawSubmessage) {
	d, err := rtpsmsg.ParseData(sub)
	if err != nil {
		r.log.WithError(err).Debug("receiver: malformed DATA")
		return
	}
	if sink, ok := r.endpoints.LookupReader(d.ReaderId); ok {
		sink.HandleData(*ctx, d)
	}
}

func (r *Receiver) dispatchDataFrag(ctx *MessageContext, sub rtpsmsg.RawSubmessage) {
	df, err := rtpsmsg.ParseDataFrag(sub)
	if err != nil {
		r.log.WithError(err).Debug("receiver: malformed DATA_FRAG")
		return
	}
	if sink, ok := r.endpoints.LookupReader(df.ReaderId); ok {
		sink.HandleDataFrag(*ctx, df)
	}
}

func (r *Receiver) dispatchHeartbeat(ctx *MessageContext, sub rtpsmsg.RawSubmessage) {
	hb, err := rtpsmsg.ParseHeartbeat(sub)
	if err != nil {
		r.log.WithError(err).Debug("receiver: malformed HEARTBEAT")
		return
	}
	if sink, ok := r.endpoints.LookupReader(hb.ReaderId); ok {
		sink.HandleHeartbeat(*ctx, hb)
	}
}

func (r *Receiver) dispatchHeartbeatFrag(ctx *MessageContext, sub rtpsmsg.RawSubmessage) {
	hf, err := rtpsmsg.ParseHeartbeatFrag(sub)
	if err != nil {
		r.log.WithError(err).Debug("receiver: malformed HEARTBEAT_FRAG")
		return
	}
	if sink, ok := r.endpoints.LookupReader(hf.ReaderId); ok {
		sink.HandleHeartbeatFrag(*ctx, hf)
	}
}

func (r *Receiver) dispatchGap(ctx *MessageContext, sub rtpsmsg.RawSubmessage) {
	g, err := rtpsmsg.ParseGap(sub)
	if err != nil {
		r.log.WithError(err).Debug("receiver: malformed GAP")
		return
	}
	if sink, ok := r.endpoints.LookupReader(g.ReaderId); ok {
		sink.HandleGap(*ctx, g)
	}
}

func (r *Receiver) dispatchAckNack(ctx *MessageContext, sub rtpsmsg.RawSubmessage) {
	a, err := rtpsmsg.ParseAckNack(sub)
	if err != nil {
		r.log.WithError(err).Debug("receiver: malformed ACKNACK")
		return
	}
	if sink, ok := r.endpoints.LookupWriter(a.WriterId); ok {
		sink.HandleAckNack(*ctx, a)
	}
}

func (r *Receiver) dispatchNackFrag(ctx *MessageContext, sub rtpsmsg.RawSubmessage) {
	nf, err := rtpsmsg.ParseNackFrag(sub)
	if err != nil {
		r.log.WithError(err).Debug("receiver: malformed NACK_FRAG")
		return
	}
	if sink, ok := r.endpoints.LookupWriter(nf.WriterId); ok {
		sink.HandleNackFrag(*ctx, nf)
	}
}
