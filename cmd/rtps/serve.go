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

package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/projectrtps/rtps/internal/actor"
	"github.com/projectrtps/rtps/internal/health"
	"github.com/projectrtps/rtps/internal/httpsvc"
	"github.com/projectrtps/rtps/internal/lifecycle"
	"github.com/projectrtps/rtps/internal/metrics"
	"github.com/projectrtps/rtps/internal/participant"
	"github.com/projectrtps/rtps/internal/transport/udp"
)

// Serve holds everything doServe needs to run one participant process.
type Serve struct {
	log      logrus.FieldLogger
	ctx      *serveContext
	group    lifecycle.Group
	registry *prometheus.Registry
	part     *participant.Participant
}

// NewServe binds the UDP transport on this participant's well-known port,
// joins the domain's SPDP multicast group, and constructs the Participant.
// It does not yet start anything; call doServe for that.
func NewServe(log logrus.FieldLogger, ctx *serveContext) (*Serve, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics(registry)

	port := participant.DefaultUnicastPort(ctx.Config.DomainId, ctx.ParticipantId)

	var opts []udp.Option
	if ctx.Config.UDPReceiveBufferSize > 0 {
		opts = append(opts, udp.WithReceiveBufferSize(ctx.Config.UDPReceiveBufferSize))
	}
	if ctx.InterfaceName != "" {
		ifi, err := net.InterfaceByName(ctx.InterfaceName)
		if err != nil {
			return nil, errors.Wrapf(err, "rtps serve: looking up interface %q", ctx.InterfaceName)
		}
		opts = append(opts, udp.WithInterface(ifi))
	}

	tport, err := udp.New(log, port, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "rtps serve: binding transport")
	}

	if err := tport.JoinMulticastGroup(participant.SPDPMulticastLocator(ctx.Config.DomainId)); err != nil {
		tport.Close()
		return nil, errors.Wrap(err, "rtps serve: joining spdp multicast group")
	}

	part, err := participant.New(log, ctx.Config, actor.RealClock{}, tport)
	if err != nil {
		tport.Close()
		return nil, errors.Wrap(err, "rtps serve: constructing participant")
	}
	part.SetMetrics(m)
	m.SetParticipantsActive(1)

	return &Serve{
		log:      log,
		ctx:      ctx,
		registry: registry,
		part:     part,
	}, nil
}

// doServe runs the participant's background loops and its HTTP endpoints
// under one lifecycle.Group until a signal or an unrecoverable error stops
// the process.
func (s *Serve) doServe() error {
	defer s.part.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s.part.Run(ctx, &s.group)

	s.setupHTTP()

	return s.group.Run()
}

func (s *Serve) setupHTTP() {
	metricsvc := httpsvc.Service{
		Addr:        s.ctx.MetricsAddr,
		Port:        s.ctx.MetricsPort,
		FieldLogger: s.log.WithField("context", "metricsvc"),
	}
	metricsvc.ServeMux.Handle("/metrics", metrics.Handler(s.registry))

	h := health.Handler(s.part)
	if s.ctx.HealthAddr == s.ctx.MetricsAddr && s.ctx.HealthPort == s.ctx.MetricsPort {
		metricsvc.ServeMux.Handle("/healthz", h)
		s.group.AddContext(metricsvc.Start)
		return
	}

	s.group.AddContext(metricsvc.Start)

	healthsvc := httpsvc.Service{
		Addr:        s.ctx.HealthAddr,
		Port:        s.ctx.HealthPort,
		FieldLogger: s.log.WithField("context", "healthsvc"),
	}
	healthsvc.ServeMux.Handle("/healthz", h)
	s.group.AddContext(healthsvc.Start)
}
