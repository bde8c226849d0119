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

// Command rtps runs one standalone RTPS/DDS DomainParticipant: it joins a
// domain over UDP, runs SPDP/SEDP discovery, and serves Prometheus metrics
// and a health check over HTTP. It exists to exercise internal/participant
// end to end; real users of this module call internal/participant and
// internal/facade directly from their own process.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"
)

var (
	buildVersion = "devel"
	buildBranch  = "unknown"
)

func main() {
	log := logrus.New()

	app := kingpin.New("rtps", "Standalone RTPS/DDS domain participant.")
	app.HelpFlag.Short('h')

	serve, serveCtx := registerServe(app)
	version := app.Command("version", "Build information for rtps.")

	args := os.Args[1:]
	switch kingpin.MustParse(app.Parse(args)) {
	case serve.FullCommand():
		if serveCtx.Debug {
			log.SetLevel(logrus.DebugLevel)
		}

		s, err := NewServe(log, serveCtx)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize rtps serve")
		}
		if err := s.doServe(); err != nil {
			log.WithError(err).Fatal("rtps serve failed")
		}
	case version.FullCommand():
		fmt.Printf("rtps version %s (branch %s)\n", buildVersion, buildBranch)
	}
}

// registerServe registers the serve subcommand and its flags with app,
// mapping each onto a fresh serveContext.
func registerServe(app *kingpin.Application) (*kingpin.CmdClause, *serveContext) {
	serve := app.Command("serve", "Join a domain and run discovery.")
	ctx := newServeContext()

	serve.Flag("domain-id", "RTPS domain id.").Default("0").IntVar(&ctx.Config.DomainId)
	serve.Flag("domain-tag", "Domain tag mixed into SPDP discovery.").StringVar(&ctx.Config.DomainTag)
	serve.Flag("participant-id", "Participant id within the domain, selects this process's well-known port.").Default("0").IntVar(&ctx.ParticipantId)
	serve.Flag("interface", "Network interface to bind the UDP transport to. Defaults to all interfaces.").StringVar(&ctx.InterfaceName)
	serve.Flag("fragment-size", "Maximum DATA_FRAG payload size in bytes.").IntVar(&ctx.Config.FragmentSize)
	serve.Flag("udp-receive-buffer-size", "SO_RCVBUF size for the UDP transport.").IntVar(&ctx.Config.UDPReceiveBufferSize)
	serve.Flag("announce-interval", "SPDP periodic announcement interval.").DurationVar(&ctx.Config.ParticipantAnnouncementInterval)
	serve.Flag("lease-duration", "SPDP ParticipantProxy lease duration.").DurationVar(&ctx.Config.LeaseDuration)
	serve.Flag("heartbeat-period", "StatefulWriter periodic HEARTBEAT interval.").DurationVar(&ctx.Config.HeartbeatPeriod)
	serve.Flag("nack-response-delay", "Stored in the configuration; not read by any writer.").DurationVar(&ctx.Config.NackResponseDelay)
	serve.Flag("nack-suppression-duration", "Stored in the configuration; not read by any reader or writer.").DurationVar(&ctx.Config.NackSuppressionDuration)

	serve.Flag("http-address", "Address the metrics/health HTTP endpoint binds to.").StringVar(&ctx.MetricsAddr)
	serve.Flag("http-port", "Port the metrics/health HTTP endpoint binds to.").IntVar(&ctx.MetricsPort)
	serve.Flag("health-address", "Address the health endpoint binds to, if different from --http-address.").StringVar(&ctx.HealthAddr)
	serve.Flag("health-port", "Port the health endpoint binds to, if different from --http-port.").IntVar(&ctx.HealthPort)

	serve.Flag("debug", "Enable debug logging.").Short('d').BoolVar(&ctx.Debug)

	return serve, ctx
}
