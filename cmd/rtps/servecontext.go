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

import "github.com/projectrtps/rtps/internal/config"

// serveContext holds every flag the serve subcommand accepts, translated
// into an internal/config.Configuration plus the process-level knobs
// (participant id, interface, metrics/health addresses) config.Configuration
// doesn't itself own.
type serveContext struct {
	Config config.Configuration

	ParticipantId int
	InterfaceName string

	MetricsAddr string
	MetricsPort int
	HealthAddr  string
	HealthPort  int

	Debug bool
}

// newServeContext returns a serveContext seeded from config.Defaults, with
// the process-level knobs set to their own defaults.
func newServeContext() *serveContext {
	return &serveContext{
		Config:        config.Defaults(),
		ParticipantId: 0,
		MetricsAddr:   "0.0.0.0",
		MetricsPort:   8080,
		HealthAddr:    "0.0.0.0",
		HealthPort:    8080,
	}
}
