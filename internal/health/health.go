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

// Package health provides the /healthz endpoint cmd/rtps serves alongside
// /metrics.
package health

import (
	"fmt"
	"net/http"

	"github.com/projectrtps/rtps/internal/participant"
)

// Handler returns a http Handler that answers 200 with p's GUID, or 503 when
// p is nil. It does not probe p's transport.
func Handler(p *participant.Participant) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			http.Error(w, "participant not initialized", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK %s\n", p.Guid())
	})
}
