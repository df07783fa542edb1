// Copyright 2025 Tom Barlow
//
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

package client

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/request"
	"github.com/tombee/httpwrap/pkg/response"
)

// Metrics holds the Prometheus collectors updated by a Client.
type Metrics struct {
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	policyViolations *prometheus.CounterVec
}

// NewMetrics creates the client collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpwrap_requests_total",
				Help: "Total requests by method and outcome (status class or error type)",
			},
			[]string{"method", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "httpwrap_request_duration_seconds",
				Help:    "Duration of requests, including redirects and normalisation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		policyViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpwrap_policy_violations_total",
				Help: "Requests rejected by the security policy",
			},
			[]string{"policy"},
		),
	}
}

// invalidMethod labels requests whose method failed validation.
const invalidMethod = "invalid"

// record updates the collectors for one finished request.
func (m *Metrics) record(method string, duration time.Duration, resp *response.Response, err error) {
	if m == nil {
		return
	}
	label := methodLabel(method)
	m.count(label, resp, err)
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// reject counts a request that failed validation and was never sent.
func (m *Metrics) reject(method string, err error) {
	if m == nil {
		return
	}
	m.count(methodLabel(method), nil, err)
}

func (m *Metrics) count(method string, resp *response.Response, err error) {
	outcome := "error"
	switch {
	case err != nil:
		outcome = wraperrors.TypeOf(err)
	case resp != nil:
		outcome = strconv.Itoa(resp.StatusCode()/100) + "xx"
	}
	m.requests.WithLabelValues(method, outcome).Inc()

	if policy := policyOf(err); policy != "" {
		m.policyViolations.WithLabelValues(policy).Inc()
	}
}

// methodLabel keeps the method label to the accepted methods.
func methodLabel(method string) string {
	if !request.ValidMethod(method) {
		return invalidMethod
	}
	return strings.ToLower(strings.TrimSpace(method))
}

// policyOf returns the policy label for a policy violation, or "".
func policyOf(err error) string {
	var policyErr *wraperrors.PolicyError
	if errors.As(err, &policyErr) {
		return policyErr.Policy
	}
	var redirectErr *wraperrors.UnsafeRedirectError
	if errors.As(err, &redirectErr) {
		return redirectErr.ErrorType()
	}
	return ""
}
