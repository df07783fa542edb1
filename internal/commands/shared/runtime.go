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

package shared

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/tombee/httpwrap/internal/log"
	"github.com/tombee/httpwrap/internal/tracing"
	"github.com/tombee/httpwrap/pkg/client"
	"github.com/tombee/httpwrap/pkg/httpclient"
)

// Runtime bundles the logger, clients and telemetry a command uses.
type Runtime struct {
	Logger *slog.Logger
	Client *client.Client
	Async  *client.AsyncClient

	registry *prometheus.Registry
	provider *tracing.Provider
	stderr   io.Writer
}

// NewRuntime loads settings and builds the clients for cmd, honouring the
// global flags. Callers must Close the runtime.
func NewRuntime(cmd *cobra.Command) (*Runtime, error) {
	if err := LoadSettings(); err != nil {
		return nil, err
	}

	logCfg := log.FromEnv()
	logCfg.Output = cmd.ErrOrStderr()
	switch {
	case GetVerbose():
		logCfg.Level = "debug"
	case GetQuiet():
		logCfg.Level = "error"
	}
	logger := log.WithComponent(log.New(logCfg), cmd.Name())

	rt := &Runtime{Logger: logger, stderr: cmd.ErrOrStderr()}
	v, _, _ := GetVersion()

	httpCfg := httpclient.DefaultConfig()
	httpCfg.UserAgent = "httpwrap/" + v
	httpCfg.Logger = logger
	opts := []client.Option{client.WithLogger(logger)}

	if GetTrace() {
		provider, err := tracing.NewConsoleProvider(tracing.Config{
			ServiceVersion: v,
			Writer:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return nil, NewInvalidInputError("setting up tracing", err)
		}
		rt.provider = provider
		httpCfg.Propagator = tracing.W3CPropagator()
		opts = append(opts, client.WithTracer(provider.Tracer(client.TracerName)))
	}

	if GetMetrics() {
		rt.registry = prometheus.NewRegistry()
		opts = append(opts, client.WithMetrics(client.NewMetrics(rt.registry)))
	}

	transport, err := httpclient.New(httpCfg)
	if err != nil {
		return nil, NewInvalidInputError("creating HTTP transport", err)
	}
	rt.Client = client.New(transport, opts...)
	rt.Async = client.NewAsync(transport, opts...)

	return rt, nil
}

// Close releases the transport, flushes spans and writes metrics when
// requested.
func (r *Runtime) Close(ctx context.Context) error {
	errs := []error{r.Client.Close()}
	if r.provider != nil {
		errs = append(errs, r.provider.Shutdown(ctx))
	}
	if r.registry != nil {
		errs = append(errs, r.writeMetrics())
	}
	return errors.Join(errs...)
}

// writeMetrics writes the registry in the Prometheus text format.
func (r *Runtime) writeMetrics() error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(r.stderr, mf); err != nil {
			return err
		}
	}
	return nil
}
