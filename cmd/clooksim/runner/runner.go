/*
Copyright 2025 The iosched Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package runner

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/clookd/iosched/internal/runnable"
	"github.com/clookd/iosched/pkg/iosched/clook"
	"github.com/clookd/iosched/pkg/iosched/config"
	"github.com/clookd/iosched/pkg/iosched/host"
	"github.com/clookd/iosched/pkg/iosched/observability"
	"github.com/clookd/iosched/pkg/iosched/registry"
	"github.com/clookd/iosched/pkg/iosched/trace"
	logutil "github.com/clookd/iosched/pkg/iosched/util/logging"
	"github.com/clookd/iosched/version"
)

var setupLog = ctrl.Log.WithName("setup")

// Runner replays a trace file through a scheduler host.
type Runner struct {
	out io.Writer
}

func NewRunner() *Runner {
	return &Runner{out: os.Stdout}
}

// WithOutput redirects the dispatch listing.
func (r *Runner) WithOutput(w io.Writer) *Runner {
	r.out = w
	return r
}

type flags struct {
	tracePath    string
	policy       string
	queueType    string
	maxDevices   int
	disableMerge bool
	events       bool
	metricsPort  int
	holdMetrics  bool
	logVerbosity int
}

func (r *Runner) Run(ctx context.Context) error {
	logutil.InitSetupLogging()

	envCfg := config.FromEnv(setupLog)
	f := &flags{}
	fs := flag.CommandLine
	fs.StringVar(&f.tracePath, "trace", "-", "Trace file to replay. \"-\" reads standard input.")
	fs.StringVar(&f.policy, "policy", envCfg.PolicyName, "Scheduling policy attached to every device.")
	fs.StringVar(&f.queueType, "queue-type", envCfg.QueueType, "Pending queue implementation.")
	fs.IntVar(&f.maxDevices, "max-devices", envCfg.MaxDevices, "Maximum number of devices in the trace.")
	fs.BoolVar(&f.disableMerge, "disable-merge", envCfg.DisableMerge, "Disable merging of contiguous requests.")
	fs.BoolVar(&f.events, "events", false, "Print the scheduler diagnostic lines after the dispatch order.")
	fs.IntVar(&f.metricsPort, "metrics-port", 0, "Port serving Prometheus metrics. Zero disables the endpoint.")
	fs.BoolVar(&f.holdMetrics, "hold-metrics", false, "Keep serving metrics after the replay until interrupted.")
	fs.IntVar(&f.logVerbosity, "v", logutil.DEFAULT, "number for the log level verbosity")

	opts := zap.Options{Development: true}
	opts.BindFlags(fs)
	flag.Parse()
	logutil.InitLogging(&opts, f.logVerbosity)
	setupLog.Info("clooksim build", "commit-sha", version.CommitSHA, "build-ref", version.BuildRef)

	cfg, err := (&config.Config{
		PolicyName:   f.policy,
		QueueType:    f.queueType,
		MaxDevices:   f.maxDevices,
		DisableMerge: f.disableMerge,
	}).ValidateAndApplyDefaults()
	if err != nil {
		setupLog.Error(err, "Failed to validate flags")
		return err
	}
	setupLog.Info("Configuration loaded", "config", cfg)

	ops, err := readTrace(f.tracePath)
	if err != nil {
		setupLog.Error(err, "Failed to read trace", "path", f.tracePath)
		return err
	}

	serving := false
	if f.metricsPort > 0 {
		stop, err := startMetricsServer(ctx, f.metricsPort)
		if err != nil {
			setupLog.Error(err, "Failed to start metrics server", "port", f.metricsPort)
			return err
		}
		defer stop()
		serving = true
	}

	recorder := &observability.Recorder{}
	h := host.New(host.Options{
		Registry:     registry.NewDefaultRegistry(clook.WithDefaultQueue(cfg.QueueType)),
		QueueType:    cfg.QueueType,
		MaxDevices:   cfg.MaxDevices,
		DisableMerge: cfg.DisableMerge,
		Sink: observability.MultiSink(
			observability.NewLogSink(ctrl.Log),
			observability.NewMetricsSink(),
			recorder,
		),
		Logger: ctrl.Log,
	})

	dispatched, err := trace.Replay(log.IntoContext(ctx, ctrl.Log), h, cfg.PolicyName, ops)
	for _, d := range dispatched {
		fmt.Fprintln(r.out, d.String())
	}
	if err != nil {
		setupLog.Error(err, "Replay failed", "dispatched", len(dispatched))
		if drained, shutdownErr := h.Shutdown(context.Background()); shutdownErr != nil {
			setupLog.Error(shutdownErr, "Failed to shut down host", "drained", drained)
		}
		return err
	}
	if f.events {
		for _, line := range recorder.Lines() {
			fmt.Fprintln(r.out, line)
		}
	}
	setupLog.Info("Replay finished", "ops", len(ops), "dispatched", len(dispatched))

	if serving && f.holdMetrics {
		setupLog.Info("Serving metrics until interrupted", "port", f.metricsPort)
		<-ctx.Done()
	}
	return nil
}

func readTrace(path string) ([]trace.Op, error) {
	if path == "-" {
		return trace.Parse(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return trace.Parse(file)
}

func startMetricsServer(ctx context.Context, port int) (stop func(), err error) {
	lis, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(crmetrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := runnable.HTTPServer("metrics", srv, lis).Start(ctx); err != nil {
			setupLog.Error(err, "Metrics server stopped")
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}
