package healthcheck

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/everstacklabs/modelmeter/internal/backend"
	"github.com/everstacklabs/modelmeter/internal/httpclient"
	"github.com/everstacklabs/modelmeter/internal/registry"
	"golang.org/x/sync/errgroup"
)

// Status is the outcome of probing one model.
type Status string

const (
	StatusOK           Status = "ok"
	StatusFailed       Status = "failed"
	StatusSkipped      Status = "skipped"
	StatusUnconfigured Status = "unconfigured"
)

// Result is the probe outcome for one model.
type Result struct {
	Key     string
	Backend string
	Status  Status
	Latency time.Duration
	Error   string
}

// Options configures a Checker.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	Path        string
}

// Checker probes model backends for liveness.
type Checker struct {
	client   *httpclient.Client
	backends *backend.Resolver
	opts     Options
}

// New creates a Checker.
func New(client *httpclient.Client, backends *backend.Resolver, opts Options) *Checker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Checker{client: client, backends: backends, opts: opts}
}

// Run probes every model in models and returns results in the same order.
// Models excluded from health checks are reported skipped without a request.
// A failing probe never aborts the others.
func (c *Checker) Run(ctx context.Context, models []registry.Model) []Result {
	results := make([]Result, len(models))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, m := range models {
		results[i] = Result{Key: m.Key, Backend: m.Backend.Name}
		if !m.HealthChecked() {
			results[i].Status = StatusSkipped
			continue
		}

		i, m := i, m
		g.Go(func() error {
			results[i] = c.probe(ctx, m)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (c *Checker) probe(ctx context.Context, m registry.Model) Result {
	res := Result{Key: m.Key, Backend: m.Backend.Name}

	target, err := c.backends.Resolve(m)
	if err != nil {
		res.Status = StatusUnconfigured
		res.Error = err.Error()
		return res
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	headers := map[string]string{}
	if target.APIKey != "" {
		headers["Authorization"] = "Bearer " + target.APIKey
		headers["api-key"] = target.APIKey
	}

	url := strings.TrimRight(target.Endpoint, "/") + c.opts.Path
	if target.APIVersion != "" {
		url += "?api-version=" + target.APIVersion
	}

	resp, err := c.client.Get(ctx, url, headers)
	if err != nil {
		slog.Warn("health check failed", "model", m.Key, "backend", m.Backend.Name, "error", err)
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}

	slog.Debug("health check ok", "model", m.Key, "latency", resp.Latency)
	res.Status = StatusOK
	res.Latency = resp.Latency
	return res
}

// Healthy reports whether no probed model failed. Skipped and
// unconfigured models do not count as failures.
func Healthy(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFailed {
			return false
		}
	}
	return true
}
