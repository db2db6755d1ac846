package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/travelboard/internal/apiclient"
	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/config"
	"github.com/mmynk/travelboard/internal/mirror"
	"github.com/mmynk/travelboard/internal/reorder"
	"github.com/mmynk/travelboard/internal/service"
	"github.com/mmynk/travelboard/internal/state"
	"github.com/mmynk/travelboard/internal/storage"
	"github.com/mmynk/travelboard/internal/storage/jsonfile"
	"github.com/mmynk/travelboard/internal/storage/memory"
	"github.com/mmynk/travelboard/internal/storage/sqlite"
	"github.com/mmynk/travelboard/internal/token"
)

// app is the client wired for one invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	store   storage.Store
	tokens  *token.Store
	client  *apiclient.Client
	svc     *service.Service
	mirror  *mirror.Mirror
	coord   *reorder.Coordinator
	session *state.Session
	ui      *state.UI
	metrics *prometheus.Registry
}

func openStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Kind {
	case config.StorageSQLite:
		return sqlite.New(cfg.StoragePath())
	case config.StorageJSON:
		return jsonfile.New(cfg.StoragePath())
	case config.StorageMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage %q", cfg.Storage.Kind)
}

func openApp(ctx context.Context, env Env) (*app, error) {
	st, err := openStorage(env.Config)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := &app{
		cfg:    env.Config,
		logger: env.Logger,
		in:     bufio.NewReader(env.Stdin),
		out:    env.Stdout,
		errOut: env.Stderr,
		store:   st,
		metrics: prometheus.NewRegistry(),
	}
	a.session = state.NewSession(st, a.logger)
	a.session.Rehydrate(ctx)
	a.ui = state.NewUI(st, a.logger)
	a.ui.Rehydrate(ctx)

	a.tokens = token.New(st, a.logger)
	a.client = apiclient.New(env.Config.API.URL, a.tokens,
		apiclient.WithHTTPClient(&http.Client{Timeout: env.Config.API.Timeout}),
		apiclient.WithLogger(a.logger),
		apiclient.WithRegisterer(a.metrics),
		apiclient.WithSessionExpiredHook(func() {
			a.session.ClearUser(context.WithoutCancel(ctx))
		}),
	)
	a.svc = service.New(a.client, cache.New(cache.WithRegisterer(a.metrics)),
		service.WithLogger(a.logger),
		service.WithStaleTime(env.Config.API.BoardsStaleTime, 0),
	)
	a.mirror = mirror.New(a.svc, mirror.WithLogger(a.logger), mirror.WithRegisterer(a.metrics))
	a.svc.OnCardSaved(a.mirror)
	a.coord = reorder.NewCoordinator(a.svc, a.logger)
	return a, nil
}

// close waits for pending card mirrors and releases storage.
func (a *app) close() error {
	a.mirror.Wait()
	stats := a.svc.Cache().Stats()
	a.logger.Debug("Query cache", "hits", stats.Hits, "misses", stats.Misses, "entries", stats.Entries)
	a.logMetrics(context.Background())
	return a.store.Close()
}

// logMetrics writes every collected sample at debug level.
func (a *app) logMetrics(ctx context.Context) {
	if !a.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	samples, err := gatherSamples(a.metrics)
	if err != nil {
		a.logger.Warn("Gathering metrics failed", "error", err)
		return
	}
	for _, s := range samples {
		a.logger.Debug("Metric", "name", s.name, "value", s.value)
	}
}

type sample struct {
	name  string
	value float64
}

// gatherSamples flattens the registry into one sample per series. Series
// names carry their labels; histograms report their observation count.
func gatherSamples(reg prometheus.Gatherer) ([]sample, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	var out []sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, len(labels))
				for i, l := range labels {
					pairs[i] = l.GetName() + "=" + l.GetValue()
				}
				name += "{" + strings.Join(pairs, ",") + "}"
			}
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				v = float64(m.GetHistogram().GetSampleCount())
			}
			out = append(out, sample{name: name, value: v})
		}
	}
	return out, nil
}

// explain turns API errors into the line shown to the user.
func explain(err error) string {
	switch {
	case errors.Is(err, apiclient.ErrAuthRequired):
		return "not logged in. Run: travelboard login"
	case errors.Is(err, apiclient.ErrSessionExpired):
		return err.Error() + ". Run: travelboard login"
	case apiclient.IsConnectivity(err):
		return "cannot reach the API: " + err.Error()
	}
	return err.Error()
}
