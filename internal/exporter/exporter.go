// Package exporter polls the published sheet and exposes the normalized
// tickets as Prometheus metrics.
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
	"github.com/rifqisp97-lab/technician-guardian/internal/report"
	"github.com/rifqisp97-lab/technician-guardian/internal/store"
	"github.com/rifqisp97-lab/technician-guardian/internal/ticket"
)

const namespace = "guardian"

// Source delivers the raw sheet text.
type Source interface {
	Fetch(ctx context.Context) (string, error)
	URL() string
}

// Cache persists snapshots between restarts. *store.Store implements it.
type Cache interface {
	Save(snap store.Snapshot) (store.Snapshot, error)
	Latest() (store.Snapshot, error)
}

// Options tunes an Exporter.
type Options struct {
	ListenAddress    string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Location         *time.Location
	Keyed            bool
	NotComplyMinutes int
	Now              func() time.Time
}

// Exporter owns the metric set and the HTTP server serving it.
type Exporter struct {
	src   Source
	cache Cache
	opts  Options

	registry *prometheus.Registry
	server   *http.Server

	tickets       *prometheus.GaugeVec
	sla           *prometheus.GaugeVec
	teamTickets   *prometheus.GaugeVec
	teamAvgTTR    *prometheus.GaugeVec
	teamProgress  *prometheus.GaugeVec
	openBacklog   prometheus.Gauge
	closedToday   prometheus.Gauge
	incomingMonth prometheus.Gauge
	closedMonth   prometheus.Gauge
	rowsDropped   *prometheus.GaugeVec
	dateFallbacks prometheus.Gauge
	snapshotTS    prometheus.Gauge
	scrapeDur     prometheus.Summary
	reqTotal      *prometheus.CounterVec
	lastSuccessTS prometheus.Gauge

	mu      sync.RWMutex
	current *store.Snapshot
}

// New builds an Exporter reading from src. cache may be nil.
func New(src Source, cache Cache, opts Options) *Exporter {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NotComplyMinutes <= 0 {
		opts.NotComplyMinutes = report.DefaultNotComplyMinutes
	}

	e := &Exporter{src: src, cache: cache, opts: opts, registry: prometheus.NewRegistry()}

	e.tickets = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tickets",
		Help:      "Number of tickets by team, status and owner group",
	}, []string{"team", "status", "owner_group"})
	e.sla = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ticket_sla",
		Help:      "Number of tickets per team that comply with or violate the resolution time limit",
	}, []string{"team", "compliance"})
	e.teamTickets = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "team_tickets",
		Help:      "Number of tickets per team by state (open, closed, regular, platinum)",
	}, []string{"team", "state"})
	e.teamAvgTTR = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "team_avg_ttr_minutes",
		Help:      "Average time to resolve per team in minutes",
	}, []string{"team"})
	e.teamProgress = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "team_progress_percent",
		Help:      "Share of a team's tickets that are closed",
	}, []string{"team"})
	e.openBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_backlog",
		Help:      "Number of tickets that are not closed",
	})
	e.closedToday = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "closed_today",
		Help:      "Number of tickets closed on the current day",
	})
	e.incomingMonth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "incoming_this_month",
		Help:      "Number of tickets reported in the current month",
	})
	e.closedMonth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "closed_this_month",
		Help:      "Number of tickets closed in the current month",
	})
	e.rowsDropped = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rows_dropped",
		Help:      "Rows of the last snapshot that did not become tickets, by reason",
	}, []string{"reason"})
	e.dateFallbacks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "date_fallbacks",
		Help:      "Unreadable required dates replaced by the processing time in the last snapshot",
	})
	e.snapshotTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_timestamp_seconds",
		Help:      "Unix timestamp of the snapshot currently exported",
	})
	e.scrapeDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace + "_exporter",
		Name:      "scrape_duration_seconds",
		Help:      "Time spent fetching and normalizing the sheet",
	})
	e.reqTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace + "_exporter",
		Name:      "requests_total",
		Help:      "Number of sheet fetches by status",
	}, []string{"status"})
	e.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace + "_exporter",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful fetch",
	})

	e.registry.MustRegister(
		e.tickets, e.sla, e.teamTickets, e.teamAvgTTR, e.teamProgress,
		e.openBacklog, e.closedToday, e.incomingMonth, e.closedMonth,
		e.rowsDropped, e.dateFallbacks, e.snapshotTS,
		e.scrapeDur, e.reqTotal, e.lastSuccessTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", e.healthz)
	mux.HandleFunc("/api/snapshot", e.snapshot)
	e.server = &http.Server{
		Addr:         opts.ListenAddress,
		Handler:      mux,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return e
}

// Handler returns the HTTP handler serving /metrics, /healthz and /api/snapshot.
func (e *Exporter) Handler() http.Handler { return e.server.Handler }

// Registry exposes the metric registry.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

func (e *Exporter) Serve() error                       { return e.server.ListenAndServe() }
func (e *Exporter) Shutdown(ctx context.Context) error { return e.server.Shutdown(ctx) }

// Current returns the snapshot being exported, if any.
func (e *Exporter) Current() (store.Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return store.Snapshot{}, false
	}
	return *e.current, true
}

// Warm publishes the cached snapshot so metrics are available before the
// first fetch completes.
func (e *Exporter) Warm() error {
	if e.cache == nil {
		return nil
	}
	snap, err := e.cache.Latest()
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	logging.Info("Serving cached snapshot", "id", snap.ID, "fetched_at", snap.FetchedAt, "tickets", len(snap.Tickets))
	e.publish(snap)
	return nil
}

// Collect fetches the sheet, normalizes it, stores the snapshot and updates
// the metrics. On failure the previously published snapshot stays in place.
func (e *Exporter) Collect(ctx context.Context) error {
	start := time.Now()
	defer func() { e.scrapeDur.Observe(time.Since(start).Seconds()) }()

	raw, err := e.src.Fetch(ctx)
	if err != nil {
		e.reqTotal.WithLabelValues("error").Inc()
		return err
	}
	e.reqTotal.WithLabelValues("ok").Inc()

	var diag ticket.Diagnostics
	opts := []ticket.Option{
		ticket.WithLocation(e.opts.Location),
		ticket.WithClock(e.opts.Now),
		ticket.WithDiagnostics(&diag),
	}
	parse := ticket.Parse
	if e.opts.Keyed {
		parse = ticket.ParseKeyed
	}
	snap := store.Snapshot{
		FetchedAt: e.opts.Now(),
		Source:    e.src.URL(),
		Tickets:   parse(raw, opts...),
	}
	snap.Diagnostics = diag

	if e.cache != nil {
		saved, err := e.cache.Save(snap)
		if err != nil {
			logging.Warn("Failed to cache snapshot", "error", err)
		} else {
			snap = saved
		}
	}

	logging.Debug("Collected snapshot", "tickets", len(snap.Tickets), "dropped", len(diag.Dropped), "date_fallbacks", diag.DateFallbacks)
	e.publish(snap)
	e.lastSuccessTS.Set(float64(snap.FetchedAt.Unix()))
	return nil
}

// Run collects once and then every interval until ctx is done.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) {
	collect := func() {
		if err := e.Collect(ctx); err != nil && ctx.Err() == nil {
			logging.Error("Collect failed, keeping previous snapshot", "error", err)
		}
	}

	collect()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collect()
		}
	}
}

func (e *Exporter) publish(snap store.Snapshot) {
	now := e.opts.Now().In(e.opts.Location)

	e.tickets.Reset()
	for _, t := range snap.Tickets {
		e.tickets.WithLabelValues(t.Team, t.Status, t.OwnerGroup).Inc()
	}

	teams := report.TeamPerformance(snap.Tickets, e.opts.NotComplyMinutes)
	e.sla.Reset()
	e.teamTickets.Reset()
	e.teamAvgTTR.Reset()
	e.teamProgress.Reset()
	for _, row := range teams {
		e.sla.WithLabelValues(row.Team, "comply").Set(float64(row.Tickets - row.NotComply))
		e.sla.WithLabelValues(row.Team, "violate").Set(float64(row.NotComply))
		e.teamTickets.WithLabelValues(row.Team, "open").Set(float64(row.Open))
		e.teamTickets.WithLabelValues(row.Team, "closed").Set(float64(row.Closed))
		e.teamTickets.WithLabelValues(row.Team, "regular").Set(float64(row.Regular))
		e.teamTickets.WithLabelValues(row.Team, "platinum").Set(float64(row.Platinum))
		e.teamAvgTTR.WithLabelValues(row.Team).Set(row.AvgTTR)
		e.teamProgress.WithLabelValues(row.Team).Set(float64(row.ProgressScore))
	}

	summary := report.Summarize(snap.Tickets, now, now)
	e.openBacklog.Set(float64(summary.OpenBacklog))
	e.closedToday.Set(float64(summary.ClosedOnDay))
	e.incomingMonth.Set(float64(summary.IncomingInMonth))
	e.closedMonth.Set(float64(summary.ClosedInMonth))

	e.rowsDropped.Reset()
	for _, reason := range []ticket.DropReason{ticket.ReasonTooFewFields, ticket.ReasonMissingTicketNo, ticket.ReasonMissingTeam} {
		e.rowsDropped.WithLabelValues(string(reason)).Set(float64(snap.Diagnostics.Count(reason)))
	}
	e.dateFallbacks.Set(float64(snap.Diagnostics.DateFallbacks))
	e.snapshotTS.Set(float64(snap.FetchedAt.Unix()))

	e.mu.Lock()
	e.current = &snap
	e.mu.Unlock()
}

func (e *Exporter) healthz(w http.ResponseWriter, r *http.Request) {
	if _, ok := e.Current(); !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no snapshot yet"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (e *Exporter) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := e.Current()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		logging.Warn("Failed to write snapshot response", "error", err)
	}
}
