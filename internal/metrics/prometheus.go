package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons used as the "reason" label.
const (
	SkipResult    = "result"
	SkipMalformed = "malformed"
)

// Collector records conversion metrics on its own registry so that separate
// runs (and tests) never share counters.
type Collector struct {
	registry *prometheus.Registry

	gamesTotal         prometheus.Counter
	rowsTotal          prometheus.Counter
	tokensSkippedTotal *prometheus.CounterVec
	conversionsTotal   *prometheus.CounterVec
	convertDuration    prometheus.Histogram
	gameMoves          prometheus.Histogram

	toolCallsTotal   *prometheus.CounterVec
	toolDurationSecs *prometheus.HistogramVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	mu     sync.Mutex
	totals Snapshot
}

// Snapshot is a point-in-time copy of the run totals.
type Snapshot struct {
	Games            int64
	Rows             int64
	SkippedResults   int64
	SkippedMalformed int64
	Conversions      int64
	FailedRuns       int64
	ToolCalls        map[string]int64
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		gamesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "othello_dataset_games_total",
			Help: "Total number of games replayed",
		}),
		rowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "othello_dataset_rows_total",
			Help: "Total number of dataset rows emitted",
		}),
		tokensSkippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "othello_dataset_tokens_skipped_total",
			Help: "Move tokens that were not played, by reason",
		}, []string{"reason"}),
		conversionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "othello_dataset_conversions_total",
			Help: "Conversion runs by status",
		}, []string{"status"}),
		convertDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "othello_dataset_convert_duration_seconds",
			Help:    "Duration of a full conversion run in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		gameMoves: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "othello_dataset_game_moves",
			Help:    "Moves played per game",
			Buckets: prometheus.LinearBuckets(0, 10, 7),
		}),
		toolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "othello_dataset_tool_calls_total",
			Help: "Total number of MCP tool calls",
		}, []string{"tool", "status"}),
		toolDurationSecs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "othello_dataset_tool_duration_seconds",
			Help:    "Duration of MCP tool calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "othello_dataset_http_requests_total",
			Help: "Total number of HTTP requests to the metrics and health endpoints",
		}, []string{"method", "path", "code"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "othello_dataset_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		totals: Snapshot{ToolCalls: make(map[string]int64)},
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordGame records one replayed game.
func (c *Collector) RecordGame(moves, skippedResults, skippedMalformed int) {
	c.gamesTotal.Inc()
	c.rowsTotal.Add(float64(moves))
	c.gameMoves.Observe(float64(moves))
	if skippedResults > 0 {
		c.tokensSkippedTotal.WithLabelValues(SkipResult).Add(float64(skippedResults))
	}
	if skippedMalformed > 0 {
		c.tokensSkippedTotal.WithLabelValues(SkipMalformed).Add(float64(skippedMalformed))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals.Games++
	c.totals.Rows += int64(moves)
	c.totals.SkippedResults += int64(skippedResults)
	c.totals.SkippedMalformed += int64(skippedMalformed)
}

// RecordConversion records the outcome of a whole run.
func (c *Collector) RecordConversion(success bool, durationSecs float64) {
	status := "success"
	if !success {
		status = "error"
	}
	c.conversionsTotal.WithLabelValues(status).Inc()
	c.convertDuration.Observe(durationSecs)

	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.totals.Conversions++
	} else {
		c.totals.FailedRuns++
	}
}

// RecordToolCall records an MCP tool call with its status and duration.
func (c *Collector) RecordToolCall(tool, status string, durationSecs float64) {
	c.toolCallsTotal.WithLabelValues(tool, status).Inc()
	c.toolDurationSecs.WithLabelValues(tool).Observe(durationSecs)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals.ToolCalls[tool]++
}

// RecordHTTPRequest records a request served by the HTTP endpoints.
func (c *Collector) RecordHTTPRequest(method, path, code string, durationSecs float64) {
	c.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(durationSecs)
}

// Snapshot returns a copy of the totals recorded so far.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.totals
	s.ToolCalls = make(map[string]int64, len(c.totals.ToolCalls))
	for k, v := range c.totals.ToolCalls {
		s.ToolCalls[k] = v
	}
	return s
}

// WriteTextfile writes every metric in the Prometheus text format, suitable
// for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
