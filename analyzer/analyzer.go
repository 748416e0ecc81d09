// Package analyzer implements the post-run read model: per-request
// latency, a latency summary, a throughput series over fixed windows, and
// pass-through of the sampled metric series. Mean, standard deviation and
// the P95/P99 percentiles come from gonum.org/v1/gonum/stat.
package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/AsyncFlow-Sim/AsyncFlow/metrics"
	"github.com/AsyncFlow-Sim/AsyncFlow/request"
)

// DefaultThroughputWindow is the default 1s fixed window.
const DefaultThroughputWindow = 1.0

// MetricRequestLatency names the per-completion event metric gated by
// SimSettings.EnabledEventMetrics, mirroring the sampled-metric Enabled
// set in metrics.Collector.
const MetricRequestLatency = "request_latency"

// RequestRecord is one completed request's latency record, persisted
// verbatim in the latencies output artifact.
type RequestRecord struct {
	RequestID      int64   `json:"request_id"`
	InitialTime    float64 `json:"initial_time"`
	FinishTime     float64 `json:"finish_time"`
	LatencySeconds float64 `json:"latency_seconds"`
}

// LatencySummary aggregates the latency distribution.
type LatencySummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Analyzer accumulates completed requests during a run and, after the run,
// exposes the read-model accessors.
type Analyzer struct {
	Records []RequestRecord
	Series  metrics.Series

	enabled map[string]bool
}

// NewAnalyzer creates an empty Analyzer. enabled names which event metrics
// (currently just MetricRequestLatency) RecordCompletion should record; a
// nil/empty set disables recording entirely. Series is attached after the
// run via AttachSeries (the collector owns it during the run).
func NewAnalyzer(enabled map[string]bool) *Analyzer {
	return &Analyzer{enabled: enabled}
}

// RecordCompletion appends a completed request's latency record, unless
// MetricRequestLatency is absent from the enabled set. Intended as the
// client runtime's onComplete callback.
func (a *Analyzer) RecordCompletion(req *request.State) {
	if !a.enabled[MetricRequestLatency] {
		return
	}
	a.Records = append(a.Records, RequestRecord{
		RequestID:      req.ID,
		InitialTime:    req.InitialTime,
		FinishTime:     req.FinishTime,
		LatencySeconds: req.Latency(),
	})
}

// AttachSeries attaches the collector's sampled series for read access
// after the run.
func (a *Analyzer) AttachSeries(s metrics.Series) {
	a.Series = s
}

// Latencies returns the per-request latency array.
func (a *Analyzer) Latencies() []float64 {
	out := make([]float64, len(a.Records))
	for i, r := range a.Records {
		out[i] = r.LatencySeconds
	}
	return out
}

// LatencySummary computes count/mean/median/stddev/P95/P99/min/max over
// the completed requests' latencies. StdDev is the population standard
// deviation, so a single completion yields 0, not NaN; the summary must
// stay finite for JSON serialization no matter how few requests finished.
func (a *Analyzer) LatencySummary() LatencySummary {
	data := a.Latencies()
	if len(data) == 0 {
		return LatencySummary{}
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	return LatencySummary{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: median(sorted),
		StdDev: stat.PopStdDev(sorted, nil),
		P95:    stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		P99:    stat.Quantile(0.99, stat.LinInterp, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

// median returns the middle value of sorted data, or the mean of the two
// middle values when the length is even.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ThroughputSeries buckets completions into fixed windows of `window`
// seconds (default 1s when window ≤ 0) and returns completions/window-size
// per bucket. Windows cover [0, maxT] where maxT is the latest completion;
// the final window may be partial but is divided by the full window size.
func (a *Analyzer) ThroughputSeries(window float64) []float64 {
	if window <= 0 {
		window = DefaultThroughputWindow
	}
	if len(a.Records) == 0 {
		return nil
	}

	maxT := 0.0
	for _, r := range a.Records {
		if r.FinishTime > maxT {
			maxT = r.FinishTime
		}
	}
	numWindows := int(math.Floor(maxT/window)) + 1

	counts := make([]float64, numWindows)
	for _, r := range a.Records {
		idx := int(r.FinishTime / window)
		if idx >= numWindows {
			idx = numWindows - 1
		}
		counts[idx]++
	}

	rates := make([]float64, numWindows)
	for i, c := range counts {
		rates[i] = c / window
	}
	return rates
}

// SampledSeries returns the collector's sampled time series keyed by
// metric name then entity ID.
func (a *Analyzer) SampledSeries() metrics.Series {
	return a.Series
}
