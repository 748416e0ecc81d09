package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AsyncFlow-Sim/AsyncFlow/metrics"
	"github.com/AsyncFlow-Sim/AsyncFlow/request"
)

func newCompletedRequest(id int64, start, finish float64) *request.State {
	s := request.New(id, start)
	s.Finish(finish)
	return s
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(map[string]bool{MetricRequestLatency: true})
}

func TestRecordCompletion_AppendsRecord(t *testing.T) {
	a := newTestAnalyzer()
	a.RecordCompletion(newCompletedRequest(1, 0, 2.5))

	assert.Len(t, a.Records, 1)
	assert.Equal(t, 2.5, a.Records[0].LatencySeconds)
}

func TestLatencySummary_EmptyWhenNoRecords(t *testing.T) {
	a := newTestAnalyzer()
	assert.Equal(t, LatencySummary{}, a.LatencySummary())
}

func TestLatencySummary_ComputesExpectedStats(t *testing.T) {
	a := newTestAnalyzer()
	for i, lat := range []float64{1, 2, 3, 4, 5} {
		a.RecordCompletion(newCompletedRequest(int64(i), 0, lat))
	}

	summary := a.LatencySummary()
	assert.Equal(t, 5, summary.Count)
	assert.Equal(t, 3.0, summary.Mean)
	assert.Equal(t, 3.0, summary.Median)
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 5.0, summary.Max)
}

func TestLatencySummary_SingleCompletionStaysFinite(t *testing.T) {
	a := newTestAnalyzer()
	a.RecordCompletion(newCompletedRequest(1, 0.010, 0.035))

	summary := a.LatencySummary()
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 0.025, summary.Mean, 1e-12)
	assert.Equal(t, 0.0, summary.StdDev, "one sample has zero spread, never NaN")
	assert.False(t, math.IsNaN(summary.Median))
	assert.False(t, math.IsNaN(summary.P95))
	assert.False(t, math.IsNaN(summary.P99))
}

func TestLatencySummary_StdDevIsPopulationNormalized(t *testing.T) {
	a := newTestAnalyzer()
	for i, lat := range []float64{1, 3} {
		a.RecordCompletion(newCompletedRequest(int64(i), 0, lat))
	}

	// Population std of {1, 3}: sqrt(((1-2)^2 + (3-2)^2) / 2) = 1.
	assert.InDelta(t, 1.0, a.LatencySummary().StdDev, 1e-12)
}

func TestThroughputSeries_BucketsIntoFixedWindows(t *testing.T) {
	a := newTestAnalyzer()
	a.RecordCompletion(newCompletedRequest(1, 0, 0.5))
	a.RecordCompletion(newCompletedRequest(2, 0, 0.9))
	a.RecordCompletion(newCompletedRequest(3, 0, 1.5))

	rates := a.ThroughputSeries(1.0)
	assert.Equal(t, []float64{2, 1}, rates)
}

func TestThroughputSeries_DefaultsWindowWhenNonPositive(t *testing.T) {
	a := newTestAnalyzer()
	a.RecordCompletion(newCompletedRequest(1, 0, 0.5))

	rates := a.ThroughputSeries(0)
	assert.Equal(t, []float64{1}, rates)
}

func TestSampledSeries_ReturnsAttachedSeries(t *testing.T) {
	a := newTestAnalyzer()
	assert.Nil(t, a.SampledSeries())

	s := metrics.Series{metrics.MetricEdgeInFlight: {"e1": {1, 2}}}
	a.AttachSeries(s)
	assert.Equal(t, s, a.SampledSeries())
}

func TestRecordCompletion_NoopWhenMetricNotEnabled(t *testing.T) {
	a := NewAnalyzer(map[string]bool{"something_else": true})
	a.RecordCompletion(newCompletedRequest(1, 0, 2.5))

	assert.Empty(t, a.Records)
}
