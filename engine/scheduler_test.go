package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_RunsInTimestampOrder(t *testing.T) {
	s := NewScheduler(100)
	var order []int

	s.Schedule(5, EventTypeGeneric, func() { order = append(order, 5) })
	s.Schedule(1, EventTypeGeneric, func() { order = append(order, 1) })
	s.Schedule(3, EventTypeGeneric, func() { order = append(order, 3) })

	s.Run()

	assert.Equal(t, []int{1, 3, 5}, order)
}

func TestScheduler_EventsAtOrPastHorizonNeverExecute(t *testing.T) {
	s := NewScheduler(10)
	fired := false

	s.Schedule(10, EventTypeGeneric, func() { fired = true })
	s.Run()

	assert.False(t, fired, "event scheduled exactly at horizon must not execute")
}

func TestScheduler_EventsBeforeHorizonExecute(t *testing.T) {
	s := NewScheduler(10)
	fired := false

	s.Schedule(9.999, EventTypeGeneric, func() { fired = true })
	s.Run()

	assert.True(t, fired)
}

func TestScheduler_SameTimestampOrderedByEventTypePriority(t *testing.T) {
	s := NewScheduler(100)
	var order []string

	s.Schedule(5, EventTypeGeneric, func() { order = append(order, "generic") })
	s.Schedule(5, EventTypeInjectionStart, func() { order = append(order, "start") })
	s.Schedule(5, EventTypeInjectionEnd, func() { order = append(order, "end") })

	s.Run()

	assert.Equal(t, []string{"end", "start", "generic"}, order)
}

func TestScheduler_SameTimestampSamePriorityOrderedByRegistration(t *testing.T) {
	s := NewScheduler(100)
	var order []int

	s.Schedule(5, EventTypeGeneric, func() { order = append(order, 1) })
	s.Schedule(5, EventTypeGeneric, func() { order = append(order, 2) })
	s.Schedule(5, EventTypeGeneric, func() { order = append(order, 3) })

	s.Run()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestScheduler_SchedulingInThePastPanics(t *testing.T) {
	s := NewScheduler(100)
	s.Schedule(10, EventTypeGeneric, func() {})
	s.Run()

	assert.Panics(t, func() {
		s.Schedule(5, EventTypeGeneric, func() {})
	})
}

func TestScheduler_NowAdvancesMonotonically(t *testing.T) {
	s := NewScheduler(100)
	var seen []float64

	s.Schedule(2, EventTypeGeneric, func() { seen = append(seen, s.Now()) })
	s.Schedule(7, EventTypeGeneric, func() { seen = append(seen, s.Now()) })

	s.Run()

	assert.Equal(t, []float64{2, 7}, seen)
}

func TestScheduler_ScheduleNowRunsAtCurrentInstant(t *testing.T) {
	s := NewScheduler(100)
	var order []string

	s.Schedule(5, EventTypeGeneric, func() {
		order = append(order, "outer")
		s.ScheduleNow(EventTypeGeneric, func() {
			order = append(order, "resumed")
		})
	})

	s.Run()

	assert.Equal(t, []string{"outer", "resumed"}, order)
}
