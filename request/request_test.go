package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_StartsWithNoHistory(t *testing.T) {
	s := New(1, 10.0)
	assert.Equal(t, int64(1), s.ID)
	assert.Equal(t, 10.0, s.InitialTime)
	assert.Empty(t, s.History)
	assert.False(t, s.Finished)
}

func TestRecordHop_AppendsInOrder(t *testing.T) {
	s := New(1, 0)
	s.RecordHop(Generator, "gen", 0)
	s.RecordHop(Network, "e1", 1)
	s.RecordHop(Client, "c1", 2)

	assert.Len(t, s.History, 3)
	last, ok := s.LastHop()
	assert.True(t, ok)
	assert.Equal(t, Client, last.ComponentType)
}

func TestLastHop_FalseWhenEmpty(t *testing.T) {
	s := New(1, 0)
	_, ok := s.LastHop()
	assert.False(t, ok)
}

func TestIsFirstVisitToClient_TrueWhenPrecededByGenerator(t *testing.T) {
	s := New(1, 0)
	s.RecordHop(Generator, "gen", 0)
	s.RecordHop(Network, "e1", 1)
	s.RecordHop(Client, "c1", 2)

	assert.True(t, s.IsFirstVisitToClient())
}

func TestIsFirstVisitToClient_FalseOnReturnVisit(t *testing.T) {
	s := New(1, 0)
	s.RecordHop(Generator, "gen", 0)
	s.RecordHop(Network, "e1", 1)
	s.RecordHop(Client, "c1", 2)
	s.RecordHop(Network, "e1", 3)
	s.RecordHop(LB, "lb1", 4)
	s.RecordHop(Network, "e2", 5)
	s.RecordHop(Server, "srv1", 6)
	s.RecordHop(Network, "e2", 7)
	s.RecordHop(Client, "c1", 8)

	assert.False(t, s.IsFirstVisitToClient())
}

func TestIsFirstVisitToClient_FalseWithFewerThanTwoHops(t *testing.T) {
	s := New(1, 0)
	assert.False(t, s.IsFirstVisitToClient())

	s.RecordHop(Generator, "gen", 0)
	assert.False(t, s.IsFirstVisitToClient())
}

func TestFinish_SetsFinishTimeAndFlag(t *testing.T) {
	s := New(1, 5.0)
	s.Finish(12.5)

	assert.True(t, s.Finished)
	assert.Equal(t, 12.5, s.FinishTime)
	assert.Equal(t, 7.5, s.Latency())
}

func TestFinish_PanicsWhenCalledTwice(t *testing.T) {
	s := New(1, 0)
	s.Finish(1)

	assert.Panics(t, func() { s.Finish(2) })
}
