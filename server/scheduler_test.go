package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerFiresInDeadlineOrder(t *testing.T) {
	s := NewScheduler()
	var order []string
	s.After(0, 2, func() { order = append(order, "late") })
	s.After(0, 1, func() { order = append(order, "early") })
	s.After(0, 1, func() { order = append(order, "early2") })

	assert.Equal(t, 0, s.Advance(0.5))
	assert.Equal(t, 3, s.Advance(5))
	assert.Equal(t, []string{"early", "early2", "late"}, order)
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	ran := false
	id := s.After(0, 1, func() { ran = true })
	assert.True(t, s.Cancel(id))
	assert.False(t, s.Cancel(id))
	s.Advance(2)
	assert.False(t, ran)
}

func TestSchedulerCancelOwner(t *testing.T) {
	s := NewScheduler()
	ran := 0
	s.After(7, 1, func() { ran++ })
	s.After(7, 2, func() { ran++ })
	s.After(8, 1, func() { ran++ })

	assert.Len(t, s.PendingFor(7), 2)
	assert.Equal(t, 2, s.CancelOwner(7))
	s.Advance(3)
	assert.Equal(t, 1, ran)
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerChainedTimerRunsWhenDue(t *testing.T) {
	s := NewScheduler()
	ran := 0
	s.After(0, 1, func() {
		ran++
		s.After(0, 0, func() { ran++ })
	})
	s.Advance(1)
	assert.Equal(t, 2, ran)
}

func TestSchedulerDelayIsRelativeToNow(t *testing.T) {
	s := NewScheduler()
	s.Advance(10)
	ran := false
	s.After(0, 1, func() { ran = true })
	s.Advance(10.5)
	assert.False(t, ran)
	s.Advance(11)
	assert.True(t, ran)
}

func TestSchedulerCallbackCancelsLaterTimer(t *testing.T) {
	s := NewScheduler()
	ran := false
	var later TimerID
	s.After(0, 1, func() { s.Cancel(later) })
	later = s.After(0, 1, func() { ran = true })
	s.After(0, 0.5, func() { s.After(0, 0, func() {}) })

	assert.Equal(t, 3, s.Advance(1))
	assert.False(t, ran, "a timer cancelled by an earlier callback never fires")
	assert.Equal(t, 0, s.Pending())
}
