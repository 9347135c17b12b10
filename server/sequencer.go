package main

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownLevel is returned when a level index is outside the campaign
var ErrUnknownLevel = errors.New("unknown level")

// campaign is the fixed level order
var campaign = []func() levelRules{
	newHiveLevel,
	newAnchorLevel,
	newBossLevel,
}

// LevelCount is the number of levels in the campaign
func LevelCount() int {
	return len(campaign)
}

// Sequencer owns the single live level and moves through the campaign
type Sequencer struct {
	tuning Tuning
	player *Player
	sink   EventHandler
	seed   uint64
	loads  uint64

	current *Level
	index   int
}

// NewSequencer creates a sequencer with no level loaded. Every event of
// every level it loads is forwarded to sink.
func NewSequencer(t Tuning, player *Player, sink EventHandler, seed uint64) *Sequencer {
	return &Sequencer{
		tuning: t,
		player: player,
		sink:   sink,
		seed:   seed,
		index:  -1,
	}
}

// Load disposes the current level and builds level index
func (s *Sequencer) Load(index int) error {
	if index < 0 || index >= len(campaign) {
		return fmt.Errorf("load level %d: %w", index, ErrUnknownLevel)
	}
	if s.current != nil {
		s.current.Dispose()
		s.current = nil
	}

	rules := campaign[index]()
	s.player.Reset(rules.start())
	s.loads++
	lvl := newLevel(index, rules, s.player, s.tuning, s.seed+s.loads)
	if s.sink != nil {
		lvl.Bus().SubscribeAll(s.sink)
	}
	s.current = lvl
	s.index = index
	slog.Info("level loaded", "level", index, "name", rules.name())
	return nil
}

// Update ticks the live level, if any
func (s *Sequencer) Update(dt float64) {
	if s.current == nil {
		return
	}
	s.current.Update(dt)
}

// Complete reports whether the live level has been won
func (s *Sequencer) Complete() bool {
	return s.current != nil && s.current.Complete()
}

// Failed reports whether the live level has been lost
func (s *Sequencer) Failed() bool {
	return s.current != nil && s.current.State() == LevelLost
}

// Next loads the following level. It returns false at the end of the campaign.
func (s *Sequencer) Next() (bool, error) {
	if s.index+1 >= len(campaign) {
		return false, nil
	}
	if err := s.Load(s.index + 1); err != nil {
		return false, err
	}
	return true, nil
}

// Reload restarts the current level from scratch
func (s *Sequencer) Reload() error {
	if s.index < 0 {
		return fmt.Errorf("reload: %w", ErrUnknownLevel)
	}
	return s.Load(s.index)
}

// Current returns the live level, nil before the first Load
func (s *Sequencer) Current() *Level {
	return s.current
}

// Index returns the live level index, -1 before the first Load
func (s *Sequencer) Index() int {
	return s.index
}

// Dispose tears down the live level
func (s *Sequencer) Dispose() {
	if s.current != nil {
		s.current.Dispose()
		s.current = nil
	}
}
