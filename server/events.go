package main

// EventKind names a gameplay event surfaced to audio/UI collaborators
type EventKind string

const (
	EvPlayerDamaged    EventKind = "player_damaged"
	EvPlayerDied       EventKind = "player_died"
	EvPlayerFrozen     EventKind = "player_frozen"
	EvEnemySpawned     EventKind = "enemy_spawned"
	EvEnemyAttack      EventKind = "enemy_attack"
	EvEnemyDamaged     EventKind = "enemy_damaged"
	EvEnemyDied        EventKind = "enemy_died"
	EvEnemyRoar        EventKind = "enemy_roar"
	EvEliteSpawned     EventKind = "elite_spawned"
	EvSpawnerDamaged   EventKind = "spawner_damaged"
	EvSpawnerDestroyed EventKind = "spawner_destroyed"
	EvSpawnerDisposed  EventKind = "spawner_disposed"
	EvBossPhase        EventKind = "boss_phase"
	EvBossStunned      EventKind = "boss_stunned"
	EvStunWindowOpen   EventKind = "stun_window_open"
	EvStunWindowClosed EventKind = "stun_window_closed"
	EvHazardTick       EventKind = "hazard_tick"
	EvInterference     EventKind = "interference"
	EvPhantomAudio     EventKind = "phantom_audio"
	EvDragPulse        EventKind = "drag_pulse"
	EvShadowSpawned    EventKind = "shadow_spawned"
	EvShadowDissolved  EventKind = "shadow_dissolved"
	EvFragment         EventKind = "fragment_collected"
	EvWeaponFired      EventKind = "weapon_fired"
	EvLevelComplete    EventKind = "level_complete"
	EvLevelFailed      EventKind = "level_failed"
)

// Event is one queued gameplay occurrence. Unused fields stay zero.
type Event struct {
	Kind    EventKind `json:"k" msgpack:"k"`
	Source  EntityID  `json:"src,omitempty" msgpack:"src,omitempty"`
	Amount  float64   `json:"amt,omitempty" msgpack:"amt,omitempty"`
	Pos     Vec3      `json:"pos" msgpack:"pos"`
	Text    string    `json:"txt,omitempty" msgpack:"txt,omitempty"`
	Index   int       `json:"idx,omitempty" msgpack:"idx,omitempty"`
	Success bool      `json:"ok,omitempty" msgpack:"ok,omitempty"`
}

// EventHandler receives dispatched events
type EventHandler func(ev Event)

// maxFlushRounds bounds handlers that keep emitting while being flushed
const maxFlushRounds = 8

// EventBus queues events emitted during an update pass and dispatches them
// once per frame, so entity updates never re-enter each other through
// callbacks. A nil *EventBus drops everything.
type EventBus struct {
	queue    []Event
	handlers map[EventKind][]EventHandler
	all      []EventHandler
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventKind][]EventHandler),
	}
}

// Emit queues an event for the next Flush
func (b *EventBus) Emit(ev Event) {
	if b == nil {
		return
	}
	b.queue = append(b.queue, ev)
}

// Subscribe registers a handler for one event kind
func (b *EventBus) Subscribe(kind EventKind, h EventHandler) {
	if b == nil || h == nil {
		return
	}
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers a handler that sees every event
func (b *EventBus) SubscribeAll(h EventHandler) {
	if b == nil || h == nil {
		return
	}
	b.all = append(b.all, h)
}

// Flush dispatches queued events in FIFO order. Events emitted by handlers
// are dispatched in the same flush, up to maxFlushRounds rounds.
// Returns the number of events dispatched.
func (b *EventBus) Flush() int {
	if b == nil {
		return 0
	}
	n := 0
	for round := 0; round < maxFlushRounds && len(b.queue) > 0; round++ {
		batch := b.queue
		b.queue = nil
		for _, ev := range batch {
			for _, h := range b.handlers[ev.Kind] {
				h(ev)
			}
			for _, h := range b.all {
				h(ev)
			}
			n++
		}
	}
	return n
}

// Pending returns the number of queued, undispatched events
func (b *EventBus) Pending() int {
	if b == nil {
		return 0
	}
	return len(b.queue)
}

// Reset drops queued events and all subscribers
func (b *EventBus) Reset() {
	if b == nil {
		return
	}
	b.queue = nil
	b.handlers = make(map[EventKind][]EventHandler)
	b.all = nil
}
