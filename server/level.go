package main

import "log/slog"

// LevelState is the level's win/lose state machine
type LevelState uint8

const (
	LevelRunning LevelState = iota
	LevelWon
	LevelLost
)

func (s LevelState) String() string {
	switch s {
	case LevelRunning:
		return "running"
	case LevelWon:
		return "won"
	case LevelLost:
		return "lost"
	}
	return "unknown"
}

// levelRules is the per-level objective and mechanics
type levelRules interface {
	name() string
	start() Vec3
	setup(l *Level)
	update(l *Level, dt float64)
	checkWin(l *Level) bool
	progress(l *Level) (done, total int)
}

// extraTargets is implemented by rules that own hittable props
type extraTargets interface {
	targets() []Target
}

// targetID lets the level name what a shot hit
type targetID interface {
	TargetID() EntityID
}

// Fragment is a proximity-collected narrative collectible
type Fragment struct {
	ID        int    `json:"id" msgpack:"id"`
	Text      string `json:"txt" msgpack:"txt"`
	Pos       Vec3   `json:"pos" msgpack:"pos"`
	Collected bool   `json:"-" msgpack:"-"`
}

// LevelStats accumulates per-attempt counters for analytics and achievements
type LevelStats struct {
	Kills             int
	SpawnersDestroyed int
	Fragments         int
	DamageTaken       float64
	Shots             int
	Hits              int
	Duration          float64
}

// Level runs one level: it owns the clock, scheduler, event bus and every
// entity, and resolves combat once per tick.
type Level struct {
	Index int

	ctx       *simContext
	rules     levelRules
	player    *Player
	enemies   []*Enemy
	spawners  []*Spawner
	fragments []*Fragment
	state     LevelState
	disposed  bool
	stats     LevelStats
	lastShot  FireResult
}

func newLevel(index int, rules levelRules, player *Player, tuning Tuning, seed uint64) *Level {
	l := &Level{
		Index:  index,
		ctx:    newSimContext(tuning, seed),
		rules:  rules,
		player: player,
	}
	l.ctx.bus.Subscribe(EvEnemyAttack, l.onEnemyAttack)
	l.ctx.bus.Subscribe(EvEnemyDied, func(ev Event) {
		l.stats.Kills++
		l.player.Kills++
	})
	l.ctx.bus.Subscribe(EvSpawnerDestroyed, func(ev Event) {
		l.stats.SpawnersDestroyed++
	})
	rules.setup(l)
	return l
}

// Name returns the level rules name
func (l *Level) Name() string {
	return l.rules.name()
}

// State returns running, won or lost
func (l *Level) State() LevelState {
	return l.state
}

// Complete reports whether the objective has been met
func (l *Level) Complete() bool {
	return l.state == LevelWon
}

// Now returns the level clock in seconds
func (l *Level) Now() float64 {
	return l.ctx.now()
}

// Bus returns the level event bus
func (l *Level) Bus() *EventBus {
	return l.ctx.bus
}

// Player returns the player the level acts on
func (l *Level) Player() *Player {
	return l.player
}

// Enemies returns the live roster
func (l *Level) Enemies() []*Enemy {
	return l.enemies
}

// Spawners returns every spawner of the level
func (l *Level) Spawners() []*Spawner {
	return l.spawners
}

// Fragments returns the memory fragments, collected or not
func (l *Level) Fragments() []*Fragment {
	return l.fragments
}

// Stats returns the attempt counters so far
func (l *Level) Stats() LevelStats {
	s := l.stats
	s.Shots, s.Hits = l.player.Weapon.Shots()
	s.DamageTaken = l.player.DamageTaken
	s.Duration = l.ctx.now()
	return s
}

// LastShot returns the result of the most recent trigger pull
func (l *Level) LastShot() FireResult {
	return l.lastShot
}

// Progress returns objective completion as done/total
func (l *Level) Progress() (int, int) {
	return l.rules.progress(l)
}

// spawnEnemy creates an enemy and adds it to the roster
func (l *Level) spawnEnemy(kind EnemyKind, pos Vec3, owner EntityID) *Enemy {
	if l.disposed {
		return nil
	}
	e := newEnemy(l.ctx, kind, pos)
	e.SpawnerID = owner
	l.enemies = append(l.enemies, e)
	l.ctx.bus.Emit(Event{Kind: EvEnemySpawned, Source: e.ID, Pos: e.Position(), Text: kind.String()})
	return e
}

func (l *Level) addSpawner(s *Spawner) *Spawner {
	l.spawners = append(l.spawners, s)
	return s
}

func (l *Level) addFragment(text string, pos Vec3) {
	l.fragments = append(l.fragments, &Fragment{ID: len(l.fragments), Text: text, Pos: pos})
}

// LiveEnemies counts alive, non-dying enemies, optionally excluding bosses
func (l *Level) LiveEnemies(includeBoss bool) int {
	n := 0
	for _, e := range l.enemies {
		if e.Alive() && (includeBoss || e.Kind != EnemyBoss) {
			n++
		}
	}
	return n
}

// damagePlayer applies damage and emits the damage and death events
func (l *Level) damagePlayer(amount float64, source EntityID, quiet bool) {
	p := l.player
	if !p.Health.Alive || amount <= 0 {
		return
	}
	died := p.TakeDamage(amount)
	if !quiet {
		l.ctx.bus.Emit(Event{Kind: EvPlayerDamaged, Source: source, Amount: amount, Pos: p.Pos})
	}
	if died {
		l.ctx.bus.Emit(Event{Kind: EvPlayerDied, Source: source, Pos: p.Pos})
	}
}

func (l *Level) onEnemyAttack(ev Event) {
	if l.state != LevelRunning {
		return
	}
	l.damagePlayer(ev.Amount, ev.Source, false)
}

// targets lists hittable candidates: enemies, then spawners, then props
func (l *Level) targets() []Target {
	out := make([]Target, 0, len(l.enemies)+len(l.spawners)+4)
	for _, e := range l.enemies {
		out = append(out, e)
	}
	for _, s := range l.spawners {
		out = append(out, s)
	}
	if x, ok := l.rules.(extraTargets); ok {
		out = append(out, x.targets()...)
	}
	return out
}

// Update advances the level by one fixed tick
func (l *Level) Update(dt float64) {
	if l.disposed || l.state != LevelRunning {
		return
	}
	now := l.ctx.now() + dt
	l.ctx.sched.Advance(now)

	p := l.player
	p.Health.Tick(now)
	p.Update(dt)

	for _, s := range l.spawners {
		s.Update(dt)
	}
	l.rules.update(l, dt)

	for _, e := range l.enemies {
		e.Update(dt, p.Pos)
	}

	if p.Firing && p.Health.Alive {
		l.fire(now)
	}

	l.ctx.bus.Flush()
	l.prune()
	l.collectFragments()
	l.evaluate()
}

func (l *Level) fire(now float64) {
	p := l.player
	res := p.Weapon.Fire(now, p.Pos, p.Aim, l.targets())
	if !res.Fired {
		return
	}
	l.lastShot = res
	ev := Event{Kind: EvWeaponFired, Pos: p.Pos, Amount: res.Recoil, Success: res.Hit}
	if res.Hit {
		ev.Pos = res.Point
		if id, ok := res.Target.(targetID); ok {
			ev.Source = id.TargetID()
		}
	}
	l.ctx.bus.Emit(ev)
}

// prune drops enemies that are neither alive nor mid-disposal
func (l *Level) prune() {
	kept := l.enemies[:0]
	for _, e := range l.enemies {
		if e.alive || e.dying {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(l.enemies); i++ {
		l.enemies[i] = nil
	}
	l.enemies = kept
}

func (l *Level) collectFragments() {
	rng := l.ctx.tuning.FragmentPickupRange
	for _, f := range l.fragments {
		if f.Collected || l.player.Pos.HorizontalDistanceTo(f.Pos) > rng {
			continue
		}
		f.Collected = true
		l.player.Fragments++
		l.stats.Fragments++
		l.ctx.bus.Emit(Event{Kind: EvFragment, Index: f.ID, Text: f.Text, Pos: f.Pos})
	}
	l.ctx.bus.Flush()
}

// evaluate runs the win/lose check after every update in the tick.
// A dead player loses even if the objective fell on the same tick.
func (l *Level) evaluate() {
	switch {
	case !l.player.Health.Alive:
		l.state = LevelLost
		l.ctx.bus.Emit(Event{Kind: EvLevelFailed, Index: l.Index, Text: l.rules.name()})
		slog.Info("level failed", "level", l.Index, "time", round2(l.ctx.now()))
	case l.rules.checkWin(l):
		l.state = LevelWon
		l.ctx.bus.Emit(Event{Kind: EvLevelComplete, Index: l.Index, Text: l.rules.name()})
		slog.Info("level complete", "level", l.Index, "time", round2(l.ctx.now()))
	default:
		return
	}
	l.ctx.bus.Flush()
}

// Dispose tears the level down. Pending timers never fire afterwards.
func (l *Level) Dispose() {
	if l.disposed {
		return
	}
	l.disposed = true
	for _, e := range l.enemies {
		e.Dispose()
	}
	for _, s := range l.spawners {
		s.Dispose()
	}
	l.ctx.sched.Clear()
	l.ctx.bus.Reset()
	l.enemies = nil
}

// Disposed reports whether Dispose has run
func (l *Level) Disposed() bool {
	return l.disposed
}

// LevelView is the per-broadcast snapshot of a level
type LevelView struct {
	Index     int            `json:"idx" msgpack:"idx"`
	Name      string         `json:"name" msgpack:"name"`
	State     string         `json:"state" msgpack:"state"`
	Time      float64        `json:"t" msgpack:"t"`
	Done      int            `json:"done" msgpack:"done"`
	Total     int            `json:"total" msgpack:"total"`
	Player    PlayerState    `json:"p" msgpack:"p"`
	Enemies   []EnemyState   `json:"e" msgpack:"e"`
	Spawners  []SpawnerState `json:"s" msgpack:"s"`
	Boss      *BossView      `json:"b,omitempty" msgpack:"b,omitempty"`
	Runes     []RuneState    `json:"r,omitempty" msgpack:"r,omitempty"`
	Shadows   []Vec3         `json:"sh,omitempty" msgpack:"sh,omitempty"`
	Fragments []Fragment     `json:"fr,omitempty" msgpack:"fr,omitempty"`
}

// View builds the rendering snapshot
func (l *Level) View() LevelView {
	done, total := l.Progress()
	v := LevelView{
		Index:    l.Index,
		Name:     l.rules.name(),
		State:    l.state.String(),
		Time:     round2(l.ctx.now()),
		Done:     done,
		Total:    total,
		Player:   l.player.ToState(),
		Enemies:  make([]EnemyState, 0, len(l.enemies)),
		Spawners: make([]SpawnerState, 0, len(l.spawners)),
	}
	for _, e := range l.enemies {
		v.Enemies = append(v.Enemies, e.ToState())
		if bv := e.BossView(); bv != nil {
			v.Boss = bv
		}
	}
	for _, s := range l.spawners {
		if !s.Disposed() {
			v.Spawners = append(v.Spawners, s.ToState())
		}
	}
	for _, f := range l.fragments {
		if !f.Collected {
			v.Fragments = append(v.Fragments, *f)
		}
	}
	if r, ok := l.rules.(interface{ decorate(v *LevelView) }); ok {
		r.decorate(&v)
	}
	return v
}
