package main

// hiveLevel is level 1: destroy every hive. The second hive to fall wakes
// an elite guardian.
type hiveLevel struct {
	hives     []*Spawner
	destroyed int
	elite     *Enemy
}

const eliteTriggerCount = 2

var (
	hivePositions = []Vec3{
		{X: 20, Z: 30}, {X: -25, Z: 20}, {X: 35, Z: -15}, {X: -30, Z: -25}, {X: 0, Z: 45},
	}
	eliteSpawnPos = Vec3{X: 0, Z: 25}
	level1Start   = Vec3{Y: 1.6}
	level1Notes   = []fragmentSeed{
		{"Marina security log: the first nest appeared under the metro line.", Vec3{X: 10, Z: 10}},
		{"Torn notebook: they grow where the heat doesn't reach.", Vec3{X: -15, Z: 35}},
	}
)

type fragmentSeed struct {
	text string
	pos  Vec3
}

func newHiveLevel() levelRules {
	return &hiveLevel{}
}

func (h *hiveLevel) name() string {
	return "hives"
}

func (h *hiveLevel) start() Vec3 {
	return level1Start
}

func (h *hiveLevel) setup(l *Level) {
	for _, pos := range hivePositions {
		h.hives = append(h.hives, l.addSpawner(newHive(l.ctx, pos, l.spawnEnemy)))
	}
	for _, f := range level1Notes {
		l.addFragment(f.text, f.pos)
	}
	l.ctx.bus.Subscribe(EvSpawnerDestroyed, func(ev Event) {
		if ev.Text != SpawnerHive.String() {
			return
		}
		h.destroyed++
		if h.destroyed == eliteTriggerCount && h.elite == nil {
			h.elite = l.spawnEnemy(EnemyElite, eliteSpawnPos, 0)
			if h.elite != nil {
				l.ctx.bus.Emit(Event{Kind: EvEliteSpawned, Source: h.elite.ID, Pos: eliteSpawnPos})
			}
		}
	})
}

func (h *hiveLevel) update(l *Level, dt float64) {}

func (h *hiveLevel) checkWin(l *Level) bool {
	for _, s := range h.hives {
		if !s.Destroyed() {
			return false
		}
	}
	return len(h.hives) > 0
}

func (h *hiveLevel) progress(l *Level) (int, int) {
	done := 0
	for _, s := range h.hives {
		if s.Destroyed() {
			done++
		}
	}
	return done, len(h.hives)
}
