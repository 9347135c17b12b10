package main

const (
	PlayerMoveSpeed = 6.0 // units/s at multiplier 1
	PlayerMoveSlack = 1.5 // tolerance over the nominal step for network jitter
)

// PlayerInput is the latest intent streamed by the client
type PlayerInput struct {
	Pos  Vec3 `json:"pos" msgpack:"pos"`
	Dir  Vec3 `json:"dir" msgpack:"dir"`
	Fire bool `json:"fire" msgpack:"fire"`
}

// Player is the server's view of the pilot. Position and aim come from the
// client; the server enforces speed limits, freezes and health.
type Player struct {
	ID     string
	Name   string
	Pos    Vec3
	Aim    Vec3
	Firing bool
	Health *Health
	Weapon *Weapon

	Kills       int
	DamageTaken float64
	Fragments   int

	input    PlayerInput
	hasInput bool
}

// NewPlayer creates a player at full health with a fresh weapon
func NewPlayer(id, name string, t Tuning) *Player {
	return &Player{
		ID:     id,
		Name:   name,
		Aim:    V3(0, 0, 1),
		Health: NewHealth(t.PlayerMaxHealth),
		Weapon: NewWeapon(t),
	}
}

// SetInput stores the latest client intent, applied on the next tick
func (p *Player) SetInput(in PlayerInput) {
	p.input = in
	p.hasInput = true
}

// Update applies the pending input. Movement is clamped to the current
// speed and ignored entirely while the player cannot move.
func (p *Player) Update(dt float64) {
	if !p.Health.Alive {
		p.Firing = false
		return
	}
	if !p.hasInput {
		return
	}
	if d := p.input.Dir.Normalize(); d.Len() > 0 {
		p.Aim = d
	}
	p.Firing = p.input.Fire

	if !p.Health.CanMove() {
		return
	}
	step := p.input.Pos.Sub(p.Pos)
	maxStep := PlayerMoveSpeed * p.Health.SpeedMultiplier() * dt * PlayerMoveSlack
	if l := step.Flat().Len(); l > maxStep && l > 0 {
		flat := step.Flat().Scale(maxStep / l)
		step = V3(flat.X, step.Y, flat.Z)
	}
	p.Pos = p.Pos.Add(step)
}

// TakeDamage reduces health and returns true if the player died
func (p *Player) TakeDamage(amount float64) bool {
	if !p.Health.Alive || amount <= 0 {
		return false
	}
	before := p.Health.Current
	died := p.Health.TakeDamage(amount)
	p.DamageTaken += before - p.Health.Current
	return died
}

// Reset puts the player at a level start with full health
func (p *Player) Reset(pos Vec3) {
	p.Pos = pos
	p.Aim = V3(0, 0, 1)
	p.Firing = false
	p.Health.Reset()
	p.Weapon.Reset()
	p.input = PlayerInput{Pos: pos, Dir: p.Aim}
	p.hasInput = false
	p.DamageTaken = 0
}

// PlayerState is the snapshot of the pilot
type PlayerState struct {
	ID     string  `json:"id" msgpack:"id"`
	Name   string  `json:"n" msgpack:"n"`
	Pos    Vec3    `json:"pos" msgpack:"pos"`
	Aim    Vec3    `json:"aim" msgpack:"aim"`
	HP     float64 `json:"hp" msgpack:"hp"`
	MaxHP  float64 `json:"mhp" msgpack:"mhp"`
	Alive  bool    `json:"a" msgpack:"a"`
	Frozen bool    `json:"fz,omitempty" msgpack:"fz,omitempty"`
	Speed  float64 `json:"spd" msgpack:"spd"`
	Kills  int     `json:"k" msgpack:"k"`
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	return PlayerState{
		ID:     p.ID,
		Name:   p.Name,
		Pos:    p.Pos.round(),
		Aim:    p.Aim.round(),
		HP:     round2(p.Health.Current),
		MaxHP:  p.Health.Max,
		Alive:  p.Health.Alive,
		Frozen: !p.Health.CanMove(),
		Speed:  p.Health.SpeedMultiplier(),
		Kills:  p.Kills,
	}
}
