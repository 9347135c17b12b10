package main

// Health tracks one actor's vitality and movement impairment.
// Current is clamped to [0, Max]; once Alive is false nothing mutates it
// until Reset.
type Health struct {
	Current float64
	Max     float64
	Alive   bool

	canMove    bool
	speedMul   float64
	speedUntil float64 // game time the override expires, 0 = none
}

// NewHealth creates a full, living health record
func NewHealth(max float64) *Health {
	if max < 0 {
		max = 0
	}
	return &Health{
		Current:  max,
		Max:      max,
		Alive:    max > 0,
		canMove:  true,
		speedMul: 1,
	}
}

// TakeDamage reduces health and returns true if this call killed the actor
func (h *Health) TakeDamage(amount float64) bool {
	if !h.Alive || amount <= 0 {
		return false
	}
	h.Current = Clamp(h.Current-amount, 0, h.Max)
	if h.Current == 0 {
		h.Alive = false
		return true
	}
	return false
}

// Heal restores health up to Max. Dead actors stay dead.
func (h *Health) Heal(amount float64) {
	if !h.Alive || amount <= 0 {
		return
	}
	h.Current = Clamp(h.Current+amount, 0, h.Max)
}

// SetSpeedMultiplier overrides movement speed until now+duration.
// A zero multiplier also forbids movement entirely.
func (h *Health) SetSpeedMultiplier(mult, duration, now float64) {
	if mult < 0 {
		mult = 0
	}
	h.speedMul = mult
	h.canMove = mult > 0
	h.speedUntil = now + duration
}

// Tick restores default movement once an override has expired
func (h *Health) Tick(now float64) {
	if h.speedUntil > 0 && now >= h.speedUntil {
		h.speedMul = 1
		h.canMove = true
		h.speedUntil = 0
	}
}

// SpeedMultiplier returns the current movement speed factor
func (h *Health) SpeedMultiplier() float64 {
	return h.speedMul
}

// CanMove reports whether movement is allowed
func (h *Health) CanMove() bool {
	return h.canMove
}

// Fraction returns Current/Max in [0,1]
func (h *Health) Fraction() float64 {
	if h.Max <= 0 {
		return 0
	}
	return h.Current / h.Max
}

// Reset revives the record at full health with no movement penalty
func (h *Health) Reset() {
	h.Current = h.Max
	h.Alive = h.Max > 0
	h.canMove = true
	h.speedMul = 1
	h.speedUntil = 0
}
