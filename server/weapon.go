package main

// Target is anything the hit-scan weapon can damage
type Target interface {
	Hittable() bool
	Body() *Body
	TakeDamage(amount float64) bool
}

// FireResult describes a single trigger pull
type FireResult struct {
	Fired  bool
	Hit    bool
	Target Target
	Point  Vec3
	Dist   float64
	Recoil float64 // upward camera kick in radians
}

// Weapon is the player's hit-scan rifle
type Weapon struct {
	FireInterval float64
	Range        float64
	Damage       float64
	Recoil       float64

	lastFire float64
	shots    int
	hits     int
}

// NewWeapon creates a weapon ready to fire immediately
func NewWeapon(t Tuning) *Weapon {
	return &Weapon{
		FireInterval: t.WeaponFireInterval,
		Range:        t.WeaponRange,
		Damage:       t.WeaponDamage,
		Recoil:       t.WeaponRecoil,
		lastFire:     -t.WeaponFireInterval,
	}
}

// CanFire reports whether the fire interval has elapsed
func (w *Weapon) CanFire(now float64) bool {
	return now-w.lastFire >= w.FireInterval
}

// Fire casts a ray from origin along dir and damages the first live target
// it intersects in enumeration order. A shot refused by the cooldown has no
// effect at all.
func (w *Weapon) Fire(now float64, origin, dir Vec3, targets []Target) FireResult {
	if !w.CanFire(now) {
		return FireResult{}
	}
	w.lastFire = now
	w.shots++
	res := FireResult{Fired: true, Recoil: w.Recoil}

	dir = dir.Normalize()
	if dir.Len() == 0 {
		return res
	}
	for _, t := range targets {
		if t == nil || !t.Hittable() {
			continue
		}
		dist, ok := t.Body().IntersectRay(origin, dir, w.Range)
		if !ok {
			continue
		}
		t.TakeDamage(w.Damage)
		w.hits++
		res.Hit = true
		res.Target = t
		res.Dist = dist
		res.Point = origin.Add(dir.Scale(dist))
		break
	}
	return res
}

// Accuracy returns hits over shots, 0 before the first shot
func (w *Weapon) Accuracy() float64 {
	if w.shots == 0 {
		return 0
	}
	return float64(w.hits) / float64(w.shots)
}

// Shots returns shots fired and shots that hit
func (w *Weapon) Shots() (int, int) {
	return w.shots, w.hits
}

// Reset clears cooldown and counters
func (w *Weapon) Reset() {
	w.lastFire = -w.FireInterval
	w.shots = 0
	w.hits = 0
}
