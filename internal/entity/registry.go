package entity

import "sync"

// Registry is the reference World implementation: a flat, mutex-guarded
// trait store keyed by Handle. It exists so this module is runnable and
// testable without a real host ECS attached — production embedders are
// expected to implement World against their own entity system instead.
type Registry struct {
	mu sync.RWMutex

	located        map[Handle]*Located
	collider       map[Handle]*Collider
	move           map[Handle]*Move
	moving         map[Handle]*Moving
	avoidance      map[Handle]*Avoidance
	trace          map[Handle]*Trace
	sphereObstacle map[Handle]*SphereObstacle
	boxObstacle    map[Handle]*BoxObstacle
	markers        map[Handle]map[TraitKind]struct{}

	valid map[Handle]bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		located:        make(map[Handle]*Located),
		collider:       make(map[Handle]*Collider),
		move:           make(map[Handle]*Move),
		moving:         make(map[Handle]*Moving),
		avoidance:      make(map[Handle]*Avoidance),
		trace:          make(map[Handle]*Trace),
		sphereObstacle: make(map[Handle]*SphereObstacle),
		boxObstacle:    make(map[Handle]*BoxObstacle),
		markers:        make(map[Handle]map[TraitKind]struct{}),
		valid:          make(map[Handle]bool),
	}
}

// Spawn allocates a fresh handle and marks it valid.
func (r *Registry) Spawn() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := NewHandle()
	r.valid[h] = true
	r.markers[h] = make(map[TraitKind]struct{})
	return h
}

// Despawn removes every trait associated with h.
func (r *Registry) Despawn(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.valid, h)
	delete(r.located, h)
	delete(r.collider, h)
	delete(r.move, h)
	delete(r.moving, h)
	delete(r.avoidance, h)
	delete(r.trace, h)
	delete(r.sphereObstacle, h)
	delete(r.boxObstacle, h)
	delete(r.markers, h)
}

func (r *Registry) mark(h Handle, kind TraitKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markers[h] == nil {
		r.markers[h] = make(map[TraitKind]struct{})
	}
	r.markers[h][kind] = struct{}{}
}

func (r *Registry) unmark(h Handle, kind TraitKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.markers[h], kind)
}

func (r *Registry) SetActivated(h Handle, on bool) {
	if on {
		r.mark(h, TraitActivated)
	} else {
		r.unmark(h, TraitActivated)
	}
}

func (r *Registry) SetRegisterMultiple(h Handle, on bool) {
	if on {
		r.mark(h, TraitRegisterMultiple)
	} else {
		r.unmark(h, TraitRegisterMultiple)
	}
}

func (r *Registry) SetDying(h Handle, on bool) {
	if on {
		r.mark(h, TraitDying)
	} else {
		r.unmark(h, TraitDying)
	}
}

func (r *Registry) SetCorpse(h Handle, on bool) {
	if on {
		r.mark(h, TraitCorpse)
	} else {
		r.unmark(h, TraitCorpse)
	}
}

func (r *Registry) SetAppearing(h Handle, on bool) {
	if on {
		r.mark(h, TraitAppearing)
	} else {
		r.unmark(h, TraitAppearing)
	}
}

func (r *Registry) SetAvoiding(h Handle, on bool) {
	if on {
		r.mark(h, TraitAvoiding)
	} else {
		r.unmark(h, TraitAvoiding)
	}
}

func (r *Registry) SetLocated(h Handle, v Located) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.located[h] = &v
	r.markers[h][TraitLocated] = struct{}{}
}

func (r *Registry) SetCollider(h Handle, v Collider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collider[h] = &v
	r.markers[h][TraitCollider] = struct{}{}
}

func (r *Registry) SetMove(h Handle, v Move) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.move[h] = &v
	r.markers[h][TraitMove] = struct{}{}
}

func (r *Registry) SetMoving(h Handle, v Moving) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moving[h] = &v
	r.markers[h][TraitMoving] = struct{}{}
}

func (r *Registry) SetAvoidance(h Handle, v Avoidance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.avoidance[h] = &v
	r.markers[h][TraitAvoidance] = struct{}{}
}

func (r *Registry) SetTrace(h Handle, v Trace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace[h] = &v
	r.markers[h][TraitTrace] = struct{}{}
}

func (r *Registry) SetSphereObstacle(h Handle, v SphereObstacle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sphereObstacle[h] = &v
	r.markers[h][TraitSphereObstacle] = struct{}{}
}

func (r *Registry) SetBoxObstacle(h Handle, v BoxObstacle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boxObstacle[h] = &v
	r.markers[h][TraitBoxObstacle] = struct{}{}
}

func (r *Registry) IsValid(h Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.valid[h]
}

func (r *Registry) HasTrait(h Handle, kind TraitKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch kind {
	case TraitLocated:
		_, ok := r.located[h]
		return ok
	case TraitCollider:
		_, ok := r.collider[h]
		return ok
	case TraitMove:
		_, ok := r.move[h]
		return ok
	case TraitMoving:
		_, ok := r.moving[h]
		return ok
	case TraitAvoidance:
		_, ok := r.avoidance[h]
		return ok
	case TraitTrace:
		_, ok := r.trace[h]
		return ok
	case TraitSphereObstacle:
		_, ok := r.sphereObstacle[h]
		return ok
	case TraitBoxObstacle:
		_, ok := r.boxObstacle[h]
		return ok
	default:
		_, ok := r.markers[h][kind]
		return ok
	}
}

func (r *Registry) Matches(h Handle, f Filter) bool {
	return f.Matches(r, h)
}

func (r *Registry) Located(h Handle) (*Located, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.located[h]
	return v, ok
}

func (r *Registry) Collider(h Handle) (*Collider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.collider[h]
	return v, ok
}

func (r *Registry) Move(h Handle) (*Move, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.move[h]
	return v, ok
}

func (r *Registry) Moving(h Handle) (*Moving, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.moving[h]
	return v, ok
}

func (r *Registry) Avoidance(h Handle) (*Avoidance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.avoidance[h]
	return v, ok
}

func (r *Registry) Trace(h Handle) (*Trace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.trace[h]
	return v, ok
}

func (r *Registry) SphereObstacle(h Handle) (*SphereObstacle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.sphereObstacle[h]
	return v, ok
}

func (r *Registry) BoxObstacle(h Handle) (*BoxObstacle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.boxObstacle[h]
	return v, ok
}

// ForEach iterates every valid handle matching f. Iteration order follows
// Go's map order (unspecified) — this mirrors the source's parallel
// enumeration, where order was never a correctness dependency (spec.md §5).
func (r *Registry) ForEach(f Filter, fn func(Handle)) {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.valid))
	for h, ok := range r.valid {
		if ok {
			handles = append(handles, h)
		}
	}
	r.mu.RUnlock()

	for _, h := range handles {
		if r.Matches(h, f) {
			fn(h)
		}
	}
}
