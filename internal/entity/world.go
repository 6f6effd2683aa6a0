package entity

// Filter is a conjunction of "include trait T" and "exclude trait T" tests,
// the core's stand-in for the host ECS filter described in spec.md §6.
type Filter struct {
	Include []TraitKind
	Exclude []TraitKind
}

// NewFilter builds a Filter requiring every trait in include and forbidding
// every trait in exclude.
func NewFilter(include []TraitKind, exclude ...TraitKind) Filter {
	return Filter{Include: include, Exclude: exclude}
}

// With returns a copy of f with additional required traits — used to amend
// the agent-neighbor filter when the querying agent is Dying (spec.md §6).
func (f Filter) With(include ...TraitKind) Filter {
	out := Filter{
		Include: append(append([]TraitKind{}, f.Include...), include...),
		Exclude: append([]TraitKind{}, f.Exclude...),
	}
	return out
}

// Matches reports whether h satisfies f against w.
func (f Filter) Matches(w World, h Handle) bool {
	for _, t := range f.Include {
		if !w.HasTrait(h, t) {
			return false
		}
	}
	for _, t := range f.Exclude {
		if w.HasTrait(h, t) {
			return false
		}
	}
	return true
}

// World is the minimal read/write trait contract the core requires of the
// host entity/component system (spec.md §6). A production embedder
// implements this against its own ECS; Registry is the reference
// implementation used by this module's own tests and demo driver.
type World interface {
	IsValid(h Handle) bool
	HasTrait(h Handle, kind TraitKind) bool
	Matches(h Handle, f Filter) bool

	Located(h Handle) (*Located, bool)
	Collider(h Handle) (*Collider, bool)
	Move(h Handle) (*Move, bool)
	Moving(h Handle) (*Moving, bool)
	Avoidance(h Handle) (*Avoidance, bool)
	Trace(h Handle) (*Trace, bool)
	SphereObstacle(h Handle) (*SphereObstacle, bool)
	BoxObstacle(h Handle) (*BoxObstacle, bool)

	// ForEach iterates every handle currently matching f. Order is
	// unspecified — callers needing determinism must sort.
	ForEach(f Filter, fn func(Handle))
}
