package physics

// GroupRegistry tracks named collision group membership across components,
// for cross-component grouping and lookup. Like WorldContext it is owned by
// the world owner and passed down explicitly.
type GroupRegistry struct {
	members    map[string]map[Collider]struct{}
	byCollider map[Collider][]string
}

func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{
		members:    make(map[string]map[Collider]struct{}),
		byCollider: make(map[Collider][]string),
	}
}

// Add registers h as a member of the named groups.
func (r *GroupRegistry) Add(h Collider, groups ...string) {
	if r == nil || h == nil || len(groups) == 0 {
		return
	}
	for _, g := range groups {
		set := r.members[g]
		if set == nil {
			set = make(map[Collider]struct{})
			r.members[g] = set
		}
		if _, ok := set[h]; ok {
			continue
		}
		set[h] = struct{}{}
		r.byCollider[h] = append(r.byCollider[h], g)
	}
}

// Remove deregisters h from every group it belongs to.
func (r *GroupRegistry) Remove(h Collider) {
	if r == nil || h == nil {
		return
	}
	for _, g := range r.byCollider[h] {
		if set := r.members[g]; set != nil {
			delete(set, h)
			if len(set) == 0 {
				delete(r.members, g)
			}
		}
	}
	delete(r.byCollider, h)
}

// Members returns the colliders registered in the named group.
func (r *GroupRegistry) Members(group string) []Collider {
	if r == nil {
		return nil
	}
	set := r.members[group]
	if len(set) == 0 {
		return nil
	}
	out := make([]Collider, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

// GroupsOf returns the group names h is registered in.
func (r *GroupRegistry) GroupsOf(h Collider) []string {
	if r == nil || h == nil {
		return nil
	}
	return r.byCollider[h]
}
