package rbac

import "sort"

// Policy maps every menu path to its effective allow-list. The effective
// list of a node is its own list intersected with its ancestors' lists, so
// a path is allowed for a role exactly when FilterMenu keeps its entry.
type Policy struct {
	routes map[string][]string
}

// NewPolicy derives the route policy from a menu tree.
func NewPolicy(tree []MenuNode) Policy {
	p := Policy{routes: make(map[string][]string)}
	p.collect(tree, nil)
	return p
}

func (p Policy) collect(nodes []MenuNode, inherited []string) {
	for _, n := range nodes {
		effective := intersect(inherited, n.AllowedRoles)
		if n.Path != "" {
			p.routes[n.Path] = effective
		}
		p.collect(n.Children, effective)
	}
}

// Roles returns the effective allow-list for path. ok is false when path is
// not a menu route.
func (p Policy) Roles(path string) (roles []string, ok bool) {
	roles, ok = p.routes[path]
	return roles, ok
}

// Allow evaluates the guard for role on a menu path. Unknown paths are denied.
func (p Policy) Allow(path, role string) Decision {
	roles, ok := p.routes[path]
	if !ok {
		return Decision{Redirect: ForbiddenPath}
	}
	return GuardRoute(role, roles)
}

// Paths lists every route in the policy, sorted.
func (p Policy) Paths() []string {
	out := make([]string, 0, len(p.routes))
	for path := range p.routes {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// intersect treats nil as "everyone".
func intersect(a, b []string) []string {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	out := []string{}
	for _, r := range b {
		if allows(a, r) {
			out = append(out, r)
		}
	}
	return out
}
