package rbac

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var menuYAML []byte

var (
	defaultOnce sync.Once
	defaultMenu []MenuNode
	defaultErr  error
)

// DefaultMenu returns the embedded console navigation tree. Callers must not
// mutate the returned slice.
func DefaultMenu() ([]MenuNode, error) {
	defaultOnce.Do(func() {
		defaultMenu, defaultErr = ParseMenu(menuYAML)
	})
	return defaultMenu, defaultErr
}

// ParseMenu decodes a YAML menu definition and checks that paths and keys
// are unique.
func ParseMenu(raw []byte) ([]MenuNode, error) {
	var tree []MenuNode
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("rbac: parse menu: %w", err)
	}
	keys := map[string]struct{}{}
	paths := map[string]struct{}{}
	var walk func(nodes []MenuNode) error
	walk = func(nodes []MenuNode) error {
		for _, n := range nodes {
			if n.Key == "" {
				return fmt.Errorf("rbac: menu node %q has no key", n.Label)
			}
			if _, dup := keys[n.Key]; dup {
				return fmt.Errorf("rbac: duplicate menu key %q", n.Key)
			}
			keys[n.Key] = struct{}{}
			if n.Path != "" {
				if _, dup := paths[n.Path]; dup {
					return fmt.Errorf("rbac: duplicate menu path %q", n.Path)
				}
				paths[n.Path] = struct{}{}
			}
			if err := walk(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// FilterMenu returns the nodes visible to role. Nodes without an allow-list
// are kept; kept nodes get their children filtered recursively. A parent
// whose children are all hidden is still kept, with an empty child list.
// The input tree is never modified.
func FilterMenu(tree []MenuNode, role string) []MenuNode {
	out := make([]MenuNode, 0, len(tree))
	for _, n := range tree {
		if n.AllowedRoles != nil && !allows(n.AllowedRoles, role) {
			continue
		}
		kept := n
		if n.Children != nil {
			kept.Children = FilterMenu(n.Children, role)
		}
		out = append(out, kept)
	}
	return out
}

// GuardRoute decides whether role may enter a route restricted to
// allowedRoles. A nil list admits every role.
func GuardRoute(role string, allowedRoles []string) Decision {
	if allowedRoles == nil || allows(allowedRoles, role) {
		return Decision{Allow: true}
	}
	return Decision{Redirect: ForbiddenPath}
}
