package rbac

import "strings"

// Decision is the outcome of a route guard check.
type Decision struct {
	Allow    bool
	Redirect string
}

// ForbiddenPath is where denied requests are sent.
const ForbiddenPath = "/403"

// MenuNode is one entry of the navigation tree. A nil AllowedRoles means the
// node is visible to every role; an empty non-nil list hides it from all.
type MenuNode struct {
	Key          string     `yaml:"key"`
	Label        string     `yaml:"label"`
	Icon         string     `yaml:"icon,omitempty"`
	Path         string     `yaml:"path,omitempty"`
	AllowedRoles []string   `yaml:"allowedRoles,omitempty"`
	Children     []MenuNode `yaml:"children,omitempty"`
}

// HasChildren reports whether the node renders as a group.
func (n MenuNode) HasChildren() bool { return len(n.Children) > 0 }

// Active reports whether the node, or one of its children, owns current.
func (n MenuNode) Active(current string) bool {
	if n.Path != "" {
		if n.Path == "/" {
			if current == "/" {
				return true
			}
		} else if current == n.Path || strings.HasPrefix(current, n.Path+"/") {
			return true
		}
	}
	for _, child := range n.Children {
		if child.Active(current) {
			return true
		}
	}
	return false
}

func allows(allowed []string, role string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
