// Package menu builds the navigation tree shown to a signed-in account.
package menu

import "github.com/czhcheng27/project-playground/client/api"

// Item is one node of the menu tree. A node with children is a branch; its
// own key is not permission-checked, it survives when any child does.
type Item struct {
	Key      string
	Title    string
	Icon     string
	Children []Item
}

// FilterByPermissions returns a new tree keeping leaves whose key is a
// granted route and branches with at least one surviving child. The input
// is never mutated.
func FilterByPermissions(items []Item, perms api.Permissions) []Item {
	var out []Item
	for _, item := range items {
		if len(item.Children) > 0 {
			children := FilterByPermissions(item.Children, perms)
			if len(children) == 0 {
				continue
			}
			branch := item
			branch.Children = children
			out = append(out, branch)
			continue
		}
		if perms.Allows(item.Key, "read") {
			leaf := item
			out = append(out, leaf)
		}
	}
	return out
}
