package menu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/czhcheng27/project-playground/client/api"
)

func consoleTree() []Item {
	return []Item{
		{Key: "/", Title: "Home"},
		{Key: "/projects", Title: "Projects"},
		{Key: "/system-management", Title: "System", Children: []Item{
			{Key: "/system-management/user", Title: "Users"},
			{Key: "/system-management/role", Title: "Roles"},
		}},
	}
}

func TestFilterKeepsGrantedLeaves(t *testing.T) {
	perms := api.Permissions{
		{Route: "/", Actions: []string{"read"}},
		{Route: "/projects", Actions: []string{"write"}},
	}

	got := FilterByPermissions(consoleTree(), perms)
	require.Len(t, got, 2)
	require.Equal(t, "/", got[0].Key)
	require.Equal(t, "/projects", got[1].Key)
}

func TestFilterPrunesEmptyBranches(t *testing.T) {
	perms := api.Permissions{
		{Route: "/system-management/role", Actions: []string{"read"}},
	}

	got := FilterByPermissions(consoleTree(), perms)
	require.Len(t, got, 1)
	require.Equal(t, "/system-management", got[0].Key)
	require.Len(t, got[0].Children, 1)
	require.Equal(t, "/system-management/role", got[0].Children[0].Key)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	tree := consoleTree()
	perms := api.Permissions{{Route: "/system-management/user", Actions: []string{"read"}}}

	_ = FilterByPermissions(tree, perms)
	require.Len(t, tree[2].Children, 2)
}

func TestFilterEmptyPermissions(t *testing.T) {
	require.Empty(t, FilterByPermissions(consoleTree(), nil))
}
