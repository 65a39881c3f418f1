package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissionsAllows(t *testing.T) {
	perms := Permissions{
		{Route: "/projects", Actions: []string{"write"}},
		{Route: "/echarts", Actions: []string{"read"}},
	}

	// Write implies read, but never the other way round.
	require.True(t, perms.Allows("/projects", "read"))
	require.True(t, perms.Allows("/projects", "write"))
	require.True(t, perms.Allows("/echarts", "read"))
	require.False(t, perms.Allows("/echarts", "write"))
	require.False(t, perms.Allows("/system-management/user", "read"))
}

func TestPermissionsEqualIgnoresOrder(t *testing.T) {
	a := Permissions{
		{Route: "/projects", Actions: []string{"read", "write"}},
		{Route: "/echarts", Actions: []string{"read"}},
	}
	b := Permissions{
		{Route: "/echarts", Actions: []string{"read"}},
		{Route: "/projects", Actions: []string{"write", "read"}},
	}
	require.True(t, a.Equal(b))

	c := Permissions{{Route: "/projects", Actions: []string{"read"}}}
	require.False(t, a.Equal(c))
}
