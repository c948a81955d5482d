package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsGranted(t *testing.T) {
	require.True(t, IsGranted(PermPostRead, []Permission{PermPostRead}))
	require.True(t, IsGranted(PermPostRead, []Permission{PermImageUpload, PermPostRead}))
	require.True(t, IsGranted(PermPostRead, []Permission{PermAll}))
	require.True(t, IsGranted(PermAll, []Permission{PermAll}))
	require.False(t, IsGranted(PermPostWrite, []Permission{PermPostRead}))
	require.False(t, IsGranted(PermAll, []Permission{PermPostRead}))
	require.False(t, IsGranted(PermPostRead, nil))
}

func TestParsePermissions(t *testing.T) {
	require.Equal(t, []Permission{PermPostRead, PermPostWrite}, ParsePermissions("post.read,post.write"))
	require.Equal(t, []Permission{PermAll}, ParsePermissions("all"))
	// Whitespace is tolerated, unknown names are dropped
	require.Equal(t, []Permission{PermPostRead}, ParsePermissions(" post.read , bogus.thing "))
	require.Equal(t, []Permission{}, ParsePermissions(""))
	// "none" is a route marker, never a stored grant
	require.Equal(t, []Permission{}, ParsePermissions("none"))
}

func TestJoinPermissions(t *testing.T) {
	require.Equal(t, "post.read,image.upload", JoinPermissions([]Permission{PermPostRead, PermImageUpload}))
	require.Equal(t, "", JoinPermissions(nil))
}
