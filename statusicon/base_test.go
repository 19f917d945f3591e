package statusicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/traybox/scene"
)

func TestBaseWithoutVariantPanics(t *testing.T) {
	b := NewBase(Env{}, "bare")

	assert.PanicsWithError(t, "IsReady() in Base is not implemented", func() { b.IsReady() })
	assert.PanicsWithError(t, "UniqueID() in Base is not implemented", func() { b.UniqueID() })
}

func TestSetIconSurfaceOwnsOneSurface(t *testing.T) {
	b := NewBase(Env{}, "icon")

	destroyed := map[*scene.Node]int{}
	var surfaces []*scene.Node

	for range 4 {
		n := scene.NewNode("surface")
		n.OnDestroy(func() { destroyed[n]++ })
		surfaces = append(surfaces, n)

		require.NoError(t, b.SetIconSurface(n))
		require.NoError(t, b.SetIconSurface(n), "setting the same surface again is a no-op")

		assert.Same(t, n, b.Icon())
		assert.Equal(t, []*scene.Node{n}, b.Box().Children())
	}

	for _, n := range surfaces[:3] {
		assert.Equal(t, 1, destroyed[n])
	}
	assert.Zero(t, destroyed[surfaces[3]])

	b.Destroy()
	b.Destroy()

	for _, n := range surfaces {
		assert.Equal(t, 1, destroyed[n])
	}
	assert.True(t, b.Actor().IsDestroyed())
	assert.Nil(t, b.Icon())
}

func TestSetIconSurfaceRejectsInvalidSurfaces(t *testing.T) {
	b := NewBase(Env{}, "icon")

	dead := scene.NewNode("dead")
	dead.Destroy()

	for name, s := range map[string]scene.Surface{
		"nil":       nil,
		"typed nil": (*scene.Image)(nil),
		"destroyed": dead,
	} {
		var target *InvalidSurfaceError
		require.ErrorAs(t, b.SetIconSurface(s), &target, name)
	}

	assert.Nil(t, b.Icon())
}

func TestIconDestroyedElsewhereIsForgotten(t *testing.T) {
	b := NewBase(Env{}, "icon")
	n := scene.NewNode("surface")

	require.NoError(t, b.SetIconSurface(n))
	require.True(t, b.Effects().Monitoring())

	n.Destroy()

	assert.Nil(t, b.Icon())
	assert.False(t, b.Effects().Monitoring())
	assert.False(t, b.IsDestroyed())
}

func TestDestroyingActorDestroysIcon(t *testing.T) {
	b := NewBase(Env{}, "icon")

	destroyed := 0
	n := scene.NewNode("surface")
	n.OnDestroy(func() { destroyed++ })
	require.NoError(t, b.SetIconSurface(n))

	b.Actor().Destroy()

	assert.True(t, b.IsDestroyed())
	assert.Equal(t, 1, destroyed)
}
