package statusicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
)

func TestInstallIntakeIsExclusive(t *testing.T) {
	uninstall, err := InstallIntake(func(StatusIcon) {})
	require.NoError(t, err)
	assert.True(t, IntakeInstalled())

	_, err = InstallIntake(func(StatusIcon) {})
	assert.ErrorIs(t, err, ErrIntakeInstalled)

	uninstall()
	assert.False(t, IntakeInstalled())

	second, err := InstallIntake(func(StatusIcon) {})
	require.NoError(t, err)
	t.Cleanup(second)

	uninstall()
	assert.True(t, IntakeInstalled(), "a stale uninstall leaves the newer intake alone")
}

func TestAddIconToPanelUsesIntake(t *testing.T) {
	env, _, _ := testEnv()
	area := scene.NewStatusArea()

	var got []StatusIcon
	uninstall, err := InstallIntake(func(icon StatusIcon) { got = append(got, icon) })
	require.NoError(t, err)
	t.Cleanup(uninstall)

	icon := NewIndicatorIcon(env, newFakeIndicator("a"))
	AddIconToPanel(env, area, icon)

	assert.Equal(t, []StatusIcon{icon}, got)
	assert.Empty(t, area.Keys())
}

func TestAddIconToPanel(t *testing.T) {
	env, store, _ := testEnv()
	area := scene.NewStatusArea()

	first := NewIndicatorIcon(env, newFakeIndicator("a"))
	AddIconToPanel(env, area, first)

	w, ok := area.Get("appindicator-a")
	require.True(t, ok)
	assert.Equal(t, first, w)
	assert.Same(t, area.Box(scene.BoxRight), first.Actor().Parent())

	store.Update(func(v *settings.Values) { v.TrayPos = scene.BoxLeft })
	assert.Same(t, area.Box(scene.BoxLeft), first.Actor().Parent())
	assert.Empty(t, area.Box(scene.BoxRight).Children())

	second := NewIndicatorIcon(env, newFakeIndicator("a"))
	AddIconToPanel(env, area, second)

	assert.True(t, first.IsDestroyed(), "an older icon with the same id is replaced")
	w, _ = area.Get("appindicator-a")
	assert.Equal(t, second, w)

	second.Destroy()
	assert.Empty(t, area.Keys())
}
