package statusicon

import (
	"math"

	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
)

// monitoredKeys are the settings that only matter while an icon exists.
var monitoredKeys = []string{
	settings.KeyIconSaturation,
	settings.KeyIconBrightness,
	settings.KeyIconContrast,
}

// EffectsController keeps the opacity of a status icon actor and the effects
// of its icon surface in sync with the settings and the hover state.
type EffectsController struct {
	settings settings.Source
	actor    *scene.Node
	icon     *scene.Node

	monitors    []func()
	disconnects []func()
	closed      bool
}

// NewEffectsController starts applying effects to actor. Opacity and hover
// are tracked for the lifetime of the controller.
func NewEffectsController(src settings.Source, actor *scene.Node) *EffectsController {
	c := &EffectsController{
		settings: src,
		actor:    actor,
	}

	c.disconnects = append(c.disconnects,
		src.Connect(settings.KeyIconOpacity, c.Update),
		actor.OnHoverChanged(c.onHoverChanged),
	)

	c.Update()

	return c
}

// SetIcon switches the node effects are applied to. A nil icon stops the
// settings monitoring until a new icon is set.
func (c *EffectsController) SetIcon(icon *scene.Node) {
	if c.closed {
		return
	}

	c.icon = icon
	c.Update()
	c.toggleMonitoring()
}

// Icon returns the node effects are applied to.
func (c *EffectsController) Icon() *scene.Node {
	return c.icon
}

// Monitoring reports whether the controller listens to the icon settings.
func (c *EffectsController) Monitoring() bool {
	return len(c.monitors) > 0
}

// Update recomputes opacity and effects from the settings.
func (c *EffectsController) Update() {
	if c.closed {
		return
	}

	if c.actor.Hover() {
		c.onHoverChanged(true)
		return
	}

	c.actor.SetOpacity(c.opacity())

	if c.icon == nil || c.icon.IsDestroyed() {
		return
	}

	saturation := c.settings.Double(settings.KeyIconSaturation)
	if saturation > 0 {
		setEffect(c.icon, scene.EffectDesaturate, func(e *scene.DesaturateEffect) {
			e.Factor = saturation
		})
	} else {
		c.icon.RemoveEffect(scene.EffectDesaturate)
	}

	brightness := c.settings.Double(settings.KeyIconBrightness)
	contrast := c.settings.Double(settings.KeyIconContrast)
	if brightness != 0 || contrast != 0 {
		setEffect(c.icon, scene.EffectBrightnessContrast, func(e *scene.BrightnessContrastEffect) {
			e.Brightness = brightness
			e.Contrast = contrast
		})
	} else {
		c.icon.RemoveEffect(scene.EffectBrightnessContrast)
	}
}

// Close disconnects every handler. The current effects stay attached.
func (c *EffectsController) Close() {
	if c.closed {
		return
	}

	c.stopMonitoring()

	for _, disconnect := range c.disconnects {
		disconnect()
	}

	c.disconnects = nil
	c.icon = nil
	c.closed = true
}

func (c *EffectsController) onHoverChanged(hover bool) {
	if !hover {
		c.Update()
		return
	}

	c.actor.SetOpacity(math.MaxUint8)

	if c.icon != nil {
		c.icon.RemoveEffect(scene.EffectDesaturate)
	}
}

func (c *EffectsController) opacity() uint8 {
	v, ok := c.settings.UserInt(settings.KeyIconOpacity)
	if !ok {
		return math.MaxUint8
	}

	return uint8(min(max(v, 0), math.MaxUint8))
}

func (c *EffectsController) toggleMonitoring() {
	if c.icon != nil {
		c.startMonitoring()
	} else {
		c.stopMonitoring()
	}
}

func (c *EffectsController) startMonitoring() {
	if c.Monitoring() {
		return
	}

	for _, key := range monitoredKeys {
		c.monitors = append(c.monitors, c.settings.Connect(key, c.Update))
	}
}

func (c *EffectsController) stopMonitoring() {
	for _, disconnect := range c.monitors {
		disconnect()
	}

	c.monitors = nil
}

// setEffect updates the effect attached under name in place, attaching a new
// one when there is none of type E.
func setEffect[E any, P interface {
	*E
	scene.Effect
}](n *scene.Node, name string, update func(P)) {
	if e, ok := n.Effect(name).(P); ok {
		update(e)
		return
	}

	e := P(new(E))
	update(e)
	n.AddEffect(name, e)
}
