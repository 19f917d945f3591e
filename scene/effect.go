package scene

import "slices"

// Names under which the tray attaches its effects.
const (
	EffectDesaturate         = "desaturate"
	EffectBrightnessContrast = "brightness-contrast"
)

// Effect is a post-processing effect a shell applies when painting a node.
type Effect interface {
	Kind() string
}

// DesaturateEffect removes colour. Factor 1 is fully grey.
type DesaturateEffect struct {
	Factor float64
}

func (*DesaturateEffect) Kind() string { return "desaturate" }

// BrightnessContrastEffect shifts brightness and contrast, both in [-1, 1].
type BrightnessContrastEffect struct {
	Brightness float64
	Contrast   float64
}

func (*BrightnessContrastEffect) Kind() string { return "brightness-contrast" }

// Effect returns the effect attached under name, or nil.
func (n *Node) Effect(name string) Effect {
	return n.effects[name]
}

// AddEffect attaches e under name, replacing any effect with that name.
func (n *Node) AddEffect(name string, e Effect) {
	if _, ok := n.effects[name]; !ok {
		n.effectOrder = append(n.effectOrder, name)
	}

	n.effects[name] = e
}

// RemoveEffect detaches the effect named name and reports whether there was
// one.
func (n *Node) RemoveEffect(name string) bool {
	if _, ok := n.effects[name]; !ok {
		return false
	}

	delete(n.effects, name)
	n.effectOrder = slices.DeleteFunc(n.effectOrder, func(s string) bool { return s == name })

	return true
}

func (n *Node) ClearEffects() {
	clear(n.effects)
	n.effectOrder = nil
}

// EffectNames returns the names of attached effects in attach order.
func (n *Node) EffectNames() []string {
	return slices.Clone(n.effectOrder)
}
