// Package settings provides the live configuration of the tray.
//
// Settings are stored as YAML in ~/.config/traybox/settings.yaml. Every key
// has a change notification; [Store.Watch] reloads the file when it changes
// on disk and notifies exactly the keys whose values differ.
package settings

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shelepuginivan/traybox/internal/signal"
)

// Setting keys.
const (
	KeyArrowDirection = "arrow-direction"
	KeyIconSize       = "icon-size"
	KeyIconOpacity    = "icon-opacity"
	KeyIconSaturation = "icon-saturation"
	KeyIconBrightness = "icon-brightness"
	KeyIconContrast   = "icon-contrast"
	KeyTrayPos        = "tray-pos"
	KeyLongPressDelay = "long-press-delay"
)

// Keys lists every setting key.
var Keys = []string{
	KeyArrowDirection,
	KeyIconSize,
	KeyIconOpacity,
	KeyIconSaturation,
	KeyIconBrightness,
	KeyIconContrast,
	KeyTrayPos,
	KeyLongPressDelay,
}

// Source is the read side of the configuration as seen by tray components.
type Source interface {
	String(key string) string
	Int(key string) int
	Double(key string) float64
	Duration(key string) time.Duration

	// UserInt returns the value of an integer key and whether it was
	// explicitly set by the user.
	UserInt(key string) (int, bool)

	// Connect registers fn to run when key changes and returns a function
	// that disconnects it.
	Connect(key string, fn func()) (disconnect func())
}

// Values is the on-disk representation of the settings.
type Values struct {
	ArrowDirection string        `yaml:"arrow-direction"`
	IconSize       int           `yaml:"icon-size"`
	IconOpacity    *int          `yaml:"icon-opacity,omitempty"`
	IconSaturation float64       `yaml:"icon-saturation"`
	IconBrightness float64       `yaml:"icon-brightness"`
	IconContrast   float64       `yaml:"icon-contrast"`
	TrayPos        string        `yaml:"tray-pos"`
	LongPressDelay time.Duration `yaml:"long-press-delay"`
}

// Defaults returns the values used for unspecified keys.
func Defaults() Values {
	return Values{
		ArrowDirection: "down",
		TrayPos:        "right",
		LongPressDelay: 600 * time.Millisecond,
	}
}

// applyDefaults sets default values for unspecified settings.
func (v *Values) applyDefaults() {
	d := Defaults()

	if v.ArrowDirection == "" {
		v.ArrowDirection = d.ArrowDirection
	}
	if v.TrayPos == "" {
		v.TrayPos = d.TrayPos
	}
	if v.LongPressDelay <= 0 {
		v.LongPressDelay = d.LongPressDelay
	}
	if v.IconOpacity != nil {
		clamped := min(max(*v.IconOpacity, 0), 255)
		v.IconOpacity = &clamped
	}
}

// UnmarshalYAML implements custom unmarshaling for the duration field.
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ArrowDirection string  `yaml:"arrow-direction"`
		IconSize       int     `yaml:"icon-size"`
		IconOpacity    *int    `yaml:"icon-opacity"`
		IconSaturation float64 `yaml:"icon-saturation"`
		IconBrightness float64 `yaml:"icon-brightness"`
		IconContrast   float64 `yaml:"icon-contrast"`
		TrayPos        string  `yaml:"tray-pos"`
		LongPressDelay string  `yaml:"long-press-delay"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*v = Values{
		ArrowDirection: raw.ArrowDirection,
		IconSize:       raw.IconSize,
		IconOpacity:    raw.IconOpacity,
		IconSaturation: raw.IconSaturation,
		IconBrightness: raw.IconBrightness,
		IconContrast:   raw.IconContrast,
		TrayPos:        raw.TrayPos,
	}

	if raw.LongPressDelay != "" {
		d, err := time.ParseDuration(raw.LongPressDelay)
		if err != nil {
			return fmt.Errorf("parse long-press-delay: %w", err)
		}
		v.LongPressDelay = d
	}

	return nil
}

// MarshalYAML writes the duration field as a Go duration string.
func (v Values) MarshalYAML() (any, error) {
	out := struct {
		ArrowDirection string  `yaml:"arrow-direction"`
		IconSize       int     `yaml:"icon-size"`
		IconOpacity    *int    `yaml:"icon-opacity,omitempty"`
		IconSaturation float64 `yaml:"icon-saturation"`
		IconBrightness float64 `yaml:"icon-brightness"`
		IconContrast   float64 `yaml:"icon-contrast"`
		TrayPos        string  `yaml:"tray-pos"`
		LongPressDelay string  `yaml:"long-press-delay,omitempty"`
	}{
		ArrowDirection: v.ArrowDirection,
		IconSize:       v.IconSize,
		IconOpacity:    v.IconOpacity,
		IconSaturation: v.IconSaturation,
		IconBrightness: v.IconBrightness,
		IconContrast:   v.IconContrast,
		TrayPos:        v.TrayPos,
	}

	if v.LongPressDelay > 0 {
		out.LongPressDelay = v.LongPressDelay.String()
	}

	return out, nil
}

// Store holds the current settings and their change notifications.
type Store struct {
	mu       sync.RWMutex
	path     string
	values   Values
	handlers map[string]*signal.Signal[string]
	logger   *slog.Logger
}

// New returns an in-memory store holding v.
func New(v Values) *Store {
	v.applyDefaults()

	return &Store{
		values:   v,
		handlers: make(map[string]*signal.Signal[string]),
		logger:   slog.Default().With("component", "settings"),
	}
}

// DefaultPath returns ~/.config/traybox/settings.yaml.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}

	return filepath.Join(configDir, "traybox", "settings.yaml"), nil
}

// Load reads settings from path. A missing file yields the defaults.
func Load(path string) (*Store, error) {
	v, err := readValues(path)
	if err != nil {
		return nil, err
	}

	s := New(v)
	s.path = path

	return s, nil
}

func readValues(path string) (Values, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return Values{}, fmt.Errorf("read settings file: %w", err)
	}

	var v Values
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Values{}, fmt.Errorf("parse settings file %s: %w", path, err)
	}

	v.applyDefaults()
	return v, nil
}

// Path returns the file backing the store, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Values returns a copy of the current settings.
func (s *Store) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.values.clone()
}

// clone returns a copy of v that shares no memory with it.
func (v Values) clone() Values {
	if v.IconOpacity != nil {
		opacity := *v.IconOpacity
		v.IconOpacity = &opacity
	}

	return v
}

// Save writes the current settings to the backing file.
func (s *Store) Save() error {
	if s.path == "" {
		return fmt.Errorf("save settings: store has no file")
	}

	data, err := yaml.Marshal(s.Values())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func (s *Store) String(key string) string {
	v := s.Values()

	switch key {
	case KeyArrowDirection:
		return v.ArrowDirection
	case KeyTrayPos:
		return v.TrayPos
	}

	return ""
}

func (s *Store) Int(key string) int {
	v := s.Values()

	switch key {
	case KeyIconSize:
		return v.IconSize
	case KeyIconOpacity:
		if v.IconOpacity == nil {
			return 255
		}
		return *v.IconOpacity
	}

	return 0
}

func (s *Store) UserInt(key string) (int, bool) {
	v := s.Values()

	switch key {
	case KeyIconSize:
		return v.IconSize, v.IconSize != 0
	case KeyIconOpacity:
		if v.IconOpacity == nil {
			return 0, false
		}
		return *v.IconOpacity, true
	}

	return 0, false
}

func (s *Store) Double(key string) float64 {
	v := s.Values()

	switch key {
	case KeyIconSaturation:
		return v.IconSaturation
	case KeyIconBrightness:
		return v.IconBrightness
	case KeyIconContrast:
		return v.IconContrast
	}

	return 0
}

func (s *Store) Duration(key string) time.Duration {
	if key == KeyLongPressDelay {
		return s.Values().LongPressDelay
	}

	return 0
}

// Connect registers fn to run when key changes. It must be called from the
// event loop.
func (s *Store) Connect(key string, fn func()) func() {
	s.mu.Lock()
	sig, ok := s.handlers[key]
	if !ok {
		sig = &signal.Signal[string]{}
		s.handlers[key] = sig
	}
	s.mu.Unlock()

	return sig.Subscribe(func(string) { fn() })
}

// Update applies fn to a copy of the settings, stores the result and
// notifies the keys that changed. It must be called from the event loop.
func (s *Store) Update(fn func(v *Values)) []string {
	next := s.Values()
	fn(&next)

	return s.apply(next)
}

// apply replaces the settings and notifies changed keys.
func (s *Store) apply(next Values) []string {
	next.applyDefaults()

	s.mu.Lock()
	changed := changedKeys(s.values, next)
	s.values = next
	s.mu.Unlock()

	for _, key := range changed {
		s.logger.Debug("setting changed", "key", key)

		s.mu.RLock()
		sig := s.handlers[key]
		s.mu.RUnlock()

		if sig != nil {
			sig.Emit(key)
		}
	}

	return changed
}

func changedKeys(prev, next Values) []string {
	var changed []string

	if prev.ArrowDirection != next.ArrowDirection {
		changed = append(changed, KeyArrowDirection)
	}
	if prev.IconSize != next.IconSize {
		changed = append(changed, KeyIconSize)
	}
	if !sameOpacity(prev.IconOpacity, next.IconOpacity) {
		changed = append(changed, KeyIconOpacity)
	}
	if prev.IconSaturation != next.IconSaturation {
		changed = append(changed, KeyIconSaturation)
	}
	if prev.IconBrightness != next.IconBrightness {
		changed = append(changed, KeyIconBrightness)
	}
	if prev.IconContrast != next.IconContrast {
		changed = append(changed, KeyIconContrast)
	}
	if prev.TrayPos != next.TrayPos {
		changed = append(changed, KeyTrayPos)
	}
	if prev.LongPressDelay != next.LongPressDelay {
		changed = append(changed, KeyLongPressDelay)
	}

	return changed
}

func sameOpacity(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
