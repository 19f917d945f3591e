package statusicon

import (
	"errors"
	"fmt"

	"github.com/shelepuginivan/traybox/scene"
)

// ErrIntakeInstalled is returned by [InstallIntake] while another intake
// hook is installed.
var ErrIntakeInstalled = errors.New("icon intake hook already installed")

// ErrNoScheduler is returned by [NewTrayIcon] when the environment has no
// scheduler.
var ErrNoScheduler = errors.New("status icon environment has no scheduler")

// InvalidSurfaceError reports a value that cannot be shown as an icon.
type InvalidSurfaceError struct {
	Surface scene.Surface
}

func (e *InvalidSurfaceError) Error() string {
	return fmt.Sprintf("%#v is not a valid icon surface", e.Surface)
}

// NotImplementedError reports a method called on a status icon without a
// bound variant. It is raised with panic.
type NotImplementedError struct {
	Method string
	Type   string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s() in %s is not implemented", e.Method, e.Type)
}
