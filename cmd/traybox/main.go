// Command traybox collects status icons and background apps into a single
// collapsible tray.
package main

import (
	"os"

	"github.com/shelepuginivan/traybox/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
