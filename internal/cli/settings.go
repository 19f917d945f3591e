package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runSettings,
}

func runSettings(cmd *cobra.Command, args []string) error {
	setupLogging()

	store, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	data, err := yaml.Marshal(store.Values())
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", store.Path(), data)
	return nil
}
