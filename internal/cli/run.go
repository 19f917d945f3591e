package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/shelepuginivan/traybox/aggregator"
	"github.com/shelepuginivan/traybox/internal/loop"
	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/statusicon"
	"github.com/shelepuginivan/traybox/xembed"
)

var (
	enableXEmbed  bool
	monitorWidth  int
	monitorHeight int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tray",
	Long: `Run the tray on the session bus. The tray model is presented headless:
it is logged after startup and whenever the process receives SIGUSR1.`,
	Args: cobra.NoArgs,
	RunE: runTray,
}

func init() {
	runCmd.Flags().BoolVar(&enableXEmbed, "xembed", false, "act as the X11 system tray manager")
	runCmd.Flags().IntVar(&monitorWidth, "monitor-width", 1920, "width of the primary monitor in pixels")
	runCmd.Flags().IntVar(&monitorHeight, "monitor-height", 1080, "height of the primary monitor in pixels")
}

func runTray(cmd *cobra.Command, args []string) error {
	logger := setupLogging()

	store, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := loop.New()

	if err := store.Watch(ctx, l.Post); err != nil {
		logger.Warn("settings reload disabled", "error", err)
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	env := statusicon.Env{
		Settings:      store,
		Stage:         scene.NewStage(primaryMonitor()),
		Scheduler:     l,
		Logger:        logger,
		NewMenuClient: aggregator.DBusMenuFactory(conn, l.Post),
	}

	area := scene.NewStatusArea()

	tray := aggregator.New(aggregator.Options{
		Env:        env,
		StatusArea: area,
		StartIndicators: func(registered func(statusicon.Indicator)) (aggregator.IndicatorSource, error) {
			src, err := aggregator.StartDBusIndicators(conn, l.Post, registered)
			if err != nil {
				return nil, err
			}

			return src, nil
		},
		WatcherNameOwned: aggregator.WatcherNameOwned(conn),
	})

	l.Post(func() {
		if err := tray.Enable(); err != nil {
			logger.Error("failed to enable tray", "error", err)
			stop()
			return
		}

		logTree(logger, area, tray)
	})

	if enableXEmbed {
		startXEmbed(ctx, l, env, area, logger)
	}

	dumps := make(chan os.Signal, 1)
	signal.Notify(dumps, syscall.SIGUSR1)
	defer signal.Stop(dumps)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-dumps:
				l.Post(func() { logTree(logger, area, tray) })
			}
		}
	}()

	logger.Info("starting traybox", "settings", store.Path(), "xembed", enableXEmbed)

	err = l.Run(ctx)
	tray.Disable()

	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}

	return err
}

func primaryMonitor() scene.Monitor {
	return scene.Monitor{Width: float64(monitorWidth), Height: float64(monitorHeight)}
}

// startXEmbed docks legacy tray windows as status icons. A manager that
// cannot start is logged and skipped.
func startXEmbed(ctx context.Context, l *loop.Loop, env statusicon.Env, area *scene.StatusArea, logger *slog.Logger) {
	manager, err := xembed.NewManager(xembed.Options{Dispatch: l.Post, Logger: logger})
	if err != nil {
		logger.Warn("legacy tray disabled", "error", err)
		return
	}

	go func() {
		if err := manager.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("legacy tray stopped", "error", err)
		}
	}()

	go func() {
		for client := range manager.Added() {
			l.Post(func() {
				icon, err := statusicon.NewTrayIcon(env, client)
				if err != nil {
					logger.Warn("failed to create legacy tray icon", "class", client.WMClass(), "error", err)
					return
				}

				statusicon.AddIconToPanel(env, area, icon)
			})
		}
	}()
}

func logTree(logger *slog.Logger, area *scene.StatusArea, tray *aggregator.Tray) {
	for _, box := range []string{scene.BoxLeft, scene.BoxCenter, scene.BoxRight} {
		logger.Info("panel box", "box", box, "tree", "\n"+scene.Dump(area.Box(box)))
	}

	if menu := tray.Menu(); menu != nil {
		logger.Info("tray menu", "open", menu.IsOpen(), "icons", tray.IconIDs(), "apps", tray.BackgroundAppIDs(), "tree", "\n"+scene.Dump(menu.Node()))
	}
}
