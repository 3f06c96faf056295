package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/adapters/config"
	"github.com/mikey-austin/pitv/internal/adapters/logging"
	"github.com/mikey-austin/pitv/internal/adapters/output"
	"github.com/mikey-austin/pitv/internal/adapters/prefs"
	"github.com/mikey-austin/pitv/internal/core"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

type app struct {
	cfg      config.Config
	log      *zap.Logger
	printer  output.Printer
	json     bool
	timeout  time.Duration
	endpoint string
	boot     pitv.Bootstrap
	prefs    *prefs.Store
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(core.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pitv",
		Short:        "Remote control for a pitv video player",
		SilenceUsage: true,
	}

	var (
		configPath string
		rawURL     string
		password   string
		timeout    time.Duration
		jsonOut    bool
		noColor    bool
		verbose    bool
	)

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	root.PersistentFlags().StringVarP(&rawURL, "url", "u", "", "player page or websocket URL (#pw=...&warn supported)")
	root.PersistentFlags().StringVarP(&password, "password", "p", "", "player password")
	root.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "command timeout")
	root.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output json")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return core.WrapError(core.ExitUsage, "load config", err)
		}
		if rawURL != "" {
			cfg.URL = rawURL
		}
		if password != "" {
			cfg.Password = password
		}
		if timeout > 0 {
			cfg.TimeoutMS = timeout.Milliseconds()
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if noColor || jsonOut {
			pterm.DisableColor()
		}

		log := logging.NewLogger(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cfg.Log.Output,
			UTC:    cfg.Log.UTC,
		})

		a := &app{
			cfg:     cfg,
			log:     log,
			json:    jsonOut,
			timeout: cfg.Timeout(),
		}
		if jsonOut {
			a.printer = output.JSONPrinter{}
		} else {
			a.printer = output.HumanPrinter{}
		}

		if cfg.URL == "" {
			return core.WrapError(core.ExitUsage, "url is required (set --url, PITV_URL or config)", nil)
		}
		clean, boot, err := pitv.ParseBootstrap(strings.TrimSpace(cfg.URL))
		if err != nil {
			return core.WrapError(core.ExitUsage, "invalid url", err)
		}
		if cfg.Password != "" {
			boot.Credential = cfg.Password
		}
		endpoint, err := pitv.EndpointURL(clean)
		if err != nil {
			return core.WrapError(core.ExitUsage, "invalid url", err)
		}
		a.endpoint = endpoint
		a.boot = boot

		store, err := prefs.NewStore()
		if err != nil {
			return err
		}
		a.prefs = store
		log.Debug("configured", zap.String("endpoint", endpoint), zap.String("prefs", store.Path()))

		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
		return nil
	}

	root.AddCommand(statusCommand())
	root.AddCommand(watchCommand())
	root.AddCommand(lsCommand())
	root.AddCommand(playCommand())
	root.AddCommand(downloadCommand())
	root.AddCommand(randomCommand())
	root.AddCommand(pauseCommand())
	root.AddCommand(seekCommand())
	root.AddCommand(positionCommand())
	root.AddCommand(muteCommand())
	root.AddCommand(rratedCommand())
	root.AddCommand(editCommand())
	root.AddCommand(imdbCommand())
	root.AddCommand(loginCommand())
	root.AddCommand(logoutCommand())
	root.AddCommand(warningCommand())
	root.AddCommand(bridgeCommand())

	return root
}

type appKey struct{}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}
