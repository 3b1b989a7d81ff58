package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"pkt.systems/pslog"
	"pkt.systems/usbswitch"
	"pkt.systems/usbswitch/resourcelock"
)

func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("USBSWITCH_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "usbswitch").With("invocation", xid.New().String())
	cmd := newRootCommand(baseLogger)
	ctx = withSignalCancel(ctx)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		return 1
	}
	return 0
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	var cfg usbswitch.Config

	cmd := &cobra.Command{
		Use:           "usbswitch",
		Short:         "usbswitch routes the USB peripheral on the CAN Switcher board to the PC or to the ECU",
		SilenceErrors: true,
		Example: `
  # Route the USB drive to the host computer
  usbswitch connect pc

  # Route the USB drive to the target
  usbswitch connect ecu

  # Show which resource locks are currently held
  usbswitch locks

  # Run a maintenance command with exclusive use of every shared resource
  usbswitch exclusive -- tar czf /srv/backup.tgz /var/lib/usbswitch
`,
	}

	persistentFlags := cmd.PersistentFlags()
	persistentFlags.String("config", "", "path to config file (default: $HOME/.usbswitch/config.yaml when present)")
	persistentFlags.String("lock-dir", resourcelock.DefaultDirectory(), "shared directory holding the coordination lock files")
	persistentFlags.Duration("timeout", usbswitch.DefaultAcquireTimeout, "how long to wait for a contended resource lock (0 waits forever)")
	persistentFlags.Int("i2c-bus", usbswitch.DefaultI2CBus, "index of the I2C peripheral carrying the port expander")
	persistentFlags.Int("i2c-address", usbswitch.DefaultExpanderAddress, "I2C address of the port expander")
	persistentFlags.String("board-standard", usbswitch.DefaultBoardStandard, "carrier board standard version (selects pinout and USB switch polarity)")
	persistentFlags.String("log-level", "", "override log level (trace, debug, info, warn, error)")

	viper.SetEnvPrefix("USBSWITCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	persistentFlags.VisitAll(func(flag *pflag.Flag) {
		if err := viper.BindPFlag(flag.Name, flag); err != nil {
			panic(err)
		}
	})

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if _, err := loadConfigFile(); err != nil {
			return err
		}
		bindConfig(&cfg)
		return cfg.Validate()
	}

	cmd.AddCommand(newConnectCommand(baseLogger, &cfg))
	cmd.AddCommand(newLocksCommand(baseLogger, &cfg))
	cmd.AddCommand(newExclusiveCommand(baseLogger, &cfg))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func bindConfig(cfg *usbswitch.Config) {
	cfg.LockDir = viper.GetString("lock-dir")
	cfg.AcquireTimeout = viper.GetDuration("timeout")
	cfg.I2CBus = viper.GetInt("i2c-bus")
	cfg.ExpanderAddress = viper.GetInt("i2c-address")
	cfg.BoardStandard = viper.GetString("board-standard")
	cfg.LogLevel = viper.GetString("log-level")
}

func loadConfigFile() (string, error) {
	cfgPath := strings.TrimSpace(viper.GetString("config"))
	explicit := cfgPath != ""

	if cfgPath == "" {
		if dir, err := usbswitch.DefaultConfigDir(); err == nil {
			candidate := filepath.Join(dir, usbswitch.DefaultConfigFileName)
			if _, err := os.Stat(candidate); err == nil {
				cfgPath = candidate
			}
		}
	}
	if cfgPath == "" {
		return "", nil
	}
	abs, err := filepath.Abs(cfgPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path %q: %w", cfgPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("config file %q: %w", abs, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config file %q is a directory", abs)
	}
	viper.SetConfigFile(abs)
	if err := viper.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config file %q: %w", abs, err)
	}
	return abs, nil
}

// commandLogger applies the configured level override and subsystem tag.
func commandLogger(baseLogger pslog.Logger, cfg *usbswitch.Config, subsystem string) pslog.Logger {
	logger := baseLogger
	if level := strings.TrimSpace(cfg.LogLevel); level != "" {
		if parsed, ok := pslog.ParseLevel(level); ok {
			logger = logger.LogLevel(parsed)
		}
	}
	return logger.With("sys", subsystem)
}

// newLockRegistry builds the process-wide registry. Interactive commands
// install a reporting observer per lock so users see a waiting notice
// instead of an unexplained hang.
func newLockRegistry(logger pslog.Logger, cfg *usbswitch.Config, reporting bool) (*resourcelock.Registry, error) {
	opts := []resourcelock.RegistryOption{
		resourcelock.WithRegistryDirectory(cfg.LockDir),
		resourcelock.WithRegistryLogger(logger),
	}
	if reporting {
		opts = append(opts, resourcelock.WithObservers(func(name resourcelock.NamedLock) resourcelock.Observer {
			return resourcelock.NewReportingObserver(name, os.Stderr)
		}))
	}
	return resourcelock.NewRegistry(opts...)
}

// commandContext applies the configured acquire timeout.
func commandContext(ctx context.Context, cfg *usbswitch.Config) (context.Context, context.CancelFunc) {
	if cfg.AcquireTimeout > 0 {
		return context.WithTimeout(ctx, cfg.AcquireTimeout)
	}
	return context.WithCancel(ctx)
}
