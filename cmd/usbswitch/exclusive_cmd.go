package main

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"
	"pkt.systems/usbswitch"
)

func newExclusiveCommand(baseLogger pslog.Logger, cfg *usbswitch.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exclusive -- command [args...]",
		Short: "Run a command while holding every shared resource lock",
		Long: `Acquires every resource lock in the fixed global order, runs the given
command, and releases the locks in reverse order afterwards. Meant for
maintenance work that must not race with any other use of the board,
its configuration, or its caches.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := commandLogger(baseLogger, cfg, "cli.exclusive")
			locks, err := newLockRegistry(logger, cfg, true)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd.Context(), cfg)
			defer cancel()
			lease, err := locks.AllAcquired(ctx)
			if err != nil {
				return err
			}
			defer lease.Release()
			logger.Info("locks.bulk.held", "command", args[0])
			child := exec.CommandContext(cmd.Context(), args[0], args[1:]...)
			child.Stdin = os.Stdin
			child.Stdout = cmd.OutOrStdout()
			child.Stderr = cmd.ErrOrStderr()
			return child.Run()
		},
	}
	return cmd
}
