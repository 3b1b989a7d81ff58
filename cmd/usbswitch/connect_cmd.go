package main

import (
	"context"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"
	"pkt.systems/usbswitch"
	"pkt.systems/usbswitch/internal/switcher"
	"pkt.systems/usbswitch/resourcelock"
)

func newConnectCommand(baseLogger pslog.Logger, cfg *usbswitch.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect (pc|ecu)",
		Short: "Route the USB peripheral to the host computer or to the target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := switcher.ParseTarget(args[0])
			if err != nil {
				return err
			}
			logger := commandLogger(baseLogger, cfg, "cli.connect")
			locks, err := newLockRegistry(logger, cfg, true)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd.Context(), cfg)
			defer cancel()
			// The whole invocation runs under the general lock so two
			// simultaneous tool runs never interleave.
			return locks.With(ctx, resourcelock.General, func(ctx context.Context) error {
				expander, err := openExpander(cfg)
				if err != nil {
					return err
				}
				defer expander.Close()
				sw, err := switcher.New(ctx, expander, locks, cfg.BoardStandard, logger)
				if err != nil {
					return err
				}
				return sw.Connect(ctx, target)
			})
		},
	}
	return cmd
}
