package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
	"pkt.systems/usbswitch"
	"pkt.systems/usbswitch/resourcelock"
)

func newLocksCommand(baseLogger pslog.Logger, cfg *usbswitch.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Show the state of every shared resource lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := commandLogger(baseLogger, cfg, "cli.locks")
			locks, err := newLockRegistry(logger, cfg, false)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "LOCK\tSTATE\tHOLDER")
			for _, name := range resourcelock.LockOrder {
				m := locks.Mutex(name)
				held, pid, err := m.Probe()
				switch {
				case err != nil:
					fmt.Fprintf(w, "%s\terror\t%v\n", name, err)
				case !held:
					fmt.Fprintf(w, "%s\tfree\t-\n", name)
				default:
					fmt.Fprintf(w, "%s\theld\t%s\n", name, describeHolder(pid))
				}
			}
			return w.Flush()
		},
	}
	return cmd
}

// describeHolder resolves the recorded holder pid to a process description.
func describeHolder(pid int) string {
	if pid <= 0 {
		return "unknown"
	}
	running, err := process.PidExists(int32(pid))
	if err != nil || !running {
		return fmt.Sprintf("pid %d (gone)", pid)
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return fmt.Sprintf("pid %d", pid)
	}
	name, err := proc.Name()
	if err != nil || name == "" {
		return fmt.Sprintf("pid %d", pid)
	}
	return fmt.Sprintf("pid %d (%s)", pid, name)
}
