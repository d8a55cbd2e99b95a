package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "oxy-vrterm",
		Short: "Terminal sessions on a virtual screen, rendered in stereo",
		Long: `oxy-vrterm runs shell sessions and shows the current one on a screen floating above a
lit floor, drawn once per eye for a head-mounted display. On the desktop the mouse turns the head
while the middle button is held.

Configuration is read from the TOML file given by --config or VRTERM_CONFIG_FILE, then from
VRTERM_* environment variables.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a TOML config file")
	flags.BoolVar(&opts.headless, "headless", false, "render with the recording backend, without a window")
	flags.Uint64Var(&opts.frames, "frames", 0, "stop after this many frames; 0 runs until the last session exits")
	return cmd
}
