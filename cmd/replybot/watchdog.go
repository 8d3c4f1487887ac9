package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cpunion/reply-bot/pkg/watchdog"
)

func newWatchdogCmd(a *app) *cobra.Command {
	var (
		logPath     string
		target      string
		fromStart   bool
		metricsAddr string
		sig         string
	)
	cmd := &cobra.Command{
		Use:   "watchdog",
		Short: "Tail the reply log and stop the agent on the first bad reply",
		Long: `watchdog follows the agent's reply log. A candidate reply that breaks
policy, or a logged interaction anomaly, terminates the agent process and
exits non-zero. Use --log - to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logPath == "" {
				logPath = a.cfg.Watchdog.LogPath
			}
			if target == "" {
				target = a.cfg.Watchdog.Target
			}
			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			fromStart = fromStart || a.cfg.Watchdog.FromStart

			var (
				src watchdog.Source
				err error
			)
			if logPath == "-" {
				src = watchdog.NewReaderSource(os.Stdin)
			} else if src, err = watchdog.NewFileSource(logPath, fromStart); err != nil {
				return err
			}
			defer src.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			a.serveMetrics(ctx, metricsAddr)

			w := watchdog.New(src, watchdog.NewProcessSupervisor(sig), watchdog.Config{Target: target}, a.log, a.metrics)
			err = w.Run(ctx)

			var v *watchdog.ViolationError
			if errors.As(err, &v) {
				fmt.Fprintln(cmd.OutOrStdout(), errorStyle.Render("terminated "+target+": "+v.Rule))
				if v.Text != "" {
					fmt.Fprintln(cmd.OutOrStdout(), field("reply", v.Text))
				}
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("%d replies checked, none violated policy", w.Checked())))
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "reply log to follow (default watchdog.log_path)")
	cmd.Flags().StringVar(&target, "target", "", "process pattern to terminate (default watchdog.target)")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "audit lines already in the log")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&sig, "signal", "TERM", "signal sent to the target")
	return cmd
}
