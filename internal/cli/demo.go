package cli

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/five82/lokctl/internal/config"
	"github.com/five82/lokctl/internal/fakeloki"
	"github.com/five82/lokctl/internal/logging"
)

func newDemoCommand(opts *globalOptions) *cobra.Command {
	var (
		addr     string
		seed     int
		span     time.Duration
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Serve an in-memory Loki with sample entries",
		Long: `Serve the query, query_range, push and tail endpoints from memory,
seeded with sample entries and fed a new one every --interval. Point the TUI
at it with --url.`,
		Example: `  lokctl demo --addr 127.0.0.1:3100
  lokctl --url http://127.0.0.1:3100 --query '{job="api"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			logger, closer, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			srv := fakeloki.New(fakeloki.WithLogger(logger.WithField("component", "demo")))
			fakeloki.Seed(srv.Store(), time.Now(), span, seed)
			go fakeloki.Generate(cmd.Context(), srv.Store(), interval, time.Now)

			out := cmd.ErrOrStderr()
			pterm.Info.WithWriter(out).Printfln("serving fake Loki on http://%s with %d entries", addr, srv.Store().Len())
			pterm.Info.WithWriter(out).Printfln("try: lokctl --url http://%s --query '{job=\"api\"}'", addr)

			if err := srv.ListenAndServe(cmd.Context(), addr); err != nil {
				return err
			}
			pterm.Success.WithWriter(out).Println("demo stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3100", "listen address")
	cmd.Flags().IntVar(&seed, "seed", 120, "number of sample entries")
	cmd.Flags().DurationVar(&span, "span", 10*time.Minute, "time span of the sample entries")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "how often a live entry is added (0 disables)")
	return cmd
}
