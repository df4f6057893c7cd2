package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/lokctl/internal/app"
	"github.com/five82/lokctl/internal/config"
)

// ErrNotTerminal is returned when the TUI is started without a terminal.
var ErrNotTerminal = errors.New("stdout is not a terminal; use a subcommand such as 'lokctl query' for scripts")

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	prefsPath  string
}

// NewRootCommand builds the lokctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "lokctl",
		Short: "Terminal client for Grafana Loki",
		Long: `lokctl browses a Loki backend from the terminal: run a LogQL query,
pick an entry to see what happened around it, highlight a term, follow new
entries live and write entries of your own.

Configuration comes from flags, LOKI_* environment variables and
~/.config/lokctl/config.toml, in that order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return ErrNotTerminal
			}
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: opts.configPath,
				PrefsPath:  opts.prefsPath,
				Flags:      cmd.Flags(),
			})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/lokctl/config.toml)")
	pf.StringVar(&opts.prefsPath, "prefs", "", "preferences file (default ~/.config/lokctl/prefs.toml)")
	config.RegisterFlags(pf)

	root.AddCommand(
		newQueryCommand(opts),
		newContextCommand(opts),
		newPushCommand(opts),
		newDemoCommand(opts),
	)
	return root
}
