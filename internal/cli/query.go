package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newQueryCommand(opts *globalOptions) *cobra.Command {
	p := &printOptions{}
	cmd := &cobra.Command{
		Use:   "query [expr]",
		Short: "Run a LogQL query and print the entries",
		Example: `  lokctl query '{job="api"}'
  lokctl query '{job="api"} |= "timeout"' --search timeout
  lokctl query --json | jq .line`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(cmd, opts)
			if err != nil {
				return err
			}
			query := cfg.DefaultQuery
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				query = strings.TrimSpace(args[0])
			}

			res, err := client.FetchLogs(cmd.Context(), query)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, p, res)
		},
	}
	p.register(cmd)
	return cmd
}
