package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/lokctl/internal/format"
	"github.com/five82/lokctl/internal/loki"
)

func newContextCommand(opts *globalOptions) *cobra.Command {
	p := &printOptions{}
	cmd := &cobra.Command{
		Use:   "context <timestamp> [expr]",
		Short: "Print the entries around a timestamp",
		Long: `Print the entries within the context radius (--context seconds) of a
timestamp. The timestamp is RFC 3339 (as printed by query --json), the
default query layout "2006-01-02 15:04:05.000" in local time, or Unix
nanoseconds.`,
		Example: `  lokctl context 2024-05-06T12:53:20.123Z '{job="api"}'
  lokctl context 1715000000123000000 --context 30`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			centerNs, err := parseCenter(args[0], time.Local)
			if err != nil {
				return err
			}
			client, cfg, err := newClient(cmd, opts)
			if err != nil {
				return err
			}
			query := cfg.DefaultQuery
			if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
				query = strings.TrimSpace(args[1])
			}

			res, err := client.FetchContext(cmd.Context(), query, centerNs)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, p, res)
		},
	}
	p.register(cmd)
	return cmd
}

// parseCenter accepts Unix nanoseconds, an RFC 3339 timestamp, or the
// default query output layout read in loc.
func parseCenter(raw string, loc *time.Location) (int64, error) {
	raw = strings.TrimSpace(raw)
	if ns, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ns, nil
	}
	if ns, err := loki.TimestampNs(raw); err == nil {
		return ns, nil
	}
	if t, err := time.ParseInLocation(format.DefaultLayout, raw, loc); err == nil {
		return t.UnixMilli() * 1_000_000, nil
	}
	return 0, fmt.Errorf("invalid timestamp %q: want RFC 3339, %q or Unix nanoseconds", raw, format.DefaultLayout)
}
