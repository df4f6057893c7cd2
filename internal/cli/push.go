package cli

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/five82/lokctl/internal/dispatch"
)

func newPushCommand(opts *globalOptions) *cobra.Command {
	var job, level string
	cmd := &cobra.Command{
		Use:     "push <message>",
		Short:   "Write one entry to the backend",
		Example: `  lokctl push --job deploy --level info "release 1.4.2 rolled out"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if err := dispatch.ValidateEntry(job, level, message); err != nil {
				return err
			}
			client, _, err := newClient(cmd, opts)
			if err != nil {
				return err
			}
			job, level := strings.TrimSpace(job), strings.TrimSpace(level)
			if err := client.WriteLog(cmd.Context(), job, level, message); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.ErrOrStderr()).Printfln("wrote entry to {job=%q, level=%q}", job, level)
			return nil
		},
	}
	cmd.Flags().StringVar(&job, "job", "lokctl", "job label")
	cmd.Flags().StringVar(&level, "level", "info", "level label")
	return cmd
}
