package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/five82/lokctl/internal/config"
	"github.com/five82/lokctl/internal/format"
	"github.com/five82/lokctl/internal/loki"
	"github.com/five82/lokctl/internal/prefs"
)

// cliStyler colors entries for plain terminal output. Its renderer follows
// the writer, so pipes and files get no escape codes.
type cliStyler struct {
	highlight lipgloss.Style
	debug     lipgloss.Style
	warn      lipgloss.Style
	err       lipgloss.Style
}

var _ format.Styler = cliStyler{}

func newCLIStyler(w io.Writer) cliStyler {
	r := lipgloss.NewRenderer(w)
	return cliStyler{
		highlight: r.NewStyle().Background(lipgloss.Color("220")).Foreground(lipgloss.Color("0")),
		debug:     r.NewStyle().Foreground(lipgloss.Color("245")).Faint(true),
		warn:      r.NewStyle().Foreground(lipgloss.Color("220")),
		err:       r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

func (s cliStyler) Highlight(text string) string { return s.highlight.Render(text) }

func (s cliStyler) Severity(sev format.Severity, text string) string {
	switch sev {
	case format.SeverityError:
		return s.err.Render(text)
	case format.SeverityWarn:
		return s.warn.Render(text)
	case format.SeverityDebug:
		return s.debug.Render(text)
	default:
		return text
	}
}

// printOptions are the output flags of query and context.
type printOptions struct {
	search  string
	noColor bool
	json    bool
}

func (p *printOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.search, "search", "", "highlight this term (literal, case-insensitive)")
	cmd.Flags().BoolVar(&p.noColor, "no-color", false, "disable colors")
	cmd.Flags().BoolVar(&p.json, "json", false, "print one JSON object per entry")
}

// printEntries writes entries to w and reports skipped rows on errw. With
// --no-color the lines carry no styling at all.
func printEntries(w, errw io.Writer, opts *globalOptions, p *printOptions, res loki.Result) error {
	if p.json {
		enc := json.NewEncoder(w)
		for _, e := range res.Entries {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("encode entry: %w", err)
			}
		}
	} else {
		f := cliFormatter(w, errw, opts, p.noColor)
		for _, line := range f.Lines(res.Entries, p.search) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}

	for _, skipped := range res.Skipped {
		pterm.Warning.WithWriter(errw).Printfln("skipped %v", skipped)
	}
	return nil
}

func cliFormatter(w, errw io.Writer, opts *globalOptions, noColor bool) format.Formatter {
	path := opts.prefsPath
	if path == "" {
		path = prefs.DefaultPath()
	}
	p, err := prefs.Load(path)
	if err != nil {
		pterm.Warning.WithWriter(errw).Printfln("%v; using the default time layout", err)
	}

	f := format.Formatter{Layout: p.TimeLayout, Location: time.Local}
	if !noColor {
		f.Styler = newCLIStyler(w)
	}
	return f
}

// newClient resolves configuration for cmd and returns a backend client.
func newClient(cmd *cobra.Command, opts *globalOptions) (*loki.Client, config.Config, error) {
	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return nil, cfg, fmt.Errorf("load config: %w", err)
	}
	client, err := loki.NewClient(cfg.URL,
		loki.WithLimit(cfg.Limit),
		loki.WithContextRadius(cfg.ContextRadius),
	)
	if err != nil {
		return nil, cfg, fmt.Errorf("init loki client: %w", err)
	}
	return client, cfg, nil
}
