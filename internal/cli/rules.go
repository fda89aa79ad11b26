package cli

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

// newRulesCommand 按应用顺序列出生效的遮蔽规则
func newRulesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the masking rules in the order they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			rules, err := masking.BuildRules(cfg.Rules, cfg.MatchTimeout)
			if err != nil {
				return err
			}
			renderRules(cmd.OutOrStdout(), rules)
			return nil
		},
	}
}

func renderRules(w io.Writer, rules []masking.Rule) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Rule", "Kind", "Discards", "Pattern"})
	for i, r := range rules {
		t.AppendRow(table.Row{i + 1, r.Name, r.Kind.String(), r.Kind.Discard(), runewidth.Truncate(r.Pattern, 60, "…")})
	}
	t.Render()
}
