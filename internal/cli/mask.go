package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/latex-translator/internal/document"
	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

// newMaskCommand 只执行遮蔽，把遮蔽文本和注册表快照写入文件
//
// 与 restore 配合，可在两次进程之间用任意方式翻译遮蔽后的文本。
func newMaskCommand(opts *rootOptions) *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "mask input_file [masked_file]",
		Short: "Mask LaTeX markup and save the placeholder registry",
		Long: `Replace math, environments, commands and comments with placeholders.

The masked text is written to masked_file (default <input>.input) and the
placeholder registry to --registry (default <input>.registry.json). Translate
the masked text with any tool, then run "latex-translator restore".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			inputPath := args[0]
			maskedPath := document.InputDumpPath(inputPath)
			if len(args) == 2 {
				maskedPath = args[1]
			}
			snapshotPath := registryPath
			if snapshotPath == "" {
				snapshotPath = document.RegistryPath(inputPath)
			}

			doc, err := document.Read(inputPath, opts.encoding)
			if err != nil {
				return err
			}

			scheme, err := masking.ResolveTokenScheme(cfg.Sentinel, doc.Text)
			if err != nil {
				return err
			}
			masker, err := masking.NewMasker(cfg.Rules,
				masking.WithTokenScheme(scheme),
				masking.WithMatchTimeout(cfg.MatchTimeout))
			if err != nil {
				return err
			}
			res, err := masker.Mask(doc.Text)
			if err != nil {
				return err
			}

			if err := document.Write(maskedPath, res.Text); err != nil {
				return err
			}
			snapshot := masking.NewSnapshot(res.Registry, scheme)
			snapshot.Trim = cfg.ToTranslationConfig().TrimWhitespace
			if err := masking.SaveSnapshot(snapshotPath, snapshot); err != nil {
				return err
			}

			log.Info("document masked",
				zap.String("input", inputPath),
				zap.String("masked", maskedPath),
				zap.String("registry", snapshotPath),
				zap.Int("replacements", res.Replacements()))

			w := cmd.OutOrStdout()
			renderRuleCounts(w, res.Counts)
			fmt.Fprintf(w, "%d replacements made\n", res.Replacements())
			if res.Collisions > 0 {
				color.New(color.FgYellow).Fprintf(w, "warning: sentinel %q already occurs %d time(s) in the input\n",
					scheme.Sentinel(), res.Collisions)
			}
			fmt.Fprintf(w, "masked text: %s\nregistry:    %s\n", maskedPath, snapshotPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "", "registry snapshot path (default <input>.registry.json)")
	return cmd
}

// renderRuleCounts 输出命中过的规则及替换次数
func renderRuleCounts(w io.Writer, counts []masking.RuleCount) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rule", "Kind", "Replacements"})

	total := 0
	for _, c := range counts {
		if c.Count == 0 {
			continue
		}
		t.AppendRow(table.Row{c.Rule, c.Kind.String(), c.Count})
		total += c.Count
	}
	t.AppendFooter(table.Row{"", "Total", total})
	t.Render()
}
