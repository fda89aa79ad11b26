package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/latex-translator/internal/document"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/raw"
	"github.com/nerdneilsfield/latex-translator/pkg/translation"
)

// newChunkCommand 显示文档遮蔽后的分块边界，不调用翻译服务
func newChunkCommand(opts *rootOptions) *cobra.Command {
	var previewWidth int

	cmd := &cobra.Command{
		Use:   "chunk input_file",
		Short: "Show how a document would be split into chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			doc, err := document.Read(args[0], opts.encoding)
			if err != nil {
				return err
			}
			applyDocumentFormat(cmd, cfg, doc, log)

			svc, err := translation.New(cfg.ToTranslationConfig(),
				translation.NewProviderTranslator(raw.New()),
				translation.WithLogger(log))
			if err != nil {
				return err
			}
			prep, err := svc.Prepare(doc.Text)
			if err != nil {
				return err
			}

			renderChunks(cmd.OutOrStdout(), prep, cfg.ChunkSize, previewWidth)
			return nil
		},
	}

	cmd.Flags().IntVar(&previewWidth, "width", 48, "preview column width")
	return cmd
}

// renderChunks 以表格输出分块信息
func renderChunks(w io.Writer, prep *translation.Prepared, maxSize, width int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%d chunk(s), limit %d codepoints", len(prep.Chunks), maxSize))
	t.AppendHeader(table.Row{"#", "Codepoints", "Paragraphs", "Placeholders", "Preview"})

	total := 0
	for i, chunk := range prep.Chunks {
		size := translation.CodepointLength(chunk)
		total += size
		t.AppendRow(table.Row{
			i + 1,
			size,
			countParagraphs(chunk),
			len(prep.Scheme.TokenIDs(chunk)),
			preview(chunk, width),
		})
	}
	t.AppendFooter(table.Row{"", total, "", prep.Replacements(), ""})
	t.Render()
}

// countParagraphs 非空段落数
func countParagraphs(chunk string) int {
	n := 0
	for _, p := range translation.SplitParagraphs(chunk) {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// preview 第一行非空文本，按显示宽度截断
func preview(chunk string, width int) string {
	for _, line := range strings.Split(chunk, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return runewidth.Truncate(line, width, "…")
		}
	}
	return ""
}
