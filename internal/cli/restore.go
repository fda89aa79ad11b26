package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/latex-translator/internal/document"
	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

// newRestoreCommand 用注册表快照还原译文中的占位符
func newRestoreCommand(opts *rootOptions) *cobra.Command {
	var (
		registryPath string
		trim         bool
	)

	cmd := &cobra.Command{
		Use:   "restore translated_file output_file",
		Short: "Restore placeholders in a translated text from a registry snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			snapshot, err := masking.LoadSnapshot(registryPath)
			if err != nil {
				return err
			}
			reg, err := snapshot.Registry()
			if err != nil {
				return err
			}
			scheme, err := snapshot.TokenScheme()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("trim") {
				snapshot.Trim = trim
			}

			doc, err := document.Read(args[0], opts.encoding)
			if err != nil {
				return err
			}

			restorer := masking.NewRestorer(scheme, snapshot.Trim)
			output, report, err := restorer.Restore(doc.Text, reg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if mismatch := report.Err(); mismatch != nil {
				log.Warn("restoration mismatch",
					zap.Strings("unresolved", report.Unresolved),
					zap.Ints("missing", report.Missing),
					zap.Ints("duplicated", report.Duplicated))
				if cfg.StrictRestore {
					return mismatch
				}
				color.New(color.FgYellow).Fprintf(w, "warning: %v\n", mismatch)
			}

			if err := document.Write(args[1], output); err != nil {
				return err
			}
			fmt.Fprintf(w, "restored %d placeholders in %d iteration(s): %s\n", reg.Len(), report.Iterations, args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "", "registry snapshot written by mask or --save-input-output")
	cmd.Flags().BoolVar(&trim, "trim", true, "tolerate spaces the translator inserted around placeholders (default: as recorded in the snapshot)")
	_ = cmd.MarkFlagRequired("registry")
	return cmd
}
