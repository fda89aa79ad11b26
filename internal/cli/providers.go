package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/factory"
)

// newProvidersCommand 列出内置提供商，或检查单个提供商的配置
func newProvidersCommand(opts *rootOptions) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "providers [name]",
		Short: "List translation providers or check one of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			registry := factory.NewRegistry()
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Provider", "Description", "Configured"})
				for _, name := range registry.List() {
					marker := ""
					if _, ok := cfg.Providers[name]; ok {
						marker = "yes"
					}
					label := name
					if name == cfg.ProviderName() {
						label += " *"
					}
					t.AppendRow(table.Row{label, registry.Describe(name), marker})
				}
				t.Render()
				return nil
			}

			name := args[0]
			if !registry.Has(name) {
				return &providers.UnknownProviderError{Name: name, Suggestions: registry.Suggest(name)}
			}
			fmt.Fprintf(w, "%s: %s\n", name, registry.Describe(name))
			if !check {
				return nil
			}

			provider, err := registry.Create(name, cfg.ProviderSettings(name))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := provider.HealthCheck(ctx); err != nil {
				color.New(color.FgRed).Fprintf(w, "health check failed: %v\n", err)
				return err
			}
			color.New(color.FgGreen).Fprintln(w, "health check passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "create the provider from the configuration and run a health check")
	return cmd
}
